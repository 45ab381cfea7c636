package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remip/giftmanager/reconcile"
)

func testProject() Project {
	return Project{
		Members: []reconcile.Member{{Name: "alice"}, {Name: "bob"}, {Name: "carol"}},
		Expenses: []reconcile.Flow{
			{ID: "e1", Kind: reconcile.KindExpense, Title: "console", Amount: 90,
				Payer: "alice", Beneficiary: "carol", Participants: []string{"alice", "bob"}},
			{ID: "e2", Kind: reconcile.KindExpense, Title: "book", Amount: 20,
				Payer: "bob", Beneficiary: "alice", Participants: []string{"bob", "carol"}},
			{ID: "s1", Kind: reconcile.KindSettlement, Amount: 15, Payer: "bob", Receiver: "alice"},
		},
	}
}

func TestVisibleExpensesHidesViewerGifts(t *testing.T) {
	visible, hidden := VisibleExpenses(testProject(), "carol")

	assert.Equal(t, 1, hidden)
	require.Len(t, visible, 2)
	assert.Equal(t, "e2", visible[0].ID)
	assert.Equal(t, "s1", visible[1].ID)
}

func TestVisibleExpensesKeepsSettlements(t *testing.T) {
	// alice receives a settlement and is the beneficiary of e2; only the
	// gift is hidden from her.
	visible, hidden := VisibleExpenses(testProject(), "Alice")

	assert.Equal(t, 1, hidden)
	require.Len(t, visible, 2)
	assert.Equal(t, "e1", visible[0].ID)
	assert.Equal(t, "s1", visible[1].ID)
}

func TestHiddenExpensesStillCount(t *testing.T) {
	// The presentation filter must never leak into the math: carol's
	// balance includes the gift she cannot see.
	p := testProject()
	result := reconcile.Reconcile(p.Snapshot())

	_, hidden := VisibleExpenses(p, "carol")
	assert.Equal(t, 1, hidden)
	assert.InDelta(t, -10, result.Balances["carol"], 1e-9) // owes half of e2
}

func TestFilterKind(t *testing.T) {
	p := testProject()

	all := FilterKind(p.Expenses, "")
	assert.Len(t, all, 3)

	expenses := FilterKind(p.Expenses, reconcile.KindExpense)
	assert.Len(t, expenses, 2)

	settlements := FilterKind(p.Expenses, reconcile.KindSettlement)
	require.Len(t, settlements, 1)
	assert.Equal(t, "s1", settlements[0].ID)
}

func TestVisibleSubEvents(t *testing.T) {
	p := Project{SubEvents: []reconcile.SubEvent{
		{ID: "se1", Beneficiary: "carol"},
		{ID: "se2", Beneficiary: "bob"},
	}}

	visible, hidden := VisibleSubEvents(p, "carol")

	assert.Equal(t, 1, hidden)
	require.Len(t, visible, 1)
	assert.Equal(t, "se2", visible[0].ID)
}
