package project

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remip/giftmanager/reconcile"
)

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.True(t, ValidCode(code), "generated code %q should be valid", code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 90, "codes should not collide constantly")
}

func TestValidCode(t *testing.T) {
	assert.True(t, ValidCode("N0EL25"))
	assert.False(t, ValidCode("short"))
	assert.False(t, ValidCode("toolong7"))
	assert.False(t, ValidCode("noel25"), "lowercase is not in the alphabet")
	assert.False(t, ValidCode("AB CD1"))
}

func TestNewProject(t *testing.T) {
	creator := uuid.New()

	p, err := New("Noël 2026", "N0EL26", creator)
	require.NoError(t, err)
	assert.Equal(t, "N0EL26", p.Code)
	assert.Equal(t, creator, p.CreatedBy)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = New("", "N0EL26", creator)
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = New("Noël", "bad", creator)
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestHasMemberIsCaseInsensitive(t *testing.T) {
	p := Project{Members: []reconcile.Member{{Name: "Alice"}}}

	assert.True(t, p.HasMember("alice"))
	assert.True(t, p.HasMember("  ALICE "))
	assert.False(t, p.HasMember("bob"))
}

func TestValidAmount(t *testing.T) {
	assert.True(t, ValidAmount(10))
	assert.True(t, ValidAmount(10.55))
	assert.False(t, ValidAmount(0))
	assert.False(t, ValidAmount(-3))
	assert.False(t, ValidAmount(10.555))
}

func TestValidateExpense(t *testing.T) {
	valid := reconcile.Flow{
		ID: "e1", Kind: reconcile.KindExpense, Title: "console", Amount: 120,
		Payer: "alice", Beneficiary: "carol", Participants: []string{"alice", "bob"},
	}
	assert.NoError(t, ValidateExpense(valid))

	bad := valid
	bad.Amount = -1
	assert.ErrorIs(t, ValidateExpense(bad), ErrInvalidAmount)

	bad = valid
	bad.Title = ""
	assert.ErrorIs(t, ValidateExpense(bad), ErrEmptyTitle)

	bad = valid
	bad.Beneficiary = ""
	assert.ErrorIs(t, ValidateExpense(bad), ErrMissingBeneficiary)

	bad = valid
	bad.Kind = "transfer"
	assert.ErrorIs(t, ValidateExpense(bad), ErrUnknownKind)
}

func TestValidateSettlement(t *testing.T) {
	valid := reconcile.Flow{ID: "s1", Kind: reconcile.KindSettlement, Amount: 30, Payer: "bob", Receiver: "alice"}
	assert.NoError(t, ValidateExpense(valid))

	bad := valid
	bad.Receiver = ""
	assert.ErrorIs(t, ValidateExpense(bad), ErrMissingReceiver)

	bad = valid
	bad.Receiver = "Bob"
	assert.ErrorIs(t, ValidateExpense(bad), ErrSelfSettlement)
}

func TestValidateSubEvent(t *testing.T) {
	valid := reconcile.SubEvent{
		ID: "se1", Title: "carol's 30th", Beneficiary: "carol", Buyer: "alice",
		Pledges: map[string]float64{"alice": 20, "bob": 10},
		Items:   []reconcile.SubEventItem{{ID: "i1", Title: "watch", Amount: 25}},
	}
	assert.NoError(t, ValidateSubEvent(valid))

	bad := valid
	bad.Pledges = map[string]float64{"Carol": 10}
	assert.ErrorIs(t, ValidateSubEvent(bad), ErrBeneficiaryPledge)

	bad = valid
	bad.Pledges = map[string]float64{"bob": -1}
	assert.ErrorIs(t, ValidateSubEvent(bad), ErrNegativePledge)

	bad = valid
	bad.Items = []reconcile.SubEventItem{{ID: "i1", Title: "watch", Amount: 0}}
	assert.ErrorIs(t, ValidateSubEvent(bad), ErrInvalidAmount)

	bad = valid
	bad.Buyer = ""
	assert.ErrorIs(t, ValidateSubEvent(bad), ErrMissingBuyer)
}

func TestSnapshotKeepsOrder(t *testing.T) {
	p := Project{
		Members: []reconcile.Member{{Name: "alice"}, {Name: "bob"}},
		Expenses: []reconcile.Flow{
			{ID: "e1", Kind: reconcile.KindExpense, Amount: 10, Payer: "alice", Participants: []string{"bob"}},
			{ID: "s1", Kind: reconcile.KindSettlement, Amount: 5, Payer: "bob", Receiver: "alice"},
		},
		SubEvents: []reconcile.SubEvent{{ID: "se1"}},
	}

	snap := p.Snapshot()

	require.Len(t, snap.Flows, 2)
	assert.Equal(t, "e1", snap.Flows[0].ID)
	assert.Equal(t, "s1", snap.Flows[1].ID)
	assert.Len(t, snap.SubEvents, 1)
}
