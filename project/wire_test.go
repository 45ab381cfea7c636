package project

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remip/giftmanager/reconcile"
)

func TestExpenseInputAcceptsBothBoughtSpellings(t *testing.T) {
	var snake ExpenseInput
	require.NoError(t, json.Unmarshal([]byte(`{"id":"e1","type":"expense","title":"console","amount":90,"payer":"alice","is_bought":true}`), &snake))
	assert.True(t, snake.Flow().Bought)

	var camel ExpenseInput
	require.NoError(t, json.Unmarshal([]byte(`{"id":"e1","type":"expense","title":"console","amount":90,"payer":"alice","isBought":true}`), &camel))
	assert.True(t, camel.Flow().Bought)
}

func TestExpenseInputFillsDefaults(t *testing.T) {
	flow := ExpenseInput{Title: "console", Amount: 90, Payer: "alice"}.Flow()

	assert.NotEmpty(t, flow.ID)
	assert.Equal(t, reconcile.KindExpense, flow.Kind)
	assert.False(t, flow.CreatedAt.IsZero())
	assert.False(t, flow.Bought)
}

func TestMemberInputAcceptsBothLinkSpellings(t *testing.T) {
	id := uuid.New()

	m := MemberInput{Name: "alice", LinkedUserIDAlt: &id}.Member()
	require.NotNil(t, m.LinkedUserID)
	assert.Equal(t, id, *m.LinkedUserID)

	other := uuid.New()
	m = MemberInput{Name: "alice", LinkedUserID: &id, LinkedUserIDAlt: &other}.Member()
	assert.Equal(t, id, *m.LinkedUserID, "canonical spelling wins")
}

func TestSubEventInputAssignsItemIDs(t *testing.T) {
	bought := true
	se := SubEventInput{
		Title: "gift", Beneficiary: "carol", Buyer: "alice",
		Pledges: map[string]float64{"bob": 10},
		Items: []SubEventItemInput{
			{Title: "watch", Amount: 25, IsBoughtAlt: &bought},
			{ID: "i2", Title: "card", Amount: 5},
		},
	}.SubEvent()

	assert.NotEmpty(t, se.ID)
	require.Len(t, se.Items, 2)
	assert.NotEmpty(t, se.Items[0].ID)
	assert.True(t, se.Items[0].Bought)
	assert.Equal(t, "i2", se.Items[1].ID)
}
