package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchGreedyExample(t *testing.T) {
	transactions := Match(map[string]float64{"alice": -30, "bob": -20, "carol": 50})

	require.Len(t, transactions, 2)
	assert.Equal(t, Transaction{From: "alice", To: "carol", Amount: 30}, transactions[0])
	assert.Equal(t, Transaction{From: "bob", To: "carol", Amount: 20}, transactions[1])
}

func TestMatchIgnoresSettledBalances(t *testing.T) {
	transactions := Match(map[string]float64{"alice": 0.004, "bob": -0.009, "carol": 0})

	assert.Empty(t, transactions)
}

func TestMatchRoundsEmittedAmounts(t *testing.T) {
	transactions := Match(map[string]float64{"alice": -33.333333, "bob": 33.333333})

	require.Len(t, transactions, 1)
	assert.Equal(t, 33.33, transactions[0].Amount)
}

func TestMatchSplitsDebtAcrossCreditors(t *testing.T) {
	transactions := Match(map[string]float64{"alice": -50, "bob": 30, "carol": 20})

	require.Len(t, transactions, 2)
	assert.Equal(t, Transaction{From: "alice", To: "bob", Amount: 30}, transactions[0])
	assert.Equal(t, Transaction{From: "alice", To: "carol", Amount: 20}, transactions[1])
}

func TestMatchDeterministicOnTies(t *testing.T) {
	balances := map[string]float64{"zoe": -10, "amy": -10, "bob": 20}

	first := Match(balances)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Match(balances))
	}
	// Equal debts tie-break on name order.
	require.Len(t, first, 2)
	assert.Equal(t, "amy", first[0].From)
	assert.Equal(t, "zoe", first[1].From)
}

func TestMatchBoundsTransactionCount(t *testing.T) {
	balances := map[string]float64{
		"a": -12.5, "b": -7.25, "c": -30, "d": 19.75, "e": 20, "f": 10,
	}

	transactions := Match(balances)

	assert.LessOrEqual(t, len(transactions), 3+3-1)
	for _, tx := range transactions {
		assert.Greater(t, tx.Amount, 0.0)
	}
}
