package reconcile

import (
	"math"
	"sort"
)

// Members within this distance of zero are considered settled up.
const settleTolerance = 0.01

type party struct {
	name    string
	balance float64
}

// Match greedily pairs debtors against creditors until every balance is
// within tolerance of zero. Largest obligations are matched first, which
// tends to minimize residual small transfers; it is a deterministic
// heuristic, not a minimum-edge solver. Emitted amounts are rounded to two
// decimals while the running balances keep full precision.
func Match(balances map[string]float64) []Transaction {
	names := make([]string, 0, len(balances))
	for name := range balances {
		names = append(names, name)
	}
	sort.Strings(names)

	var debtors, creditors []party
	for _, name := range names {
		switch balance := balances[name]; {
		case balance < -settleTolerance:
			debtors = append(debtors, party{name, balance})
		case balance > settleTolerance:
			creditors = append(creditors, party{name, balance})
		}
	}
	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].balance < debtors[j].balance })
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].balance > creditors[j].balance })

	transactions := []Transaction{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := math.Min(-debtor.balance, creditor.balance)
		transactions = append(transactions, Transaction{
			From:   debtor.name,
			To:     creditor.name,
			Amount: round2(amount),
		})

		debtor.balance += amount
		creditor.balance -= amount
		if math.Abs(debtor.balance) < settleTolerance {
			i++
		}
		if creditor.balance < settleTolerance {
			j++
		}
	}
	return transactions
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
