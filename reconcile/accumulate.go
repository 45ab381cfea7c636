package reconcile

// Accumulate folds flows, in the given order, into a net balance and a total
// spend per member. Positive balance = owed money by the group, negative =
// owes money. Names referenced by a flow but absent from members are admitted
// lazily with a zero balance, so the fold is total on dirty input. Flows with
// non-positive or non-finite amounts are skipped rather than failing.
func Accumulate(members []Member, flows []Flow) (balances, totalSpent map[string]float64) {
	balances = make(map[string]float64, len(members))
	totalSpent = make(map[string]float64, len(members))
	for _, m := range members {
		balances[m.Name] = 0
		totalSpent[m.Name] = 0
	}

	for _, flow := range flows {
		if !validAmount(flow.Amount) {
			continue
		}
		if _, ok := balances[flow.Payer]; !ok {
			balances[flow.Payer] = 0
		}
		if _, ok := totalSpent[flow.Payer]; !ok {
			totalSpent[flow.Payer] = 0
		}

		if flow.Kind == KindSettlement {
			if _, ok := balances[flow.Receiver]; !ok {
				balances[flow.Receiver] = 0
			}
			balances[flow.Payer] += flow.Amount
			balances[flow.Receiver] -= flow.Amount
			continue
		}

		totalSpent[flow.Payer] += flow.Amount

		known := make([]string, 0, len(flow.Participants))
		for _, name := range flow.Participants {
			if _, ok := balances[name]; ok {
				known = append(known, name)
			}
		}

		// An empty split means nobody owes, so the payer is not credited
		// either; only totalSpent moved.
		owed := Split(flow.Amount, known, flow.Weights)
		if len(owed) == 0 {
			continue
		}
		balances[flow.Payer] += flow.Amount
		for name, share := range owed {
			balances[name] -= share
		}
	}

	return balances, totalSpent
}
