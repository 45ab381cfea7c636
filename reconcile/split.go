package reconcile

import "math"

// Split computes each participant's owed portion of amount. Weights that are
// missing, non-finite or not strictly positive are ignored; if at least one
// participant keeps a valid weight the split is proportional over the valid
// weights (unweighted participants owe nothing), otherwise everyone owes an
// equal share. A split with no resolvable participants returns nil and must
// move no money at all, including the payer's credit.
func Split(amount float64, participants []string, weights map[string]float64) map[string]float64 {
	if len(participants) == 0 {
		return nil
	}

	valid := make(map[string]float64, len(participants))
	for _, name := range participants {
		w, ok := weights[name]
		if !ok || math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			continue
		}
		valid[name] = w
	}

	custom := len(valid) > 0
	var totalWeight float64
	if custom {
		for _, w := range valid {
			totalWeight += w
		}
	} else {
		totalWeight = float64(len(participants))
	}
	if totalWeight <= 0 {
		return nil
	}

	owed := make(map[string]float64, len(participants))
	for _, name := range participants {
		weight := 1.0
		if custom {
			weight = valid[name]
		}
		if weight > 0 {
			owed[name] = amount * weight / totalWeight
		}
	}
	return owed
}

func validAmount(amount float64) bool {
	return amount > 0 && !math.IsInf(amount, 1)
}
