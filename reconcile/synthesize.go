package reconcile

import "sort"

// Synthesize expands sub-events into synthetic shared expenses, one per
// purchased item. Every item of a sub-event reuses the identical pledge
// weight vector, so the proportional split is per sub-event, not per item: a
// contributor who pledged twice as much as another absorbs twice the share of
// every item bought under it. A sub-event with no positive pledge contributes
// nothing.
func Synthesize(subEvents []SubEvent) []Flow {
	var flows []Flow
	for _, se := range subEvents {
		contributors := make([]string, 0, len(se.Pledges))
		for name, pledge := range se.Pledges {
			if pledge > 0 {
				contributors = append(contributors, name)
			}
		}
		if len(contributors) == 0 {
			continue
		}
		// Pledges are a map; sort so identical snapshots synthesize
		// identical flows.
		sort.Strings(contributors)

		weights := make(map[string]float64, len(contributors))
		for _, name := range contributors {
			weights[name] = se.Pledges[name]
		}

		for _, item := range se.Items {
			if !validAmount(item.Amount) || item.Title == "" {
				continue
			}
			flows = append(flows, Flow{
				ID:           se.ID + "/" + item.ID,
				Kind:         KindExpense,
				Title:        item.Title,
				Amount:       item.Amount,
				Payer:        se.Buyer,
				Beneficiary:  se.Beneficiary,
				Participants: contributors,
				Weights:      weights,
				Bought:       item.Bought,
			})
		}
	}
	return flows
}
