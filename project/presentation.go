package project

import "github.com/remip/giftmanager/reconcile"

// VisibleExpenses filters a project's flows for display to one viewer:
// shared expenses whose beneficiary is the viewer stay hidden so the
// surprise holds, and hidden reports how many were withheld. Display only —
// reconciliation always runs over the unfiltered snapshot, so balances are
// identical for every viewer.
func VisibleExpenses(p Project, viewer string) (visible []reconcile.Flow, hidden int) {
	visible = make([]reconcile.Flow, 0, len(p.Expenses))
	for _, flow := range p.Expenses {
		if flow.Kind != reconcile.KindSettlement && Normalize(flow.Beneficiary) == Normalize(viewer) {
			hidden++
			continue
		}
		visible = append(visible, flow)
	}
	return visible, hidden
}

// FilterKind keeps only flows of the given kind; an empty kind keeps all.
func FilterKind(flows []reconcile.Flow, kind reconcile.Kind) []reconcile.Flow {
	if kind == "" {
		return flows
	}
	filtered := make([]reconcile.Flow, 0, len(flows))
	for _, flow := range flows {
		if flow.Kind == kind {
			filtered = append(filtered, flow)
		}
	}
	return filtered
}

// VisibleSubEvents hides sub-events aimed at the viewer, same rule as
// expenses.
func VisibleSubEvents(p Project, viewer string) (visible []reconcile.SubEvent, hidden int) {
	visible = make([]reconcile.SubEvent, 0, len(p.SubEvents))
	for _, se := range p.SubEvents {
		if Normalize(se.Beneficiary) == Normalize(viewer) {
			hidden++
			continue
		}
		visible = append(visible, se)
	}
	return visible, hidden
}
