// Package reconcile derives net balances and suggested settlement transfers
// from a project snapshot. It is pure: every call recomputes from scratch and
// never mutates its input, so re-running after any edit is always safe.
package reconcile

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindExpense    Kind = "expense"
	KindSettlement Kind = "settlement"
)

// Member identifies a participant inside the ledger. Bookkeeping keys off the
// name, not the linked user account.
type Member struct {
	Name         string     `json:"name"`
	LinkedUserID *uuid.UUID `json:"linked_user_id,omitempty"`
}

// Flow is a single money movement: either a shared expense fronted by Payer
// and owed back by Participants, or a direct settlement from Payer to
// Receiver.
type Flow struct {
	ID           string             `json:"id"`
	Kind         Kind               `json:"type"`
	Title        string             `json:"title,omitempty"`
	Amount       float64            `json:"amount"`
	Payer        string             `json:"payer"`
	Receiver     string             `json:"receiver,omitempty"`
	Beneficiary  string             `json:"beneficiary,omitempty"`
	Participants []string           `json:"involved,omitempty"`
	Weights      map[string]float64 `json:"shares,omitempty"`
	Bought       bool               `json:"is_bought"`
	CreatedAt    time.Time          `json:"date"`
}

// SubEvent is a budget pooled by several contributors toward gifts for one
// beneficiary, physically purchased by one buyer.
type SubEvent struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Beneficiary string             `json:"beneficiary"`
	Buyer       string             `json:"buyer"`
	Pledges     map[string]float64 `json:"pledges"`
	Items       []SubEventItem     `json:"items"`
}

type SubEventItem struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Amount float64 `json:"amount"`
	Bought bool    `json:"is_bought"`
}

// Snapshot is the sole engine input: an internally consistent read of a
// project's members, flat flows and sub-events.
type Snapshot struct {
	Members   []Member   `json:"members"`
	Flows     []Flow     `json:"flows"`
	SubEvents []SubEvent `json:"sub_events"`
}

// Transaction is a suggested future transfer, never a record of one.
type Transaction struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type Result struct {
	Balances     map[string]float64 `json:"balances"`
	TotalSpent   map[string]float64 `json:"total_spent"`
	Transactions []Transaction      `json:"transactions"`
}

// Reconcile runs the full pipeline over a snapshot: sub-events are expanded
// into synthetic flows, appended after the flat flows, folded into balances,
// and matched into suggested transfers.
func Reconcile(snapshot Snapshot) Result {
	flows := make([]Flow, 0, len(snapshot.Flows))
	flows = append(flows, snapshot.Flows...)
	flows = append(flows, Synthesize(snapshot.SubEvents)...)

	balances, totalSpent := Accumulate(snapshot.Members, flows)

	return Result{
		Balances:     balances,
		TotalSpent:   totalSpent,
		Transactions: Match(balances),
	}
}
