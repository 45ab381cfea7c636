package project

import (
	"time"

	"github.com/google/uuid"

	"github.com/remip/giftmanager/reconcile"
)

// Older clients send the same fields under camelCase names. All field-name
// reconciliation happens here, at the store boundary; the engine only ever
// sees the canonical shape.

type ExpenseInput struct {
	ID          string             `json:"id"`
	Type        string             `json:"type"`
	Title       string             `json:"title"`
	Amount      float64            `json:"amount"`
	Payer       string             `json:"payer"`
	Receiver    string             `json:"receiver"`
	Beneficiary string             `json:"beneficiary"`
	Involved    []string           `json:"involved"`
	Shares      map[string]float64 `json:"shares"`
	IsBought    *bool              `json:"is_bought"`
	IsBoughtAlt *bool              `json:"isBought"`
	Date        *time.Time         `json:"date"`
}

// Flow normalizes the wire shape into a canonical flow record. Missing ids
// and dates are filled in; an expense is assumed unless the type says
// otherwise.
func (in ExpenseInput) Flow() reconcile.Flow {
	flow := reconcile.Flow{
		ID:           in.ID,
		Kind:         reconcile.Kind(in.Type),
		Title:        in.Title,
		Amount:       in.Amount,
		Payer:        in.Payer,
		Receiver:     in.Receiver,
		Beneficiary:  in.Beneficiary,
		Participants: in.Involved,
		Weights:      in.Shares,
		CreatedAt:    time.Now().UTC(),
	}
	if flow.ID == "" {
		flow.ID = uuid.NewString()
	}
	if flow.Kind == "" {
		flow.Kind = reconcile.KindExpense
	}
	if in.IsBought != nil {
		flow.Bought = *in.IsBought
	} else if in.IsBoughtAlt != nil {
		flow.Bought = *in.IsBoughtAlt
	}
	if in.Date != nil {
		flow.CreatedAt = in.Date.UTC()
	}
	return flow
}

type MemberInput struct {
	Name            string     `json:"name"`
	LinkedUserID    *uuid.UUID `json:"linked_user_id"`
	LinkedUserIDAlt *uuid.UUID `json:"linkedUserId"`
}

func (in MemberInput) Member() reconcile.Member {
	m := reconcile.Member{Name: in.Name, LinkedUserID: in.LinkedUserID}
	if m.LinkedUserID == nil {
		m.LinkedUserID = in.LinkedUserIDAlt
	}
	return m
}

type SubEventInput struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Beneficiary string              `json:"beneficiary"`
	Buyer       string              `json:"buyer"`
	Pledges     map[string]float64  `json:"pledges"`
	Items       []SubEventItemInput `json:"items"`
}

type SubEventItemInput struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Amount      float64 `json:"amount"`
	IsBought    *bool   `json:"is_bought"`
	IsBoughtAlt *bool   `json:"isBought"`
}

func (in SubEventInput) SubEvent() reconcile.SubEvent {
	se := reconcile.SubEvent{
		ID:          in.ID,
		Title:       in.Title,
		Beneficiary: in.Beneficiary,
		Buyer:       in.Buyer,
		Pledges:     in.Pledges,
	}
	if se.ID == "" {
		se.ID = uuid.NewString()
	}
	for _, item := range in.Items {
		out := reconcile.SubEventItem{ID: item.ID, Title: item.Title, Amount: item.Amount}
		if out.ID == "" {
			out.ID = uuid.NewString()
		}
		if item.IsBought != nil {
			out.Bought = *item.IsBought
		} else if item.IsBoughtAlt != nil {
			out.Bought = *item.IsBoughtAlt
		}
		se.Items = append(se.Items, out)
	}
	return se
}
