// Package project owns durable state for gift projects: members, expenses,
// settlements and sub-events. The reconcile engine only ever sees an
// immutable snapshot assembled here.
package project

import (
	"crypto/rand"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/remip/giftmanager/reconcile"
)

var (
	ErrEmptyName          = errors.New("name can't be empty")
	ErrInvalidCode        = errors.New("project code must be 6 characters A-Z or 0-9")
	ErrInvalidAmount      = errors.New("amount must be a positive number with at most two decimals")
	ErrEmptyTitle         = errors.New("title can't be empty")
	ErrMissingPayer       = errors.New("payer can't be empty")
	ErrMissingReceiver    = errors.New("settlement needs a receiver")
	ErrSelfSettlement     = errors.New("payer and receiver must differ")
	ErrMissingBeneficiary = errors.New("beneficiary can't be empty")
	ErrMissingBuyer       = errors.New("buyer can't be empty")
	ErrUnknownKind        = errors.New("unknown expense type")
	ErrMemberExists       = errors.New("member already exists")
	ErrNegativePledge     = errors.New("pledges can't be negative")
	ErrBeneficiaryPledge  = errors.New("beneficiary can't pledge toward their own gift")
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

type Project struct {
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	CreatedBy uuid.UUID            `json:"created_by"`
	CreatedAt time.Time            `json:"created_at"`
	Members   []reconcile.Member   `json:"members"`
	Expenses  []reconcile.Flow     `json:"expenses"`
	SubEvents []reconcile.SubEvent `json:"sub_events"`
}

func New(name, code string, createdBy uuid.UUID) (Project, error) {
	if name == "" {
		return Project{}, ErrEmptyName
	}
	if !ValidCode(code) {
		return Project{}, ErrInvalidCode
	}

	return Project{
		Code:      code,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// GenerateCode returns a 6-character join code over A-Z and 0-9. Random
// bytes at or above 252, the largest multiple of the alphabet size that
// fits a byte, are redrawn so every character is equally likely.
func GenerateCode() (string, error) {
	const limit = 252
	code := make([]byte, 0, 6)
	buf := make([]byte, 16)
	for len(code) < 6 {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, v := range buf {
			if v >= limit {
				continue
			}
			code = append(code, codeAlphabet[int(v)%len(codeAlphabet)])
			if len(code) == 6 {
				break
			}
		}
	}
	return string(code), nil
}

func ValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// Normalize is the member-name comparison key. Bookkeeping keeps the name as
// entered; only uniqueness checks use the normalized form.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (p Project) HasMember(name string) bool {
	for _, m := range p.Members {
		if Normalize(m.Name) == Normalize(name) {
			return true
		}
	}
	return false
}

// Snapshot assembles the engine input. Expenses and sub-events keep their
// stored order so reconciliation is reproducible.
func (p Project) Snapshot() reconcile.Snapshot {
	return reconcile.Snapshot{
		Members:   p.Members,
		Flows:     p.Expenses,
		SubEvents: p.SubEvents,
	}
}

// ValidAmount rejects the values that would corrupt the zero-sum invariant
// before they reach the engine: non-finite, non-positive, or more precise
// than cents.
func ValidAmount(amount float64) bool {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false
	}
	d := decimal.NewFromFloat(amount)
	return d.IsPositive() && d.Equal(d.Round(2))
}

func ValidateExpense(flow reconcile.Flow) error {
	if !ValidAmount(flow.Amount) {
		return ErrInvalidAmount
	}
	if flow.Payer == "" {
		return ErrMissingPayer
	}

	switch flow.Kind {
	case reconcile.KindSettlement:
		if flow.Receiver == "" {
			return ErrMissingReceiver
		}
		if Normalize(flow.Payer) == Normalize(flow.Receiver) {
			return ErrSelfSettlement
		}
	case reconcile.KindExpense:
		if flow.Title == "" {
			return ErrEmptyTitle
		}
		if flow.Beneficiary == "" {
			return ErrMissingBeneficiary
		}
	default:
		return ErrUnknownKind
	}
	return nil
}

func ValidateSubEvent(se reconcile.SubEvent) error {
	if se.Title == "" {
		return ErrEmptyTitle
	}
	if se.Beneficiary == "" {
		return ErrMissingBeneficiary
	}
	if se.Buyer == "" {
		return ErrMissingBuyer
	}
	for name, pledge := range se.Pledges {
		if pledge < 0 || math.IsNaN(pledge) || math.IsInf(pledge, 0) {
			return ErrNegativePledge
		}
		if Normalize(name) == Normalize(se.Beneficiary) {
			return ErrBeneficiaryPledge
		}
	}
	for _, item := range se.Items {
		if item.Title == "" {
			return ErrEmptyTitle
		}
		if !ValidAmount(item.Amount) {
			return ErrInvalidAmount
		}
	}
	return nil
}
