package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

type (
	// Kind is the direction of a ledger entry. The sign of a value never
	// carries direction; the kind does.
	Kind string

	// RawAmount is a monetary value exactly as supplied by the ledger
	// collaborator. It decodes from a JSON number or a JSON string.
	RawAmount string

	// RawTransaction is a ledger entry as it arrives from the store, a form
	// or the chat hook. Nothing in it has been validated.
	RawTransaction struct {
		ID             string    `json:"id"`
		OrganizationID string    `json:"organizationId"`
		Kind           string    `json:"kind"`
		Category       string    `json:"category"`
		Value          RawAmount `json:"value"`
		OccurredAt     string    `json:"occurredAt"`
		PaymentMethod  string    `json:"paymentMethod,omitempty"`
		Tags           []string  `json:"tags,omitempty"`
	}

	// NormalizedTransaction is a RawTransaction that passed validation:
	// Value > 0, Kind is known, Category is non-empty and OccurredAt parsed.
	NormalizedTransaction struct {
		ID             string
		OrganizationID string
		Kind           Kind
		Category       string
		Value          decimal.Decimal
		OccurredAt     time.Time
		PaymentMethod  string
		Tags           []string
	}

	// GoalDescriptor is the externally stored savings goal of an organization.
	GoalDescriptor struct {
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrUnknownKind       = errors.New("unknown kind")
	ErrInvalidOccurredAt = errors.New("invalid occurredAt")
	ErrNegativeGoal      = errors.New("negative goal amount")
)

// ParseKind accepts exactly "income" or "expense". "Income" or " expense"
// are unknown kinds.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindIncome:
		return KindIncome, nil
	case KindExpense:
		return KindExpense, nil
	default:
		return "", ErrUnknownKind
	}
}

func (k Kind) String() string {
	return string(k)
}

// UnmarshalJSON accepts both 12.5 and "12,50".
func (a *RawAmount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*a = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*a = RawAmount(str)
		return nil
	}
	*a = RawAmount(s)
	return nil
}

func (a RawAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

func (a RawAmount) String() string {
	return string(a)
}

// Validate rejects negative goal amounts. A zero target is valid and means
// "no goal" to the summary.
func (g GoalDescriptor) Validate() error {
	if g.TargetAmount.IsNegative() {
		return fmt.Errorf("targetAmount: %w", ErrNegativeGoal)
	}
	if g.CurrentAmount.IsNegative() {
		return fmt.Errorf("currentAmount: %w", ErrNegativeGoal)
	}
	return nil
}
