package analytics

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Column is a money flow graph tier.
type Column string

const (
	ColumnIncome  Column = "income"
	ColumnBalance Column = "balance"
	ColumnExpense Column = "expense"
)

// Subtype tags money flow nodes. Unallocated and deficit mark synthetic
// nodes inserted to keep the balance node conserved.
type Subtype string

const (
	SubtypeRegular     Subtype = "regular"
	SubtypeGoal        Subtype = "goal"
	SubtypeInvestment  Subtype = "investment"
	SubtypeDebt        Subtype = "debt"
	SubtypeUnallocated Subtype = "unallocated"
	SubtypeDeficit     Subtype = "deficit"
)

// IsDestination reports whether callers may tag an expense category with s.
func (s Subtype) IsDestination() bool {
	switch s {
	case SubtypeRegular, SubtypeGoal, SubtypeInvestment, SubtypeDebt:
		return true
	}
	return false
}

// IsSynthetic reports whether s marks a node that has no real category.
func (s Subtype) IsSynthetic() bool {
	return s == SubtypeUnallocated || s == SubtypeDeficit
}

// ParseSubtype accepts the caller-assignable subtypes.
func ParseSubtype(s string) (Subtype, bool) {
	st := Subtype(strings.ToLower(strings.TrimSpace(s)))
	return st, st.IsDestination()
}

// SkipReason explains why the normalizer dropped an entry.
type SkipReason string

const (
	SkipInvalidValue      SkipReason = "invalid_value"
	SkipNonPositiveValue  SkipReason = "non_positive_value"
	SkipUnknownKind       SkipReason = "unknown_kind"
	SkipInvalidOccurredAt SkipReason = "invalid_occurred_at"
)

type (
	SkippedEntry struct {
		ID     string     `json:"id"`
		Reason SkipReason `json:"reason"`
	}

	// Summary holds the top-line totals. SavingsGoal and SavingsProgress are
	// nil when there is no goal or its target is zero.
	Summary struct {
		Balance         decimal.Decimal  `json:"balance"`
		Income          decimal.Decimal  `json:"income"`
		Expenses        decimal.Decimal  `json:"expenses"`
		SavingsGoal     *decimal.Decimal `json:"savingsGoal,omitempty"`
		SavingsProgress *decimal.Decimal `json:"savingsProgress,omitempty"`
	}

	MonthBucket struct {
		MonthKey string          `json:"monthKey"`
		Income   decimal.Decimal `json:"income"`
		Expenses decimal.Decimal `json:"expenses"`
	}

	CategoryTotal struct {
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
		Color  string          `json:"color"`
	}

	FlowNode struct {
		ID      string          `json:"id"`
		Name    string          `json:"name"`
		Column  Column          `json:"column"`
		Subtype Subtype         `json:"subtype,omitempty"`
		Value   decimal.Decimal `json:"value"`
	}

	FlowLink struct {
		SourceID string          `json:"sourceId"`
		TargetID string          `json:"targetId"`
		Value    decimal.Decimal `json:"value"`
	}

	MoneyFlow struct {
		Nodes []FlowNode `json:"nodes"`
		Links []FlowLink `json:"links"`
	}

	// Heatmap is a dense weekday × category matrix: Matrix has exactly
	// len(Weekdays) rows of len(Categories) cells.
	Heatmap struct {
		Categories []string            `json:"categories"`
		Weekdays   []string            `json:"weekdays"`
		Matrix     [][]decimal.Decimal `json:"matrix"`
	}

	// Snapshot is one internally consistent set of derived views. It is
	// built fresh on every computation and never mutated afterwards.
	Snapshot struct {
		Summary    Summary         `json:"summary"`
		Monthly    []MonthBucket   `json:"monthly"`
		Categories []CategoryTotal `json:"categories"`
		MoneyFlow  MoneyFlow       `json:"moneyFlow"`
		Heatmap    Heatmap         `json:"heatmap"`
	}

	// Result pairs a snapshot with the entries dropped while building it.
	Result struct {
		Snapshot Snapshot       `json:"snapshot"`
		Skipped  []SkippedEntry `json:"skipped"`
	}
)
