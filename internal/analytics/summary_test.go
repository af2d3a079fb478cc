package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxo/internal/core"
)

func TestSummarizeTotals(t *testing.T) {
	entries := normalized(t,
		income("i1", "Salário", "1000", "2025-03-01"),
		expense("e1", "Alimentação", "200", "2025-03-02"),
		expense("e2", "Transporte", "100.10", "2025-03-03"),
	)

	s := Summarize(entries, nil)

	requireDecimal(t, "1000", s.Income)
	requireDecimal(t, "300.10", s.Expenses)
	requireDecimal(t, "699.90", s.Balance)
	assert.Nil(t, s.SavingsGoal)
	assert.Nil(t, s.SavingsProgress)
}

func TestSummarizeNegativeBalance(t *testing.T) {
	entries := normalized(t,
		income("i1", "Salário", "100", "2025-03-01"),
		expense("e1", "Aluguel", "400", "2025-03-02"),
	)
	requireDecimal(t, "-300", Summarize(entries, nil).Balance)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, nil)
	requireDecimal(t, "0", s.Income)
	requireDecimal(t, "0", s.Expenses)
	requireDecimal(t, "0", s.Balance)
}

func TestSummarizeGoal(t *testing.T) {
	tests := []struct {
		name         string
		goal         *core.GoalDescriptor
		wantGoal     string
		wantProgress string
	}{
		{name: "no goal"},
		{name: "zero target omitted", goal: &core.GoalDescriptor{TargetAmount: decimal.Zero, CurrentAmount: dec("50")}},
		{name: "half way", goal: &core.GoalDescriptor{TargetAmount: dec("1000"), CurrentAmount: dec("500")}, wantGoal: "1000", wantProgress: "50"},
		{name: "rounded", goal: &core.GoalDescriptor{TargetAmount: dec("3"), CurrentAmount: dec("1")}, wantGoal: "3", wantProgress: "33.33"},
		{name: "clamped above", goal: &core.GoalDescriptor{TargetAmount: dec("100"), CurrentAmount: dec("250")}, wantGoal: "100", wantProgress: "100"},
		{name: "nothing saved", goal: &core.GoalDescriptor{TargetAmount: dec("100"), CurrentAmount: decimal.Zero}, wantGoal: "100", wantProgress: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(nil, tt.goal)
			if tt.wantGoal == "" {
				assert.Nil(t, s.SavingsGoal)
				assert.Nil(t, s.SavingsProgress)
				return
			}
			require.NotNil(t, s.SavingsGoal)
			require.NotNil(t, s.SavingsProgress)
			requireDecimal(t, tt.wantGoal, *s.SavingsGoal)
			requireDecimal(t, tt.wantProgress, *s.SavingsProgress)
		})
	}
}
