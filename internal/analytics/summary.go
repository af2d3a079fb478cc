package analytics

import (
	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

var hundred = decimal.NewFromInt(100)

// Summarize computes the top-line totals and merges the savings goal.
// The goal must already be validated.
func Summarize(entries []core.NormalizedTransaction, goal *core.GoalDescriptor) Summary {
	income, expenses := decimal.Zero, decimal.Zero
	for _, e := range entries {
		switch e.Kind {
		case core.KindIncome:
			income = income.Add(e.Value)
		case core.KindExpense:
			expenses = expenses.Add(e.Value)
		}
	}
	s := Summary{
		Balance:  income.Sub(expenses),
		Income:   income,
		Expenses: expenses,
	}
	if goal != nil && goal.TargetAmount.IsPositive() {
		target := goal.TargetAmount
		progress := goal.CurrentAmount.Div(target).Mul(hundred)
		progress = decimal.Min(decimal.Max(progress, decimal.Zero), hundred).Round(2)
		s.SavingsGoal = &target
		s.SavingsProgress = &progress
	}
	return s
}
