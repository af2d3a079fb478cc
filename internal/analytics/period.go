package analytics

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

// monthIndex numbers calendar months so that consecutive months differ by 1
// across year boundaries.
func monthIndex(year int, month int) int {
	return year*12 + month - 1
}

func monthKey(index int) string {
	return fmt.Sprintf("%04d-%02d", index/12, index%12+1)
}

// BucketMonths groups entries by calendar month and returns the trailing
// trend series, oldest first.
//
// The window starts at the windowMonths-th most recent month that holds data
// and ends at the most recent one. Every calendar month in between is
// emitted, empty months with zero totals, so the series has no gaps.
// Entries older than the window are ignored.
func BucketMonths(entries []core.NormalizedTransaction, windowMonths int) []MonthBucket {
	type sums struct{ income, expenses decimal.Decimal }
	byMonth := make(map[int]*sums)
	for _, e := range entries {
		idx := monthIndex(e.OccurredAt.Year(), int(e.OccurredAt.Month()))
		b, ok := byMonth[idx]
		if !ok {
			b = &sums{income: decimal.Zero, expenses: decimal.Zero}
			byMonth[idx] = b
		}
		switch e.Kind {
		case core.KindIncome:
			b.income = b.income.Add(e.Value)
		case core.KindExpense:
			b.expenses = b.expenses.Add(e.Value)
		}
	}
	if len(byMonth) == 0 || windowMonths <= 0 {
		return []MonthBucket{}
	}

	months := make([]int, 0, len(byMonth))
	for idx := range byMonth {
		months = append(months, idx)
	}
	slices.Sort(months)
	last := months[len(months)-1]
	first := months[0]
	if len(months) > windowMonths {
		first = months[len(months)-windowMonths]
	}

	out := make([]MonthBucket, 0, last-first+1)
	for idx := first; idx <= last; idx++ {
		bucket := MonthBucket{MonthKey: monthKey(idx), Income: decimal.Zero, Expenses: decimal.Zero}
		if b, ok := byMonth[idx]; ok {
			bucket.Income = b.income
			bucket.Expenses = b.expenses
		}
		out = append(out, bucket)
	}
	return out
}
