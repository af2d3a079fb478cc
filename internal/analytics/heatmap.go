package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// weekdayRow maps a weekday to its heatmap row, row 0 being weekStart.
func weekdayRow(d, weekStart time.Weekday) int {
	return (int(d) - int(weekStart) + 7) % 7
}

// BuildHeatmap accumulates expense magnitude into a weekday × category
// matrix of exactly 7 × (topK+1) cells. Columns are the topK expense
// categories in ranking order followed by the otherLabel catch-all, which
// absorbs every other category. A category whose name equals otherLabel
// always lands in the catch-all. When the ledger has fewer than topK
// expense categories the remaining slots carry an empty label and zero
// cells; categories are never blank, so the padding cannot collide.
func BuildHeatmap(entries []core.NormalizedTransaction, topK int, otherLabel string, weekStart time.Weekday) Heatmap {
	columns := make(map[string]int)
	categories := make([]string, 0, topK+1)
	for _, c := range rankCategories(entries, core.KindExpense) {
		if len(categories) == topK {
			break
		}
		if c.name == otherLabel {
			continue
		}
		columns[c.name] = len(categories)
		categories = append(categories, c.name)
	}
	for len(categories) < topK {
		categories = append(categories, "")
	}
	other := topK
	categories = append(categories, otherLabel)

	weekdays := make([]string, 7)
	matrix := make([][]decimal.Decimal, 7)
	for row := range matrix {
		weekdays[row] = weekdayNames[(int(weekStart)+row)%7]
		matrix[row] = make([]decimal.Decimal, len(categories))
		for col := range matrix[row] {
			matrix[row][col] = decimal.Zero
		}
	}

	for _, e := range entries {
		if e.Kind != core.KindExpense {
			continue
		}
		col, ok := columns[e.Category]
		if !ok {
			col = other
		}
		row := weekdayRow(e.OccurredAt.Weekday(), weekStart)
		matrix[row][col] = matrix[row][col].Add(e.Value)
	}

	return Heatmap{Categories: categories, Weekdays: weekdays, Matrix: matrix}
}
