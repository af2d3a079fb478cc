package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxo/internal/core"
)

func TestBuildHeatmapTopKWithCatchAll(t *testing.T) {
	// Eight categories with amounts 80, 70, ... 10, all on Wednesday.
	var raw []core.RawTransaction
	for i := 0; i < 8; i++ {
		raw = append(raw, expense(fmt.Sprint(i), fmt.Sprintf("C%d", i), fmt.Sprint((8-i)*10), "2025-03-05"))
	}
	entries := normalized(t, raw...)

	h := BuildHeatmap(entries, 5, "Other", time.Monday)

	assert.Equal(t, []string{"C0", "C1", "C2", "C3", "C4", "Other"}, h.Categories)
	wed := weekdayRow(time.Wednesday, time.Monday)
	requireDecimal(t, "80", h.Matrix[wed][0])
	requireDecimal(t, "40", h.Matrix[wed][4])
	// C5 + C6 + C7 = 30 + 20 + 10
	requireDecimal(t, "60", h.Matrix[wed][5])
}

func TestBuildHeatmapWeekdayRows(t *testing.T) {
	entries := normalized(t,
		expense("mon", "A", "1", "2025-03-03"),
		expense("sun", "A", "2", "2025-03-09"),
	)

	t.Run("monday start", func(t *testing.T) {
		h := BuildHeatmap(entries, 5, "Other", time.Monday)
		assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}, h.Weekdays)
		requireDecimal(t, "1", h.Matrix[0][0])
		requireDecimal(t, "2", h.Matrix[6][0])
	})
	t.Run("sunday start", func(t *testing.T) {
		h := BuildHeatmap(entries, 5, "Other", time.Sunday)
		assert.Equal(t, "Sun", h.Weekdays[0])
		requireDecimal(t, "2", h.Matrix[0][0])
		requireDecimal(t, "1", h.Matrix[1][0])
	})
}

func TestBuildHeatmapUsesLocationForWeekday(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("tzdata not available")
	}
	opts := DefaultOptions()
	opts.Location = loc
	// 02:00 UTC on Monday is still Sunday evening in São Paulo.
	n := Normalize([]core.RawTransaction{expense("a", "A", "5", "2025-03-03T02:00:00Z")}, opts)
	require.Len(t, n.Entries, 1)

	h := BuildHeatmap(n.Entries, 5, "Other", time.Monday)
	requireDecimal(t, "5", h.Matrix[6][0])
}

func TestBuildHeatmapIsDense(t *testing.T) {
	for _, entries := range [][]core.NormalizedTransaction{
		nil,
		normalized(t, income("i", "Salário", "10", "2025-03-01")),
		normalized(t, expense("a", "A", "1", "2025-03-01"), expense("b", "B", "1", "2025-03-02")),
	} {
		h := BuildHeatmap(entries, 5, "Other", time.Monday)
		require.Len(t, h.Categories, 6)
		require.Len(t, h.Matrix, 7)
		require.Len(t, h.Weekdays, 7)
		for _, row := range h.Matrix {
			require.Len(t, row, 6)
			for _, cell := range row {
				assert.False(t, cell.IsNegative())
			}
		}
		assert.Equal(t, "Other", h.Categories[len(h.Categories)-1])
	}
}

func TestBuildHeatmapCategoryNamedLikeCatchAll(t *testing.T) {
	entries := normalized(t,
		expense("a", "Other", "100", "2025-03-03"),
		expense("b", "Food", "10", "2025-03-03"),
	)

	h := BuildHeatmap(entries, 5, "Other", time.Monday)

	assert.Equal(t, []string{"Food", "", "", "", "", "Other"}, h.Categories)
	requireDecimal(t, "100", h.Matrix[0][5])
}

func TestBuildHeatmapTotalMatchesExpenses(t *testing.T) {
	entries := normalized(t,
		expense("a", "A", "1.10", "2025-03-03"),
		expense("b", "B", "2.20", "2025-03-04"),
		expense("c", "C", "3.30", "2025-03-05"),
		income("d", "Salário", "99", "2025-03-05"),
	)

	h := BuildHeatmap(entries, 1, "Other", time.Monday)

	total := decimal.Zero
	for _, row := range h.Matrix {
		for _, cell := range row {
			total = total.Add(cell)
		}
	}
	requireDecimal(t, "6.60", total)
	assert.Equal(t, []string{"C", "Other"}, h.Categories)
}

func TestBuildHeatmapPadsMissingCategories(t *testing.T) {
	entries := normalized(t,
		expense("a", "A", "30", "2025-03-03"),
		expense("b", "B", "20", "2025-03-04"),
	)

	h := BuildHeatmap(entries, 5, "Other", time.Monday)

	assert.Equal(t, []string{"A", "B", "", "", "", "Other"}, h.Categories)
	requireDecimal(t, "30", h.Matrix[0][0])
	requireDecimal(t, "20", h.Matrix[1][1])
	for _, row := range h.Matrix {
		require.Len(t, row, 6)
		for col := 2; col < 6; col++ {
			requireDecimal(t, "0", row[col])
		}
	}
}
