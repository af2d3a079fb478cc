package analytics

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluxo/internal/core"
)

// randomLedger returns n entries spread over two years, with a few
// malformed ones mixed in.
func randomLedger(r *rand.Rand, n int) []core.RawTransaction {
	categories := []string{"Alimentação", "Transporte", "Lazer", "Saúde", "Moradia", "Educação", "Pets", "Viagem", "Other", ""}
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.RawTransaction, 0, n)
	for i := 0; i < n; i++ {
		kind := "expense"
		if r.Intn(4) == 0 {
			kind = "income"
		}
		value := fmt.Sprintf("%d.%02d", r.Intn(2000), r.Intn(100))
		switch r.Intn(20) {
		case 0:
			value = "-" + value
		case 1:
			value = "n/a"
		}
		at := start.Add(time.Duration(r.Intn(730*24)) * time.Hour).Format(time.RFC3339)
		out = append(out, core.RawTransaction{
			ID:         fmt.Sprintf("tx-%04d", i),
			Kind:       kind,
			Category:   categories[r.Intn(len(categories))],
			Value:      core.RawAmount(value),
			OccurredAt: at,
		})
	}
	return out
}

func TestComputeReconciles(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			raw := randomLedger(rand.New(rand.NewSource(seed)), 200)
			opts := DefaultOptions()
			opts.WindowMonths = 36
			engine, err := NewEngine(opts)
			require.NoError(t, err)

			res, err := engine.Compute(raw, nil)
			require.NoError(t, err)
			snap := res.Snapshot

			assert.Equal(t, len(raw), len(Normalize(raw, opts).Entries)+len(res.Skipped))
			assert.True(t, snap.Summary.Balance.Equal(snap.Summary.Income.Sub(snap.Summary.Expenses)))

			catTotal := decimal.Zero
			for _, c := range snap.Categories {
				catTotal = catTotal.Add(c.Amount)
			}
			assert.True(t, catTotal.Equal(snap.Summary.Expenses), "categories %s != expenses %s", catTotal, snap.Summary.Expenses)

			monthIn, monthOut := decimal.Zero, decimal.Zero
			for _, m := range snap.Monthly {
				monthIn = monthIn.Add(m.Income)
				monthOut = monthOut.Add(m.Expenses)
			}
			assert.True(t, monthIn.Equal(snap.Summary.Income))
			assert.True(t, monthOut.Equal(snap.Summary.Expenses))

			heat := decimal.Zero
			for _, row := range snap.Heatmap.Matrix {
				for _, cell := range row {
					heat = heat.Add(cell)
				}
			}
			assert.True(t, heat.Equal(snap.Summary.Expenses))

			in, out := BalanceInOut(snap.MoneyFlow)
			assert.True(t, in.Equal(out))
			assert.True(t, in.Equal(decimal.Max(snap.Summary.Income, snap.Summary.Expenses)))
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	raw := randomLedger(rand.New(rand.NewSource(42)), 150)
	shuffled := append([]core.RawTransaction(nil), raw...)
	rand.New(rand.NewSource(7)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	goal := &core.GoalDescriptor{TargetAmount: dec("5000"), CurrentAmount: dec("1234.56")}

	first, err := ComputeSnapshot(raw, goal)
	require.NoError(t, err)
	second, err := ComputeSnapshot(shuffled, goal)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, string(a), string(b))
}

func TestComputeEmptyLedger(t *testing.T) {
	res, err := ComputeSnapshot(nil, nil)
	require.NoError(t, err)

	snap := res.Snapshot
	requireDecimal(t, "0", snap.Summary.Balance)
	assert.Empty(t, snap.Monthly)
	assert.Empty(t, snap.Categories)
	assert.Empty(t, snap.MoneyFlow.Nodes)
	assert.Equal(t, []string{"", "", "", "", "", "Other"}, snap.Heatmap.Categories)
	require.Len(t, snap.Heatmap.Matrix, 7)
	for _, row := range snap.Heatmap.Matrix {
		require.Len(t, row, DefaultTopCategories+1)
		for _, cell := range row {
			requireDecimal(t, "0", cell)
		}
	}
	assert.Empty(t, res.Skipped)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"monthly":[]`)
	assert.Contains(t, string(body), `"nodes":[]`)
	assert.Contains(t, string(body), `"skipped":[]`)
	assert.NotContains(t, string(body), "savingsGoal")
}

func TestComputeRejectsNegativeGoal(t *testing.T) {
	raw := []core.RawTransaction{income("i", "Salário", "10", "2025-03-01")}

	_, err := ComputeSnapshot(raw, &core.GoalDescriptor{TargetAmount: dec("-1"), CurrentAmount: decimal.Zero})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidGoal)
	assert.True(t, IsConfigError(err))

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "goal", ce.Field)
}

func TestNewEngineValidatesOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		field  string
	}{
		{"zero window", func(o *Options) { o.WindowMonths = 0 }, "windowMonths"},
		{"zero top", func(o *Options) { o.TopCategories = 0 }, "topCategories"},
		{"nil location", func(o *Options) { o.Location = nil }, "location"},
		{"empty palette", func(o *Options) { o.Palette = nil }, "palette"},
		{"bad policy", func(o *Options) { o.ColorPolicy = "random" }, "colorPolicy"},
		{"blank other", func(o *Options) { o.OtherLabel = " " }, "otherLabel"},
		{"synthetic destination", func(o *Options) {
			o.Destinations = map[string]Subtype{"Reserva": SubtypeUnallocated}
		}, "destinations[Reserva]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)

			_, err := NewEngine(opts)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOptions)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestEngineOptionsAreCopied(t *testing.T) {
	opts := DefaultOptions()
	opts.Destinations = map[string]Subtype{"Reserva": SubtypeGoal}
	engine, err := NewEngine(opts)
	require.NoError(t, err)

	opts.Palette[0] = "#000000"
	opts.Destinations["Reserva"] = SubtypeDebt

	got := engine.Options()
	assert.Equal(t, DefaultPalette[0], got.Palette[0])
	assert.Equal(t, SubtypeGoal, got.Destinations["Reserva"])
}

func TestComputeReportsSkipped(t *testing.T) {
	res, err := ComputeSnapshot([]core.RawTransaction{
		income("ok", "Salário", "100", "2025-03-01"),
		expense("bad", "Alimentação", "0", "2025-03-01"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []SkippedEntry{{ID: "bad", Reason: SkipNonPositiveValue}}, res.Skipped)
	requireDecimal(t, "100", res.Snapshot.Summary.Balance)
}
