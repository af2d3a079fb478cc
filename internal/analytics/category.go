package analytics

import (
	"cmp"
	"hash/fnv"
	"slices"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

type categorySum struct {
	name   string
	amount decimal.Decimal
}

// rankCategories sums entries of one kind per category (exact, case
// sensitive name match) and orders them by amount descending, then name
// ascending. Every builder that needs a category order uses this ranking.
func rankCategories(entries []core.NormalizedTransaction, kind core.Kind) []categorySum {
	totals := make(map[string]decimal.Decimal)
	for _, e := range entries {
		if e.Kind != kind {
			continue
		}
		if cur, ok := totals[e.Category]; ok {
			totals[e.Category] = cur.Add(e.Value)
		} else {
			totals[e.Category] = e.Value
		}
	}
	out := make([]categorySum, 0, len(totals))
	for name, amount := range totals {
		out = append(out, categorySum{name: name, amount: amount})
	}
	slices.SortFunc(out, func(a, b categorySum) int {
		if c := b.amount.Cmp(a.amount); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	return out
}

// AggregateCategories returns the expense breakdown with display colors.
func AggregateCategories(entries []core.NormalizedTransaction, palette []string, policy ColorPolicy) []CategoryTotal {
	ranked := rankCategories(entries, core.KindExpense)
	out := make([]CategoryTotal, 0, len(ranked))
	for i, c := range ranked {
		out = append(out, CategoryTotal{
			Name:   c.name,
			Amount: c.amount,
			Color:  pickColor(palette, policy, i, c.name),
		})
	}
	return out
}

func pickColor(palette []string, policy ColorPolicy, rank int, name string) string {
	if len(palette) == 0 {
		return ""
	}
	if policy == ColorByHash {
		h := fnv.New32a()
		_, _ = h.Write([]byte(name))
		return palette[h.Sum32()%uint32(len(palette))]
	}
	return palette[rank%len(palette)]
}
