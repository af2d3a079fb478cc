package analytics

import (
	"cmp"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

// Normalized is the validated, canonically ordered ledger every builder
// reads. Builders must treat Entries as read-only.
type Normalized struct {
	Entries []core.NormalizedTransaction
	Skipped []SkippedEntry
}

// Normalize validates raw entries and drops the malformed ones. Dropping is
// never fatal; each dropped entry is recorded in Skipped with its reason.
// Only cosmetic defaults are applied: a blank category becomes
// opts.DefaultCategory. Monetary meaning is never altered.
//
// Entries are sorted by occurredAt, then id, so that the output does not
// depend on input order.
func Normalize(raw []core.RawTransaction, opts Options) Normalized {
	out := Normalized{
		Entries: make([]core.NormalizedTransaction, 0, len(raw)),
		Skipped: make([]SkippedEntry, 0),
	}
	for _, r := range raw {
		n, reason, ok := normalizeOne(r, opts)
		if !ok {
			out.Skipped = append(out.Skipped, SkippedEntry{ID: r.ID, Reason: reason})
			continue
		}
		out.Entries = append(out.Entries, n)
	}

	slices.SortStableFunc(out.Entries, compareEntries)
	slices.SortStableFunc(out.Skipped, func(a, b SkippedEntry) int {
		if c := cmp.Compare(a.ID, b.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Reason, b.Reason)
	})
	return out
}

func normalizeOne(r core.RawTransaction, opts Options) (core.NormalizedTransaction, SkipReason, bool) {
	value, reason, ok := parseValue(r.Value.String())
	if !ok {
		return core.NormalizedTransaction{}, reason, false
	}
	kind, err := core.ParseKind(r.Kind)
	if err != nil {
		return core.NormalizedTransaction{}, SkipUnknownKind, false
	}
	at, err := core.ParseOccurredAt(r.OccurredAt, opts.Location)
	if err != nil {
		return core.NormalizedTransaction{}, SkipInvalidOccurredAt, false
	}
	// Categories group by exact text; only a blank one is replaced.
	category := r.Category
	if strings.TrimSpace(category) == "" {
		category = opts.DefaultCategory
	}
	var tags []string
	if len(r.Tags) > 0 {
		tags = append([]string(nil), r.Tags...)
	}
	return core.NormalizedTransaction{
		ID:             r.ID,
		OrganizationID: r.OrganizationID,
		Kind:           kind,
		Category:       category,
		Value:          value,
		OccurredAt:     at,
		PaymentMethod:  r.PaymentMethod,
		Tags:           tags,
	}, "", true
}

// parseValue separates values that are numbers but not positive from values
// that are not numbers at all.
func parseValue(s string) (decimal.Decimal, SkipReason, bool) {
	if v, err := core.ParseAmount(s); err == nil {
		return v, "", true
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err == nil && !d.IsPositive() {
		return decimal.Zero, SkipNonPositiveValue, false
	}
	return decimal.Zero, SkipInvalidValue, false
}

func compareEntries(a, b core.NormalizedTransaction) int {
	if c := a.OccurredAt.Compare(b.OccurredAt); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ID, b.ID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Category, b.Category); c != 0 {
		return c
	}
	return a.Value.Cmp(b.Value)
}
