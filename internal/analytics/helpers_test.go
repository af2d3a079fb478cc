package analytics

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"fluxo/internal/core"
)

func income(id, category, value, at string) core.RawTransaction {
	return core.RawTransaction{ID: id, OrganizationID: "org-1", Kind: "income", Category: category, Value: core.RawAmount(value), OccurredAt: at}
}

func expense(id, category, value, at string) core.RawTransaction {
	return core.RawTransaction{ID: id, OrganizationID: "org-1", Kind: "expense", Category: category, Value: core.RawAmount(value), OccurredAt: at}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// requireDecimal compares by value so that 10 and 10.00 are equal.
func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func normalized(t *testing.T, raw ...core.RawTransaction) []core.NormalizedTransaction {
	t.Helper()
	n := Normalize(raw, DefaultOptions())
	require.Empty(t, n.Skipped)
	return n.Entries
}
