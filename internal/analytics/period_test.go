package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func monthKeys(buckets []MonthBucket) []string {
	keys := make([]string, 0, len(buckets))
	for _, b := range buckets {
		keys = append(keys, b.MonthKey)
	}
	return keys
}

func TestBucketMonthsFillsGapsChronologically(t *testing.T) {
	entries := normalized(t,
		expense("e3", "X", "30", "2025-02-10"),
		income("i1", "Y", "100", "2024-11-05"),
		expense("e1", "X", "10", "2024-11-20"),
		expense("e2", "X", "20", "2024-11-30T23:59:59"),
	)

	buckets := BucketMonths(entries, 6)

	assert.Equal(t, []string{"2024-11", "2024-12", "2025-01", "2025-02"}, monthKeys(buckets))
	requireDecimal(t, "100", buckets[0].Income)
	requireDecimal(t, "30", buckets[0].Expenses)
	requireDecimal(t, "0", buckets[1].Income)
	requireDecimal(t, "0", buckets[1].Expenses)
	requireDecimal(t, "30", buckets[3].Expenses)
}

func TestBucketMonthsSeparatesYears(t *testing.T) {
	entries := normalized(t,
		expense("a", "X", "1", "2024-03-01"),
		expense("b", "X", "2", "2025-03-01"),
	)

	buckets := BucketMonths(entries, 24)

	require.Len(t, buckets, 13)
	assert.Equal(t, "2024-03", buckets[0].MonthKey)
	assert.Equal(t, "2025-03", buckets[12].MonthKey)
	requireDecimal(t, "1", buckets[0].Expenses)
	requireDecimal(t, "2", buckets[12].Expenses)
}

func TestBucketMonthsWindowKeepsMostRecentDataMonths(t *testing.T) {
	entries := normalized(t,
		expense("a", "X", "1", "2025-01-15"),
		expense("b", "X", "2", "2025-03-15"),
		expense("c", "X", "4", "2025-04-15"),
		expense("d", "X", "8", "2025-07-15"),
	)

	buckets := BucketMonths(entries, 3)

	// The three most recent data months are March, April and July; May and
	// June are emitted with zeros, January falls outside.
	assert.Equal(t, []string{"2025-03", "2025-04", "2025-05", "2025-06", "2025-07"}, monthKeys(buckets))
	requireDecimal(t, "2", buckets[0].Expenses)
	requireDecimal(t, "8", buckets[4].Expenses)
}

func TestBucketMonthsEmpty(t *testing.T) {
	buckets := BucketMonths(nil, 6)
	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}
