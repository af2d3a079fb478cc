package google

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

var ledgerHeaders = []string{"id", "organizationId", "kind", "category", "value", "occurredAt", "paymentMethod", "tags"}

// parseLedger converts a values matrix into raw transactions. The first row
// must be the header; id and organizationId columns are required. Rows are
// returned as found, validation is left to the normalizer.
func parseLedger(values [][]any) ([]core.RawTransaction, error) {
	if len(values) == 0 {
		return []core.RawTransaction{}, nil
	}
	headers := toStrings(values[0])
	col := make(map[string]int, len(ledgerHeaders))
	for _, h := range ledgerHeaders {
		col[h] = indexOf(headers, h)
	}
	if col["id"] == -1 || col["organizationId"] == -1 {
		return nil, fmt.Errorf("unexpected ledger header: need id and organizationId; got headers=%v", headers)
	}

	out := make([]core.RawTransaction, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		id := safeGet(row, col["id"])
		if id == "" {
			continue
		}
		tx := core.RawTransaction{
			ID:             id,
			OrganizationID: safeGet(row, col["organizationId"]),
			Kind:           safeGet(row, col["kind"]),
			Category:       safeGet(row, col["category"]),
			Value:          core.RawAmount(safeGet(row, col["value"])),
			OccurredAt:     safeGet(row, col["occurredAt"]),
			PaymentMethod:  safeGet(row, col["paymentMethod"]),
			Tags:           splitTags(safeGet(row, col["tags"])),
		}
		out = append(out, tx)
	}
	return out, nil
}

// ledgerRow renders tx in ledgerHeaders order.
func ledgerRow(tx core.RawTransaction) []any {
	return []any{
		tx.ID,
		tx.OrganizationID,
		tx.Kind,
		tx.Category,
		tx.Value.String(),
		tx.OccurredAt,
		tx.PaymentMethod,
		strings.Join(tx.Tags, ","),
	}
}

// parseGoals reads organizationId, targetAmount and currentAmount columns.
// Rows with unparsable amounts are an error: a silently wrong goal is worse
// than a failed request.
func parseGoals(values [][]any) (map[string]core.GoalDescriptor, error) {
	out := make(map[string]core.GoalDescriptor)
	if len(values) == 0 {
		return out, nil
	}
	headers := toStrings(values[0])
	colOrg := indexOf(headers, "organizationId")
	colTarget := indexOf(headers, "targetAmount")
	colCurrent := indexOf(headers, "currentAmount")
	if colOrg == -1 || colTarget == -1 || colCurrent == -1 {
		return nil, fmt.Errorf("unexpected goals header: got headers=%v", headers)
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		org := safeGet(row, colOrg)
		if org == "" {
			continue
		}
		target, err := parseGoalAmount(safeGet(row, colTarget))
		if err != nil {
			return nil, fmt.Errorf("goals row %d targetAmount: %w", i+1, err)
		}
		current, err := parseGoalAmount(safeGet(row, colCurrent))
		if err != nil {
			return nil, fmt.Errorf("goals row %d currentAmount: %w", i+1, err)
		}
		out[org] = core.GoalDescriptor{TargetAmount: target, CurrentAmount: current}
	}
	return out, nil
}

// parseGoalAmount differs from core.ParseAmount in that zero and blanks are
// valid goal amounts.
func parseGoalAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
