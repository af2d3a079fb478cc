package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"fluxo/internal/core"
)

const (
	BalanceNodeID     = "balance"
	UnallocatedNodeID = "synthetic:unallocated"
	DeficitNodeID     = "synthetic:deficit"

	incomeNodePrefix  = "income:"
	expenseNodePrefix = "expense:"
)

// BuildMoneyFlow builds the three-tier income → balance → expense graph.
//
// Each income category links into the single balance node and the balance
// node links out to each expense category. The balance node is always
// conserved:
//
//   - income ≥ expenses: a synthetic "unallocated" expense node receives the
//     surplus.
//   - expenses > income: a synthetic "deficit" income node supplies the
//     shortfall, and the balance node carries the full expense total.
//
// An empty ledger yields an empty graph. Expense subtypes come from
// destinations; categories missing from it are regular.
func BuildMoneyFlow(entries []core.NormalizedTransaction, destinations map[string]Subtype) (MoneyFlow, error) {
	flow := MoneyFlow{Nodes: []FlowNode{}, Links: []FlowLink{}}
	if len(entries) == 0 {
		return flow, nil
	}

	incomes := rankCategories(entries, core.KindIncome)
	expenses := rankCategories(entries, core.KindExpense)
	totalIn, totalOut := sumCategories(incomes), sumCategories(expenses)

	deficit, surplus := decimal.Zero, decimal.Zero
	if totalOut.GreaterThan(totalIn) {
		deficit = totalOut.Sub(totalIn)
	} else {
		surplus = totalIn.Sub(totalOut)
	}

	for _, c := range incomes {
		id := incomeNodePrefix + c.name
		flow.Nodes = append(flow.Nodes, FlowNode{ID: id, Name: c.name, Column: ColumnIncome, Value: c.amount})
		flow.Links = append(flow.Links, FlowLink{SourceID: id, TargetID: BalanceNodeID, Value: c.amount})
	}
	if deficit.IsPositive() {
		flow.Nodes = append(flow.Nodes, FlowNode{
			ID: DeficitNodeID, Name: "Deficit", Column: ColumnIncome, Subtype: SubtypeDeficit, Value: deficit,
		})
		flow.Links = append(flow.Links, FlowLink{SourceID: DeficitNodeID, TargetID: BalanceNodeID, Value: deficit})
	}

	flow.Nodes = append(flow.Nodes, FlowNode{
		ID: BalanceNodeID, Name: "Balance", Column: ColumnBalance, Value: totalIn.Add(deficit),
	})

	for _, c := range expenses {
		id := expenseNodePrefix + c.name
		subtype, ok := destinations[c.name]
		if !ok {
			subtype = SubtypeRegular
		}
		flow.Nodes = append(flow.Nodes, FlowNode{ID: id, Name: c.name, Column: ColumnExpense, Subtype: subtype, Value: c.amount})
		flow.Links = append(flow.Links, FlowLink{SourceID: BalanceNodeID, TargetID: id, Value: c.amount})
	}
	if !deficit.IsPositive() {
		flow.Nodes = append(flow.Nodes, FlowNode{
			ID: UnallocatedNodeID, Name: "Unallocated", Column: ColumnExpense, Subtype: SubtypeUnallocated, Value: surplus,
		})
		flow.Links = append(flow.Links, FlowLink{SourceID: BalanceNodeID, TargetID: UnallocatedNodeID, Value: surplus})
	}

	if err := checkConservation(flow); err != nil {
		return MoneyFlow{}, err
	}
	return flow, nil
}

// BalanceInOut returns the total value flowing into and out of the balance node.
func BalanceInOut(flow MoneyFlow) (in, out decimal.Decimal) {
	in, out = decimal.Zero, decimal.Zero
	for _, l := range flow.Links {
		if l.TargetID == BalanceNodeID {
			in = in.Add(l.Value)
		}
		if l.SourceID == BalanceNodeID {
			out = out.Add(l.Value)
		}
	}
	return in, out
}

func checkConservation(flow MoneyFlow) error {
	in, out := BalanceInOut(flow)
	if !in.Equal(out) {
		return fmt.Errorf("%w: balance inflow %s != outflow %s", ErrInvariantViolation, in, out)
	}
	for _, l := range flow.Links {
		if l.Value.IsNegative() {
			return fmt.Errorf("%w: negative link %s -> %s", ErrInvariantViolation, l.SourceID, l.TargetID)
		}
	}
	return nil
}

func sumCategories(cs []categorySum) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cs {
		total = total.Add(c.amount)
	}
	return total
}
