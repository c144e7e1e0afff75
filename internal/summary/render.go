package summary

import (
	"fmt"
	"strings"
)

// RenderSpending formats a spending aggregation as a chat reply.
func RenderSpending(s Spending) string {
	scope := "all categories"
	if s.Category != "" {
		scope = s.Category
	}
	period := s.Month
	if period == "" {
		period = "all time"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Spending on %s in %s: €%s\n", scope, period, s.TotalSpent.StringFixed(2))
	if len(s.Categories) == 0 {
		b.WriteString("No matching transactions.")
		return b.String()
	}
	for _, ct := range s.Categories {
		if ct.Spent.IsZero() {
			continue
		}
		fmt.Fprintf(&b, "  %s: €%s (%d transactions)\n", ct.Category, ct.Spent.StringFixed(2), ct.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderBudget formats a budget evaluation as a chat reply.
func RenderBudget(r BudgetReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Budget for %s (income €%s)\n", r.Month, r.Income.StringFixed(2))
	for _, s := range r.Statuses {
		if s.Over {
			fmt.Fprintf(&b, "  %s: spent €%s of €%s (over by €%s) ⚠️\n",
				s.Type, s.Actual.StringFixed(2), s.Planned.StringFixed(2), s.Remaining.Neg().StringFixed(2))
			continue
		}
		fmt.Fprintf(&b, "  %s: spent €%s of €%s (€%s left) ✅\n",
			s.Type, s.Actual.StringFixed(2), s.Planned.StringFixed(2), s.Remaining.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderIncome formats an income summary as a chat reply.
func RenderIncome(s IncomeSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Income for %s: €%s\n", s.Month, s.Total.StringFixed(2))
	if len(s.Sources) == 0 {
		b.WriteString("No income recorded.")
		return b.String()
	}
	for _, src := range s.Sources {
		fmt.Fprintf(&b, "  %s: €%s\n", src.Source, src.Amount.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n")
}
