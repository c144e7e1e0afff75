// Package budget implements the 50/30/20 allocation rule: planned limits per
// budget type from income and ratios, compared against actual spending.
package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/domain"
)

// TypeStatus is the evaluation of one budget bucket for a period.
type TypeStatus struct {
	Type      domain.BudgetType `json:"budget_type"`
	Planned   decimal.Decimal   `json:"planned"`
	Actual    decimal.Decimal   `json:"actual"`
	Remaining decimal.Decimal   `json:"remaining"` // planned minus actual, negative when overspent
	Over      bool              `json:"over"`
}

// Plan computes the planned limit per budget type as income times ratio,
// rounded to cents. Zero income yields zero limits, so any spending at all
// shows up as over budget.
func Plan(income decimal.Decimal, ratios domain.Ratios) (map[domain.BudgetType]decimal.Decimal, error) {
	if income.IsNegative() {
		return nil, fmt.Errorf("%w: income %s is negative", domain.ErrInvalidProfile, income)
	}
	if err := ratios.Validate(); err != nil {
		return nil, err
	}

	plan := make(map[domain.BudgetType]decimal.Decimal, 3)
	for _, t := range domain.BudgetTypesInOrder() {
		plan[t] = income.Mul(ratios.Of(t)).Round(2)
	}
	return plan, nil
}

// Evaluate compares planned limits against actual absolute spending per
// budget type. Types missing from actuals count as zero spend.
func Evaluate(profile domain.UserProfile, actuals map[domain.BudgetType]decimal.Decimal) ([]TypeStatus, error) {
	plan, err := Plan(profile.MonthlyIncome, profile.Ratios)
	if err != nil {
		return nil, err
	}

	out := make([]TypeStatus, 0, 3)
	for _, t := range domain.BudgetTypesInOrder() {
		planned := plan[t]
		actual := actuals[t]
		out = append(out, TypeStatus{
			Type:      t,
			Planned:   planned,
			Actual:    actual,
			Remaining: planned.Sub(actual),
			Over:      actual.GreaterThan(planned),
		})
	}
	return out, nil
}
