package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ratios is the income split across budget types. The parts must be
// non-negative and sum to exactly 1.
type Ratios struct {
	Needs   decimal.Decimal
	Wants   decimal.Decimal
	Savings decimal.Decimal
}

// DefaultRatios returns the 50/30/20 split.
func DefaultRatios() Ratios {
	return Ratios{
		Needs:   decimal.NewFromFloat(0.5),
		Wants:   decimal.NewFromFloat(0.3),
		Savings: decimal.NewFromFloat(0.2),
	}
}

func (r Ratios) Validate() error {
	for _, part := range []decimal.Decimal{r.Needs, r.Wants, r.Savings} {
		if part.IsNegative() {
			return fmt.Errorf("%w: ratio %s is negative", ErrInvalidProfile, part)
		}
	}
	if total := r.Needs.Add(r.Wants).Add(r.Savings); !total.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: ratios sum to %s, want 1", ErrInvalidProfile, total)
	}
	return nil
}

// Of returns the ratio for a budget type. Other carries no allocation.
func (r Ratios) Of(t BudgetType) decimal.Decimal {
	switch t {
	case BudgetNeeds:
		return r.Needs
	case BudgetWants:
		return r.Wants
	case BudgetSavings:
		return r.Savings
	}
	return decimal.Zero
}

// UserProfile holds the per-user budgeting inputs collected at onboarding.
// Rent and Utilities are remembered fixed costs; the allocation math only
// uses MonthlyIncome and Ratios.
type UserProfile struct {
	UserID        string
	TelegramID    int64
	MonthlyIncome decimal.Decimal
	Ratios        Ratios
	Rent          decimal.Decimal
	Utilities     decimal.Decimal
	CreatedAt     time.Time
}

// Validate enforces the profile invariants. Zero income is allowed so a fresh
// profile can exist before the first payday; negative income is not.
func (p UserProfile) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: user id is empty", ErrInvalidProfile)
	}
	if p.MonthlyIncome.IsNegative() {
		return fmt.Errorf("%w: monthly income %s is negative", ErrInvalidProfile, p.MonthlyIncome)
	}
	return p.Ratios.Validate()
}
