// Package summary aggregates stored transactions into spending, income, and
// budget views, and resolves natural-language questions into structured
// filters.
package summary

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/budget"
	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/logger"
)

// TransactionSource is the slice of the store the summarizer reads.
type TransactionSource interface {
	Query(ctx context.Context, userID string, f domain.Filter) ([]domain.Transaction, error)
}

// ProfileSource resolves the budgeting inputs for a user.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (domain.UserProfile, error)
}

// QueryParser turns a natural-language question into a filter. Implemented
// by the model client; a nil parser means phrase parsing alone.
type QueryParser interface {
	ParseQuery(ctx context.Context, text string, now time.Time) (domain.Filter, error)
}

// CategoryTotal is the aggregate for one category within a filter.
type CategoryTotal struct {
	Category string            `json:"category"`
	Type     domain.BudgetType `json:"budget_type"`
	Net      decimal.Decimal   `json:"net"`   // signed sum of all amounts
	Spent    decimal.Decimal   `json:"spent"` // absolute value of the negative side only
	Count    int               `json:"count"`
}

// Spending is the result of a filtered aggregation. Empty filters are valid
// and produce zero totals, never an error.
type Spending struct {
	Month      string          `json:"month,omitempty"`
	Category   string          `json:"category,omitempty"` // empty when unfiltered
	Categories []CategoryTotal `json:"categories"`
	TotalNet   decimal.Decimal `json:"total_net"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// BudgetReport combines the allocation plan with the period's actuals.
type BudgetReport struct {
	Month    string              `json:"month"`
	Income   decimal.Decimal     `json:"income"`
	Statuses []budget.TypeStatus `json:"statuses"`
}

// IncomeSource is one labelled income stream within a month.
type IncomeSource struct {
	Source string          `json:"source"`
	Amount decimal.Decimal `json:"amount"`
}

// IncomeSummary lists a month's income, base salary first.
type IncomeSummary struct {
	Month   string          `json:"month"`
	Total   decimal.Decimal `json:"total"`
	Sources []IncomeSource  `json:"sources"`
}

type Service struct {
	txs      TransactionSource
	profiles ProfileSource
	parser   QueryParser
}

func New(txs TransactionSource, profiles ProfileSource, parser QueryParser) *Service {
	return &Service{txs: txs, profiles: profiles, parser: parser}
}

// Spending aggregates matching transactions grouped by category. Categories
// are ordered by spend, largest first, so reruns on an unchanged store
// render identically.
func (s *Service) Spending(ctx context.Context, userID string, f domain.Filter) (Spending, error) {
	rows, err := s.txs.Query(ctx, userID, f)
	if err != nil {
		return Spending{}, fmt.Errorf("query transactions: %w", err)
	}

	byCat := make(map[string]*CategoryTotal)
	var order []string
	totalNet := decimal.Zero
	totalSpent := decimal.Zero

	for _, tx := range rows {
		ct, ok := byCat[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category, Type: domain.BudgetTypeOf(tx.Category)}
			byCat[tx.Category] = ct
			order = append(order, tx.Category)
		}
		ct.Net = ct.Net.Add(tx.Amount)
		ct.Count++
		totalNet = totalNet.Add(tx.Amount)
		if tx.Amount.IsNegative() {
			ct.Spent = ct.Spent.Add(tx.Amount.Neg())
			totalSpent = totalSpent.Add(tx.Amount.Neg())
		}
	}

	out := Spending{
		Month:      f.Month,
		Category:   f.Category,
		TotalNet:   totalNet,
		TotalSpent: totalSpent,
	}
	for _, name := range order {
		out.Categories = append(out.Categories, *byCat[name])
	}
	sort.SliceStable(out.Categories, func(i, j int) bool {
		a, b := out.Categories[i], out.Categories[j]
		if !a.Spent.Equal(b.Spent) {
			return a.Spent.GreaterThan(b.Spent)
		}
		return a.Category < b.Category
	})
	return out, nil
}

// Budget evaluates the month against the user's 50/30/20 plan. Spending in
// the Other bucket (income labels, uncategorized rows) is visible in
// Spending but carries no allocation, so it never enters the comparison.
func (s *Service) Budget(ctx context.Context, userID, month string) (BudgetReport, error) {
	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return BudgetReport{}, fmt.Errorf("load profile: %w", err)
	}

	spend, err := s.Spending(ctx, userID, domain.Filter{Month: month})
	if err != nil {
		return BudgetReport{}, err
	}

	actuals := make(map[domain.BudgetType]decimal.Decimal, 3)
	for _, ct := range spend.Categories {
		switch ct.Type {
		case domain.BudgetNeeds, domain.BudgetWants, domain.BudgetSavings:
			actuals[ct.Type] = actuals[ct.Type].Add(ct.Spent)
		}
	}

	statuses, err := budget.Evaluate(profile, actuals)
	if err != nil {
		return BudgetReport{}, err
	}
	return BudgetReport{Month: month, Income: profile.MonthlyIncome, Statuses: statuses}, nil
}

// Income lists the month's income streams: the base salary from the profile
// first, then positive transactions grouped by their source label.
func (s *Service) Income(ctx context.Context, userID, month string) (IncomeSummary, error) {
	out := IncomeSummary{Month: month, Total: decimal.Zero}

	profile, err := s.profiles.Profile(ctx, userID)
	switch {
	case err == nil:
		if profile.MonthlyIncome.IsPositive() {
			out.Sources = append(out.Sources, IncomeSource{Source: "salary", Amount: profile.MonthlyIncome})
			out.Total = out.Total.Add(profile.MonthlyIncome)
		}
	case errors.Is(err, domain.ErrProfileNotFound):
		// income transactions still count without a profile
	default:
		return IncomeSummary{}, fmt.Errorf("load profile: %w", err)
	}

	rows, err := s.txs.Query(ctx, userID, domain.Filter{Month: month})
	if err != nil {
		return IncomeSummary{}, fmt.Errorf("query transactions: %w", err)
	}

	bySource := make(map[string]int)
	for _, tx := range rows {
		if !tx.Amount.IsPositive() {
			continue
		}
		idx, ok := bySource[tx.Category]
		if !ok {
			out.Sources = append(out.Sources, IncomeSource{Source: tx.Category})
			idx = len(out.Sources) - 1
			bySource[tx.Category] = idx
		}
		out.Sources[idx].Amount = out.Sources[idx].Amount.Add(tx.Amount)
		out.Total = out.Total.Add(tx.Amount)
	}
	return out, nil
}

// ResolveFilter turns a natural-language question into a structured filter.
// The model parser is tried first when configured; any failure falls back to
// deterministic phrase parsing so summaries keep working without the model.
func (s *Service) ResolveFilter(ctx context.Context, text string, now time.Time) domain.Filter {
	if s.parser != nil {
		f, err := s.parser.ParseQuery(ctx, text, now)
		if err == nil {
			return f
		}
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("query parser unavailable, using phrase parsing")
	}
	return ParsePhrase(text, now)
}
