package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/pipeline"
	"github.com/vchukka/finsense/internal/summary"
)

// Action names exposed to the model.
const (
	ActionRecordExpense   = "record_expense"
	ActionRecordIncome    = "record_income"
	ActionSpendingSummary = "spending_summary"
	ActionBudgetSummary   = "budget_summary"
	ActionIncomeSummary   = "income_summary"
	ActionAddKeyword      = "add_keyword"
	ActionReply           = "reply"
)

// Importer runs logged expenses through the categorize and persist steps.
type Importer interface {
	Execute(ctx context.Context, state *pipeline.PipelineState) error
}

// TransactionRecorder stores income entries directly, bypassing the
// expense keyword rules.
type TransactionRecorder interface {
	Insert(ctx context.Context, tx domain.Transaction) (uuid.UUID, error)
}

// RuleAdder stores user keyword rules.
type RuleAdder interface {
	AddUserRule(ctx context.Context, userID, keyword, category string) error
}

// SummaryProvider answers spending, budget and income questions.
type SummaryProvider interface {
	Spending(ctx context.Context, userID string, f domain.Filter) (summary.Spending, error)
	Budget(ctx context.Context, userID, month string) (summary.BudgetReport, error)
	Income(ctx context.Context, userID, month string) (summary.IncomeSummary, error)
}

// Services are the collaborators the built-in actions need.
type Services struct {
	Importer     Importer
	Transactions TransactionRecorder
	Rules        RuleAdder
	Summaries    SummaryProvider

	// Now defaults to time.Now.
	Now func() time.Time
}

// NewActions builds the action set for one user's conversations.
func NewActions(svc Services, userID string) []Action {
	now := svc.Now
	if now == nil {
		now = time.Now
	}

	return []Action{
		{
			Name:        ActionRecordExpense,
			Description: "Record a manually logged expense. The expense is categorized automatically.",
			Parameters: ObjectSchema(map[string]Property{
				"description": {Type: "string", Description: "What the money was spent on, e.g. 'REWE groceries'"},
				"amount":      {Type: "number", Description: "Amount spent in euros, positive"},
				"date":        {Type: "string", Description: "Date as YYYY-MM-DD, defaults to today"},
			}, "description", "amount"),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				description, err := argString(args, "description")
				if err != nil {
					return nil, err
				}
				amount, err := argNumber(args, "amount")
				if err != nil {
					return nil, err
				}
				date, err := argDate(args, "date", now())
				if err != nil {
					return nil, err
				}

				state := &pipeline.PipelineState{
					UserID: userID,
					Source: "chat",
					Lines: []domain.RawLine{
						{Date: date, Description: description, Amount: amount.Abs().Neg()},
					},
				}
				if err := svc.Importer.Execute(ctx, state); err != nil {
					return nil, fmt.Errorf("recording expense: %w", err)
				}
				if state.Result.Duplicates > 0 {
					return map[string]any{"message": "This expense is already recorded."}, nil
				}
				if state.Result.Failed > 0 {
					return nil, errors.New("the expense could not be stored")
				}
				tx := state.Transactions[0]
				return map[string]any{
					"message": fmt.Sprintf("Recorded expense of €%s for %q in category %s.",
						tx.Amount.Abs().StringFixed(2), tx.Description, tx.Category),
					"transaction": transactionPayload(tx),
				}, nil
			},
		},
		{
			Name:        ActionRecordIncome,
			Description: "Record an income entry from a named source, e.g. salary, freelance or rental.",
			Parameters: ObjectSchema(map[string]Property{
				"source": {Type: "string", Description: "Name of the income source"},
				"amount": {Type: "number", Description: "Amount received in euros, positive"},
				"date":   {Type: "string", Description: "Date as YYYY-MM-DD, defaults to today"},
			}, "source", "amount"),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				source, err := argString(args, "source")
				if err != nil {
					return nil, err
				}
				amount, err := argNumber(args, "amount")
				if err != nil {
					return nil, err
				}
				date, err := argDate(args, "date", now())
				if err != nil {
					return nil, err
				}

				tx := domain.NewTransaction(userID, date, source, amount.Abs())
				tx.Category = source
				tx.Status = domain.StatusUser

				if _, err := svc.Transactions.Insert(ctx, tx); err != nil {
					if errors.Is(err, domain.ErrDuplicateTransaction) {
						return map[string]any{"message": fmt.Sprintf(
							"Income from %s on %s is already recorded.", source, date.Format("2006-01-02"))}, nil
					}
					return nil, fmt.Errorf("recording income: %w", err)
				}
				return map[string]any{
					"message": fmt.Sprintf("Income source %q of €%s recorded successfully.",
						source, amount.Abs().StringFixed(2)),
					"transaction": transactionPayload(tx),
				}, nil
			},
		},
		{
			Name:        ActionSpendingSummary,
			Description: "Summarize spending per category for a month, optionally for one category.",
			Parameters: ObjectSchema(map[string]Property{
				"month":    {Type: "string", Description: "Month as YYYY-MM, defaults to the current month"},
				"category": {Type: "string", Description: "Optional category filter, e.g. Groceries"},
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				month, err := argMonth(args, now())
				if err != nil {
					return nil, err
				}
				s, err := svc.Summaries.Spending(ctx, userID, domain.Filter{
					Month:    month,
					Category: optString(args, "category"),
				})
				if err != nil {
					return nil, fmt.Errorf("summarizing spending: %w", err)
				}
				return map[string]any{"summary": s, "message": summary.RenderSpending(s)}, nil
			},
		},
		{
			Name:        ActionBudgetSummary,
			Description: "Evaluate the month's spending against the 50/30/20 budget plan.",
			Parameters: ObjectSchema(map[string]Property{
				"month": {Type: "string", Description: "Month as YYYY-MM, defaults to the current month"},
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				month, err := argMonth(args, now())
				if err != nil {
					return nil, err
				}
				r, err := svc.Summaries.Budget(ctx, userID, month)
				if errors.Is(err, domain.ErrProfileNotFound) {
					return nil, errors.New("no user profile found, the user must set up monthly income first")
				}
				if err != nil {
					return nil, fmt.Errorf("evaluating budget: %w", err)
				}
				return map[string]any{"report": r, "message": summary.RenderBudget(r)}, nil
			},
		},
		{
			Name:        ActionIncomeSummary,
			Description: "Summarize income by source for a month, including the profile salary.",
			Parameters: ObjectSchema(map[string]Property{
				"month": {Type: "string", Description: "Month as YYYY-MM, defaults to the current month"},
			}),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				month, err := argMonth(args, now())
				if err != nil {
					return nil, err
				}
				s, err := svc.Summaries.Income(ctx, userID, month)
				if err != nil {
					return nil, fmt.Errorf("summarizing income: %w", err)
				}
				return map[string]any{"summary": s, "message": summary.RenderIncome(s)}, nil
			},
		},
		{
			Name:        ActionAddKeyword,
			Description: "Add a keyword rule so future transactions matching the keyword land in the given category.",
			Parameters: ObjectSchema(map[string]Property{
				"keyword":  {Type: "string", Description: "Substring to match in transaction descriptions"},
				"category": {Type: "string", Description: "Category the keyword maps to, e.g. Groceries"},
			}, "keyword", "category"),
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				keyword, err := argString(args, "keyword")
				if err != nil {
					return nil, err
				}
				category, err := argString(args, "category")
				if err != nil {
					return nil, err
				}
				canonical, ok := domain.CanonicalCategory(category)
				if !ok {
					return nil, fmt.Errorf("unknown category %q, valid categories are: %s",
						category, strings.Join(domain.Categories(), ", "))
				}
				if err := svc.Rules.AddUserRule(ctx, userID, keyword, canonical); err != nil {
					return nil, fmt.Errorf("adding keyword rule: %w", err)
				}
				return map[string]any{"message": fmt.Sprintf(
					"Keyword %q will now be categorized as %s.", strings.ToLower(keyword), canonical)}, nil
			},
		},
		{
			Name:        ActionReply,
			Description: "Send the final answer to the user and end the run.",
			Parameters: ObjectSchema(map[string]Property{
				"message": {Type: "string", Description: "The answer for the user"},
			}, "message"),
			Terminal: true,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				message, err := argString(args, "message")
				if err != nil {
					return nil, err
				}
				return map[string]any{"message": message}, nil
			},
		},
	}
}

func transactionPayload(tx domain.Transaction) map[string]any {
	return map[string]any{
		"id":          tx.ID.String(),
		"date":        tx.Date.Format("2006-01-02"),
		"description": tx.Description,
		"amount":      tx.Amount.StringFixed(2),
		"category":    tx.Category,
		"budget_type": string(tx.BudgetType),
		"status":      string(tx.Status),
	}
}

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return strings.TrimSpace(s), nil
}

func optString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

func argNumber(args map[string]any, key string) (decimal.Decimal, error) {
	v, ok := args[key]
	if !ok {
		return decimal.Zero, fmt.Errorf("missing required argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return decimal.Zero, fmt.Errorf("argument %q is not a number", key)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("argument %q must be a number", key)
	}
}

func argDate(args map[string]any, key string, fallback time.Time) (time.Time, error) {
	s := optString(args, key)
	if s == "" {
		y, m, d := fallback.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("argument %q must be a date as YYYY-MM-DD", key)
	}
	return d, nil
}

func argMonth(args map[string]any, now time.Time) (string, error) {
	s := optString(args, "month")
	if s == "" {
		return domain.MonthOf(now), nil
	}
	if _, err := domain.ParseMonth(s); err != nil {
		return "", fmt.Errorf("argument %q must be a month as YYYY-MM", "month")
	}
	return s, nil
}
