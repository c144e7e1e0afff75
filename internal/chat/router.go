// Package chat turns one inbound budgeting question into one reply.
// The Telegram listener and the CLI both route through it: messages
// mentioning "budget" or "income" go straight to those summaries,
// everything else resolves to a spending filter, and failures fall
// back to the agent loop when one is wired.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/logger"
	"github.com/vchukka/finsense/internal/summary"
)

// Summaries is the read side the router answers from.
type Summaries interface {
	Spending(ctx context.Context, userID string, f domain.Filter) (summary.Spending, error)
	Budget(ctx context.Context, userID, month string) (summary.BudgetReport, error)
	Income(ctx context.Context, userID, month string) (summary.IncomeSummary, error)
	ResolveFilter(ctx context.Context, text string, now time.Time) domain.Filter
}

// AgentRunner answers questions the deterministic routes could not.
// Optional; without one the router replies with an apology on failure.
type AgentRunner interface {
	Ask(ctx context.Context, userID, text string) (string, error)
}

// Router answers user messages from the summaries.
type Router struct {
	svc   Summaries
	agent AgentRunner
	now   func() time.Time
}

func NewRouter(svc Summaries, agent AgentRunner) *Router {
	return &Router{svc: svc, agent: agent, now: time.Now}
}

// Reply answers a user's message. It never returns an error: failures
// degrade to the agent fallback and finally to an apology, so the bot
// always says something.
func (r *Router) Reply(ctx context.Context, userID, text string) string {
	f := r.svc.ResolveFilter(ctx, text, r.now())
	month := f.Month
	if month == "" {
		month = domain.MonthOf(r.now())
	}

	var err error
	switch lower := strings.ToLower(text); {
	case strings.Contains(lower, "budget"):
		report, berr := r.svc.Budget(ctx, userID, month)
		if berr == nil {
			return summary.RenderBudget(report)
		}
		if errors.Is(berr, domain.ErrProfileNotFound) {
			return "No budget set up yet. Set your monthly income first."
		}
		err = berr

	case strings.Contains(lower, "income"):
		inc, ierr := r.svc.Income(ctx, userID, month)
		if ierr == nil {
			return summary.RenderIncome(inc)
		}
		err = ierr

	default:
		sp, serr := r.svc.Spending(ctx, userID, f)
		if serr == nil {
			return summary.RenderSpending(sp)
		}
		err = serr
	}

	log := logger.FromContext(ctx)
	log.Warn().Err(err).Str("user_id", userID).Msg("summary route failed")

	if r.agent != nil {
		answer, aerr := r.agent.Ask(ctx, userID, text)
		if aerr == nil {
			return answer
		}
		log.Warn().Err(aerr).Msg("agent fallback failed")
	}
	return "Sorry, I could not answer that right now. Please try again."
}
