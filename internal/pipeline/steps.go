package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/vchukka/finsense/internal/categorize"
	"github.com/vchukka/finsense/internal/domain"
	"github.com/vchukka/finsense/internal/logger"
)

// ExtractStep turns the raw statement bytes into transaction lines.
// It is a no-op when earlier code already provided the lines.
type ExtractStep struct {
	Extractor LineExtractor
}

func (s *ExtractStep) Execute(ctx context.Context, state *PipelineState) error {
	if len(state.Lines) > 0 {
		return nil
	}
	if s.Extractor == nil {
		return errors.New("no extractor configured")
	}
	if len(state.Data) == 0 {
		return errors.New("no statement data to extract")
	}

	lines, err := s.Extractor.Extract(ctx, state.Data)
	if err != nil {
		return fmt.Errorf("extracting statement lines: %w", err)
	}
	state.Lines = lines

	log := logger.FromContext(ctx)
	log.Debug().
		Str("source", state.Source).
		Int("lines", len(lines)).
		Msg("statement lines extracted")
	return nil
}

// CategorizeStep assigns a category to every extracted line. Keyword
// rules are tried first; descriptions no rule matches go to the
// classifier. When the classifier fails or is absent the line stays
// Uncategorized and the import continues.
type CategorizeStep struct {
	Rules      RuleSource
	Classifier Classifier
}

func (s *CategorizeStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Rules == nil {
		return errors.New("no rule source configured")
	}

	global, err := s.Rules.GlobalRules(ctx)
	if err != nil {
		return fmt.Errorf("loading global rules: %w", err)
	}
	user, err := s.Rules.UserRules(ctx, state.UserID)
	if err != nil {
		return fmt.Errorf("loading rules for user %s: %w", state.UserID, err)
	}
	matcher := categorize.New(user, global)

	log := logger.FromContext(ctx)
	allowed := domain.Categories()

	state.Transactions = make([]domain.Transaction, 0, len(state.Lines))
	for _, line := range state.Lines {
		tx := domain.NewTransaction(state.UserID, line.Date, line.Description, line.Amount)

		if category, ok := matcher.Match(line.Description); ok {
			tx.Category = category
			tx.BudgetType = domain.BudgetTypeOf(category)
			tx.Status = domain.StatusRule
		} else if s.Classifier != nil {
			category, err := s.Classifier.Classify(ctx, line.Description, allowed)
			switch {
			case err != nil:
				log.Warn().Err(err).
					Str("description", line.Description).
					Msg("classification failed, leaving uncategorized")
			case category == domain.CategoryUncategorized:
				// Model declined to guess.
			default:
				tx.Category = category
				tx.BudgetType = domain.BudgetTypeOf(category)
				tx.Status = domain.StatusLLM
			}
		}

		state.Transactions = append(state.Transactions, tx)
	}
	return nil
}

// PersistStep writes the categorized transactions. Duplicate rows are
// skipped and counted, per-row failures are counted, and neither stops
// the rest of the batch.
type PersistStep struct {
	Store TransactionWriter
}

func (s *PersistStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Store == nil {
		return errors.New("no transaction store configured")
	}

	log := logger.FromContext(ctx)
	for _, tx := range state.Transactions {
		if _, err := s.Store.Insert(ctx, tx); err != nil {
			if errors.Is(err, domain.ErrDuplicateTransaction) {
				state.Result.Duplicates++
				continue
			}
			log.Error().Err(err).
				Str("description", tx.Description).
				Msg("failed to store transaction")
			state.Result.Failed++
			continue
		}
		state.Result.Imported++
		if tx.Status != domain.StatusRule {
			state.Result.Pending++
		}
	}
	return nil
}

// ReportStep logs the outcome of the run.
type ReportStep struct{}

func (s *ReportStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	log.Info().
		Str("user_id", state.UserID).
		Str("source", state.Source).
		Int("imported", state.Result.Imported).
		Int("duplicates", state.Result.Duplicates).
		Int("pending", state.Result.Pending).
		Int("failed", state.Result.Failed).
		Msg("statement import finished")
	return nil
}
