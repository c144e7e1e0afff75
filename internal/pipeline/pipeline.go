// Package pipeline turns raw bank statements into categorized
// transactions. A pipeline is a fixed sequence of steps sharing one
// state: extract lines from the statement, categorize each line by
// keyword rules with a model fallback, persist the results, and report
// what happened.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vchukka/finsense/internal/domain"
)

// LineExtractor pulls transaction lines out of a raw statement.
// Implementations exist for plain-text statements and for PDF
// statements handed to the model.
type LineExtractor interface {
	Extract(ctx context.Context, data []byte) ([]domain.RawLine, error)
}

// RuleSource loads keyword rules for the categorize step.
type RuleSource interface {
	GlobalRules(ctx context.Context) ([]domain.KeywordRule, error)
	UserRules(ctx context.Context, userID string) ([]domain.KeywordRule, error)
}

// Classifier assigns a category to a description no rule matched.
// The returned category must be one of allowed.
type Classifier interface {
	Classify(ctx context.Context, description string, allowed []string) (string, error)
}

// TransactionWriter persists categorized transactions. Insert returns
// domain.ErrDuplicateTransaction when the row already exists.
type TransactionWriter interface {
	Insert(ctx context.Context, tx domain.Transaction) (uuid.UUID, error)
}

// ImportResult counts what an import run did.
type ImportResult struct {
	Imported   int // rows written
	Duplicates int // rows skipped because they already existed
	Pending    int // written rows whose category still needs user review
	Failed     int // rows that could not be written
}

// PipelineState is shared between the steps of a pipeline run. Each
// step reads the fields earlier steps filled in and adds its own.
type PipelineState struct {
	UserID string
	Source string // statement file name or sync origin, for logs

	Data         []byte
	Lines        []domain.RawLine
	Transactions []domain.Transaction

	Result ImportResult
}

// PipelineStep is a single stage of an import run.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// Pipeline runs steps in order against a shared state.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a pipeline from the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in order. The first failing step aborts the
// run; per-row problems are counted in the state instead of failing
// the step.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewStatementImportPipeline builds the full import pipeline for a raw
// statement: extract, categorize, persist, report.
func NewStatementImportPipeline(extractor LineExtractor, rules RuleSource, classifier Classifier, store TransactionWriter) *Pipeline {
	return NewPipeline(
		&ExtractStep{Extractor: extractor},
		&CategorizeStep{Rules: rules, Classifier: classifier},
		&PersistStep{Store: store},
		&ReportStep{},
	)
}

// NewLineImportPipeline builds a pipeline for lines that were already
// extracted elsewhere, such as rows pulled from Notion.
func NewLineImportPipeline(rules RuleSource, classifier Classifier, store TransactionWriter) *Pipeline {
	return NewPipeline(
		&CategorizeStep{Rules: rules, Classifier: classifier},
		&PersistStep{Store: store},
		&ReportStep{},
	)
}
