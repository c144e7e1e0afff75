package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vchukka/finsense/internal/domain"
)

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, data []byte) ([]domain.RawLine, error)
}

func (m *mockExtractor) Extract(ctx context.Context, data []byte) ([]domain.RawLine, error) {
	return m.ExtractFunc(ctx, data)
}

type mockRuleSource struct {
	global []domain.KeywordRule
	user   []domain.KeywordRule
}

func (m *mockRuleSource) GlobalRules(ctx context.Context) ([]domain.KeywordRule, error) {
	return m.global, nil
}

func (m *mockRuleSource) UserRules(ctx context.Context, userID string) ([]domain.KeywordRule, error) {
	return m.user, nil
}

type mockClassifier struct {
	ClassifyFunc func(ctx context.Context, description string, allowed []string) (string, error)
}

func (m *mockClassifier) Classify(ctx context.Context, description string, allowed []string) (string, error) {
	return m.ClassifyFunc(ctx, description, allowed)
}

// memoryStore deduplicates on the same key as the real store.
type memoryStore struct {
	inserted []domain.Transaction
	seen     map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{seen: make(map[string]bool)}
}

func (m *memoryStore) Insert(ctx context.Context, tx domain.Transaction) (uuid.UUID, error) {
	key := fmt.Sprintf("%s|%s|%s|%s", tx.UserID, tx.Date.Format("2006-01-02"), tx.Description, tx.Amount.String())
	if m.seen[key] {
		return uuid.Nil, domain.ErrDuplicateTransaction
	}
	m.seen[key] = true
	m.inserted = append(m.inserted, tx)
	return tx.ID, nil
}

func testRules() *mockRuleSource {
	return &mockRuleSource{
		global: []domain.KeywordRule{
			{Keyword: "rewe", Category: "Groceries", Scope: domain.ScopeGlobal, Position: 1},
			{Keyword: "netflix", Category: "Subscriptions", Scope: domain.ScopeGlobal, Position: 2},
		},
	}
}

func testLines() []domain.RawLine {
	day := time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)
	return []domain.RawLine{
		{Date: day, Description: "REWE SAGT DANKE 44123", Amount: decimal.RequireFromString("-52.30")},
		{Date: day.AddDate(0, 0, 1), Description: "NETFLIX.COM", Amount: decimal.RequireFromString("-12.99")},
		{Date: day.AddDate(0, 0, 2), Description: "BACKHAUS MUELLER", Amount: decimal.RequireFromString("-4.80")},
	}
}

func TestStatementImport(t *testing.T) {
	extractor := &mockExtractor{
		ExtractFunc: func(ctx context.Context, data []byte) ([]domain.RawLine, error) {
			return testLines(), nil
		},
	}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, description string, allowed []string) (string, error) {
			if strings.Contains(strings.ToLower(description), "backhaus") {
				return "Dining", nil
			}
			return "", domain.ErrUnclassified
		},
	}
	store := newMemoryStore()

	p := NewStatementImportPipeline(extractor, testRules(), classifier, store)
	state := &PipelineState{UserID: "u1", Source: "april.txt", Data: []byte("raw")}

	if err := p.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if state.Result.Imported != 3 {
		t.Errorf("Imported = %d, want 3", state.Result.Imported)
	}
	if state.Result.Duplicates != 0 || state.Result.Failed != 0 {
		t.Errorf("Duplicates = %d, Failed = %d, want 0, 0", state.Result.Duplicates, state.Result.Failed)
	}
	// Only the model-classified row needs review.
	if state.Result.Pending != 1 {
		t.Errorf("Pending = %d, want 1", state.Result.Pending)
	}

	want := map[string]struct {
		category string
		status   domain.Status
	}{
		"REWE SAGT DANKE 44123": {"Groceries", domain.StatusRule},
		"NETFLIX.COM":           {"Subscriptions", domain.StatusRule},
		"BACKHAUS MUELLER":      {"Dining", domain.StatusLLM},
	}
	for _, tx := range store.inserted {
		w, ok := want[tx.Description]
		if !ok {
			t.Errorf("unexpected transaction %q", tx.Description)
			continue
		}
		if tx.Category != w.category || tx.Status != w.status {
			t.Errorf("%q categorized as %s/%s, want %s/%s",
				tx.Description, tx.Category, tx.Status, w.category, w.status)
		}
	}
}

func TestReimportIsNoOp(t *testing.T) {
	extractor := &mockExtractor{
		ExtractFunc: func(ctx context.Context, data []byte) ([]domain.RawLine, error) {
			return testLines(), nil
		},
	}
	store := newMemoryStore()
	p := NewStatementImportPipeline(extractor, testRules(), nil, store)

	first := &PipelineState{UserID: "u1", Source: "april.txt", Data: []byte("raw")}
	if err := p.Execute(context.Background(), first); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	second := &PipelineState{UserID: "u1", Source: "april.txt", Data: []byte("raw")}
	if err := p.Execute(context.Background(), second); err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}

	if second.Result.Imported != 0 {
		t.Errorf("second import Imported = %d, want 0", second.Result.Imported)
	}
	if second.Result.Duplicates != 3 {
		t.Errorf("second import Duplicates = %d, want 3", second.Result.Duplicates)
	}
	if len(store.inserted) != 3 {
		t.Errorf("store holds %d transactions after re-import, want 3", len(store.inserted))
	}
}

func TestClassifierFailureLeavesUncategorized(t *testing.T) {
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, description string, allowed []string) (string, error) {
			return "", fmt.Errorf("%w: %v", domain.ErrUnclassified, context.DeadlineExceeded)
		},
	}
	store := newMemoryStore()
	p := NewLineImportPipeline(testRules(), classifier, store)

	state := &PipelineState{
		UserID: "u1",
		Source: "notion",
		Lines: []domain.RawLine{
			{Date: time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC), Description: "UNBEKANNTER LADEN", Amount: decimal.RequireFromString("-9.00")},
		},
	}
	if err := p.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if state.Result.Imported != 1 || state.Result.Pending != 1 {
		t.Errorf("Imported = %d, Pending = %d, want 1, 1", state.Result.Imported, state.Result.Pending)
	}
	tx := store.inserted[0]
	if tx.Category != domain.CategoryUncategorized {
		t.Errorf("Category = %q, want %q", tx.Category, domain.CategoryUncategorized)
	}
	if tx.Status != domain.StatusUnclassified {
		t.Errorf("Status = %q, want %q", tx.Status, domain.StatusUnclassified)
	}
}

func TestUserRuleBeatsGlobalRule(t *testing.T) {
	rules := testRules()
	rules.user = []domain.KeywordRule{
		{Keyword: "netflix", Category: "Entertainment", Scope: domain.ScopeUser, UserID: "u1", Position: 1},
	}
	store := newMemoryStore()
	p := NewLineImportPipeline(rules, nil, store)

	state := &PipelineState{
		UserID: "u1",
		Lines: []domain.RawLine{
			{Date: time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC), Description: "NETFLIX.COM", Amount: decimal.RequireFromString("-12.99")},
		},
	}
	if err := p.Execute(context.Background(), state); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := store.inserted[0].Category; got != "Entertainment" {
		t.Errorf("Category = %q, want %q", got, "Entertainment")
	}
}

func TestExtractFailureAbortsPipeline(t *testing.T) {
	extractor := &mockExtractor{
		ExtractFunc: func(ctx context.Context, data []byte) ([]domain.RawLine, error) {
			return nil, errors.New("unreadable statement")
		},
	}
	p := NewStatementImportPipeline(extractor, testRules(), nil, newMemoryStore())

	state := &PipelineState{UserID: "u1", Data: []byte("raw")}
	err := p.Execute(context.Background(), state)
	if err == nil {
		t.Fatal("Execute() expected error, got nil")
	}
	if !strings.Contains(err.Error(), "pipeline step 1 failed") {
		t.Errorf("error = %q, want step 1 failure", err)
	}
}
