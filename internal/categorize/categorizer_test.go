package categorize

import (
	"testing"

	"github.com/vchukka/finsense/internal/domain"
)

func globalRules() []domain.KeywordRule {
	return []domain.KeywordRule{
		{Keyword: "rewe", Category: "Groceries", Scope: domain.ScopeGlobal, Position: 1},
		{Keyword: "edeka", Category: "Groceries", Scope: domain.ScopeGlobal, Position: 2},
		{Keyword: "starbucks", Category: "Dining", Scope: domain.ScopeGlobal, Position: 3},
		{Keyword: "netflix", Category: "Subscriptions", Scope: domain.ScopeGlobal, Position: 4},
		{Keyword: "rent", Category: "Rent", Scope: domain.ScopeGlobal, Position: 5},
	}
}

func TestMatch(t *testing.T) {
	c := New(nil, globalRules())

	tests := []struct {
		name         string
		description  string
		wantCategory string
		wantMatch    bool
	}{
		{
			name:         "exact merchant",
			description:  "REWE SAGT DANKE 44312",
			wantCategory: "Groceries",
			wantMatch:    true,
		},
		{
			name:         "case folded with store number",
			description:  "STARBUCKS #4521",
			wantCategory: "Dining",
			wantMatch:    true,
		},
		{
			name:         "surrounding whitespace",
			description:  "  netflix.com  ",
			wantCategory: "Subscriptions",
			wantMatch:    true,
		},
		{
			name:        "no rule matches",
			description: "XYZCORP PAYROLL",
			wantMatch:   false,
		},
		{
			name:        "empty description",
			description: "",
			wantMatch:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Match(tt.description)
			if ok != tt.wantMatch {
				t.Fatalf("Match(%q) ok = %v, want %v", tt.description, ok, tt.wantMatch)
			}
			if ok && got != tt.wantCategory {
				t.Errorf("Match(%q) = %q, want %q", tt.description, got, tt.wantCategory)
			}
		})
	}
}

func TestMatchUserRuleWins(t *testing.T) {
	user := []domain.KeywordRule{
		{Keyword: "starbucks", Category: "Entertainment", Scope: domain.ScopeUser, UserID: "vasu", Position: 1},
	}
	c := New(user, globalRules())

	got, ok := c.Match("STARBUCKS #4521")
	if !ok {
		t.Fatal("expected a match")
	}
	if got != "Entertainment" {
		t.Errorf("Match = %q, want user override %q", got, "Entertainment")
	}
}

func TestMatchFirstInsertedWinsTies(t *testing.T) {
	// Both keywords appear in the description; insertion order decides.
	rules := []domain.KeywordRule{
		{Keyword: "uber", Category: "Travel", Scope: domain.ScopeGlobal, Position: 1},
		{Keyword: "eats", Category: "Dining", Scope: domain.ScopeGlobal, Position: 2},
	}
	c := New(nil, rules)

	got, ok := c.Match("UBER EATS BERLIN")
	if !ok {
		t.Fatal("expected a match")
	}
	if got != "Travel" {
		t.Errorf("Match = %q, want %q (first rule in order)", got, "Travel")
	}
}

func TestMatchedCategoryRollsUpToWants(t *testing.T) {
	c := New(nil, globalRules())

	category, ok := c.Match("STARBUCKS #4521")
	if !ok {
		t.Fatal("expected a match")
	}
	if got := domain.BudgetTypeOf(category); got != domain.BudgetWants {
		t.Errorf("BudgetTypeOf(%q) = %q, want %q", category, got, domain.BudgetWants)
	}
}
