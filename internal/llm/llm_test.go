package llm

import (
	"testing"
	"time"
)

func TestCleanCategoryResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare name", "Dining", "Dining"},
		{"surrounding whitespace", "  Dining \n", "Dining"},
		{"quoted", "\"Dining\"", "Dining"},
		{"fenced", "```\nDining\n```", "Dining"},
		{"labelled", "Category: Dining", "Dining"},
		{"explanation after newline", "Dining\nBecause it is a coffee shop.", "Dining"},
		{"trailing period", "Dining.", "Dining"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanCategoryResponse(tt.input); got != tt.want {
				t.Errorf("cleanCategoryResponse(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "already clean array",
			input: `[{"a":1}]`,
			want:  `[{"a":1}]`,
		},
		{
			name:  "json fence",
			input: "```json\n[{\"a\":1}]\n```",
			want:  `[{"a":1}]`,
		},
		{
			name:  "plain fence",
			input: "```\n{\"a\":1}\n```",
			want:  `{"a":1}`,
		},
		{
			name:  "prose around object",
			input: "Here is the result: {\"category\":\"Food\"} Hope that helps!",
			want:  `{"category":"Food"}`,
		},
		{
			name:  "prose around array",
			input: "Result:\n[1,2,3]\nDone.",
			want:  `[1,2,3]`,
		},
		{
			name:  "object containing array keeps object",
			input: "{\"rows\":[1,2]}",
			want:  `{"rows":[1,2]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeQueryArgs(t *testing.T) {
	now := time.Date(2025, time.April, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		args         queryArgs
		wantCategory string
		wantMonth    string
	}{
		{
			name:         "known category canonicalized",
			args:         queryArgs{Category: "dining", Month: "2025-03"},
			wantCategory: "Dining",
			wantMonth:    "2025-03",
		},
		{
			name:         "all means no filter",
			args:         queryArgs{Category: "All", Month: "2025-03"},
			wantCategory: "",
			wantMonth:    "2025-03",
		},
		{
			name:         "empty category",
			args:         queryArgs{Month: "2025-03"},
			wantCategory: "",
			wantMonth:    "2025-03",
		},
		{
			name:         "missing month defaults to current",
			args:         queryArgs{Category: "Groceries"},
			wantCategory: "Groceries",
			wantMonth:    "2025-04",
		},
		{
			name:         "malformed month defaults to current",
			args:         queryArgs{Category: "Groceries", Month: "March"},
			wantCategory: "Groceries",
			wantMonth:    "2025-04",
		},
		{
			name:         "unknown category title cased",
			args:         queryArgs{Category: "eating out", Month: "2025-02"},
			wantCategory: "Eating Out",
			wantMonth:    "2025-02",
		},
		{
			name:         "uncategorized passes through",
			args:         queryArgs{Category: "uncategorized", Month: "2025-02"},
			wantCategory: "Uncategorized",
			wantMonth:    "2025-02",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeQueryArgs(tt.args, now)
			if got.Category != tt.wantCategory {
				t.Errorf("category = %q, want %q", got.Category, tt.wantCategory)
			}
			if got.Month != tt.wantMonth {
				t.Errorf("month = %q, want %q", got.Month, tt.wantMonth)
			}
		})
	}
}
