package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/vchukka/finsense/internal/domain"
)

// Classify asks the model to place a transaction description into one of the
// allowed categories. Anything outside the list, and any transport failure,
// comes back as ErrUnclassified so the caller can park the row as
// Uncategorized for manual confirmation. A category is never invented here.
func (c *Client) Classify(ctx context.Context, description string, allowed []string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", fmt.Errorf("%w: empty description", domain.ErrUnclassified)
	}

	prompt := buildClassifyPrompt(description, allowed)
	raw, err := c.generate(ctx, []*genai.Part{{Text: prompt}})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnclassified, err)
	}

	category := cleanCategoryResponse(raw)
	for _, name := range allowed {
		if strings.EqualFold(category, name) {
			return name, nil
		}
	}
	if strings.EqualFold(category, domain.CategoryUncategorized) {
		return "", domain.ErrUnclassified
	}
	return "", fmt.Errorf("%w: model returned unknown category %q", domain.ErrUnclassified, category)
}

func buildClassifyPrompt(description string, allowed []string) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. Classify the following bank transaction description into exactly one category.\n\n")
	b.WriteString("Description: " + description + "\n\n")
	b.WriteString("Use ONLY one of the following categories:\n")
	for _, name := range allowed {
		b.WriteString("  - " + name + "\n")
	}
	b.WriteString("\nRULES:\n")
	b.WriteString("1. Respond with the category name only, no explanation.\n")
	b.WriteString("2. The name must match the list above EXACTLY.\n")
	b.WriteString("3. If you are unsure, respond with \"Uncategorized\".\n")
	return b.String()
}

// cleanCategoryResponse reduces a model reply to the bare category token.
// Models tend to add fences, quotes, or a "Category:" prefix despite the
// instructions.
func cleanCategoryResponse(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.Index(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		s = s[:idx]
	}

	if idx := strings.Index(strings.ToLower(s), "category:"); idx != -1 {
		s = s[idx+len("category:"):]
	}

	s = strings.Trim(s, "\"'` .")
	return strings.TrimSpace(s)
}
