package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"google.golang.org/genai"

	"github.com/vchukka/finsense/internal/domain"
)

var monthKeyRe = regexp.MustCompile(`^\d{4}-\d{2}$`)

type queryArgs struct {
	Category string `json:"category"`
	Month    string `json:"month"`
}

// ParseQuery extracts a {category, month} filter from a natural-language
// spending question. A malformed or missing month defaults to the current
// one, and "All" leaves the category filter empty. Transport failures
// propagate so the caller can fall back to phrase parsing.
func (c *Client) ParseQuery(ctx context.Context, text string, now time.Time) (domain.Filter, error) {
	prompt := buildQueryPrompt(text, now)
	raw, err := c.generate(ctx, []*genai.Part{{Text: prompt}})
	if err != nil {
		return domain.Filter{}, err
	}

	var args queryArgs
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &args); err != nil {
		return domain.Filter{}, fmt.Errorf("%w: unmarshal query args: %v", domain.ErrExternalService, err)
	}
	return normalizeQueryArgs(args, now), nil
}

// normalizeQueryArgs applies the filter defaults: unknown or missing months
// become the current month, category names are canonicalized against the
// known set, and "All" means no category constraint.
func normalizeQueryArgs(args queryArgs, now time.Time) domain.Filter {
	month := strings.TrimSpace(args.Month)
	if !monthKeyRe.MatchString(month) {
		month = now.Format("2006-01")
	}

	category := strings.TrimSpace(args.Category)
	switch {
	case category == "" || strings.EqualFold(category, "all"):
		category = ""
	default:
		canonical := ""
		for _, name := range domain.Categories() {
			if strings.EqualFold(category, name) {
				canonical = name
				break
			}
		}
		if canonical == "" && strings.EqualFold(category, domain.CategoryUncategorized) {
			canonical = domain.CategoryUncategorized
		}
		if canonical != "" {
			category = canonical
		} else {
			category = titleCase(category)
		}
	}

	return domain.Filter{Category: category, Month: month}
}

func buildQueryPrompt(text string, now time.Time) string {
	var b strings.Builder
	b.WriteString("You are a budget-query parser. Given a user's question about spending or budget, ")
	b.WriteString("extract a JSON object with exactly two fields: \"category\" and \"month\".\n\n")
	b.WriteString("Today's date is " + now.Format("2006-01-02") + ".\n\n")
	b.WriteString("Known categories:\n")
	for _, name := range domain.Categories() {
		b.WriteString("  - " + name + "\n")
	}
	b.WriteString("\nRULES:\n")
	b.WriteString("1. \"category\" must be one of the known categories, or \"All\" for overall spending.\n")
	b.WriteString("2. \"month\" must be in YYYY-MM format, resolving phrases like \"last month\" against today's date.\n")
	b.WriteString("3. Return ONLY the raw JSON object, no code fences, no extra text.\n")
	b.WriteString("\nQuestion: " + text + "\n")
	return b.String()
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
