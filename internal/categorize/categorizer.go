// Package categorize implements deterministic keyword categorization.
// Matching is a pure lookup against the rule set supplied by the caller; the
// model fallback and any persistence happen elsewhere.
package categorize

import (
	"strings"

	"github.com/vchukka/finsense/internal/domain"
)

// Categorizer resolves a description against ordered keyword rules. User
// rules are always tested before global rules, and inside each scope rules
// apply in the order given, so the first inserted keyword wins ties.
type Categorizer struct {
	user   []domain.KeywordRule
	global []domain.KeywordRule
}

// New builds a categorizer from the two rule scopes. Callers load each slice
// position-ascending; the order is preserved verbatim.
func New(userRules, globalRules []domain.KeywordRule) *Categorizer {
	return &Categorizer{user: userRules, global: globalRules}
}

// Match returns the category for a description. The second return value is
// false when no rule matched; callers fall through to the model fallback or
// the Uncategorized sentinel.
func (c *Categorizer) Match(description string) (string, bool) {
	desc := normalize(description)
	if desc == "" {
		return "", false
	}

	for _, scope := range [2][]domain.KeywordRule{c.user, c.global} {
		for _, rule := range scope {
			keyword := normalize(rule.Keyword)
			if keyword == "" {
				continue
			}
			if strings.Contains(desc, keyword) {
				return rule.Category, true
			}
		}
	}
	return "", false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
