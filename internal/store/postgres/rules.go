package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/vchukka/finsense/internal/domain"
)

// RuleRepository stores keyword rules. Positions are assigned per scope at
// insert time and reads always come back position-ascending, so matching
// order equals insertion order.
type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// GlobalRules returns the seeded default rules in match order.
func (r *RuleRepository) GlobalRules(ctx context.Context) ([]domain.KeywordRule, error) {
	const q = `
		SELECT id, keyword, category, scope, user_id, position
		FROM keyword_rules
		WHERE scope = 'global'
		ORDER BY position`
	return r.list(ctx, q)
}

// UserRules returns one user's rules in match order.
func (r *RuleRepository) UserRules(ctx context.Context, userID string) ([]domain.KeywordRule, error) {
	const q = `
		SELECT id, keyword, category, scope, user_id, position
		FROM keyword_rules
		WHERE scope = 'user' AND user_id = $1
		ORDER BY position`
	return r.list(ctx, q, userID)
}

// AddUserRule inserts a user-scoped keyword. Re-adding an existing keyword
// updates its category but keeps its position, so precedence is stable.
func (r *RuleRepository) AddUserRule(ctx context.Context, userID, keyword, category string) error {
	return r.add(ctx, domain.ScopeUser, userID, keyword, category)
}

// AddGlobalRule inserts a global keyword, used by the admin tool.
func (r *RuleRepository) AddGlobalRule(ctx context.Context, keyword, category string) error {
	return r.add(ctx, domain.ScopeGlobal, "", keyword, category)
}

func (r *RuleRepository) add(ctx context.Context, scope domain.RuleScope, userID, keyword, category string) error {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	category = strings.TrimSpace(category)
	if keyword == "" {
		return fmt.Errorf("add keyword rule: keyword is empty")
	}
	if category == "" {
		return fmt.Errorf("add keyword rule: category is empty")
	}

	const q = `
		INSERT INTO keyword_rules (keyword, category, scope, user_id, position)
		VALUES ($1, $2, $3, $4,
			COALESCE((SELECT MAX(position) + 1 FROM keyword_rules WHERE scope = $3 AND user_id = $4), 1))
		ON CONFLICT (scope, user_id, keyword)
		DO UPDATE SET category = EXCLUDED.category`

	if _, err := r.db.ExecContext(ctx, q, keyword, category, string(scope), userID); err != nil {
		return fmt.Errorf("add keyword rule: %w", err)
	}
	return nil
}

func (r *RuleRepository) list(ctx context.Context, query string, args ...any) ([]domain.KeywordRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keyword rules: %w", err)
	}
	defer rows.Close()

	var out []domain.KeywordRule
	for rows.Next() {
		var rule domain.KeywordRule
		var scope string
		if err := rows.Scan(&rule.ID, &rule.Keyword, &rule.Category, &scope, &rule.UserID, &rule.Position); err != nil {
			return nil, fmt.Errorf("scan keyword rule: %w", err)
		}
		rule.Scope = domain.RuleScope(scope)
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword rules: %w", err)
	}
	return out, nil
}
