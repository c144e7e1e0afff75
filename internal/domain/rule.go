package domain

// RuleScope separates seeded defaults from per-user additions.
type RuleScope string

const (
	ScopeGlobal RuleScope = "global"
	ScopeUser   RuleScope = "user"
)

// KeywordRule maps a description substring to a category. Rule order is
// significant: Position is assigned at insert time and matching walks
// positions ascending, user rules before global ones.
type KeywordRule struct {
	ID       int64
	Keyword  string
	Category string
	Scope    RuleScope
	UserID   string // empty for global rules
	Position int
}
