package domain

import "strings"

// BudgetType is the 50/30/20 bucket a category rolls up into.
type BudgetType string

const (
	BudgetNeeds   BudgetType = "Needs"
	BudgetWants   BudgetType = "Wants"
	BudgetSavings BudgetType = "Savings"
	BudgetOther   BudgetType = "Other"
)

// CategoryUncategorized marks rows that neither keyword rules nor the model
// could place. They stay pending until the user confirms a category.
const CategoryUncategorized = "Uncategorized"

// categoryNames fixes the order categories are listed in, both for model
// prompts and for rendered summaries.
var categoryNames = []string{
	"Groceries",
	"Rent",
	"Utilities",
	"Healthcare",
	"Transport",
	"Loan",
	"Dining",
	"Entertainment",
	"Subscriptions",
	"Shopping",
	"Travel",
	"Savings",
	"Investment",
}

var budgetTypes = map[string]BudgetType{
	"Groceries":     BudgetNeeds,
	"Rent":          BudgetNeeds,
	"Utilities":     BudgetNeeds,
	"Healthcare":    BudgetNeeds,
	"Transport":     BudgetNeeds,
	"Loan":          BudgetNeeds,
	"Dining":        BudgetWants,
	"Entertainment": BudgetWants,
	"Subscriptions": BudgetWants,
	"Shopping":      BudgetWants,
	"Travel":        BudgetWants,
	"Savings":       BudgetSavings,
	"Investment":    BudgetSavings,
}

// Categories returns the known category names in a stable order. The model
// prompt is constrained to exactly this set.
func Categories() []string {
	out := make([]string, len(categoryNames))
	copy(out, categoryNames)
	return out
}

// ValidCategory reports whether name is one of the known categories or the
// Uncategorized sentinel.
func ValidCategory(name string) bool {
	if name == CategoryUncategorized {
		return true
	}
	_, ok := budgetTypes[name]
	return ok
}

// CanonicalCategory resolves a case-insensitive category name to its
// canonical spelling. ok is false for names outside the known set.
func CanonicalCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, CategoryUncategorized) {
		return CategoryUncategorized, true
	}
	for _, c := range categoryNames {
		if strings.EqualFold(name, c) {
			return c, true
		}
	}
	return "", false
}

// BudgetTypeOf resolves the bucket for a category. Unknown categories, income
// source labels, and Uncategorized all land in Other so spending math never
// picks them up by accident.
func BudgetTypeOf(category string) BudgetType {
	if t, ok := budgetTypes[category]; ok {
		return t
	}
	return BudgetOther
}

// BudgetTypesInOrder lists the buckets in reporting order.
func BudgetTypesInOrder() []BudgetType {
	return []BudgetType{BudgetNeeds, BudgetWants, BudgetSavings}
}
