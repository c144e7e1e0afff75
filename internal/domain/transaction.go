package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status records how a transaction's category was resolved.
type Status string

const (
	StatusUnclassified Status = "unclassified"
	StatusRule         Status = "rule"
	StatusLLM          Status = "llm"
	StatusUser         Status = "user"
)

// Transaction is one ledger row. Amount is signed: negative for expenses,
// positive for income and savings deposits.
type Transaction struct {
	ID          uuid.UUID
	UserID      string
	Date        time.Time
	Month       string // YYYY-MM, derived from Date
	Description string
	Amount      decimal.Decimal
	Category    string
	BudgetType  BudgetType
	Status      Status
	CreatedAt   time.Time
}

// NewTransaction builds a candidate row with the derived fields filled in.
// It starts out unclassified; the categorizer and the user move it from there.
func NewTransaction(userID string, date time.Time, description string, amount decimal.Decimal) Transaction {
	return Transaction{
		ID:          uuid.New(),
		UserID:      userID,
		Date:        date,
		Month:       MonthOf(date),
		Description: description,
		Amount:      amount,
		Category:    CategoryUncategorized,
		BudgetType:  BudgetOther,
		Status:      StatusUnclassified,
	}
}

// IsExpense reports whether the amount reduces the balance.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// RawLine is one statement line handed to the import pipeline by an extractor.
type RawLine struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
}

// Filter narrows a transaction query. Zero-valued fields mean no constraint.
type Filter struct {
	Month    string
	From, To time.Time
	Category string
	Status   Status
}

// Fields carries a partial update. Nil members are left unchanged.
type Fields struct {
	Category   *string
	BudgetType *BudgetType
	Status     *Status
}
