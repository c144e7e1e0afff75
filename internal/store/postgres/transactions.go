package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/vchukka/finsense/internal/domain"
)

// TransactionRepository is the narrow CRUD surface over the transactions
// table: insert with dedup, filtered query, partial update.
type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert writes one transaction and returns its id. A row that collides with
// the dedup constraint returns ErrDuplicateTransaction and leaves the store
// untouched.
func (r *TransactionRepository) Insert(ctx context.Context, tx domain.Transaction) (uuid.UUID, error) {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Month == "" {
		tx.Month = domain.MonthOf(tx.Date)
	}

	const q = `
		INSERT INTO transactions (id, user_id, tx_date, month, description, amount, category, budget_type, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, q,
		tx.ID, tx.UserID, tx.Date, tx.Month, tx.Description, tx.Amount,
		tx.Category, string(tx.BudgetType), string(tx.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, domain.ErrDuplicateTransaction
		}
		return uuid.Nil, fmt.Errorf("insert transaction: %w", err)
	}
	return tx.ID, nil
}

// Query returns the user's transactions matching the filter, oldest first.
// An empty filter returns everything for the user.
func (r *TransactionRepository) Query(ctx context.Context, userID string, f domain.Filter) ([]domain.Transaction, error) {
	q := strings.Builder{}
	q.WriteString(`
		SELECT id, user_id, tx_date, month, description, amount, category, budget_type, status, created_at
		FROM transactions
		WHERE user_id = $1`)
	args := []any{userID}

	if f.Month != "" {
		args = append(args, f.Month)
		fmt.Fprintf(&q, " AND month = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		fmt.Fprintf(&q, " AND tx_date >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		fmt.Fprintf(&q, " AND tx_date <= $%d", len(args))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		fmt.Fprintf(&q, " AND category = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		fmt.Fprintf(&q, " AND status = $%d", len(args))
	}
	q.WriteString(" ORDER BY tx_date, created_at")

	rows, err := r.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		var budgetType, status string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Date, &t.Month, &t.Description, &t.Amount,
			&t.Category, &budgetType, &status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.BudgetType = domain.BudgetType(budgetType)
		t.Status = domain.Status(status)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Update applies the non-nil fields to one transaction. Unknown ids return
// ErrTransactionNotFound.
func (r *TransactionRepository) Update(ctx context.Context, id uuid.UUID, fields domain.Fields) error {
	var sets []string
	var args []any

	if fields.Category != nil {
		args = append(args, *fields.Category)
		sets = append(sets, fmt.Sprintf("category = $%d", len(args)))
	}
	if fields.BudgetType != nil {
		args = append(args, string(*fields.BudgetType))
		sets = append(sets, fmt.Sprintf("budget_type = $%d", len(args)))
	}
	if fields.Status != nil {
		args = append(args, string(*fields.Status))
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE transactions SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update transaction: rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// Get fetches one transaction by id.
func (r *TransactionRepository) Get(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	const q = `
		SELECT id, user_id, tx_date, month, description, amount, category, budget_type, status, created_at
		FROM transactions
		WHERE id = $1`

	var t domain.Transaction
	var budgetType, status string
	err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.UserID, &t.Date, &t.Month,
		&t.Description, &t.Amount, &t.Category, &budgetType, &status, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.BudgetType = domain.BudgetType(budgetType)
	t.Status = domain.Status(status)
	return t, nil
}
