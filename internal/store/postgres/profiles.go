package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vchukka/finsense/internal/domain"
)

// ProfileRepository stores the per-user budgeting inputs.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `user_id, telegram_id, monthly_income, needs_ratio, wants_ratio, savings_ratio, rent, utilities, created_at`

// Profile loads a profile by user id.
func (r *ProfileRepository) Profile(ctx context.Context, userID string) (domain.UserProfile, error) {
	q := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, userID))
}

// ByTelegramID resolves the profile bound to a Telegram chat.
func (r *ProfileRepository) ByTelegramID(ctx context.Context, telegramID int64) (domain.UserProfile, error) {
	q := `SELECT ` + profileColumns + ` FROM user_profiles WHERE telegram_id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, telegramID))
}

// Upsert validates and writes a profile, replacing any previous values for
// the user.
func (r *ProfileRepository) Upsert(ctx context.Context, p domain.UserProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	const q = `
		INSERT INTO user_profiles (user_id, telegram_id, monthly_income, needs_ratio, wants_ratio, savings_ratio, rent, utilities)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			telegram_id = EXCLUDED.telegram_id,
			monthly_income = EXCLUDED.monthly_income,
			needs_ratio = EXCLUDED.needs_ratio,
			wants_ratio = EXCLUDED.wants_ratio,
			savings_ratio = EXCLUDED.savings_ratio,
			rent = EXCLUDED.rent,
			utilities = EXCLUDED.utilities`

	_, err := r.db.ExecContext(ctx, q,
		p.UserID, p.TelegramID, p.MonthlyIncome,
		p.Ratios.Needs, p.Ratios.Wants, p.Ratios.Savings,
		p.Rent, p.Utilities)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) scanOne(row *sql.Row) (domain.UserProfile, error) {
	var p domain.UserProfile
	err := row.Scan(&p.UserID, &p.TelegramID, &p.MonthlyIncome,
		&p.Ratios.Needs, &p.Ratios.Wants, &p.Ratios.Savings,
		&p.Rent, &p.Utilities, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.UserProfile{}, domain.ErrProfileNotFound
	}
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("scan profile: %w", err)
	}
	return p, nil
}
