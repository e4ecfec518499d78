package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/corretoria/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UsageRepository handles the per-user daily usage counter rows.
type UsageRepository struct {
	db *pgxpool.Pool
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// usageColumn maps an operation type to its counter column. The switch keeps
// column names out of caller-controlled input.
func usageColumn(op domain.OperationType) (string, error) {
	switch op {
	case domain.OpCorrection:
		return "corrections_used", nil
	case domain.OpRewrite:
		return "rewrites_used", nil
	case domain.OpAIAnalysis:
		return "ai_analyses_used", nil
	}
	return "", fmt.Errorf("unknown operation type %q", op)
}

// TryIncrement atomically increments the counter for op on the user's row
// for the given day, but only while the counter is below limit. The row is
// created lazily via upsert, so concurrent first-use-of-day requests cannot
// produce duplicates. Returns whether the increment was applied and the
// counter value after the call.
func (r *UsageRepository) TryIncrement(ctx context.Context, userID string, day time.Time, op domain.OperationType, limit int) (bool, int, error) {
	col, err := usageColumn(op)
	if err != nil {
		return false, 0, err
	}
	date := day.UTC().Format("2006-01-02")

	_, err = r.db.Exec(ctx, `
		INSERT INTO usage_limits (user_id, date) VALUES ($1, $2)
		ON CONFLICT (user_id, date) DO NOTHING
	`, userID, date)
	if err != nil {
		return false, 0, fmt.Errorf("failed to upsert usage row: %w", err)
	}

	var used int
	query := fmt.Sprintf(`
		UPDATE usage_limits SET %s = %s + 1
		WHERE user_id = $1 AND date = $2 AND %s < $3
		RETURNING %s
	`, col, col, col, col)
	err = r.db.QueryRow(ctx, query, userID, date, limit).Scan(&used)
	if err == pgx.ErrNoRows {
		// Limit reached; report the current value.
		current, gerr := r.counterValue(ctx, userID, date, col)
		if gerr != nil {
			return false, 0, gerr
		}
		return false, current, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment usage counter: %w", err)
	}
	return true, used, nil
}

// GetDay returns the user's usage row for a day. A missing row is returned
// as zero counters, not an error.
func (r *UsageRepository) GetDay(ctx context.Context, userID string, day time.Time) (*domain.UsageLimits, error) {
	date := day.UTC().Format("2006-01-02")
	row := r.db.QueryRow(ctx, `
		SELECT user_id, date, corrections_used, rewrites_used, ai_analyses_used
		FROM usage_limits WHERE user_id = $1 AND date = $2
	`, userID, date)

	var u domain.UsageLimits
	err := row.Scan(&u.UserID, &u.Date, &u.CorrectionsUsed, &u.RewritesUsed, &u.AIAnalysesUsed)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &domain.UsageLimits{UserID: userID, Date: day.UTC().Truncate(24 * time.Hour)}, nil
		}
		return nil, fmt.Errorf("failed to get usage row: %w", err)
	}
	return &u, nil
}

func (r *UsageRepository) counterValue(ctx context.Context, userID, date, col string) (int, error) {
	var used int
	query := fmt.Sprintf(`SELECT %s FROM usage_limits WHERE user_id = $1 AND date = $2`, col)
	if err := r.db.QueryRow(ctx, query, userID, date).Scan(&used); err != nil {
		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}
	return used, nil
}
