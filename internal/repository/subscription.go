package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/corretoria/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository handles database operations for subscriptions.
type SubscriptionRepository struct {
	db *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create inserts a new subscription row.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, user_id, mp_subscription_id, plan_type, status,
			start_date, next_payment_date, amount, currency, payment_method_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		sub.ID, sub.UserID, sub.ProviderSubscriptionID, sub.PlanType, sub.Status,
		sub.StartDate, sub.NextPaymentDate, sub.Amount, sub.Currency, sub.PaymentMethodID,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// FindActiveByUserID returns the user's subscription in authorized or active
// status, or nil when none exists.
func (r *SubscriptionRepository) FindActiveByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	query := `
		SELECT id, user_id, mp_subscription_id, plan_type, status, start_date, next_payment_date,
			amount, currency, payment_method_id, needs_reconciliation, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1 AND status IN ('authorized', 'active')
		ORDER BY created_at DESC LIMIT 1
	`
	row := r.db.QueryRow(ctx, query, userID)
	var sub domain.Subscription
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.ProviderSubscriptionID, &sub.PlanType, &sub.Status,
		&sub.StartDate, &sub.NextPaymentDate, &sub.Amount, &sub.Currency, &sub.PaymentMethodID,
		&sub.NeedsReconciliation, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find subscription: %w", err)
	}
	return &sub, nil
}

// ActivateAtomic transitions the subscription to active and updates the
// profile projection in a single transaction. This is the data-layer
// activation routine the activator invokes.
func (r *SubscriptionRepository) ActivateAtomic(ctx context.Context, subID, userID string, expiresAt time.Time) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin activation: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE subscriptions SET status = 'active', updated_at = NOW()
		WHERE id = $1 AND status = 'authorized'
	`, subID)
	if err != nil {
		return fmt.Errorf("failed to activate subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("subscription %s not in authorized state", subID)
	}

	_, err = tx.Exec(ctx, `
		UPDATE profiles
		SET plan_type = 'pro', subscription_status = 'active',
			subscription_expires_at = $1, updated_at = NOW()
		WHERE user_id = $2
	`, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("failed to update profile in activation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	return nil
}

// MarkNeedsReconciliation flags a subscription whose data-layer activation
// failed, so a background job can repair it later.
func (r *SubscriptionRepository) MarkNeedsReconciliation(ctx context.Context, subID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE subscriptions SET needs_reconciliation = TRUE, updated_at = NOW() WHERE id = $1
	`, subID)
	if err != nil {
		return fmt.Errorf("failed to flag subscription for reconciliation: %w", err)
	}
	return nil
}
