package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/corretoria/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pixPaymentColumns = `id, payment_intent_id, email, amount, currency, plan_type, status,
	paid_at, expires_at, user_id, linked_to_user_at, created_at, updated_at`

// PaymentRepository handles database operations for PIX payments.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a new pending payment row.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.PixPayment) error {
	query := `
		INSERT INTO pix_payments (id, payment_intent_id, email, amount, currency, plan_type, status,
			paid_at, expires_at, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.PaymentIntentID, p.Email, p.Amount, p.Currency, p.PlanType, p.Status,
		p.PaidAt, p.ExpiresAt, p.UserID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pix payment: %w", err)
	}
	return nil
}

// FindByProviderID returns the payment with the given provider payment id,
// or nil when no row exists.
func (r *PaymentRepository) FindByProviderID(ctx context.Context, providerID string) (*domain.PixPayment, error) {
	query := fmt.Sprintf(`SELECT %s FROM pix_payments WHERE payment_intent_id = $1`, pixPaymentColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, providerID))
}

// FindLatestUnlinkedSettledByEmail returns the most recent approved/paid
// payment for the email that is not linked to any user, or nil.
func (r *PaymentRepository) FindLatestUnlinkedSettledByEmail(ctx context.Context, email string) (*domain.PixPayment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM pix_payments
		WHERE email = $1 AND user_id IS NULL AND status IN ('approved', 'paid')
		ORDER BY created_at DESC LIMIT 1
	`, pixPaymentColumns)
	return r.scanOne(r.db.QueryRow(ctx, query, email))
}

// ListUnlinkedSettledByEmail returns all unlinked approved/paid payments for
// the email, most recent first. Used by the discovery endpoint.
func (r *PaymentRepository) ListUnlinkedSettledByEmail(ctx context.Context, email string) ([]*domain.PixPayment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM pix_payments
		WHERE email = $1 AND user_id IS NULL AND status IN ('approved', 'paid')
		ORDER BY created_at DESC
	`, pixPaymentColumns)
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list pix payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.PixPayment
	for rows.Next() {
		var p domain.PixPayment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan pix payment: %w", err)
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

// UpdateStatus transitions a payment's status and records paid_at when
// provided. Returns false (without error) when no row matched.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, paidAt *time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE pix_payments
		SET status = $1, paid_at = COALESCE($2, paid_at), updated_at = NOW()
		WHERE id = $3
	`, status, paidAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to update pix payment status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Consume marks a payment as consumed by a user, recording the link time.
// The conditional WHERE makes consumption terminal under concurrent callers:
// only the first caller sees an affected row.
func (r *PaymentRepository) Consume(ctx context.Context, id, userID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE pix_payments
		SET status = 'consumed', user_id = $1, linked_to_user_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status <> 'consumed'
	`, userID, id)
	if err != nil {
		return false, fmt.Errorf("failed to consume pix payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Reset reverts a payment to an unlinked settled state. Admin test tooling only.
func (r *PaymentRepository) Reset(ctx context.Context, providerID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE pix_payments
		SET status = 'approved', user_id = NULL, linked_to_user_at = NULL, updated_at = NOW()
		WHERE payment_intent_id = $1
	`, providerID)
	if err != nil {
		return false, fmt.Errorf("failed to reset pix payment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PaymentRepository) scanOne(row pgx.Row) (*domain.PixPayment, error) {
	var p domain.PixPayment
	if err := scanPayment(row, &p); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pix payment: %w", err)
	}
	return &p, nil
}

func scanPayment(row pgx.Row, p *domain.PixPayment) error {
	return row.Scan(
		&p.ID, &p.PaymentIntentID, &p.Email, &p.Amount, &p.Currency, &p.PlanType, &p.Status,
		&p.PaidAt, &p.ExpiresAt, &p.UserID, &p.LinkedToUserAt, &p.CreatedAt, &p.UpdatedAt,
	)
}
