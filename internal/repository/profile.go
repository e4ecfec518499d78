package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/corretoria/backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository handles database operations for entitlement profiles.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a fresh free-plan profile for a new user.
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (user_id, plan_type, subscription_status, subscription_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query,
		p.UserID, p.PlanType, p.SubscriptionStatus, p.SubscriptionExpiresAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// FindByUserID returns a user's profile, or nil when none exists.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `
		SELECT user_id, plan_type, subscription_status, subscription_expires_at, created_at, updated_at
		FROM profiles WHERE user_id = $1
	`
	row := r.db.QueryRow(ctx, query, userID)

	var p domain.Profile
	err := row.Scan(&p.UserID, &p.PlanType, &p.SubscriptionStatus, &p.SubscriptionExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return &p, nil
}

// UpdateEntitlement sets the entitlement projection for a user.
func (r *ProfileRepository) UpdateEntitlement(ctx context.Context, userID string, plan domain.PlanType, status domain.EntitlementStatus, expiresAt *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE profiles
		SET plan_type = $1, subscription_status = $2, subscription_expires_at = $3, updated_at = NOW()
		WHERE user_id = $4
	`, plan, status, expiresAt, userID)
	if err != nil {
		return fmt.Errorf("failed to update entitlement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("profile for user %s not found", userID)
	}
	return nil
}
