package service

import (
	"context"
	"time"

	"github.com/corretoria/backend/internal/domain"
)

// Store interfaces consumed by the services. The pgx repositories satisfy
// them in production; tests inject in-memory fakes.

// PaymentStore is the persistence contract for PIX payment rows.
type PaymentStore interface {
	Create(ctx context.Context, p *domain.PixPayment) error
	FindByProviderID(ctx context.Context, providerID string) (*domain.PixPayment, error)
	FindLatestUnlinkedSettledByEmail(ctx context.Context, email string) (*domain.PixPayment, error)
	ListUnlinkedSettledByEmail(ctx context.Context, email string) ([]*domain.PixPayment, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, paidAt *time.Time) (bool, error)
	Consume(ctx context.Context, id, userID string) (bool, error)
}

// SubscriptionStore is the persistence contract for subscriptions.
type SubscriptionStore interface {
	Create(ctx context.Context, sub *domain.Subscription) error
	FindActiveByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	ActivateAtomic(ctx context.Context, subID, userID string, expiresAt time.Time) error
	MarkNeedsReconciliation(ctx context.Context, subID string) error
}

// ProfileStore is the persistence contract for entitlement profiles.
type ProfileStore interface {
	Create(ctx context.Context, p *domain.Profile) error
	FindByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateEntitlement(ctx context.Context, userID string, plan domain.PlanType, status domain.EntitlementStatus, expiresAt *time.Time) error
}

// UsageStore is the persistence contract for daily usage counters.
type UsageStore interface {
	TryIncrement(ctx context.Context, userID string, day time.Time, op domain.OperationType, limit int) (bool, int, error)
	GetDay(ctx context.Context, userID string, day time.Time) (*domain.UsageLimits, error)
}

// UserStore is the persistence contract for user accounts.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Exists(ctx context.Context, email string) (bool, error)
}
