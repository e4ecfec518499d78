package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/corretoria/backend/internal/domain"
	"github.com/google/uuid"
)

// ActivationService converts "a payment is approved" into "a user has an
// active subscription and pro entitlement". It is the single serialization
// point for every activation path (webhook, manual endpoint, guest linker)
// and is idempotent regardless of caller.
type ActivationService struct {
	subs     SubscriptionStore
	profiles ProfileStore
	payments PaymentStore
	now      func() time.Time
}

// NewActivationService creates a new ActivationService.
func NewActivationService(subs SubscriptionStore, profiles ProfileStore, payments PaymentStore) *ActivationService {
	return &ActivationService{
		subs:     subs,
		profiles: profiles,
		payments: payments,
		now:      time.Now,
	}
}

// ActivationResult reports the outcome of an activation attempt. Callers
// must distinguish AlreadyActive (benign no-op) from a fresh activation.
type ActivationResult struct {
	AlreadyActive bool                 `json:"alreadyActive"`
	Subscription  *domain.Subscription `json:"subscription"`
	PlanType      domain.BillingPeriod `json:"planType"`
	ExpiresAt     time.Time            `json:"expiresAt"`
}

// Activate runs the idempotent activation sequence for a confirmed payment:
//
//  1. short-circuit when the user already has an authorized/active
//     subscription;
//  2. compute the paid window from the plan and payment timestamp;
//  3. insert the subscription row (status authorized);
//  4. invoke the data-layer activation routine; on failure, flag the row
//     for reconciliation and fall through to patch the profile directly;
//  5. ensure the profile projection reads pro/active;
//  6. mark the source payment consumed.
//
// There is no locking around steps 1 and 3: two concurrent callers racing
// on the same payment can both pass the check before either write lands.
// Idempotence of each step, and the terminal consume in step 6, keep the
// outcome a single usable subscription.
func (s *ActivationService) Activate(ctx context.Context, userID string, p *domain.PixPayment) (*ActivationResult, error) {
	existing, err := s.subs.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to check existing subscription", err)
	}
	if existing != nil {
		return &ActivationResult{
			AlreadyActive: true,
			Subscription:  existing,
			PlanType:      existing.PlanType,
			ExpiresAt:     existing.NextPaymentDate,
		}, nil
	}

	var paidAt time.Time
	if p.PaidAt != nil {
		paidAt = *p.PaidAt
	}
	start, end := domain.SubscriptionWindow(p.PlanType, paidAt)

	now := s.now().UTC()
	sub := &domain.Subscription{
		ID:                     uuid.New().String(),
		UserID:                 userID,
		ProviderSubscriptionID: "pix_" + p.PaymentIntentID,
		PlanType:               p.PlanType,
		Status:                 domain.SubscriptionAuthorized,
		StartDate:              start,
		NextPaymentDate:        end,
		Amount:                 p.Amount,
		Currency:               p.Currency,
		PaymentMethodID:        "pix",
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSubscriptionCreationFailed, err)
	}

	if err := s.subs.ActivateAtomic(ctx, sub.ID, userID, end); err != nil {
		// Best-effort forward: keep the subscription row, flag it for the
		// reconciliation job, and patch the profile projection directly.
		log.Printf("[activation] atomic activation failed for subscription %s: %v; compensating via profile update", sub.ID, err)
		if ferr := s.subs.MarkNeedsReconciliation(ctx, sub.ID); ferr != nil {
			log.Printf("[activation] failed to flag subscription %s for reconciliation: %v", sub.ID, ferr)
		}
		if perr := s.profiles.UpdateEntitlement(ctx, userID, domain.PlanPro, domain.EntitlementActive, &end); perr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProfileUpdateFailed, perr)
		}
	} else {
		// The atomic routine already wrote the projection; this keeps the
		// expiry exact if the routine and this code ever disagree.
		if perr := s.profiles.UpdateEntitlement(ctx, userID, domain.PlanPro, domain.EntitlementActive, &end); perr != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrProfileUpdateFailed, perr)
		}
		sub.Status = domain.SubscriptionActive
	}

	consumed, err := s.payments.Consume(ctx, p.ID, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to consume payment", err)
	}
	if !consumed {
		log.Printf("[activation] payment %s was already consumed by a concurrent caller", p.ID)
	}

	return &ActivationResult{
		Subscription: sub,
		PlanType:     p.PlanType,
		ExpiresAt:    end,
	}, nil
}
