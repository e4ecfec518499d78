package service

import (
	"context"

	"github.com/corretoria/backend/internal/domain"
)

// LinkerService reconciles payments made as a guest with the account that
// later authenticates under the same email. It is a discovery step in front
// of the activator, not a separate activation algorithm.
type LinkerService struct {
	payments  PaymentStore
	subs      SubscriptionStore
	activator *ActivationService
}

// NewLinkerService creates a new LinkerService.
func NewLinkerService(payments PaymentStore, subs SubscriptionStore, activator *ActivationService) *LinkerService {
	return &LinkerService{payments: payments, subs: subs, activator: activator}
}

// LinkResult is the outcome of a linking attempt.
type LinkResult struct {
	Linked   bool                 `json:"linked"`
	Message  string               `json:"message"`
	Payment  *domain.PixPayment   `json:"payment,omitempty"`
	PlanType domain.BillingPeriod `json:"planType,omitempty"`
}

// FindUnlinked returns the guest payments waiting to be linked for an
// email. No side effects; backs the GET discovery endpoint.
func (s *LinkerService) FindUnlinked(ctx context.Context, email string) ([]*domain.PixPayment, error) {
	payments, err := s.payments.ListUnlinkedSettledByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInternal("failed to list guest payments", err)
	}
	return payments, nil
}

// LinkLatest consumes the most recent unlinked approved/paid payment for
// the email and runs it through the activator. Only the single most recent
// payment is consumed; older unlinked payments are left untouched.
//
// The active-subscription re-check guards against double-granting
// entitlement from a stale guest payment after the user already activated
// through another path.
func (s *LinkerService) LinkLatest(ctx context.Context, userID, email string) (*LinkResult, error) {
	existing, err := s.subs.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to check existing subscription", err)
	}
	if existing != nil {
		return &LinkResult{Linked: false, Message: "user already has an active subscription"}, nil
	}

	p, err := s.payments.FindLatestUnlinkedSettledByEmail(ctx, email)
	if err != nil {
		return nil, domain.ErrInternal("failed to find guest payment", err)
	}
	if p == nil {
		return &LinkResult{Linked: false, Message: "no pending guest payments"}, nil
	}

	result, err := s.activator.Activate(ctx, userID, p)
	if err != nil {
		return nil, err
	}
	if result.AlreadyActive {
		return &LinkResult{Linked: false, Message: "user already has an active subscription"}, nil
	}
	return &LinkResult{
		Linked:   true,
		Message:  "guest payment linked and subscription activated",
		Payment:  p,
		PlanType: result.PlanType,
	}, nil
}
