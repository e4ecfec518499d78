package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/corretoria/backend/internal/domain"
	"github.com/corretoria/backend/pkg/payment"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// pixChargeTTL is how long an unpaid PIX QR code stays payable.
const pixChargeTTL = 30 * time.Minute

// PaymentService owns the PIX payment lifecycle: charge creation, status
// polling, webhook reconciliation, and the manual activation fallback.
type PaymentService struct {
	gateway   payment.Gateway
	payments  PaymentStore
	activator *ActivationService
	validate  *validator.Validate
	now       func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(gateway payment.Gateway, payments PaymentStore, activator *ActivationService) *PaymentService {
	return &PaymentService{
		gateway:   gateway,
		payments:  payments,
		activator: activator,
		validate:  validator.New(),
		now:       time.Now,
	}
}

// NotificationOutcome describes how a webhook notification was handled.
// Every outcome except a transport/provider failure maps to HTTP 200 so the
// provider does not retry benign no-ops.
type NotificationOutcome string

const (
	OutcomeIgnored        NotificationOutcome = "ignored"
	OutcomeRecordMissing  NotificationOutcome = "record_missing"
	OutcomeUpdated        NotificationOutcome = "updated"
	OutcomeActivated      NotificationOutcome = "activated"
	OutcomeAlreadyHandled NotificationOutcome = "already_handled"
)

// CreatePix creates a PIX charge with the provider and persists the pending
// payment row. userID is nil for guest checkouts.
func (s *PaymentService) CreatePix(ctx context.Context, req *domain.CreatePixPaymentRequest, userID *string) (*domain.PixPaymentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(validationDetails(err))
	}

	period := domain.BillingPeriod(req.PlanType)
	amount := domain.PlanPrice(period)
	expiresAt := s.now().UTC().Add(pixChargeTTL)

	internalID := uuid.New().String()
	charge, err := s.gateway.CreatePixPayment(ctx, payment.CreatePixRequest{
		Email:             req.Email,
		Amount:            amount,
		Description:       fmt.Sprintf("CorretorIA Pro (%s)", period),
		ExternalReference: internalID,
		ExpiresAt:         expiresAt,
	})
	if err != nil {
		return nil, domain.ErrUpstream("failed to create PIX charge", err)
	}

	now := s.now().UTC()
	p := &domain.PixPayment{
		ID:              internalID,
		PaymentIntentID: charge.PaymentID,
		Email:           req.Email,
		Amount:          amount,
		Currency:        "BRL",
		PlanType:        period,
		Status:          domain.PaymentPending,
		ExpiresAt:       &expiresAt,
		UserID:          userID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, domain.ErrInternal("failed to persist payment", err)
	}

	return &domain.PixPaymentResponse{
		PaymentID:    charge.PaymentID,
		Status:       charge.Status,
		Amount:       amount,
		QRCode:       charge.QRCode,
		QRCodeBase64: charge.QRCodeBase64,
		TicketURL:    charge.TicketURL,
		ExpiresAt:    expiresAt,
	}, nil
}

// Status returns the current state of a payment for the checkout poll.
// Pending rows are refreshed against the provider so the UI sees an
// approval even if the webhook has not arrived yet.
func (s *PaymentService) Status(ctx context.Context, providerID string) (*domain.PaymentStatusResponse, error) {
	p, err := s.payments.FindByProviderID(ctx, providerID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load payment", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("payment not found")
	}

	if p.Status == domain.PaymentPending {
		info, err := s.gateway.GetPayment(ctx, providerID)
		if err != nil {
			log.Printf("[payment] provider status refresh failed for %s: %v", providerID, err)
		} else if info.Approved() {
			paidAt := info.DateApproved
			if paidAt == nil {
				t := s.now().UTC()
				paidAt = &t
			}
			if _, err := s.payments.UpdateStatus(ctx, p.ID, domain.PaymentApproved, paidAt); err != nil {
				return nil, domain.ErrInternal("failed to record approval", err)
			}
			p.Status = domain.PaymentApproved
			p.PaidAt = paidAt
		}
	}

	return &domain.PaymentStatusResponse{
		PaymentID: p.PaymentIntentID,
		Status:    p.Status,
		PlanType:  p.PlanType,
		PaidAt:    p.PaidAt,
	}, nil
}

// ProcessNotification reconciles one provider notification: fetch the
// authoritative payment state, update the local row, and activate when the
// payment is approved and already linked to a user. Guest payments are left
// settled-but-unlinked for the linker.
func (s *PaymentService) ProcessNotification(ctx context.Context, dataID string) (NotificationOutcome, error) {
	info, err := s.gateway.GetPayment(ctx, dataID)
	if err != nil {
		return OutcomeIgnored, domain.ErrUpstream("failed to fetch payment from provider", err)
	}

	p, err := s.payments.FindByProviderID(ctx, dataID)
	if err != nil {
		return OutcomeIgnored, domain.ErrInternal("failed to load payment", err)
	}
	if p == nil {
		// The charge row may not be written yet; acknowledge so the
		// provider does not retry-storm us.
		log.Printf("[webhook] no local record for payment %s, acknowledging", dataID)
		return OutcomeRecordMissing, nil
	}
	if p.Status == domain.PaymentConsumed {
		return OutcomeAlreadyHandled, nil
	}

	if !info.Approved() {
		log.Printf("[webhook] payment %s is %s (%s), nothing to do", dataID, info.Status, info.StatusDetail)
		return OutcomeIgnored, nil
	}

	paidAt := info.DateApproved
	if paidAt == nil {
		t := s.now().UTC()
		paidAt = &t
	}
	if p.Status == domain.PaymentPending {
		if _, err := s.payments.UpdateStatus(ctx, p.ID, domain.PaymentApproved, paidAt); err != nil {
			return OutcomeIgnored, domain.ErrInternal("failed to record approval", err)
		}
		p.Status = domain.PaymentApproved
		p.PaidAt = paidAt
	}

	if p.UserID == nil {
		// Guest payment: settled, waiting for account linkage.
		return OutcomeUpdated, nil
	}

	result, err := s.activator.Activate(ctx, *p.UserID, p)
	if err != nil {
		return OutcomeIgnored, err
	}
	if result.AlreadyActive {
		return OutcomeAlreadyHandled, nil
	}
	return OutcomeActivated, nil
}

// ManualActivate is the client-triggered "activate now" fallback for when
// the webhook is delayed. It performs the same activation as the webhook
// path after re-verifying the payment upstream.
func (s *PaymentService) ManualActivate(ctx context.Context, userID, providerID string) (*ActivationResult, error) {
	p, err := s.payments.FindByProviderID(ctx, providerID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load payment", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound("payment not found")
	}
	if p.UserID != nil && *p.UserID != userID {
		return nil, domain.ErrForbidden("payment belongs to another user")
	}
	if p.Status == domain.PaymentConsumed {
		// Consumed is terminal: never activate from this payment again.
		return &ActivationResult{AlreadyActive: true, PlanType: p.PlanType}, nil
	}

	if !p.Status.Settled() {
		info, err := s.gateway.GetPayment(ctx, providerID)
		if err != nil {
			return nil, domain.ErrUpstream("failed to verify payment with provider", err)
		}
		if !info.Approved() {
			return nil, domain.ErrConflict("payment not approved yet").
				WithDetail(fmt.Sprintf("provider status is %q", info.Status))
		}
		paidAt := info.DateApproved
		if paidAt == nil {
			t := s.now().UTC()
			paidAt = &t
		}
		if _, err := s.payments.UpdateStatus(ctx, p.ID, domain.PaymentApproved, paidAt); err != nil {
			return nil, domain.ErrInternal("failed to record approval", err)
		}
		p.Status = domain.PaymentApproved
		p.PaidAt = paidAt
	}

	return s.activator.Activate(ctx, userID, p)
}

// validationDetails flattens validator errors into the details array of the
// standard error shape.
func validationDetails(err error) []string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fmt.Sprintf("field %s failed on %q", fe.Field(), fe.Tag()))
	}
	return details
}
