package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corretoria/backend/internal/domain"
)

func approvedPayment(email string, paidAt time.Time) *domain.PixPayment {
	return &domain.PixPayment{
		ID:              "pay-internal-1",
		PaymentIntentID: "123456789",
		Email:           email,
		Amount:          2990,
		Currency:        "BRL",
		PlanType:        domain.BillingMonthly,
		Status:          domain.PaymentApproved,
		PaidAt:          &paidAt,
		CreatedAt:       paidAt,
		UpdatedAt:       paidAt,
	}
}

func newActivationFixture() (*ActivationService, *fakeSubscriptionStore, *fakeProfileStore, *fakePaymentStore) {
	subs := newFakeSubscriptionStore()
	profiles := newFakeProfileStore()
	payments := newFakePaymentStore()
	svc := NewActivationService(subs, profiles, payments)
	return svc, subs, profiles, payments
}

func TestActivateCreatesSubscriptionAndEntitlement(t *testing.T) {
	svc, _, profiles, payments := newActivationFixture()
	ctx := context.Background()

	paidAt := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	p := approvedPayment("a@b.com", paidAt)
	payments.Create(ctx, p)
	profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanFree, SubscriptionStatus: domain.EntitlementInactive})

	result, err := svc.Activate(ctx, "user-1", p)
	if err != nil {
		t.Fatalf("Activate error = %v", err)
	}
	if result.AlreadyActive {
		t.Fatal("Activate reported already active for first activation")
	}

	wantExpiry := paidAt.AddDate(0, 1, 0)
	if !result.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("ExpiresAt = %v, want %v", result.ExpiresAt, wantExpiry)
	}
	if result.Subscription.ProviderSubscriptionID != "pix_123456789" {
		t.Fatalf("ProviderSubscriptionID = %q, want pix_123456789", result.Subscription.ProviderSubscriptionID)
	}

	profile, _ := profiles.FindByUserID(ctx, "user-1")
	if profile.PlanType != domain.PlanPro || profile.SubscriptionStatus != domain.EntitlementActive {
		t.Fatalf("profile = %s/%s, want pro/active", profile.PlanType, profile.SubscriptionStatus)
	}
	if profile.SubscriptionExpiresAt == nil || !profile.SubscriptionExpiresAt.Equal(wantExpiry) {
		t.Fatalf("profile expiry = %v, want %v", profile.SubscriptionExpiresAt, wantExpiry)
	}

	stored := payments.get(p.ID)
	if stored.Status != domain.PaymentConsumed {
		t.Fatalf("payment status = %s, want consumed", stored.Status)
	}
	if stored.UserID == nil || *stored.UserID != "user-1" {
		t.Fatalf("payment userID = %v, want user-1", stored.UserID)
	}
	if stored.LinkedToUserAt == nil {
		t.Fatal("payment LinkedToUserAt not recorded")
	}
}

func TestActivateIdempotent(t *testing.T) {
	svc, subs, profiles, payments := newActivationFixture()
	ctx := context.Background()

	paidAt := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	p := approvedPayment("a@b.com", paidAt)
	payments.Create(ctx, p)
	profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanFree})

	first, err := svc.Activate(ctx, "user-1", p)
	if err != nil {
		t.Fatalf("first Activate error = %v", err)
	}
	second, err := svc.Activate(ctx, "user-1", p)
	if err != nil {
		t.Fatalf("second Activate error = %v", err)
	}

	if first.AlreadyActive {
		t.Fatal("first call reported already active")
	}
	if !second.AlreadyActive {
		t.Fatal("second call did not report already active")
	}
	if got := subs.count(); got != 1 {
		t.Fatalf("subscription rows = %d, want exactly 1", got)
	}
}

func TestActivateCompensatesWhenAtomicActivationFails(t *testing.T) {
	svc, subs, profiles, payments := newActivationFixture()
	ctx := context.Background()
	subs.failActivate = true

	paidAt := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	p := approvedPayment("a@b.com", paidAt)
	payments.Create(ctx, p)
	profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanFree})

	result, err := svc.Activate(ctx, "user-1", p)
	if err != nil {
		t.Fatalf("Activate error = %v, want best-effort success", err)
	}
	if result.AlreadyActive {
		t.Fatal("unexpected already-active result")
	}

	// The subscription row stays and is flagged for reconciliation.
	if len(subs.flagged) != 1 {
		t.Fatalf("flagged subscriptions = %d, want 1", len(subs.flagged))
	}

	// The profile projection was patched directly as compensation.
	profile, _ := profiles.FindByUserID(ctx, "user-1")
	if profile.PlanType != domain.PlanPro || profile.SubscriptionStatus != domain.EntitlementActive {
		t.Fatalf("profile = %s/%s, want pro/active after compensation", profile.PlanType, profile.SubscriptionStatus)
	}
}

func TestActivateProfileUpdateFailure(t *testing.T) {
	svc, _, profiles, payments := newActivationFixture()
	ctx := context.Background()
	profiles.failUpdate = true

	paidAt := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	p := approvedPayment("a@b.com", paidAt)
	payments.Create(ctx, p)
	profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanFree})

	_, err := svc.Activate(ctx, "user-1", p)
	if !errors.Is(err, domain.ErrProfileUpdateFailed) {
		t.Fatalf("Activate error = %v, want ErrProfileUpdateFailed", err)
	}
}

func TestActivateAnnualWindow(t *testing.T) {
	svc, _, profiles, payments := newActivationFixture()
	ctx := context.Background()

	paidAt := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	p := approvedPayment("a@b.com", paidAt)
	p.PlanType = domain.BillingAnnual
	p.Amount = 29900
	payments.Create(ctx, p)
	profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanFree})

	result, err := svc.Activate(ctx, "user-1", p)
	if err != nil {
		t.Fatalf("Activate error = %v", err)
	}
	want := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if !result.ExpiresAt.Equal(want) {
		t.Fatalf("annual ExpiresAt = %v, want %v", result.ExpiresAt, want)
	}
}
