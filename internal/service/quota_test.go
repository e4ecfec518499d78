package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/corretoria/backend/internal/domain"
	"github.com/corretoria/backend/internal/quota"
)

type erroringCounterStore struct{}

func (erroringCounterStore) Increment(ctx context.Context, key string, expiry time.Duration) (int64, error) {
	return 0, errors.New("counter backend down")
}

func newQuotaFixture(counters quota.CounterStore, cfg QuotaConfig) (*QuotaService, *fakeUsageStore, *fakeProfileStore) {
	usage := newFakeUsageStore()
	profiles := newFakeProfileStore()
	if counters == nil {
		counters = quota.NewMemoryCounterStore()
	}
	if cfg.GuestDailyLimit == 0 {
		cfg.GuestDailyLimit = 3
	}
	if cfg.GuestMonthlyLimit == 0 {
		cfg.GuestMonthlyLimit = 30
	}
	svc := NewQuotaService(usage, profiles, counters, cfg)
	return svc, usage, profiles
}

func TestFreeUserDeniedAtDailyLimit(t *testing.T) {
	svc, _, profiles := newQuotaFixture(nil, QuotaConfig{})
	ctx := context.Background()
	profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanFree})

	limit := domain.GetPlanLimits(domain.PlanFree).CorrectionsPerDay
	for i := 0; i < limit; i++ {
		st, err := svc.CheckAndConsume(ctx, "user-1", domain.OpCorrection, 100)
		if err != nil || !st.Allowed {
			t.Fatalf("consume %d = (%+v, %v), want allowed", i+1, st, err)
		}
	}

	st, err := svc.CheckAndConsume(ctx, "user-1", domain.OpCorrection, 100)
	if err != nil {
		t.Fatalf("consume past limit error = %v", err)
	}
	if st.Allowed {
		t.Fatalf("consume %d allowed, want denied at limit %d", limit+1, limit)
	}
	if st.Remaining != 0 {
		t.Fatalf("Remaining = %d, want 0", st.Remaining)
	}
}

func TestFreeUserAllowedAfterMidnightRollover(t *testing.T) {
	svc, _, profiles := newQuotaFixture(nil, QuotaConfig{})
	ctx := context.Background()
	profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanFree})

	day1 := time.Date(2025, 6, 10, 23, 50, 0, 0, time.UTC)
	svc.now = func() time.Time { return day1 }

	limit := domain.GetPlanLimits(domain.PlanFree).CorrectionsPerDay
	for i := 0; i < limit; i++ {
		if st, _ := svc.CheckAndConsume(ctx, "user-1", domain.OpCorrection, 100); !st.Allowed {
			t.Fatalf("consume %d denied before limit", i+1)
		}
	}
	if st, _ := svc.CheckAndConsume(ctx, "user-1", domain.OpCorrection, 100); st.Allowed {
		t.Fatal("consume past limit allowed on same day")
	}

	// Cross UTC midnight: a fresh daily row applies.
	svc.now = func() time.Time { return day1.Add(20 * time.Minute) }
	st, err := svc.CheckAndConsume(ctx, "user-1", domain.OpCorrection, 100)
	if err != nil || !st.Allowed {
		t.Fatalf("consume after rollover = (%+v, %v), want allowed", st, err)
	}
}

func TestProUserUnlimited(t *testing.T) {
	svc, _, profiles := newQuotaFixture(nil, QuotaConfig{})
	ctx := context.Background()
	profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanPro, SubscriptionStatus: domain.EntitlementActive})

	for i := 0; i < 50; i++ {
		st, err := svc.CheckAndConsume(ctx, "user-1", domain.OpAIAnalysis, 100000)
		if err != nil || !st.Allowed {
			t.Fatalf("pro consume %d = (%+v, %v), want allowed", i+1, st, err)
		}
		if st.Remaining != domain.Unlimited {
			t.Fatalf("pro Remaining = %d, want unlimited sentinel", st.Remaining)
		}
	}
}

func TestFreeUserCharacterLimit(t *testing.T) {
	svc, _, profiles := newQuotaFixture(nil, QuotaConfig{})
	ctx := context.Background()
	profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanFree})

	max := domain.GetPlanLimits(domain.PlanFree).MaxCharacters
	st, err := svc.CheckAndConsume(ctx, "user-1", domain.OpCorrection, max+1)
	if err == nil || st.Allowed {
		t.Fatalf("oversize text = (%+v, %v), want denied with error", st, err)
	}
	appErr, ok := domain.AsAppError(err)
	if !ok || appErr.Code != 400 {
		t.Fatalf("oversize error = %v, want 400 AppError", err)
	}
}

func TestGuestDailyLimit(t *testing.T) {
	svc, _, _ := newQuotaFixture(nil, QuotaConfig{GuestDailyLimit: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		st, err := svc.CheckAndConsumeGuest(ctx, "1.2.3.4", domain.OpCorrection)
		if err != nil || !st.Allowed {
			t.Fatalf("guest consume %d = (%+v, %v), want allowed", i+1, st, err)
		}
	}
	st, err := svc.CheckAndConsumeGuest(ctx, "1.2.3.4", domain.OpCorrection)
	if err != nil {
		t.Fatalf("guest consume past limit error = %v", err)
	}
	if st.Allowed {
		t.Fatal("guest consume past daily limit allowed")
	}

	// A different IP is unaffected.
	if st, _ := svc.CheckAndConsumeGuest(ctx, "5.6.7.8", domain.OpCorrection); !st.Allowed {
		t.Fatal("unrelated IP denied")
	}
}

func TestGuestMonthlyLimit(t *testing.T) {
	svc, _, _ := newQuotaFixture(nil, QuotaConfig{GuestDailyLimit: 100, GuestMonthlyLimit: 5})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if st, _ := svc.CheckAndConsumeGuest(ctx, "1.2.3.4", domain.OpCorrection); !st.Allowed {
			t.Fatalf("guest consume %d denied before monthly limit", i+1)
		}
	}
	if st, _ := svc.CheckAndConsumeGuest(ctx, "1.2.3.4", domain.OpCorrection); st.Allowed {
		t.Fatal("guest consume past monthly limit allowed")
	}
}

func TestQuotaBackendFailurePolicy(t *testing.T) {
	t.Run("allow", func(t *testing.T) {
		svc, _, _ := newQuotaFixture(erroringCounterStore{}, QuotaConfig{OnBackendError: FailOpen})
		st, err := svc.CheckAndConsumeGuest(context.Background(), "1.2.3.4", domain.OpCorrection)
		if err != nil || !st.Allowed {
			t.Fatalf("fail-open = (%+v, %v), want allowed", st, err)
		}
	})

	t.Run("deny", func(t *testing.T) {
		svc, _, _ := newQuotaFixture(erroringCounterStore{}, QuotaConfig{OnBackendError: FailClosed})
		st, err := svc.CheckAndConsumeGuest(context.Background(), "1.2.3.4", domain.OpCorrection)
		if err == nil || st.Allowed {
			t.Fatalf("fail-closed = (%+v, %v), want denied with error", st, err)
		}
	})

	t.Run("usage store failure honors policy", func(t *testing.T) {
		svc, usage, profiles := newQuotaFixture(nil, QuotaConfig{OnBackendError: FailOpen})
		ctx := context.Background()
		profiles.Create(ctx, &domain.Profile{UserID: "user-1", PlanType: domain.PlanFree})
		usage.fail = true
		st, err := svc.CheckAndConsume(ctx, "user-1", domain.OpCorrection, 100)
		if err != nil || !st.Allowed {
			t.Fatalf("fail-open usage = (%+v, %v), want allowed", st, err)
		}
	})
}
