package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/corretoria/backend/internal/domain"
	"github.com/corretoria/backend/internal/quota"
)

// FailPolicy decides what happens when the counting backend errors.
type FailPolicy string

const (
	// FailOpen allows the request when counting fails, trading strictness
	// for availability.
	FailOpen FailPolicy = "allow"
	// FailClosed denies the request when counting fails.
	FailClosed FailPolicy = "deny"
)

// QuotaConfig holds the tunables of the quota tracker.
type QuotaConfig struct {
	GuestDailyLimit   int
	GuestMonthlyLimit int
	OnBackendError    FailPolicy
}

// QuotaService gates correction/rewrite/AI-analysis operations by plan for
// authenticated users and by IP for guests.
type QuotaService struct {
	usage    UsageStore
	profiles ProfileStore
	counters quota.CounterStore
	cfg      QuotaConfig
	now      func() time.Time
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(usage UsageStore, profiles ProfileStore, counters quota.CounterStore, cfg QuotaConfig) *QuotaService {
	if cfg.OnBackendError == "" {
		cfg.OnBackendError = FailOpen
	}
	return &QuotaService{
		usage:    usage,
		profiles: profiles,
		counters: counters,
		cfg:      cfg,
		now:      time.Now,
	}
}

// CheckAndConsume verifies plan limits for one operation and, for free
// users, consumes one unit of today's quota. Pro and admin plans are
// unconditionally allowed with the unlimited sentinel.
func (s *QuotaService) CheckAndConsume(ctx context.Context, userID string, op domain.OperationType, characters int) (*domain.UsageStatus, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return s.backendFailure(op, "profile lookup", err)
	}
	plan := domain.PlanFree
	if profile != nil {
		plan = profile.PlanType
	}
	limits := domain.GetPlanLimits(plan)

	if limits.MaxCharacters != domain.Unlimited && characters > limits.MaxCharacters {
		return &domain.UsageStatus{
			Allowed:   false,
			Operation: op,
			Limit:     limits.MaxCharacters,
			Remaining: 0,
		}, domain.ErrBadRequest("text exceeds plan character limit").
			WithDetail(fmt.Sprintf("maximum %d characters on the %s plan", limits.MaxCharacters, plan))
	}

	limit := limitFor(limits, op)
	if limit == domain.Unlimited {
		return &domain.UsageStatus{Allowed: true, Operation: op, Limit: domain.Unlimited, Remaining: domain.Unlimited}, nil
	}

	day := s.now().UTC()
	allowed, used, err := s.usage.TryIncrement(ctx, userID, day, op, limit)
	if err != nil {
		return s.backendFailure(op, "usage counter", err)
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return &domain.UsageStatus{
		Allowed:   allowed,
		Operation: op,
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
	}, nil
}

// Remaining reports today's usage for every operation without consuming.
func (s *QuotaService) Remaining(ctx context.Context, userID string) (map[domain.OperationType]*domain.UsageStatus, error) {
	profile, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, domain.ErrInternal("failed to load profile", err)
	}
	plan := domain.PlanFree
	if profile != nil {
		plan = profile.PlanType
	}
	limits := domain.GetPlanLimits(plan)

	usage, err := s.usage.GetDay(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, domain.ErrInternal("failed to load usage", err)
	}

	out := make(map[domain.OperationType]*domain.UsageStatus, 3)
	for _, op := range []domain.OperationType{domain.OpCorrection, domain.OpRewrite, domain.OpAIAnalysis} {
		limit := limitFor(limits, op)
		st := &domain.UsageStatus{Operation: op, Limit: limit, Used: usage.Used(op)}
		if limit == domain.Unlimited {
			st.Allowed = true
			st.Remaining = domain.Unlimited
		} else {
			st.Remaining = limit - st.Used
			if st.Remaining < 0 {
				st.Remaining = 0
			}
			st.Allowed = st.Used < limit
		}
		out[op] = st
	}
	return out, nil
}

// CheckAndConsumeGuest applies the IP-keyed daily and monthly ceilings for
// unauthenticated callers. Each period's first increment sets the counter
// expiry (next UTC midnight, first of next UTC month).
func (s *QuotaService) CheckAndConsumeGuest(ctx context.Context, ip string, op domain.OperationType) (*domain.UsageStatus, error) {
	now := s.now().UTC()

	dayKey := fmt.Sprintf("guest:day:%s:%s", ip, now.Format("2006-01-02"))
	count, err := s.counters.Increment(ctx, dayKey, untilNextMidnightUTC(now))
	if err != nil {
		return s.backendFailure(op, "guest daily counter", err)
	}
	if count > int64(s.cfg.GuestDailyLimit) {
		return &domain.UsageStatus{
			Allowed:   false,
			Operation: op,
			Used:      s.cfg.GuestDailyLimit,
			Limit:     s.cfg.GuestDailyLimit,
		}, nil
	}

	monthKey := fmt.Sprintf("guest:month:%s:%s", ip, now.Format("2006-01"))
	count, err = s.counters.Increment(ctx, monthKey, untilNextMonthUTC(now))
	if err != nil {
		return s.backendFailure(op, "guest monthly counter", err)
	}
	if count > int64(s.cfg.GuestMonthlyLimit) {
		return &domain.UsageStatus{
			Allowed:   false,
			Operation: op,
			Used:      s.cfg.GuestMonthlyLimit,
			Limit:     s.cfg.GuestMonthlyLimit,
		}, nil
	}

	remaining := s.cfg.GuestDailyLimit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return &domain.UsageStatus{
		Allowed:   true,
		Operation: op,
		Used:      int(count),
		Limit:     s.cfg.GuestDailyLimit,
		Remaining: remaining,
	}, nil
}

// backendFailure applies the configured fail policy to a counting-backend
// error.
func (s *QuotaService) backendFailure(op domain.OperationType, where string, err error) (*domain.UsageStatus, error) {
	log.Printf("[quota] %s failed (%v), policy=%s", where, err, s.cfg.OnBackendError)
	if s.cfg.OnBackendError == FailClosed {
		return &domain.UsageStatus{Allowed: false, Operation: op},
			domain.ErrInternal("quota backend unavailable", err)
	}
	return &domain.UsageStatus{Allowed: true, Operation: op, Limit: domain.Unlimited, Remaining: domain.Unlimited}, nil
}

func limitFor(limits domain.PlanLimits, op domain.OperationType) int {
	switch op {
	case domain.OpRewrite:
		return limits.RewritesPerDay
	case domain.OpAIAnalysis:
		return limits.AIAnalysesPerDay
	default:
		return limits.CorrectionsPerDay
	}
}

func untilNextMidnightUTC(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return next.Sub(now)
}

func untilNextMonthUTC(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return next.Sub(now)
}
