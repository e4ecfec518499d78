package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/corretoria/backend/internal/domain"
)

// In-memory store fakes shared by the service tests.

type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[string]*domain.PixPayment // keyed by internal id
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{payments: make(map[string]*domain.PixPayment)}
}

func (s *fakePaymentStore) Create(ctx context.Context, p *domain.PixPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *fakePaymentStore) FindByProviderID(ctx context.Context, providerID string) (*domain.PixPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.PaymentIntentID == providerID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakePaymentStore) FindLatestUnlinkedSettledByEmail(ctx context.Context, email string) (*domain.PixPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *domain.PixPayment
	for _, p := range s.payments {
		if p.Email == email && p.UserID == nil && p.Status.Settled() {
			if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *fakePaymentStore) ListUnlinkedSettledByEmail(ctx context.Context, email string) ([]*domain.PixPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.PixPayment
	for _, p := range s.payments {
		if p.Email == email && p.UserID == nil && p.Status.Settled() {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakePaymentStore) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, paidAt *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return false, nil
	}
	p.Status = status
	if paidAt != nil {
		p.PaidAt = paidAt
	}
	return true, nil
}

func (s *fakePaymentStore) Consume(ctx context.Context, id, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok || p.Status == domain.PaymentConsumed {
		return false, nil
	}
	now := time.Now().UTC()
	p.Status = domain.PaymentConsumed
	p.UserID = &userID
	p.LinkedToUserAt = &now
	return true, nil
}

func (s *fakePaymentStore) get(id string) *domain.PixPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[id]
}

type fakeSubscriptionStore struct {
	mu           sync.Mutex
	subs         []*domain.Subscription
	failActivate bool
	flagged      []string
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{}
}

func (s *fakeSubscriptionStore) Create(ctx context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subs = append(s.subs, &cp)
	return nil
}

func (s *fakeSubscriptionStore) FindActiveByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.UserID == userID &&
			(sub.Status == domain.SubscriptionAuthorized || sub.Status == domain.SubscriptionActive) {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeSubscriptionStore) ActivateAtomic(ctx context.Context, subID, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failActivate {
		return errors.New("activation routine unavailable")
	}
	for _, sub := range s.subs {
		if sub.ID == subID {
			sub.Status = domain.SubscriptionActive
			return nil
		}
	}
	return errors.New("subscription not found")
}

func (s *fakeSubscriptionStore) MarkNeedsReconciliation(ctx context.Context, subID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flagged = append(s.flagged, subID)
	for _, sub := range s.subs {
		if sub.ID == subID {
			sub.NeedsReconciliation = true
		}
	}
	return nil
}

func (s *fakeSubscriptionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type fakeProfileStore struct {
	mu         sync.Mutex
	profiles   map[string]*domain.Profile
	failUpdate bool
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]*domain.Profile)}
}

func (s *fakeProfileStore) Create(ctx context.Context, p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.UserID] = &cp
	return nil
}

func (s *fakeProfileStore) FindByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *fakeProfileStore) UpdateEntitlement(ctx context.Context, userID string, plan domain.PlanType, status domain.EntitlementStatus, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate {
		return errors.New("profile backend unavailable")
	}
	p, ok := s.profiles[userID]
	if !ok {
		return errors.New("profile not found")
	}
	p.PlanType = plan
	p.SubscriptionStatus = status
	p.SubscriptionExpiresAt = expiresAt
	return nil
}

type fakeUsageStore struct {
	mu   sync.Mutex
	rows map[string]*domain.UsageLimits // keyed by userID + day
	fail bool
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{rows: make(map[string]*domain.UsageLimits)}
}

func usageKey(userID string, day time.Time) string {
	return userID + ":" + day.UTC().Format("2006-01-02")
}

func (s *fakeUsageStore) TryIncrement(ctx context.Context, userID string, day time.Time, op domain.OperationType, limit int) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return false, 0, errors.New("usage backend unavailable")
	}
	key := usageKey(userID, day)
	row, ok := s.rows[key]
	if !ok {
		row = &domain.UsageLimits{UserID: userID, Date: day.UTC()}
		s.rows[key] = row
	}
	used := row.Used(op)
	if used >= limit {
		return false, used, nil
	}
	switch op {
	case domain.OpRewrite:
		row.RewritesUsed++
	case domain.OpAIAnalysis:
		row.AIAnalysesUsed++
	default:
		row.CorrectionsUsed++
	}
	return true, row.Used(op), nil
}

func (s *fakeUsageStore) GetDay(ctx context.Context, userID string, day time.Time) (*domain.UsageLimits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, errors.New("usage backend unavailable")
	}
	row, ok := s.rows[usageKey(userID, day)]
	if !ok {
		return &domain.UsageLimits{UserID: userID, Date: day.UTC()}, nil
	}
	cp := *row
	return &cp, nil
}
