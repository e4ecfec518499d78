package handler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/corretoria/backend/internal/domain"
)

// Minimal in-memory stores for handler tests. Kept separate from the
// service-level fakes because Go test fixtures do not cross packages.

type memPaymentStore struct {
	mu       sync.Mutex
	payments map[string]*domain.PixPayment
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[string]*domain.PixPayment)}
}

func (s *memPaymentStore) Create(ctx context.Context, p *domain.PixPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.payments[p.ID] = &cp
	return nil
}

func (s *memPaymentStore) FindByProviderID(ctx context.Context, providerID string) (*domain.PixPayment, error) {
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

func (s *memPaymentStore) FindLatestUnlinkedSettledByEmail(ctx context.Context, email string) (*domain.PixPayment, error) {
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

func (s *memPaymentStore) ListUnlinkedSettledByEmail(ctx context.Context, email string) ([]*domain.PixPayment, error) {
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

func (s *memPaymentStore) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, paidAt *time.Time) (bool, error) {
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

func (s *memPaymentStore) Consume(ctx context.Context, id, userID string) (bool, error) {
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

func (s *memPaymentStore) get(id string) *domain.PixPayment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payments[id]
}

type memSubscriptionStore struct {
	mu   sync.Mutex
	subs []*domain.Subscription
}

func newMemSubscriptionStore() *memSubscriptionStore {
	return &memSubscriptionStore{}
}

func (s *memSubscriptionStore) Create(ctx context.Context, sub *domain.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subs = append(s.subs, &cp)
	return nil
}

func (s *memSubscriptionStore) FindActiveByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
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

func (s *memSubscriptionStore) ActivateAtomic(ctx context.Context, subID, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.ID == subID {
			sub.Status = domain.SubscriptionActive
			return nil
		}
	}
	return errors.New("subscription not found")
}

func (s *memSubscriptionStore) MarkNeedsReconciliation(ctx context.Context, subID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.ID == subID {
			sub.NeedsReconciliation = true
		}
	}
	return nil
}

func (s *memSubscriptionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type memProfileStore struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{profiles: make(map[string]*domain.Profile)}
}

func (s *memProfileStore) Create(ctx context.Context, p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.profiles[p.UserID] = &cp
	return nil
}

func (s *memProfileStore) FindByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memProfileStore) UpdateEntitlement(ctx context.Context, userID string, plan domain.PlanType, status domain.EntitlementStatus, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return errors.New("profile not found")
	}
	p.PlanType = plan
	p.SubscriptionStatus = status
	p.SubscriptionExpiresAt = expiresAt
	return nil
}
