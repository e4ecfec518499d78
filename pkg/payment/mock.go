package payment

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockGateway is an in-memory gateway for tests and local development.
type MockGateway struct {
	mu       sync.Mutex
	payments map[string]*PaymentInfo
	nextID   int
}

// NewMockGateway creates an empty MockGateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{payments: make(map[string]*PaymentInfo)}
}

func (g *MockGateway) CreatePixPayment(ctx context.Context, req CreatePixRequest) (*PixCharge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	id := fmt.Sprintf("mock-%d", g.nextID)
	g.payments[id] = &PaymentInfo{
		ID:         id,
		Status:     StatusPending,
		Amount:     req.Amount,
		PayerEmail: req.Email,
	}
	return &PixCharge{
		PaymentID: id,
		Status:    StatusPending,
		QRCode:    "00020126mockpixcopiaecola" + id,
		TicketURL: "https://example.com/pix/" + id,
		ExpiresAt: req.ExpiresAt,
	}, nil
}

func (g *MockGateway) GetPayment(ctx context.Context, id string) (*PaymentInfo, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.payments[id]
	if !ok {
		return nil, fmt.Errorf("mock payment %s not found", id)
	}
	cp := *p
	return &cp, nil
}

// Approve marks a mock payment as approved, as the provider would after
// the PIX transfer settles.
func (g *MockGateway) Approve(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.payments[id]; ok {
		now := time.Now().UTC()
		p.Status = StatusApproved
		p.DateApproved = &now
	}
}

// Seed registers a payment directly, for tests that bypass creation.
func (g *MockGateway) Seed(p *PaymentInfo) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.payments[p.ID] = p
}
