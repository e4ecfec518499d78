// Package payment abstracts the payment provider used for PIX charges.
package payment

import (
	"context"
	"time"
)

// Provider-side payment status constants.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

// CreatePixRequest is the input for creating a PIX charge with the provider.
type CreatePixRequest struct {
	Email             string
	Amount            int64 // centavos
	Description       string
	ExternalReference string
	ExpiresAt         time.Time
}

// PixCharge is the provider's response to a created PIX charge.
type PixCharge struct {
	PaymentID    string
	Status       string
	QRCode       string
	QRCodeBase64 string
	TicketURL    string
	ExpiresAt    time.Time
}

// PaymentInfo is the provider's view of an existing payment.
type PaymentInfo struct {
	ID           string
	Status       string
	StatusDetail string
	Amount       int64 // centavos
	PayerEmail   string
	DateApproved *time.Time
}

// Approved reports whether the provider considers the payment settled.
func (p *PaymentInfo) Approved() bool {
	return p.Status == StatusApproved
}

// Gateway defines the operations the service needs from a payment provider.
type Gateway interface {
	// CreatePixPayment creates a PIX charge and returns its QR payload.
	CreatePixPayment(ctx context.Context, req CreatePixRequest) (*PixCharge, error)
	// GetPayment fetches the authoritative status of a payment by id.
	GetPayment(ctx context.Context, id string) (*PaymentInfo, error)
}
