package domain

import "time"

// PaymentStatus represents the lifecycle of a PIX payment attempt.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentApproved PaymentStatus = "approved"
	PaymentPaid     PaymentStatus = "paid"
	PaymentConsumed PaymentStatus = "consumed"
)

// Settled reports whether the payment has been confirmed by the provider
// and can still be used to activate a subscription.
func (s PaymentStatus) Settled() bool {
	return s == PaymentApproved || s == PaymentPaid
}

// PixPayment is a single PIX payment attempt. UserID is nil for guest
// payments until the linker matches them by email.
type PixPayment struct {
	ID              string        `json:"id"`
	PaymentIntentID string        `json:"paymentIntentId"` // provider's payment id
	Email           string        `json:"email"`
	Amount          int64         `json:"amount"` // centavos
	Currency        string        `json:"currency"`
	PlanType        BillingPeriod `json:"planType"`
	Status          PaymentStatus `json:"status"`
	PaidAt          *time.Time    `json:"paidAt,omitempty"`
	ExpiresAt       *time.Time    `json:"expiresAt,omitempty"`
	UserID          *string       `json:"userId,omitempty"`
	LinkedToUserAt  *time.Time    `json:"linkedToUserAt,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// CreatePixPaymentRequest is the input for creating a PIX charge.
type CreatePixPaymentRequest struct {
	Email    string `json:"email" validate:"required,email"`
	PlanType string `json:"planType" validate:"required,oneof=monthly annual"`
}

// PixPaymentResponse is returned to the checkout UI after a charge is created.
type PixPaymentResponse struct {
	PaymentID    string    `json:"paymentId"`
	Status       string    `json:"status"`
	Amount       int64     `json:"amount"`
	QRCode       string    `json:"qrCode"`
	QRCodeBase64 string    `json:"qrCodeBase64,omitempty"`
	TicketURL    string    `json:"ticketUrl,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// PaymentStatusResponse is the poll response for the checkout UI.
type PaymentStatusResponse struct {
	PaymentID string        `json:"paymentId"`
	Status    PaymentStatus `json:"status"`
	PlanType  BillingPeriod `json:"planType"`
	PaidAt    *time.Time    `json:"paidAt,omitempty"`
}
