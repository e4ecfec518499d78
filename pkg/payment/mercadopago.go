package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const defaultBaseURL = "https://api.mercadopago.com"

// MercadoPagoGateway talks to the Mercado Pago payments API.
type MercadoPagoGateway struct {
	accessToken string
	baseURL     string
	client      *http.Client
}

// NewMercadoPagoGateway creates a gateway using the given access token.
func NewMercadoPagoGateway(accessToken string) *MercadoPagoGateway {
	return &MercadoPagoGateway{
		accessToken: accessToken,
		baseURL:     defaultBaseURL,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

type mpPaymentBody struct {
	TransactionAmount float64 `json:"transaction_amount"`
	Description       string  `json:"description"`
	PaymentMethodID   string  `json:"payment_method_id"`
	ExternalReference string  `json:"external_reference,omitempty"`
	DateOfExpiration  string  `json:"date_of_expiration,omitempty"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

type mpPaymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	StatusDetail      string      `json:"status_detail"`
	TransactionAmount float64     `json:"transaction_amount"`
	DateApproved      string      `json:"date_approved"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// CreatePixPayment creates a PIX charge via POST /v1/payments.
func (g *MercadoPagoGateway) CreatePixPayment(ctx context.Context, req CreatePixRequest) (*PixCharge, error) {
	body := mpPaymentBody{
		TransactionAmount: float64(req.Amount) / 100,
		Description:       req.Description,
		PaymentMethodID:   "pix",
		ExternalReference: req.ExternalReference,
	}
	body.Payer.Email = req.Email
	if !req.ExpiresAt.IsZero() {
		body.DateOfExpiration = req.ExpiresAt.UTC().Format("2006-01-02T15:04:05.000-07:00")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/payments", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")
	// Provider-side dedup for retried creates.
	httpReq.Header.Set("X-Idempotency-Key", uuid.New().String())

	mp, err := g.do(httpReq)
	if err != nil {
		return nil, err
	}

	return &PixCharge{
		PaymentID:    mp.ID.String(),
		Status:       mp.Status,
		QRCode:       mp.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: mp.PointOfInteraction.TransactionData.QRCodeBase64,
		TicketURL:    mp.PointOfInteraction.TransactionData.TicketURL,
		ExpiresAt:    req.ExpiresAt,
	}, nil
}

// GetPayment fetches a payment via GET /v1/payments/{id}.
func (g *MercadoPagoGateway) GetPayment(ctx context.Context, id string) (*PaymentInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/payments/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment fetch: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.accessToken)

	mp, err := g.do(httpReq)
	if err != nil {
		return nil, err
	}

	info := &PaymentInfo{
		ID:           mp.ID.String(),
		Status:       mp.Status,
		StatusDetail: mp.StatusDetail,
		Amount:       int64(mp.TransactionAmount*100 + 0.5),
		PayerEmail:   mp.Payer.Email,
	}
	if mp.DateApproved != "" {
		if t, err := time.Parse(time.RFC3339, mp.DateApproved); err == nil {
			info.DateApproved = &t
		}
	}
	return info, nil
}

func (g *MercadoPagoGateway) do(req *http.Request) (*mpPaymentResponse, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mercadopago request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read mercadopago response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mercadopago returned %s: %s", strconv.Itoa(resp.StatusCode), truncate(raw, 256))
	}

	var mp mpPaymentResponse
	if err := json.Unmarshal(raw, &mp); err != nil {
		return nil, fmt.Errorf("failed to decode mercadopago response: %w", err)
	}
	return &mp, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
