package domain

import "time"

// BillingPeriod is the purchased billing cycle of a PIX payment.
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "monthly"
	BillingAnnual  BillingPeriod = "annual"
)

// SubscriptionStatus represents the state of a subscription record.
type SubscriptionStatus string

const (
	SubscriptionAuthorized SubscriptionStatus = "authorized"
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionPaused     SubscriptionStatus = "paused"
	SubscriptionCancelled  SubscriptionStatus = "cancelled"
)

// Subscription is a paid subscription created from a confirmed payment.
// ProviderSubscriptionID is synthetic ("pix_<payment_id>") for PIX-origin
// subscriptions. NextPaymentDate doubles as the expiry of the paid window.
type Subscription struct {
	ID                     string             `json:"id"`
	UserID                 string             `json:"userId"`
	ProviderSubscriptionID string             `json:"mpSubscriptionId"`
	PlanType               BillingPeriod      `json:"planType"`
	Status                 SubscriptionStatus `json:"status"`
	StartDate              time.Time          `json:"startDate"`
	NextPaymentDate        time.Time          `json:"nextPaymentDate"`
	Amount                 int64              `json:"amount"`
	Currency               string             `json:"currency"`
	PaymentMethodID        string             `json:"paymentMethodId"`
	NeedsReconciliation    bool               `json:"-"`
	CreatedAt              time.Time          `json:"createdAt"`
	UpdatedAt              time.Time          `json:"updatedAt"`
}

// SubscriptionWindow computes the paid window for a plan from the payment
// timestamp. Calendar arithmetic is used, so end-of-month dates roll over
// (Jan 31 + 1 month lands on Mar 3 in non-leap years). A zero paidAt falls
// back to now; the function never fails.
func SubscriptionWindow(period BillingPeriod, paidAt time.Time) (start, end time.Time) {
	start = paidAt
	if start.IsZero() {
		start = time.Now().UTC()
	}
	if period == BillingAnnual {
		return start, start.AddDate(1, 0, 0)
	}
	return start, start.AddDate(0, 1, 0)
}
