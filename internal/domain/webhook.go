package domain

import "strings"

// WebhookNotification is the v1 payment-provider notification body.
type WebhookNotification struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Type        string `json:"type"`
	Action      string `json:"action"`
	LiveMode    bool   `json:"live_mode"`
	UserID      string `json:"user_id"`
	APIVersion  string `json:"api_version"`
	DateCreated string `json:"date_created"`
}

// LegacyWebhookNotification is the v0 notification body still sent for
// some merchant accounts.
type LegacyWebhookNotification struct {
	Resource string `json:"resource"`
	Topic    string `json:"topic"`
}

// PaymentID extracts the payment id from a legacy resource path like
// "/payments/123456". Returns "" for non-payment resources.
func (n *LegacyWebhookNotification) PaymentID() string {
	if n.Topic != "payment" {
		return ""
	}
	idx := strings.LastIndex(n.Resource, "/")
	if idx < 0 || idx == len(n.Resource)-1 {
		return ""
	}
	return n.Resource[idx+1:]
}
