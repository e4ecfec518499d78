package domain

import "time"

// PlanType is the access level on a user's profile.
type PlanType string

const (
	PlanFree  PlanType = "free"
	PlanPro   PlanType = "pro"
	PlanAdmin PlanType = "admin"
)

// EntitlementStatus is the denormalized subscription state on the profile.
type EntitlementStatus string

const (
	EntitlementActive    EntitlementStatus = "active"
	EntitlementInactive  EntitlementStatus = "inactive"
	EntitlementPastDue   EntitlementStatus = "past_due"
	EntitlementCancelled EntitlementStatus = "cancelled"
)

// Profile is the entitlement projection for a user. PlanType together with
// SubscriptionStatus is the canonical "entitled" signal; there is no
// separate boolean flag.
type Profile struct {
	UserID                string            `json:"userId"`
	PlanType              PlanType          `json:"planType"`
	SubscriptionStatus    EntitlementStatus `json:"subscriptionStatus"`
	SubscriptionExpiresAt *time.Time        `json:"subscriptionExpiresAt,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
	UpdatedAt             time.Time         `json:"updatedAt"`
}

// Entitled reports whether the profile grants paid access.
func (p *Profile) Entitled() bool {
	if p.PlanType == PlanAdmin {
		return true
	}
	return p.PlanType == PlanPro && p.SubscriptionStatus == EntitlementActive
}
