package domain

// Unlimited is the sentinel for limits that do not apply to a plan.
const Unlimited = -1

// PlanLimits holds the per-plan usage ceilings for text operations.
type PlanLimits struct {
	PlanType          PlanType `json:"planType"`
	MaxCharacters     int      `json:"maxCharacters"`
	CorrectionsPerDay int      `json:"correctionsPerDay"`
	RewritesPerDay    int      `json:"rewritesPerDay"`
	AIAnalysesPerDay  int      `json:"aiAnalysesPerDay"`
	ShowAds           bool     `json:"showAds"`
}

// AvailablePlans returns the limit configuration for every plan.
func AvailablePlans() []PlanLimits {
	return []PlanLimits{
		{
			PlanType:          PlanFree,
			MaxCharacters:     3000,
			CorrectionsPerDay: 5,
			RewritesPerDay:    3,
			AIAnalysesPerDay:  2,
			ShowAds:           true,
		},
		{
			PlanType:          PlanPro,
			MaxCharacters:     Unlimited,
			CorrectionsPerDay: Unlimited,
			RewritesPerDay:    Unlimited,
			AIAnalysesPerDay:  Unlimited,
			ShowAds:           false,
		},
		{
			PlanType:          PlanAdmin,
			MaxCharacters:     Unlimited,
			CorrectionsPerDay: Unlimited,
			RewritesPerDay:    Unlimited,
			AIAnalysesPerDay:  Unlimited,
			ShowAds:           false,
		},
	}
}

// GetPlanLimits returns the limits for a plan, defaulting to free.
func GetPlanLimits(plan PlanType) PlanLimits {
	for _, p := range AvailablePlans() {
		if p.PlanType == plan {
			return p
		}
	}
	return AvailablePlans()[0]
}

// PlanPrice returns the PIX charge amount in centavos for a billing period.
func PlanPrice(period BillingPeriod) int64 {
	if period == BillingAnnual {
		return 29900 // R$299.00/yr
	}
	return 2990 // R$29.90/mo
}
