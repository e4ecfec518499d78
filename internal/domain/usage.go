package domain

import "time"

// OperationType identifies a quota-gated text operation.
type OperationType string

const (
	OpCorrection OperationType = "corrections"
	OpRewrite    OperationType = "rewrites"
	OpAIAnalysis OperationType = "ai_analyses"
)

// ValidOperation reports whether op is one of the known operation types.
func ValidOperation(op OperationType) bool {
	switch op {
	case OpCorrection, OpRewrite, OpAIAnalysis:
		return true
	}
	return false
}

// UsageLimits is the daily counter row for a user. Exactly one row exists
// per (user_id, date); the date is a UTC calendar day.
type UsageLimits struct {
	UserID          string    `json:"userId"`
	Date            time.Time `json:"date"`
	CorrectionsUsed int       `json:"correctionsUsed"`
	RewritesUsed    int       `json:"rewritesUsed"`
	AIAnalysesUsed  int       `json:"aiAnalysesUsed"`
}

// Used returns the counter value for an operation type.
func (u *UsageLimits) Used(op OperationType) int {
	switch op {
	case OpRewrite:
		return u.RewritesUsed
	case OpAIAnalysis:
		return u.AIAnalysesUsed
	default:
		return u.CorrectionsUsed
	}
}

// UsageStatus is the outcome of a quota check for one operation.
type UsageStatus struct {
	Allowed   bool          `json:"allowed"`
	Operation OperationType `json:"operation"`
	Used      int           `json:"used"`
	Limit     int           `json:"limit"` // -1 means unlimited
	Remaining int           `json:"remaining"`
}

// ConsumeUsageRequest is the input for consuming quota for one operation.
type ConsumeUsageRequest struct {
	Operation  string `json:"operation" validate:"required,oneof=corrections rewrites ai_analyses"`
	Characters int    `json:"characters" validate:"gte=0"`
}
