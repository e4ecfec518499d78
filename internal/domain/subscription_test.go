package domain

import (
	"testing"
	"time"
)

func TestSubscriptionWindow(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name   string
		period BillingPeriod
		paidAt time.Time
		want   time.Time
	}{
		{"monthly mid-month", BillingMonthly, day(2025, time.June, 15), day(2025, time.July, 15)},
		// Jan 31 + 1 month rolls past short February.
		{"monthly from jan 31", BillingMonthly, day(2025, time.January, 31), day(2025, time.March, 3)},
		{"monthly from jan 31 leap year", BillingMonthly, day(2024, time.January, 31), day(2024, time.March, 2)},
		{"annual mid-month", BillingAnnual, day(2025, time.June, 15), day(2026, time.June, 15)},
		// Feb 29 + 1 year lands on Mar 1 of the non-leap year.
		{"annual from leap day", BillingAnnual, day(2024, time.February, 29), day(2025, time.March, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := SubscriptionWindow(tt.period, tt.paidAt)
			if !start.Equal(tt.paidAt) {
				t.Errorf("start = %v, want %v", start, tt.paidAt)
			}
			if !end.Equal(tt.want) {
				t.Errorf("end = %v, want %v", end, tt.want)
			}
		})
	}
}

func TestSubscriptionWindowZeroPaidAt(t *testing.T) {
	before := time.Now().UTC()
	start, end := SubscriptionWindow(BillingMonthly, time.Time{})
	after := time.Now().UTC()

	if start.Before(before) || start.After(after) {
		t.Errorf("start = %v, want within [%v, %v]", start, before, after)
	}
	if !end.Equal(start.AddDate(0, 1, 0)) {
		t.Errorf("end = %v, want start + 1 month", end)
	}
}
