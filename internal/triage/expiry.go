package triage

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Expired reports whether a company entitlement has lapsed as of today.
// Entitlements without a start date or a duration never expire.
func Expired(ce *domain.CompanyEntitlement, today time.Time) bool {
	if ce == nil || ce.Date == nil {
		return false
	}
	var end time.Time
	switch ce.Duration {
	case domain.DurationMonthly:
		end = addMonths(civilDate(*ce.Date), 1)
	case domain.DurationYearly:
		end = addMonths(civilDate(*ce.Date), 12)
	default:
		return false
	}
	return civilDate(today).After(end)
}

// civilDate drops the time of day, keeping the calendar date as written.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addMonths moves a date forward, clamping to the last day of the target
// month (Jan 31 + 1 month = Feb 28).
func addMonths(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
