package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SupportLevel is a named set of response-time thresholds, in minutes.
// A nil threshold never fires.
type SupportLevel struct {
	ID            int64
	Name          string
	Description   string
	Critical      *int
	CriticalColor string
	Escalate      *int
	EscalateColor string
	Normal        *int
	NormalColor   string

	// Level and Color describe the single cumulative threshold variant.
	Level *int
	Color string
}

// Entitlement is a purchasable service tier.
type Entitlement struct {
	ID            int64
	Name          string
	Description   string
	Price         decimal.Decimal
	SupportLevels []SupportLevel
}

// Duration is the term of a company entitlement.
type Duration string

const (
	DurationNone    Duration = ""
	DurationMonthly Duration = "monthly"
	DurationYearly  Duration = "yearly"
)

// ParseDuration accepts the stored duration names case-insensitively.
func ParseDuration(raw string) Duration {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "monthly":
		return DurationMonthly
	case "yearly":
		return DurationYearly
	default:
		return DurationNone
	}
}

// CompanyEntitlement binds a company to an entitlement at one support level.
type CompanyEntitlement struct {
	ID           int64
	CompanyID    int64
	Entitlement  *Entitlement
	SupportLevel *SupportLevel
	// Date is the start date; only the calendar day is significant.
	Date     *time.Time
	Duration Duration
}

// Company owns tickets and entitlements.
type Company struct {
	ID             int64
	Name           string
	TicketSequence *int64
}
