package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Reserved severity colors. Other colors come from support level configuration.
const (
	ColorRed    = "Red"
	ColorYellow = "Yellow"
	ColorWhite  = "White"
	// ColorBlack marks a ticket whose entitlement has expired.
	ColorBlack = "Black"
)

// Policy names accepted by PolicyByName.
const (
	PolicyEscalation = "escalation"
	PolicySingle     = "single"
)

// SeverityPolicy turns elapsed minutes since last activity into a color.
// An empty result means no color.
type SeverityPolicy interface {
	Resolve(level *domain.SupportLevel, elapsedMinutes int64) string
}

// EscalationPolicy checks the normal threshold first, then escalate, then
// critical. Thresholds are not assumed to be ordered: a level whose normal
// threshold is the smallest always yields the normal color once it fires.
type EscalationPolicy struct{}

func (EscalationPolicy) Resolve(level *domain.SupportLevel, elapsed int64) string {
	if level == nil {
		return ""
	}
	switch {
	case reached(level.Normal, elapsed):
		return level.NormalColor
	case reached(level.Escalate, elapsed):
		return level.EscalateColor
	case reached(level.Critical, elapsed):
		return level.CriticalColor
	}
	return ""
}

// SinglePolicy uses one cumulative threshold: at or past it the level color,
// otherwise White.
type SinglePolicy struct{}

func (SinglePolicy) Resolve(level *domain.SupportLevel, elapsed int64) string {
	if level == nil || level.Level == nil || strings.TrimSpace(level.Color) == "" {
		return ""
	}
	if elapsed >= int64(*level.Level) {
		return level.Color
	}
	return ColorWhite
}

// PolicyByName selects a policy from configuration.
func PolicyByName(name string) (SeverityPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyEscalation:
		return EscalationPolicy{}, nil
	case PolicySingle:
		return SinglePolicy{}, nil
	default:
		return nil, fmt.Errorf("triage: unknown severity policy %q", name)
	}
}

func reached(threshold *int, elapsed int64) bool {
	return threshold != nil && elapsed >= int64(*threshold)
}

// ElapsedMinutes counts whole minutes from since to now. Activity in the
// future (clock skew) counts as zero.
func ElapsedMinutes(since, now time.Time) int64 {
	minutes := int64(now.Sub(since) / time.Minute)
	if minutes < 0 {
		return 0
	}
	return minutes
}

// severityRank orders colors for display; lower sorts first.
func severityRank(color string) int {
	switch strings.ToLower(strings.TrimSpace(color)) {
	case "black":
		return -1
	case "red":
		return 0
	case "yellow":
		return 1
	case "white":
		return 2
	default:
		return 3
	}
}
