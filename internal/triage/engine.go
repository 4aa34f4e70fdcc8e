package triage

import (
	"time"

	"github.com/raulk/clock"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Engine binds the triage rules to a clock, a severity policy and the
// business time zone used to decide what "today" is.
type Engine struct {
	clock    clock.Clock
	policy   SeverityPolicy
	location *time.Location
}

// NewEngine builds an engine. Nil arguments fall back to the wall clock,
// EscalationPolicy and UTC.
func NewEngine(clk clock.Clock, policy SeverityPolicy, loc *time.Location) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if policy == nil {
		policy = EscalationPolicy{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{clock: clk, policy: policy, location: loc}
}

// Now returns the current instant.
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// Today returns the current calendar date in the business time zone.
func (e *Engine) Today() time.Time {
	return e.clock.Now().In(e.location)
}

// Expired reports whether the entitlement has lapsed today.
func (e *Engine) Expired(ce *domain.CompanyEntitlement) bool {
	return Expired(ce, e.Today())
}

// Severity resolves the color a ticket would show given its last activity.
func (e *Engine) Severity(level *domain.SupportLevel, lastActivity time.Time) string {
	return e.policy.Resolve(level, ElapsedMinutes(lastActivity, e.Now()))
}

// Classify partitions the tickets visible to viewer into assigned, open and
// closed buckets, each ranked for display. Inputs are not modified.
func (e *Engine) Classify(viewer *Viewer, tickets []domain.Ticket, activity Activity) (Board, error) {
	now := e.Now()
	return classify(viewer, tickets, activity, e.policy, now, now.In(e.location))
}

// View projects a single ticket the way Classify would. Visibility is not checked.
func (e *Engine) View(viewer *Viewer, t *domain.Ticket, activity Activity) TicketView {
	now := e.Now()
	if viewer == nil {
		viewer = &Viewer{}
	}
	return project(viewer, t, activity, e.policy, now, now.In(e.location))
}

// Alarm reports whether any non-closed ticket relevant to the viewer is
// overdue. A nil viewer never alarms.
func (e *Engine) Alarm(viewer *Viewer, tickets []domain.Ticket, activity Activity) bool {
	return alarm(viewer, tickets, activity, e.Now())
}
