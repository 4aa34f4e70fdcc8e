package triage

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// overdue reports whether a ticket has spent at least its escalate window
// past the normal threshold since last activity.
func overdue(t *domain.Ticket, activity Activity, now time.Time) bool {
	level := t.SupportLevel()
	if level == nil || level.Normal == nil || level.Escalate == nil {
		return false
	}
	last, ok := activity.Last(t.ID)
	if !ok {
		return false
	}
	overNormal := ElapsedMinutes(last, now) - int64(*level.Normal)
	return overNormal >= int64(*level.Escalate)
}

func alarm(viewer *Viewer, tickets []domain.Ticket, activity Activity, now time.Time) bool {
	if viewer == nil {
		return false
	}
	for i := range tickets {
		t := &tickets[i]
		if viewer.Relevant(t) && overdue(t, activity, now) {
			return true
		}
	}
	return false
}
