package triage

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Activity maps a ticket ID to its most recent message timestamp.
// Tickets without messages have no entry.
type Activity map[int64]time.Time

// LatestActivity scans messages ordered newest first and keeps the first
// timestamp seen for each ticket in scope. The scan stops once every ticket
// has been resolved.
func LatestActivity(tickets []domain.Ticket, newestFirst []domain.Message) Activity {
	scope := make(map[int64]struct{}, len(tickets))
	for i := range tickets {
		if tickets[i].ID != 0 {
			scope[tickets[i].ID] = struct{}{}
		}
	}
	result := make(Activity, len(scope))
	if len(scope) == 0 {
		return result
	}
	for i := range newestFirst {
		msg := &newestFirst[i]
		if _, ok := scope[msg.TicketID]; !ok {
			continue
		}
		if _, seen := result[msg.TicketID]; seen {
			continue
		}
		result[msg.TicketID] = msg.CreatedAt
		if len(result) == len(scope) {
			break
		}
	}
	return result
}

// Last returns the activity timestamp for a ticket.
func (a Activity) Last(ticketID int64) (time.Time, bool) {
	ts, ok := a[ticketID]
	return ts, ok
}
