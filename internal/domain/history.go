package domain

import "time"

// HistoryEntry is one audited change to a ticket. ActorID is nil for system
// changes; OldValue and NewValue are set only for status changes.
type HistoryEntry struct {
	ID        int64
	TicketID  int64
	EventType string
	ActorType UserType
	ActorID   *int64
	OldValue  *string
	NewValue  *string
	CreatedAt time.Time
}
