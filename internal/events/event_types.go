package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketMessageAdded  EventType = "ticket_message_added"
)

// Actor identifies who triggered an event. UserID is nil for system actions.
type Actor struct {
	Type   domain.UserType `json:"type,omitempty"`
	UserID *int64          `json:"user_id,omitempty"`
}

// ActorFor describes a user as an event actor.
func ActorFor(user *domain.User) Actor {
	if user == nil {
		return Actor{}
	}
	id := user.ID
	return Actor{Type: user.Type, UserID: &id}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  int64     `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh ID.
func New(eventType EventType, ticketID int64, actor Actor, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     actor,
		Timestamp: at.UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Name                 string `json:"name"`
	CompanyID            int64  `json:"company_id"`
	CompanyEntitlementID int64  `json:"company_entitlement_id"`
	MessageID            int64  `json:"message_id"`
}

// TicketStatusChangedPayload carries effective statuses as shown to users.
type TicketStatusChangedPayload struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	SupportUserID int64 `json:"support_user_id"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   int64  `json:"message_id"`
	AuthorID    *int64 `json:"author_id,omitempty"`
	BodyPreview string `json:"body_preview"`
}
