package domain

import "time"

// Message is an entry in a ticket thread. AuthorID is nil for system messages.
type Message struct {
	ID        int64
	TicketID  int64
	Body      string
	AuthorID  *int64
	Author    *User
	CreatedAt time.Time
}
