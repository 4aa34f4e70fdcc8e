package dto

import "time"

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CompanyEntitlementID int64  `json:"company_entitlement_id"`
	Message              string `json:"message"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body string `json:"body"`
}

// TicketSummary is one row of a ticket board.
type TicketSummary struct {
	ID             int64         `json:"id"`
	Name           string        `json:"name"`
	Status         string        `json:"status"`
	CompanyID      int64         `json:"company_id"`
	CompanyName    string        `json:"company_name"`
	Severity       string        `json:"severity"`
	LastActivity   *time.Time    `json:"last_activity"`
	LatestAssignee *UserResponse `json:"latest_assignee"`
	SupportLevel   string        `json:"support_level,omitempty"`
	LowestLevel    string        `json:"lowest_level,omitempty"`
	Expired        bool          `json:"expired"`
	CreatedAt      time.Time     `json:"created_at"`
}

// BoardCounts carries the size of every bucket.
type BoardCounts struct {
	Assigned int `json:"assigned"`
	Open     int `json:"open"`
	Closed   int `json:"closed"`
}

// BoardResponse lists one bucket alongside all bucket counts.
type BoardResponse struct {
	Bucket  string          `json:"bucket"`
	Tickets []TicketSummary `json:"tickets"`
	Counts  BoardCounts     `json:"counts"`
}

// TicketResponse is a ticket after a write.
type TicketResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Status      string    `json:"status"`
	CompanyID   int64     `json:"company_id"`
	RequesterID *int64    `json:"requester_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TicketDetailResponse provides the full ticket page.
type TicketDetailResponse struct {
	TicketSummary
	Messages        []MessageResponse `json:"messages"`
	Support         []UserResponse    `json:"support"`
	AccountManagers []UserResponse    `json:"account_managers"`
}

// MessageResponse represents one thread message.
type MessageResponse struct {
	ID        int64         `json:"id"`
	TicketID  int64         `json:"ticket_id"`
	Body      string        `json:"body"`
	Author    *UserResponse `json:"author"`
	CreatedAt time.Time     `json:"created_at"`
}

// TicketNameResponse previews a company's next ticket name.
type TicketNameResponse struct {
	CompanyID int64  `json:"company_id"`
	Name      string `json:"name"`
}

// HistoryResponse is one audited ticket change.
type HistoryResponse struct {
	ID        int64     `json:"id"`
	EventType string    `json:"event_type"`
	ActorType string    `json:"actor_type,omitempty"`
	ActorID   *int64    `json:"actor_id"`
	OldValue  *string   `json:"old_value"`
	NewValue  *string   `json:"new_value"`
	CreatedAt time.Time `json:"created_at"`
}
