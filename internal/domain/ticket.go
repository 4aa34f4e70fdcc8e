package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// Ticket statuses. Stored values are free text and compared case-insensitively.
const (
	StatusOpen       = "Open"
	StatusAssigned   = "Assigned"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

var knownStatuses = []string{StatusOpen, StatusAssigned, StatusInProgress, StatusResolved, StatusClosed}

// CanonicalStatus maps raw input onto a known status name.
func CanonicalStatus(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, status := range knownStatuses {
		if strings.EqualFold(trimmed, status) {
			return status, true
		}
	}
	return "", false
}

// Assignee is a support user attached to a ticket.
type Assignee struct {
	User       User
	AssignedAt time.Time
}

// Ticket is the snapshot the triage engine works on, with references resolved.
type Ticket struct {
	ID                 int64
	Name               string
	Status             string
	CompanyID          int64
	CompanyName        string
	RequesterID        *int64
	CompanyEntitlement *CompanyEntitlement
	Support            []Assignee
	TAMs               []User
	CreatedAt          time.Time
}

// IsClosed reports a case-insensitive "Closed" status.
func (t *Ticket) IsClosed() bool {
	return strings.EqualFold(strings.TrimSpace(t.Status), StatusClosed)
}

// HasSupport reports whether any support user is assigned.
func (t *Ticket) HasSupport() bool {
	return len(t.Support) > 0
}

// SupportLevel returns the level resolved through the company entitlement, if any.
func (t *Ticket) SupportLevel() *SupportLevel {
	if t.CompanyEntitlement == nil {
		return nil
	}
	return t.CompanyEntitlement.SupportLevel
}

const (
	ticketPrefixLen   = 6
	defaultNamePrefix = "COMP"
)

// FormatTicketName renders the per-company ticket name, e.g. "ACME-00042".
func FormatTicketName(companyName string, sequence int64) string {
	base := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, companyName)
	if base == "" {
		base = defaultNamePrefix
	}
	if runes := []rune(base); len(runes) > ticketPrefixLen {
		base = string(runes[:ticketPrefixLen])
	}
	return fmt.Sprintf("%s-%05d", base, sequence)
}
