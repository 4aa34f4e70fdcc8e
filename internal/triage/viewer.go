// Package triage implements SLA triage: ticket classification, severity
// colors, display ordering, entitlement expiry and the escalation alarm.
//
// Everything here works on a snapshot handed in by the caller and reads the
// current time from an injected clock. Nothing performs I/O.
package triage

import (
	"errors"

	"github.com/samber/lo"

	"github.com/spec-kit/support-desk/internal/domain"
)

var (
	// ErrNoViewer is returned when classification is requested without an actor.
	ErrNoViewer = errors.New("triage: viewer required")
	// ErrUnsupportedViewer is returned for roles that have no ticket board.
	ErrUnsupportedViewer = errors.New("triage: unsupported viewer role")
)

// Role selects the scoping and bucketing rules applied for a viewer.
type Role string

const (
	RoleSupport        Role = "support"
	RoleAccountManager Role = "tam"
	RoleRequester      Role = "user"
)

// Viewer is the resolved actor a board or alarm is computed for.
type Viewer struct {
	ID         int64
	Role       Role
	CompanyIDs []int64
}

// ViewerFor derives the viewer capability from an authenticated user.
func ViewerFor(user *domain.User) (*Viewer, error) {
	if user == nil {
		return nil, ErrNoViewer
	}
	var role Role
	switch user.Type {
	case domain.UserTypeSupport:
		role = RoleSupport
	case domain.UserTypeTAM:
		role = RoleAccountManager
	case domain.UserTypeUser:
		role = RoleRequester
	default:
		return nil, ErrUnsupportedViewer
	}
	return &Viewer{ID: user.ID, Role: role, CompanyIDs: user.CompanyIDs}, nil
}

// CanSee applies the visibility rules: support staff see every ticket, an
// account manager sees tickets they manage directly or that belong to one
// of their companies, a requester sees the tickets they opened.
func (v *Viewer) CanSee(t *domain.Ticket) bool {
	if v == nil || t == nil {
		return false
	}
	switch v.Role {
	case RoleSupport:
		return true
	case RoleAccountManager:
		if lo.ContainsBy(t.TAMs, func(u domain.User) bool { return u.ID == v.ID }) {
			return true
		}
		return lo.Contains(v.CompanyIDs, t.CompanyID)
	case RoleRequester:
		return t.RequesterID != nil && *t.RequesterID == v.ID
	default:
		return false
	}
}

// AssignedTo reports whether the viewer is among the ticket's support users.
func (v *Viewer) AssignedTo(t *domain.Ticket) bool {
	if v == nil {
		return false
	}
	return lo.ContainsBy(t.Support, func(a domain.Assignee) bool { return a.User.ID == v.ID })
}

// Relevant reports whether a non-closed ticket belongs on the viewer's
// working set: for support staff that is assigned-to-me plus unassigned.
func (v *Viewer) Relevant(t *domain.Ticket) bool {
	if !v.CanSee(t) || t.IsClosed() {
		return false
	}
	if v.Role == RoleSupport {
		return v.AssignedTo(t) || !t.HasSupport()
	}
	return true
}
