package triage

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketView is the read-only projection of a ticket placed on a board.
type TicketView struct {
	ID            int64
	Name          string
	Status        string
	DisplayStatus string
	CompanyID     int64
	CompanyName   string
	// Severity is the SLA color; empty when no threshold has been reached.
	Severity       string
	LastActivity   *time.Time
	LatestAssignee *domain.User
	// LevelName is the company entitlement's support level name.
	LevelName string
	// LowestLevelName is only filled in for account managers.
	LowestLevelName string
	Expired         bool
	CreatedAt       time.Time
}

// Board is a classified ticket set, each bucket already in display order.
type Board struct {
	Assigned []TicketView
	Open     []TicketView
	Closed   []TicketView
}

// Total counts tickets across buckets.
func (b Board) Total() int {
	return len(b.Assigned) + len(b.Open) + len(b.Closed)
}

func classify(viewer *Viewer, tickets []domain.Ticket, activity Activity, policy SeverityPolicy, now, today time.Time) (Board, error) {
	if viewer == nil {
		return Board{}, ErrNoViewer
	}
	switch viewer.Role {
	case RoleSupport, RoleAccountManager, RoleRequester:
	default:
		return Board{}, ErrUnsupportedViewer
	}

	board := Board{Assigned: []TicketView{}, Open: []TicketView{}, Closed: []TicketView{}}
	for i := range tickets {
		t := &tickets[i]
		if !viewer.CanSee(t) {
			continue
		}
		view := project(viewer, t, activity, policy, now, today)
		switch {
		case t.IsClosed():
			board.Closed = append(board.Closed, view)
		case viewer.Role == RoleSupport:
			if viewer.AssignedTo(t) {
				board.Assigned = append(board.Assigned, view)
			} else if !t.HasSupport() {
				board.Open = append(board.Open, view)
			}
		case t.HasSupport():
			board.Assigned = append(board.Assigned, view)
		default:
			board.Open = append(board.Open, view)
		}
	}

	Rank(board.Assigned)
	Rank(board.Open)
	Rank(board.Closed)
	return board, nil
}

func project(viewer *Viewer, t *domain.Ticket, activity Activity, policy SeverityPolicy, now, today time.Time) TicketView {
	view := TicketView{
		ID:             t.ID,
		Name:           t.Name,
		Status:         t.Status,
		DisplayStatus:  DisplayStatus(t),
		CompanyID:      t.CompanyID,
		CompanyName:    t.CompanyName,
		LatestAssignee: LatestAssignee(t),
		Expired:        Expired(t.CompanyEntitlement, today),
		CreatedAt:      t.CreatedAt,
	}
	if level := t.SupportLevel(); level != nil {
		view.LevelName = level.Name
	}
	if last, ok := activity.Last(t.ID); ok {
		ts := last
		view.LastActivity = &ts
	}
	if viewer.Role == RoleAccountManager {
		view.LowestLevelName = LowestLevelName(t)
	}

	switch {
	case view.Expired:
		view.Severity = ColorBlack
	case t.IsClosed():
		view.Severity = ColorWhite
	case view.LastActivity != nil:
		view.Severity = policy.Resolve(t.SupportLevel(), ElapsedMinutes(*view.LastActivity, now))
	}
	return view
}

// DisplayStatus shows a blank status as Open and an Open ticket with
// support assigned as Assigned. Other statuses pass through.
func DisplayStatus(t *domain.Ticket) string {
	status := strings.TrimSpace(t.Status)
	if status == "" || strings.EqualFold(status, domain.StatusOpen) {
		if t.HasSupport() {
			return domain.StatusAssigned
		}
		return domain.StatusOpen
	}
	return status
}

// LatestAssignee returns the most recently assigned support user. Ties on
// assignment time go to the higher user ID.
func LatestAssignee(t *domain.Ticket) *domain.User {
	if !t.HasSupport() {
		return nil
	}
	latest := lo.MaxBy(t.Support, func(a, b domain.Assignee) bool {
		if a.AssignedAt.Equal(b.AssignedAt) {
			return a.User.ID > b.User.ID
		}
		return a.AssignedAt.After(b.AssignedAt)
	})
	u := latest.User
	return &u
}

// LowestLevelName names the entitlement's lowest support level by level
// number, then ID. Levels without a number sort last.
func LowestLevelName(t *domain.Ticket) string {
	ce := t.CompanyEntitlement
	if ce == nil || ce.Entitlement == nil || len(ce.Entitlement.SupportLevels) == 0 {
		return ""
	}
	lowest := lo.MinBy(ce.Entitlement.SupportLevels, func(a, b domain.SupportLevel) bool {
		switch {
		case a.Level == nil && b.Level == nil:
			return a.ID < b.ID
		case a.Level == nil:
			return false
		case b.Level == nil:
			return true
		case *a.Level != *b.Level:
			return *a.Level < *b.Level
		default:
			return a.ID < b.ID
		}
	})
	return lowest.Name
}

// MissingAccountManagers lists the company TAMs not yet attached to the
// ticket. Applying the result and calling again yields nothing.
func MissingAccountManagers(t *domain.Ticket, companyTAMs []domain.User) []domain.User {
	attached := lo.SliceToMap(t.TAMs, func(u domain.User) (int64, struct{}) { return u.ID, struct{}{} })
	missing := lo.Filter(companyTAMs, func(u domain.User, _ int) bool {
		if u.ID == 0 || u.Type != domain.UserTypeTAM {
			return false
		}
		_, ok := attached[u.ID]
		return !ok
	})
	return lo.UniqBy(missing, func(u domain.User) int64 { return u.ID })
}
