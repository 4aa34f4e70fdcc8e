package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/triage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// ViewerFor resolves the triage viewer for an actor, mapping the engine's
// errors onto API errors.
func ViewerFor(user *domain.User) (*triage.Viewer, error) {
	viewer, err := triage.ViewerFor(user)
	switch {
	case errors.Is(err, triage.ErrNoViewer):
		return nil, apperrors.NewUnauthorized("authentication required")
	case errors.Is(err, triage.ErrUnsupportedViewer):
		return nil, apperrors.NewForbidden("role has no ticket access")
	case err != nil:
		return nil, err
	}
	return viewer, nil
}

// scopeFilter builds the repository filter for a viewer. workingSet narrows
// to non-closed tickets and, for support staff, to assigned-to-me plus unassigned.
func scopeFilter(viewer *triage.Viewer, workingSet bool) repository.TicketFilter {
	filter := repository.TicketFilter{ExcludeClosed: workingSet}
	id := viewer.ID
	switch viewer.Role {
	case triage.RoleRequester:
		filter.RequesterID = &id
	case triage.RoleAccountManager:
		filter.AccountManagerID = &id
	case triage.RoleSupport:
		if workingSet {
			filter.SupportQueueOf = &id
		}
	}
	return filter
}

// loadSnapshot reads the scoped tickets and their latest activity.
func loadSnapshot(ctx context.Context, repos repository.Repositories, filter repository.TicketFilter) ([]domain.Ticket, triage.Activity, error) {
	tickets, err := repos.Tickets.List(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("list tickets: %w", err)
	}
	ids := lo.Map(tickets, func(t domain.Ticket, _ int) int64 { return t.ID })
	messages, err := repos.Messages.ListNewestFirst(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	return tickets, triage.LatestActivity(tickets, messages), nil
}

// loadTicket fetches a ticket the viewer may see. Invisible tickets are
// reported as missing.
func loadTicket(ctx context.Context, tickets repository.TicketRepository, viewer *triage.Viewer, ticketID int64) (*domain.Ticket, error) {
	ticket, err := tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.ToDomainError(err)
	}
	if !viewer.CanSee(ticket) {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// backfillAccountManagers attaches any company TAMs missing from the ticket.
func backfillAccountManagers(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket) error {
	companyTAMs, err := repos.Users.CompanyTAMs(ctx, ticket.CompanyID)
	if err != nil {
		return fmt.Errorf("company tams: %w", err)
	}
	missing := triage.MissingAccountManagers(ticket, companyTAMs)
	if len(missing) == 0 {
		return nil
	}
	ids := lo.Map(missing, func(u domain.User, _ int) int64 { return u.ID })
	if err := repos.Tickets.AddTAMs(ctx, ticket.ID, ids); err != nil {
		return fmt.Errorf("add tams: %w", err)
	}
	ticket.TAMs = append(ticket.TAMs, missing...)
	return nil
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}
