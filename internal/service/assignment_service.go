package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/triage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	tx         repository.TxRunner
	engine     *triage.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Tx         repository.TxRunner
	Engine     *triage.Engine
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		tx:         deps.Tx,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
	}
}

// AssignToSelf adds a support user to the ticket's assignees. An Open or
// blank status becomes Assigned. Repeating the call is harmless.
func (s *AssignmentService) AssignToSelf(ctx context.Context, actor *domain.User, ticketID int64) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.IsSupport() {
		return nil, apperrors.NewForbidden("only support users can take tickets")
	}
	viewer, err := ViewerFor(actor)
	if err != nil {
		return nil, err
	}

	var (
		ticket *domain.Ticket
		added  bool
	)
	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err = loadTicket(ctx, repos.Tickets, viewer, ticketID)
		if err != nil {
			return err
		}
		if ticket.IsClosed() {
			return apperrors.NewConflict("ticket is closed", map[string]any{"ticket_id": ticketID})
		}
		added, err = assignSupport(ctx, repos, ticket, actor, s.engine)
		if err != nil {
			return err
		}
		if status := strings.TrimSpace(ticket.Status); status == "" || strings.EqualFold(status, domain.StatusOpen) {
			if err := repos.Tickets.UpdateStatus(ctx, ticket.ID, domain.StatusAssigned); err != nil {
				return err
			}
			ticket.Status = domain.StatusAssigned
		}
		return backfillAccountManagers(ctx, repos, ticket)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	if added {
		s.logger.Info("ticket assigned", zap.Int64("ticket_id", ticket.ID), zap.Int64("support_user_id", actor.ID))
		publishEvent(ctx, s.dispatcher, events.New(events.EventTicketAssigned, ticket.ID, events.ActorFor(actor),
			s.engine.Now(), events.TicketAssignedPayload{SupportUserID: actor.ID}))
	}
	return ticket, nil
}

// assignSupport attaches the actor to the ticket's support users if absent.
func assignSupport(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket, actor *domain.User, engine *triage.Engine) (bool, error) {
	viewer := &triage.Viewer{ID: actor.ID, Role: triage.RoleSupport}
	if viewer.AssignedTo(ticket) {
		return false, nil
	}
	now := engine.Now()
	added, err := repos.Tickets.AddSupport(ctx, ticket.ID, actor.ID, now)
	if err != nil {
		return false, err
	}
	if added {
		ticket.Support = append(ticket.Support, domain.Assignee{User: *actor, AssignedAt: now})
	}
	return added, nil
}
