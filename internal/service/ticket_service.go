package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/triage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

const bodyPreviewLen = 140

// TicketService coordinates ticket workflows.
type TicketService struct {
	repos      repository.Repositories
	tx         repository.TxRunner
	engine     *triage.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Repos      repository.Repositories
	Tx         repository.TxRunner
	Engine     *triage.Engine
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CompanyEntitlementID int64
	Message              string
}

// TicketDetail is the single-ticket page.
type TicketDetail struct {
	View     triage.TicketView
	Messages []domain.Message
	Support  []domain.User
	// AccountManagers merges the company TAMs with ticket-level extras.
	AccountManagers []domain.User
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		repos:      deps.Repos,
		tx:         deps.Tx,
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
	}
}

// CreateTicket opens a ticket against a company entitlement with its first message.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if _, err := ViewerFor(actor); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Message)
	if body == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}

	var (
		ticket *domain.Ticket
		msg    *domain.Message
	)
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		ce, err := repos.Catalog.GetCompanyEntitlement(ctx, input.CompanyEntitlementID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("company entitlement", map[string]any{"company_entitlement_id": input.CompanyEntitlementID})
			}
			return err
		}
		if !actor.IsSupport() && !lo.Contains(actor.CompanyIDs, ce.CompanyID) {
			return apperrors.NewForbidden("not a member of the entitlement's company")
		}
		if s.engine.Expired(ce) {
			return apperrors.NewValidationError("entitlement is expired", map[string]any{"company_entitlement_id": ce.ID})
		}

		company, err := repos.Companies.GetByID(ctx, ce.CompanyID)
		if err != nil {
			return err
		}
		seq, err := repos.Companies.NextTicketSequence(ctx, company.ID)
		if err != nil {
			return err
		}

		requesterID := actor.ID
		ticket = &domain.Ticket{
			Name:               domain.FormatTicketName(company.Name, seq),
			Status:             domain.StatusOpen,
			CompanyID:          company.ID,
			CompanyName:        company.Name,
			RequesterID:        &requesterID,
			CompanyEntitlement: ce,
		}
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return err
		}

		msg = &domain.Message{TicketID: ticket.ID, Body: body, AuthorID: &requesterID, Author: actor, CreatedAt: s.engine.Now()}
		if err := repos.Messages.Create(ctx, msg); err != nil {
			return err
		}
		return backfillAccountManagers(ctx, repos, ticket)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	s.logger.Info("ticket created",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("name", ticket.Name),
		zap.Int64("company_id", ticket.CompanyID))
	publishEvent(ctx, s.dispatcher, events.New(events.EventTicketCreated, ticket.ID, events.ActorFor(actor), s.engine.Now(),
		events.TicketCreatedPayload{
			Name:                 ticket.Name,
			CompanyID:            ticket.CompanyID,
			CompanyEntitlementID: input.CompanyEntitlementID,
			MessageID:            msg.ID,
		}))
	return ticket, nil
}

// requesterStatuses are the statuses requesters and account managers may set.
var requesterStatuses = []string{domain.StatusAssigned, domain.StatusInProgress, domain.StatusResolved, domain.StatusClosed}

// UpdateStatus changes a ticket's status. Support staff setting Assigned
// also take the ticket.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID int64, rawStatus string) (*domain.Ticket, error) {
	viewer, err := ViewerFor(actor)
	if err != nil {
		return nil, err
	}
	status, ok := domain.CanonicalStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": rawStatus})
	}
	if viewer.Role != triage.RoleSupport && !lo.Contains(requesterStatuses, status) {
		return nil, apperrors.NewForbidden("status not allowed for this role")
	}

	var (
		ticket      *domain.Ticket
		oldStatus   string
		selfAdded   bool
		statusMoved bool
	)
	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err = loadTicket(ctx, repos.Tickets, viewer, ticketID)
		if err != nil {
			return err
		}
		oldStatus = triage.DisplayStatus(ticket)
		if viewer.Role == triage.RoleSupport && status == domain.StatusAssigned {
			if selfAdded, err = assignSupport(ctx, repos, ticket, actor, s.engine); err != nil {
				return err
			}
		}
		if ticket.Status != status {
			if err := repos.Tickets.UpdateStatus(ctx, ticket.ID, status); err != nil {
				return err
			}
			ticket.Status = status
			statusMoved = true
		}
		return backfillAccountManagers(ctx, repos, ticket)
	})
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	now := s.engine.Now()
	if selfAdded {
		publishEvent(ctx, s.dispatcher, events.New(events.EventTicketAssigned, ticket.ID, events.ActorFor(actor), now,
			events.TicketAssignedPayload{SupportUserID: actor.ID}))
	}
	if statusMoved {
		newStatus := triage.DisplayStatus(ticket)
		s.logger.Info("ticket status changed",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("old_status", oldStatus),
			zap.String("new_status", newStatus))
		publishEvent(ctx, s.dispatcher, events.New(events.EventTicketStatusChanged, ticket.ID, events.ActorFor(actor), now,
			events.TicketStatusChangedPayload{OldStatus: oldStatus, NewStatus: newStatus}))
	}
	return ticket, nil
}

// AddMessage appends to a ticket thread the actor can see.
func (s *TicketService) AddMessage(ctx context.Context, actor *domain.User, ticketID int64, body string) (*domain.Message, error) {
	viewer, err := ViewerFor(actor)
	if err != nil {
		return nil, err
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "body"})
	}

	ticket, err := loadTicket(ctx, s.repos.Tickets, viewer, ticketID)
	if err != nil {
		return nil, err
	}
	authorID := actor.ID
	msg := &domain.Message{TicketID: ticket.ID, Body: body, AuthorID: &authorID, Author: actor, CreatedAt: s.engine.Now()}
	if err := s.repos.Messages.Create(ctx, msg); err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	publishEvent(ctx, s.dispatcher, events.New(events.EventTicketMessageAdded, ticket.ID, events.ActorFor(actor), msg.CreatedAt,
		events.TicketMessageAddedPayload{MessageID: msg.ID, AuthorID: &authorID, BodyPreview: preview(body)}))
	return msg, nil
}

// Detail loads the ticket page. Viewing attaches missing company TAMs.
func (s *TicketService) Detail(ctx context.Context, actor *domain.User, ticketID int64) (*TicketDetail, error) {
	viewer, err := ViewerFor(actor)
	if err != nil {
		return nil, err
	}
	ticket, err := loadTicket(ctx, s.repos.Tickets, viewer, ticketID)
	if err != nil {
		return nil, err
	}

	var (
		messages    []domain.Message
		companyTAMs []domain.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		messages, err = s.repos.Messages.ListNewestFirst(gctx, []int64{ticket.ID})
		return err
	})
	g.Go(func() error {
		var err error
		companyTAMs, err = s.repos.Users.CompanyTAMs(gctx, ticket.CompanyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.ToDomainError(err)
	}

	if missing := triage.MissingAccountManagers(ticket, companyTAMs); len(missing) > 0 {
		ids := lo.Map(missing, func(u domain.User, _ int) int64 { return u.ID })
		if err := s.repos.Tickets.AddTAMs(ctx, ticket.ID, ids); err != nil {
			s.logger.Warn("tam backfill failed", zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		} else {
			ticket.TAMs = append(ticket.TAMs, missing...)
		}
	}

	activity := triage.LatestActivity([]domain.Ticket{*ticket}, messages)
	return &TicketDetail{
		View:     s.engine.View(viewer, ticket, activity),
		Messages: messages,
		Support:  lo.Map(ticket.Support, func(a domain.Assignee, _ int) domain.User { return a.User }),
		AccountManagers: lo.UniqBy(append(append([]domain.User{}, companyTAMs...), ticket.TAMs...),
			func(u domain.User) int64 { return u.ID }),
	}, nil
}

// PreviewName shows the name the company's next ticket would get.
func (s *TicketService) PreviewName(ctx context.Context, actor *domain.User, companyID int64) (string, error) {
	if _, err := ViewerFor(actor); err != nil {
		return "", err
	}
	if !actor.IsSupport() && !lo.Contains(actor.CompanyIDs, companyID) {
		return "", apperrors.NewForbidden("not a member of this company")
	}
	company, err := s.repos.Companies.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.NewNotFound("company", map[string]any{"company_id": companyID})
		}
		return "", apperrors.ToDomainError(err)
	}
	current, err := s.repos.Companies.CurrentTicketSequence(ctx, companyID)
	if err != nil {
		return "", apperrors.ToDomainError(err)
	}
	return domain.FormatTicketName(company.Name, current+1), nil
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= bodyPreviewLen {
		return body
	}
	return string([]rune(body)[:bodyPreviewLen]) + "…"
}
