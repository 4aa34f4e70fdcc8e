package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/triage"
)

// Mail is one outgoing ticket notification.
type Mail struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer delivers notifications.
type Mailer interface {
	Send(ctx context.Context, mail Mail) error
}

// LogMailer writes mail to the log instead of sending it.
type LogMailer struct {
	Logger *zap.Logger
}

func (m LogMailer) Send(_ context.Context, mail Mail) error {
	loggerOrNop(m.Logger).Info("ticket mail",
		zap.String("from", mail.From),
		zap.Strings("to", mail.To),
		zap.String("subject", mail.Subject))
	return nil
}

// NotificationService mails ticket participants when tickets change.
type NotificationService struct {
	repos  repository.Repositories
	mailer Mailer
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NotificationDependencies bundles collaborators.
type NotificationDependencies struct {
	Repos  repository.Repositories
	Mailer Mailer
	Logger *zap.Logger
	Config config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := loggerOrNop(deps.Logger)
	mailer := deps.Mailer
	if mailer == nil {
		mailer = LogMailer{Logger: logger}
	}
	return &NotificationService{repos: deps.Repos, mailer: mailer, logger: logger, cfg: deps.Config}
}

// Handle turns a ticket event into mail to its participants.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	ticket, err := n.repos.Tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			n.logger.Warn("notification for missing ticket", zap.Int64("ticket_id", event.TicketID))
			return nil
		}
		return fmt.Errorf("load ticket %d: %w", event.TicketID, err)
	}

	var requester *domain.User
	if ticket.RequesterID != nil {
		requester, err = n.repos.Users.GetByID(ctx, *ticket.RequesterID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("load requester: %w", err)
		}
	}

	to := Recipients(requester, ticket)
	if len(to) == 0 {
		n.logger.Debug("no recipients", zap.Int64("ticket_id", ticket.ID), zap.String("event_type", string(event.Type)))
		return nil
	}
	mail := Mail{
		From:    n.cfg.EmailFrom,
		To:      to,
		Subject: subjectFor(event, ticket),
		Body:    bodyFor(event, ticket),
	}
	if err := n.mailer.Send(ctx, mail); err != nil {
		return fmt.Errorf("send ticket mail: %w", err)
	}
	return nil
}

// Recipients lists the requester, ticket TAMs and support users' addresses,
// normalized and without duplicates, in that order.
func Recipients(requester *domain.User, ticket *domain.Ticket) []string {
	var all []string
	if requester != nil {
		all = append(all, requester.Email)
	}
	for _, u := range ticket.TAMs {
		all = append(all, u.Email)
	}
	for _, a := range ticket.Support {
		all = append(all, a.User.Email)
	}
	normalized := lo.FilterMap(all, func(email string, _ int) (string, bool) {
		email = strings.ToLower(strings.TrimSpace(email))
		return email, email != ""
	})
	return lo.Uniq(normalized)
}

func subjectFor(event events.Event, ticket *domain.Ticket) string {
	switch event.Type {
	case events.EventTicketCreated:
		return fmt.Sprintf("[%s] Ticket opened", ticket.Name)
	case events.EventTicketStatusChanged:
		return fmt.Sprintf("[%s] Status: %s", ticket.Name, triage.DisplayStatus(ticket))
	case events.EventTicketAssigned:
		return fmt.Sprintf("[%s] Ticket assigned", ticket.Name)
	default:
		return fmt.Sprintf("[%s] New message", ticket.Name)
	}
}

func bodyFor(event events.Event, ticket *domain.Ticket) string {
	status := triage.DisplayStatus(ticket)
	switch p := event.Payload.(type) {
	case events.TicketStatusChangedPayload:
		return fmt.Sprintf("Ticket %s moved from %s to %s.", ticket.Name, p.OldStatus, p.NewStatus)
	case events.TicketMessageAddedPayload:
		return fmt.Sprintf("Ticket %s (%s):\n\n%s", ticket.Name, status, p.BodyPreview)
	default:
		return fmt.Sprintf("Ticket %s is %s.", ticket.Name, status)
	}
}
