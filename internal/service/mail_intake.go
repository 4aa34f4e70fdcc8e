package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// subjectTicketTag finds the first bracketed token, as in "Re: [AcmeCo-00012] printer".
var subjectTicketTag = regexp.MustCompile(`\[([^\]]+)\]`)

// InboundMail is a message handed over by the mail gateway.
type InboundMail struct {
	From    string
	Subject string
	Body    string
}

// MailIntake reports what happened to an inbound mail. A mail that could
// not be matched is dropped with a reason rather than failing the gateway.
type MailIntake struct {
	Ticket  *domain.Ticket
	Message *domain.Message
	Created bool
	Ignored string
}

// Filed reports whether the mail ended up on a ticket.
func (m MailIntake) Filed() bool {
	return m.Ticket != nil && m.Ignored == ""
}

// IngestMail files an inbound mail. A subject carrying a ticket name
// appends to that ticket when the sender is its requester or a member of
// its company. Without a ticket name a new ticket is opened for the
// sender's first company on its first entitlement.
func (s *TicketService) IngestMail(ctx context.Context, mail InboundMail) (MailIntake, error) {
	body := strings.TrimSpace(mail.Body)
	if body == "" {
		return MailIntake{}, apperrors.NewValidationError("body is required", map[string]any{"field": "body"})
	}
	from := strings.ToLower(strings.TrimSpace(mail.From))
	if from == "" {
		return s.ignoreMail(from, "missing sender"), nil
	}
	sender, err := s.repos.Users.GetByEmail(ctx, from)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.ignoreMail(from, "unknown sender"), nil
		}
		return MailIntake{}, apperrors.ToDomainError(err)
	}
	ticketName := ticketNameFromSubject(mail.Subject)

	var result MailIntake
	err = s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var ticket *domain.Ticket
		if ticketName != "" {
			ticket, err = repos.Tickets.GetByName(ctx, ticketName)
			if errors.Is(err, pgx.ErrNoRows) {
				result.Ignored = "unknown ticket " + ticketName
				return nil
			}
			if err != nil {
				return err
			}
			if !senderBelongsTo(sender, ticket) {
				result.Ignored = "sender is not on ticket " + ticket.Name
				return nil
			}
		} else {
			if len(sender.CompanyIDs) == 0 {
				result.Ignored = "sender has no company"
				return nil
			}
			ticket, err = s.openTicketFromMail(ctx, repos, sender, lo.Min(sender.CompanyIDs))
			if err != nil {
				return err
			}
			result.Created = true
		}

		authorID := sender.ID
		msg := &domain.Message{TicketID: ticket.ID, Body: body, AuthorID: &authorID, Author: sender, CreatedAt: s.engine.Now()}
		if err := repos.Messages.Create(ctx, msg); err != nil {
			return err
		}
		result.Ticket, result.Message = ticket, msg
		return nil
	})
	if err != nil {
		return MailIntake{}, apperrors.ToDomainError(err)
	}
	if result.Ignored != "" {
		return s.ignoreMail(from, result.Ignored), nil
	}

	ticket, msg := result.Ticket, result.Message
	actor := events.ActorFor(sender)
	s.logger.Info("inbound mail filed",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("name", ticket.Name),
		zap.Bool("created", result.Created))
	if result.Created {
		publishEvent(ctx, s.dispatcher, events.New(events.EventTicketCreated, ticket.ID, actor, msg.CreatedAt,
			events.TicketCreatedPayload{
				Name:                 ticket.Name,
				CompanyID:            ticket.CompanyID,
				CompanyEntitlementID: ticket.CompanyEntitlement.ID,
				MessageID:            msg.ID,
			}))
	}
	publishEvent(ctx, s.dispatcher, events.New(events.EventTicketMessageAdded, ticket.ID, actor, msg.CreatedAt,
		events.TicketMessageAddedPayload{MessageID: msg.ID, AuthorID: msg.AuthorID, BodyPreview: preview(body)}))
	return result, nil
}

func (s *TicketService) openTicketFromMail(ctx context.Context, repos repository.Repositories, sender *domain.User, companyID int64) (*domain.Ticket, error) {
	company, err := repos.Companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	list, err := repos.Catalog.ListCompanyEntitlements(ctx, companyID)
	if err != nil {
		return nil, err
	}
	ce, ok := intakeEntitlement(list)
	if !ok {
		return nil, apperrors.NewValidationError("entitlement is required to create ticket from email",
			map[string]any{"company_id": companyID})
	}
	seq, err := repos.Companies.NextTicketSequence(ctx, companyID)
	if err != nil {
		return nil, err
	}

	requesterID := sender.ID
	ticket := &domain.Ticket{
		Name:               domain.FormatTicketName(company.Name, seq),
		Status:             domain.StatusOpen,
		CompanyID:          company.ID,
		CompanyName:        company.Name,
		RequesterID:        &requesterID,
		CompanyEntitlement: &ce,
	}
	if err := repos.Tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, backfillAccountManagers(ctx, repos, ticket)
}

func (s *TicketService) ignoreMail(from, reason string) MailIntake {
	s.logger.Warn("ignoring inbound mail", zap.String("from", from), zap.String("reason", reason))
	return MailIntake{Ignored: reason}
}

func ticketNameFromSubject(subject string) string {
	m := subjectTicketTag.FindStringSubmatch(subject)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func senderBelongsTo(sender *domain.User, ticket *domain.Ticket) bool {
	if ticket.RequesterID != nil && *ticket.RequesterID == sender.ID {
		return true
	}
	return lo.Contains(sender.CompanyIDs, ticket.CompanyID)
}

// intakeEntitlement picks the entitlement a mailed-in ticket is opened on:
// lowest entitlement name, then support level rank, then level id. Rows
// missing their entitlement or level are skipped.
func intakeEntitlement(list []domain.CompanyEntitlement) (domain.CompanyEntitlement, bool) {
	usable := lo.Filter(list, func(ce domain.CompanyEntitlement, _ int) bool {
		return ce.Entitlement != nil && ce.SupportLevel != nil
	})
	if len(usable) == 0 {
		return domain.CompanyEntitlement{}, false
	}
	return lo.MinBy(usable, func(a, b domain.CompanyEntitlement) bool {
		if a.Entitlement.Name != b.Entitlement.Name {
			return a.Entitlement.Name < b.Entitlement.Name
		}
		la, lb := a.SupportLevel.Level, b.SupportLevel.Level
		switch {
		case la != nil && lb != nil && *la != *lb:
			return *la < *lb
		case la != nil && lb == nil:
			return true
		case la == nil && lb != nil:
			return false
		}
		if a.SupportLevel.ID != b.SupportLevel.ID {
			return a.SupportLevel.ID < b.SupportLevel.ID
		}
		return a.ID < b.ID
	}), true
}
