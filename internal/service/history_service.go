package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// HistoryService keeps the audit trail of ticket events.
type HistoryService struct {
	repos  repository.Repositories
	logger *zap.Logger
}

// NewHistoryService constructs the service.
func NewHistoryService(repos repository.Repositories, logger *zap.Logger) *HistoryService {
	return &HistoryService{repos: repos, logger: loggerOrNop(logger)}
}

// RegisterHandlers records every ticket event.
func (s *HistoryService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketStatusChanged,
		events.EventTicketAssigned,
		events.EventTicketMessageAdded,
	} {
		dispatcher.Subscribe(eventType, s.Record)
	}
}

// Record stores one event as a history entry.
func (s *HistoryService) Record(ctx context.Context, event events.Event) error {
	entry := historyEntry(event)
	if err := s.repos.History.Create(ctx, &entry); err != nil {
		return fmt.Errorf("record %s for ticket %d: %w", event.Type, event.TicketID, err)
	}
	return nil
}

// List returns a visible ticket's history, oldest first.
func (s *HistoryService) List(ctx context.Context, actor *domain.User, ticketID int64) ([]domain.HistoryEntry, error) {
	viewer, err := ViewerFor(actor)
	if err != nil {
		return nil, err
	}
	if _, err := loadTicket(ctx, s.repos.Tickets, viewer, ticketID); err != nil {
		return nil, err
	}
	entries, err := s.repos.History.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return entries, nil
}

func historyEntry(event events.Event) domain.HistoryEntry {
	entry := domain.HistoryEntry{
		TicketID:  event.TicketID,
		EventType: string(event.Type),
		ActorType: event.Actor.Type,
		ActorID:   event.Actor.UserID,
		CreatedAt: event.Timestamp,
	}
	switch p := event.Payload.(type) {
	case events.TicketCreatedPayload:
		entry.NewValue = &p.Name
	case events.TicketStatusChangedPayload:
		entry.OldValue = &p.OldStatus
		entry.NewValue = &p.NewStatus
	case events.TicketAssignedPayload:
		id := strconv.FormatInt(p.SupportUserID, 10)
		entry.NewValue = &id
	case events.TicketMessageAddedPayload:
		id := strconv.FormatInt(p.MessageID, 10)
		entry.NewValue = &id
	}
	return entry
}
