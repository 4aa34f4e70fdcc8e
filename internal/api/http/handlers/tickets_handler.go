package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/triage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
	history     *service.HistoryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, assignments *service.AssignmentService, history *service.HistoryService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, assignments: assignments, history: history}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.CompanyEntitlementID <= 0 || strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("company_entitlement_id and message required", nil)
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), user, service.TicketCreateInput{
		CompanyEntitlementID: req.CompanyEntitlementID,
		Message:              req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return apperrors.NewUnauthorized("user required")
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.tickets.Detail(c.UserContext(), user, id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(detail)})
}

// AssignToSelf POST /tickets/:id/assign.
func (h *TicketsHandler) AssignToSelf(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	ticket, err := h.assignments.AssignToSelf(c.UserContext(), auth.UserFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateStatus POST /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Status) == "" {
		return apperrors.NewValidationError("status required", nil)
	}
	ticket, err := h.tickets.UpdateStatus(c.UserContext(), auth.UserFromContext(c), id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" {
		return apperrors.NewValidationError("body required", nil)
	}
	user := auth.UserFromContext(c)
	msg, err := h.tickets.AddMessage(c.UserContext(), user, id, req.Body)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": messageResponse(msg)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.history.List(c.UserContext(), auth.UserFromContext(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lo.Map(entries, func(e domain.HistoryEntry, _ int) dto.HistoryResponse {
		return dto.HistoryResponse{
			ID:        e.ID,
			EventType: e.EventType,
			ActorType: string(e.ActorType),
			ActorID:   e.ActorID,
			OldValue:  e.OldValue,
			NewValue:  e.NewValue,
			CreatedAt: e.CreatedAt,
		}
	})})
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: c.Params(name)})
	}
	return id, nil
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:          ticket.ID,
		Name:        ticket.Name,
		Status:      triage.DisplayStatus(ticket),
		CompanyID:   ticket.CompanyID,
		RequesterID: ticket.RequesterID,
		CreatedAt:   ticket.CreatedAt,
	}
}

func ticketSummary(view triage.TicketView) dto.TicketSummary {
	summary := dto.TicketSummary{
		ID:           view.ID,
		Name:         view.Name,
		Status:       view.DisplayStatus,
		CompanyID:    view.CompanyID,
		CompanyName:  view.CompanyName,
		Severity:     view.Severity,
		LastActivity: view.LastActivity,
		SupportLevel: view.LevelName,
		LowestLevel:  view.LowestLevelName,
		Expired:      view.Expired,
		CreatedAt:    view.CreatedAt,
	}
	if view.LatestAssignee != nil {
		assignee := userResponse(*view.LatestAssignee)
		summary.LatestAssignee = &assignee
	}
	return summary
}

func ticketDetail(detail *service.TicketDetail) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(detail.View),
		Messages: lo.Map(detail.Messages, func(m domain.Message, _ int) dto.MessageResponse {
			return messageResponse(&m)
		}),
		Support: lo.Map(detail.Support, func(u domain.User, _ int) dto.UserResponse { return userResponse(u) }),
		AccountManagers: lo.Map(detail.AccountManagers, func(u domain.User, _ int) dto.UserResponse {
			return userResponse(u)
		}),
	}
}

func messageResponse(msg *domain.Message) dto.MessageResponse {
	resp := dto.MessageResponse{
		ID:        msg.ID,
		TicketID:  msg.TicketID,
		Body:      msg.Body,
		CreatedAt: msg.CreatedAt,
	}
	if msg.Author != nil {
		author := userResponse(*msg.Author)
		resp.Author = &author
	}
	return resp
}

func userResponse(u domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         u.ID,
		Name:       u.DisplayName(),
		Email:      u.Email,
		Type:       string(u.Type),
		CompanyIDs: u.CompanyIDs,
	}
}
