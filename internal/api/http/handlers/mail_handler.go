package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/service"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// MailHandler receives mail relayed by the inbound gateway.
type MailHandler struct {
	tickets *service.TicketService
}

// NewMailHandler constructs handler.
func NewMailHandler(tickets *service.TicketService) *MailHandler {
	return &MailHandler{tickets: tickets}
}

// Incoming POST /mail/incoming. Replies with the ticket name, or 202 with
// the reason when the mail was dropped.
func (h *MailHandler) Incoming(c *fiber.Ctx) error {
	var req dto.IncomingMailRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.tickets.IngestMail(c.UserContext(), service.InboundMail{
		From:    req.From,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		return err
	}
	if !result.Filed() {
		return c.Status(fiber.StatusAccepted).SendString(result.Ignored)
	}
	return c.SendString(result.Ticket.Name)
}
