package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/triage"
)

const (
	bucketAssigned = "assigned"
	bucketOpen     = "open"
	bucketClosed   = "closed"
)

// TriageHandler serves the ticket boards and the escalation alarm poll.
type TriageHandler struct {
	boards *service.TriageService
	alarms *service.AlarmService
	logger *zap.Logger
}

// NewTriageHandler constructs handler.
func NewTriageHandler(boards *service.TriageService, alarms *service.AlarmService, logger *zap.Logger) *TriageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TriageHandler{boards: boards, alarms: alarms, logger: logger}
}

// Assigned GET /tickets.
func (h *TriageHandler) Assigned(c *fiber.Ctx) error {
	return h.bucket(c, bucketAssigned)
}

// Open GET /tickets/open.
func (h *TriageHandler) Open(c *fiber.Ctx) error {
	return h.bucket(c, bucketOpen)
}

// Closed GET /tickets/closed.
func (h *TriageHandler) Closed(c *fiber.Ctx) error {
	return h.bucket(c, bucketClosed)
}

func (h *TriageHandler) bucket(c *fiber.Ctx, name string) error {
	viewer, err := service.ViewerFor(auth.UserFromContext(c))
	if err != nil {
		return err
	}
	board, err := h.boards.Board(c.UserContext(), viewer)
	if err != nil {
		return err
	}

	views := board.Assigned
	switch name {
	case bucketOpen:
		views = board.Open
	case bucketClosed:
		views = board.Closed
	}
	return c.JSON(fiber.Map{"data": dto.BoardResponse{
		Bucket:  name,
		Tickets: lo.Map(views, func(v triage.TicketView, _ int) dto.TicketSummary { return ticketSummary(v) }),
		Counts: dto.BoardCounts{
			Assigned: len(board.Assigned),
			Open:     len(board.Open),
			Closed:   len(board.Closed),
		},
	}})
}

// AlarmStatus GET /tickets/alarm/status. Answers "true" or "false" as plain
// text; anonymous callers and roles without a board always get "false".
func (h *TriageHandler) AlarmStatus(c *fiber.Ctx) error {
	var viewer *triage.Viewer
	if user := auth.UserFromContext(c); user != nil {
		v, err := service.ViewerFor(user)
		if err == nil {
			viewer = v
		}
	}

	raised, err := h.alarms.HasAlarm(c.UserContext(), viewer)
	if err != nil {
		h.logger.Warn("alarm evaluation failed", zap.Error(err))
		raised = false
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(strconv.FormatBool(raised))
}
