package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Triage         *handlers.TriageHandler
	Tickets        *handlers.TicketsHandler
	Catalog        *handlers.CatalogHandler
	Mail           *handlers.MailHandler
	MailToken      string
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	// The alarm poll is registered before the authenticated group so
	// anonymous callers reach it.
	app.Get("/tickets/alarm/status", cfg.AuthMiddleware.Optional, cfg.Triage.AlarmStatus)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Triage.Assigned)
	tickets.Get("/open", cfg.Triage.Open)
	tickets.Get("/closed", cfg.Triage.Closed)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/assign", auth.RequireType(domain.UserTypeSupport), cfg.Tickets.AssignToSelf)
	tickets.Post("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)

	if cfg.Mail != nil {
		app.Post("/mail/incoming", auth.RequireGatewayToken(cfg.MailToken), cfg.Mail.Incoming)
	}

	catalog := app.Group("/catalog", cfg.AuthMiddleware.Handle)
	catalog.Get("/support-levels", cfg.Catalog.SupportLevels)
	catalog.Get("/companies/:companyId/entitlements", cfg.Catalog.CompanyEntitlements)
	catalog.Get("/companies/:companyId/next-ticket-name", cfg.Catalog.NextTicketName)
	catalog.Delete("/company-entitlements/:id", auth.RequireType(domain.UserTypeAdmin), cfg.Catalog.DeleteCompanyEntitlement)
}
