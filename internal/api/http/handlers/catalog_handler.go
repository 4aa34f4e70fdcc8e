package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
)

const dateLayout = "2006-01-02"

// CatalogHandler exposes support levels and company entitlements.
type CatalogHandler struct {
	catalog *service.CatalogService
	tickets *service.TicketService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalog *service.CatalogService, tickets *service.TicketService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, tickets: tickets}
}

// SupportLevels GET /catalog/support-levels.
func (h *CatalogHandler) SupportLevels(c *fiber.Ctx) error {
	levels, err := h.catalog.SupportLevels(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lo.Map(levels, func(l domain.SupportLevel, _ int) dto.SupportLevelResponse {
		return supportLevelResponse(l)
	})})
}

// CompanyEntitlements GET /catalog/companies/:companyId/entitlements.
func (h *CatalogHandler) CompanyEntitlements(c *fiber.Ctx) error {
	companyID, err := pathID(c, "companyId")
	if err != nil {
		return err
	}
	list, err := h.catalog.CompanyEntitlements(c.UserContext(), auth.UserFromContext(c), companyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": lo.Map(list, func(e service.EntitlementStatus, _ int) dto.CompanyEntitlementResponse {
		return companyEntitlementResponse(e)
	})})
}

// NextTicketName GET /catalog/companies/:companyId/next-ticket-name.
func (h *CatalogHandler) NextTicketName(c *fiber.Ctx) error {
	companyID, err := pathID(c, "companyId")
	if err != nil {
		return err
	}
	name, err := h.tickets.PreviewName(c.UserContext(), auth.UserFromContext(c), companyID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TicketNameResponse{CompanyID: companyID, Name: name}})
}

// DeleteCompanyEntitlement DELETE /catalog/company-entitlements/:id.
func (h *CatalogHandler) DeleteCompanyEntitlement(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.catalog.DeleteCompanyEntitlement(c.UserContext(), auth.UserFromContext(c), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func supportLevelResponse(l domain.SupportLevel) dto.SupportLevelResponse {
	return dto.SupportLevelResponse{
		ID:            l.ID,
		Name:          l.Name,
		Description:   l.Description,
		Critical:      l.Critical,
		CriticalColor: l.CriticalColor,
		Escalate:      l.Escalate,
		EscalateColor: l.EscalateColor,
		Normal:        l.Normal,
		NormalColor:   l.NormalColor,
		Level:         l.Level,
		Color:         l.Color,
	}
}

func companyEntitlementResponse(e service.EntitlementStatus) dto.CompanyEntitlementResponse {
	resp := dto.CompanyEntitlementResponse{
		ID:        e.ID,
		CompanyID: e.CompanyID,
		Duration:  string(e.Duration),
		Expired:   e.Expired,
	}
	if e.Entitlement != nil {
		resp.Entitlement = &dto.EntitlementResponse{
			ID:    e.Entitlement.ID,
			Name:  e.Entitlement.Name,
			Price: e.Entitlement.Price.StringFixed(2),
		}
	}
	if e.SupportLevel != nil {
		level := supportLevelResponse(*e.SupportLevel)
		resp.SupportLevel = &level
	}
	if e.Date != nil {
		start := e.Date.Format(dateLayout)
		resp.StartDate = &start
	}
	return resp
}
