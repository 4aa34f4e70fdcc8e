package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/triage"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

// CatalogService exposes support levels and company entitlements.
type CatalogService struct {
	repos  repository.Repositories
	tx     repository.TxRunner
	engine *triage.Engine
	logger *zap.Logger
}

// CatalogDependencies bundles collaborators for the catalog service.
type CatalogDependencies struct {
	Repos  repository.Repositories
	Tx     repository.TxRunner
	Engine *triage.Engine
	Logger *zap.Logger
}

// EntitlementStatus is a company entitlement with its expiry as of today.
type EntitlementStatus struct {
	domain.CompanyEntitlement
	Expired bool
}

// NewCatalogService constructs the service.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	return &CatalogService{
		repos:  deps.Repos,
		tx:     deps.Tx,
		engine: deps.Engine,
		logger: loggerOrNop(deps.Logger),
	}
}

// SupportLevels lists all support levels.
func (s *CatalogService) SupportLevels(ctx context.Context) ([]domain.SupportLevel, error) {
	levels, err := s.repos.Catalog.ListSupportLevels(ctx)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return levels, nil
}

// CompanyEntitlements lists a company's entitlements flagged with expiry.
// Non-staff callers must belong to the company.
func (s *CatalogService) CompanyEntitlements(ctx context.Context, actor *domain.User, companyID int64) ([]EntitlementStatus, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	staff := actor.IsSupport() || actor.Type == domain.UserTypeAdmin
	if !staff && !lo.Contains(actor.CompanyIDs, companyID) {
		return nil, apperrors.NewForbidden("not a member of this company")
	}
	entitlements, err := s.repos.Catalog.ListCompanyEntitlements(ctx, companyID)
	if err != nil {
		return nil, apperrors.ToDomainError(err)
	}
	return lo.Map(entitlements, func(ce domain.CompanyEntitlement, _ int) EntitlementStatus {
		return EntitlementStatus{CompanyEntitlement: ce, Expired: s.engine.Expired(&ce)}
	}), nil
}

// DeleteCompanyEntitlement removes an entitlement no ticket refers to.
func (s *CatalogService) DeleteCompanyEntitlement(ctx context.Context, actor *domain.User, id int64) error {
	if actor == nil || actor.Type != domain.UserTypeAdmin {
		return apperrors.NewForbidden("admin required")
	}
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Catalog.GetCompanyEntitlement(ctx, id); err != nil {
			return err
		}
		count, err := repos.Tickets.CountByCompanyEntitlement(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewConflict("company entitlement is referenced by tickets",
				map[string]any{"company_entitlement_id": id, "tickets": count})
		}
		return repos.Catalog.DeleteCompanyEntitlement(ctx, id)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("company entitlement", map[string]any{"company_entitlement_id": id})
	}
	if err != nil {
		return apperrors.ToDomainError(err)
	}
	s.logger.Info("company entitlement deleted", zap.Int64("company_entitlement_id", id), zap.Int64("actor_id", actor.ID))
	return nil
}
