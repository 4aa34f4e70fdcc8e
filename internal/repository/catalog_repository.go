package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CatalogRepository reads support levels and company entitlements.
type CatalogRepository interface {
	ListSupportLevels(ctx context.Context) ([]domain.SupportLevel, error)
	GetCompanyEntitlement(ctx context.Context, id int64) (*domain.CompanyEntitlement, error)
	ListCompanyEntitlements(ctx context.Context, companyID int64) ([]domain.CompanyEntitlement, error)
	DeleteCompanyEntitlement(ctx context.Context, id int64) error
}

type catalogRepository struct {
	db DBTX
}

// NewCatalogRepository instantiates repository.
func NewCatalogRepository(db DBTX) CatalogRepository {
	return &catalogRepository{db: db}
}

const levelColumns = `sl.id, sl.name, sl.description, sl.critical, sl.critical_color, sl.escalate,
               sl.escalate_color, sl.normal, sl.normal_color, sl.level, sl.color`

const companyEntitlementSelect = `
        SELECT ce.id, ce.company_id, ce.start_date, ce.duration,
               e.id, e.name, e.description, e.price::text,
               ` + levelColumns + `
        FROM company_entitlements ce
        LEFT JOIN entitlements e ON e.id = ce.entitlement_id
        LEFT JOIN support_levels sl ON sl.id = ce.support_level_id`

func (r *catalogRepository) ListSupportLevels(ctx context.Context) ([]domain.SupportLevel, error) {
	rows, err := r.db.Query(ctx, `SELECT `+levelColumns+` FROM support_levels sl ORDER BY sl.level NULLS LAST, sl.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var levels []domain.SupportLevel
	for rows.Next() {
		var level nullableLevel
		if err := rows.Scan(level.dest()...); err != nil {
			return nil, err
		}
		if v := level.value(); v != nil {
			levels = append(levels, *v)
		}
	}
	return levels, rows.Err()
}

func (r *catalogRepository) GetCompanyEntitlement(ctx context.Context, id int64) (*domain.CompanyEntitlement, error) {
	ce, err := scanCompanyEntitlement(r.db.QueryRow(ctx, companyEntitlementSelect+"\n        WHERE ce.id = $1", id))
	if err != nil {
		return nil, err
	}
	if err := r.attachLevels(ctx, []*domain.CompanyEntitlement{ce}); err != nil {
		return nil, err
	}
	return ce, nil
}

func (r *catalogRepository) ListCompanyEntitlements(ctx context.Context, companyID int64) ([]domain.CompanyEntitlement, error) {
	rows, err := r.db.Query(ctx, companyEntitlementSelect+"\n        WHERE ce.company_id = $1 ORDER BY ce.id", companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CompanyEntitlement
	for rows.Next() {
		ce, err := scanCompanyEntitlement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ce)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ptrs := make([]*domain.CompanyEntitlement, len(result))
	for i := range result {
		ptrs[i] = &result[i]
	}
	if err := r.attachLevels(ctx, ptrs); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *catalogRepository) DeleteCompanyEntitlement(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM company_entitlements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *catalogRepository) attachLevels(ctx context.Context, ces []*domain.CompanyEntitlement) error {
	ids := lo.Uniq(lo.FilterMap(ces, func(ce *domain.CompanyEntitlement, _ int) (int64, bool) {
		if ce.Entitlement == nil {
			return 0, false
		}
		return ce.Entitlement.ID, true
	}))
	levels, err := entitlementLevels(ctx, r.db, ids)
	if err != nil {
		return err
	}
	for _, ce := range ces {
		if ce.Entitlement != nil {
			ce.Entitlement.SupportLevels = levels[ce.Entitlement.ID]
		}
	}
	return nil
}

func scanCompanyEntitlement(row pgx.Row) (*domain.CompanyEntitlement, error) {
	var (
		ce       domain.CompanyEntitlement
		date     *time.Time
		duration string
		eID      *int64
		eName    *string
		eDesc    *string
		ePrice   *string
		level    nullableLevel
	)
	dest := []any{&ce.ID, &ce.CompanyID, &date, &duration, &eID, &eName, &eDesc, &ePrice}
	if err := row.Scan(append(dest, level.dest()...)...); err != nil {
		return nil, err
	}
	ce.Date = date
	ce.Duration = domain.ParseDuration(duration)
	ce.SupportLevel = level.value()
	if eID != nil {
		ent, err := buildEntitlement(*eID, lo.FromPtr(eName), lo.FromPtr(eDesc), lo.FromPtr(ePrice))
		if err != nil {
			return nil, err
		}
		ce.Entitlement = ent
	}
	return &ce, nil
}

// entitlementLevels loads the support levels offered by each entitlement.
func entitlementLevels(ctx context.Context, db DBTX, entitlementIDs []int64) (map[int64][]domain.SupportLevel, error) {
	result := make(map[int64][]domain.SupportLevel, len(entitlementIDs))
	if len(entitlementIDs) == 0 {
		return result, nil
	}
	rows, err := db.Query(ctx, `
        SELECT esl.entitlement_id, `+levelColumns+`
        FROM entitlement_support_levels esl
        JOIN support_levels sl ON sl.id = esl.support_level_id
        WHERE esl.entitlement_id = ANY($1)
        ORDER BY esl.entitlement_id, sl.level NULLS LAST, sl.id`, entitlementIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var entitlementID int64
		var level nullableLevel
		if err := rows.Scan(append([]any{&entitlementID}, level.dest()...)...); err != nil {
			return nil, err
		}
		if v := level.value(); v != nil {
			result[entitlementID] = append(result[entitlementID], *v)
		}
	}
	return result, rows.Err()
}

func buildEntitlement(id int64, name, description, price string) (*domain.Entitlement, error) {
	ent := &domain.Entitlement{ID: id, Name: name, Description: description}
	if price != "" {
		p, err := decimal.NewFromString(price)
		if err != nil {
			return nil, fmt.Errorf("entitlement %d price: %w", id, err)
		}
		ent.Price = p
	}
	return ent, nil
}

// nullableLevel scans a support level that may be absent from an outer join.
type nullableLevel struct {
	id            *int64
	name          *string
	description   *string
	critical      *int
	criticalColor *string
	escalate      *int
	escalateColor *string
	normal        *int
	normalColor   *string
	level         *int
	color         *string
}

func (n *nullableLevel) dest() []any {
	return []any{
		&n.id, &n.name, &n.description,
		&n.critical, &n.criticalColor,
		&n.escalate, &n.escalateColor,
		&n.normal, &n.normalColor,
		&n.level, &n.color,
	}
}

func (n *nullableLevel) value() *domain.SupportLevel {
	if n.id == nil {
		return nil
	}
	return &domain.SupportLevel{
		ID:            *n.id,
		Name:          lo.FromPtr(n.name),
		Description:   lo.FromPtr(n.description),
		Critical:      n.critical,
		CriticalColor: lo.FromPtr(n.criticalColor),
		Escalate:      n.escalate,
		EscalateColor: lo.FromPtr(n.escalateColor),
		Normal:        n.normal,
		NormalColor:   lo.FromPtr(n.normalColor),
		Level:         n.level,
		Color:         lo.FromPtr(n.color),
	}
}
