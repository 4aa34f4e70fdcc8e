package repository

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CompanyRepository reads companies and allocates ticket numbers.
type CompanyRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Company, error)
	// NextTicketSequence advances and returns the company's ticket counter.
	// An unset counter starts from the company's ticket count.
	NextTicketSequence(ctx context.Context, companyID int64) (int64, error)
	// CurrentTicketSequence returns the last allocated number without advancing it.
	CurrentTicketSequence(ctx context.Context, companyID int64) (int64, error)
}

type companyRepository struct {
	db DBTX
}

// NewCompanyRepository instantiates repository.
func NewCompanyRepository(db DBTX) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) GetByID(ctx context.Context, id int64) (*domain.Company, error) {
	var c domain.Company
	err := r.db.QueryRow(ctx, `SELECT id, name, ticket_sequence FROM companies WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.TicketSequence)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *companyRepository) NextTicketSequence(ctx context.Context, companyID int64) (int64, error) {
	const query = `
        UPDATE companies c
        SET ticket_sequence = COALESCE(c.ticket_sequence,
            (SELECT COUNT(*) FROM tickets t WHERE t.company_id = c.id)) + 1
        WHERE c.id = $1
        RETURNING c.ticket_sequence`
	var next int64
	err := r.db.QueryRow(ctx, query, companyID).Scan(&next)
	return next, err
}

func (r *companyRepository) CurrentTicketSequence(ctx context.Context, companyID int64) (int64, error) {
	const query = `
        SELECT COALESCE(c.ticket_sequence,
            (SELECT COUNT(*) FROM tickets t WHERE t.company_id = c.id))
        FROM companies c WHERE c.id = $1`
	var current int64
	err := r.db.QueryRow(ctx, query, companyID).Scan(&current)
	return current, err
}
