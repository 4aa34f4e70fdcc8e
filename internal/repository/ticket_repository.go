package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"github.com/spec-kit/support-desk/internal/domain"
)

// TicketFilter scopes ticket listings. Zero value lists everything.
type TicketFilter struct {
	RequesterID *int64
	// AccountManagerID matches tickets the user manages directly or that
	// belong to a company the user is a member of.
	AccountManagerID *int64
	// SupportQueueOf matches tickets assigned to the user or to nobody.
	SupportQueueOf *int64
	ExcludeClosed  bool
}

// TicketRepository encapsulates ticket persistence. Listed tickets come
// back with company, entitlement, support level, assignees and TAMs loaded.
type TicketRepository interface {
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetByName returns the newest ticket carrying the name.
	GetByName(ctx context.Context, name string) (*domain.Ticket, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	AddSupport(ctx context.Context, ticketID, userID int64, at time.Time) (bool, error)
	AddTAMs(ctx context.Context, ticketID int64, userIDs []int64) error
	CountByCompanyEntitlement(ctx context.Context, companyEntitlementID int64) (int64, error)
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketSelect = `
        SELECT t.id, t.name, t.status, t.company_id, c.name, t.requester_id, t.created_at,
               ce.id, ce.company_id, ce.start_date, ce.duration,
               e.id, e.name, e.description, e.price::text,
               ` + levelColumns + `
        FROM tickets t
        JOIN companies c ON c.id = t.company_id
        LEFT JOIN company_entitlements ce ON ce.id = t.company_entitlement_id
        LEFT JOIN entitlements e ON e.id = ce.entitlement_id
        LEFT JOIN support_levels sl ON sl.id = ce.support_level_id`

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.RequesterID != nil {
		clauses = append(clauses, "t.requester_id = "+next(*filter.RequesterID))
	}
	if filter.AccountManagerID != nil {
		p := next(*filter.AccountManagerID)
		clauses = append(clauses, fmt.Sprintf(`(EXISTS (SELECT 1 FROM ticket_tams tt WHERE tt.ticket_id = t.id AND tt.user_id = %[1]s)
            OR EXISTS (SELECT 1 FROM company_users cu WHERE cu.company_id = t.company_id AND cu.user_id = %[1]s))`, p))
	}
	if filter.SupportQueueOf != nil {
		p := next(*filter.SupportQueueOf)
		clauses = append(clauses, fmt.Sprintf(`(NOT EXISTS (SELECT 1 FROM ticket_supports s WHERE s.ticket_id = t.id)
            OR EXISTS (SELECT 1 FROM ticket_supports s WHERE s.ticket_id = t.id AND s.user_id = %s))`, p))
	}
	if filter.ExcludeClosed {
		clauses = append(clauses, "LOWER(TRIM(t.status)) <> 'closed'")
	}

	query := ticketSelect + "\n        WHERE " + strings.Join(clauses, " AND ") + "\n        ORDER BY t.id"
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadRelations(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, ticketSelect+"\n        WHERE t.id = $1", id))
	if err != nil {
		return nil, err
	}
	tickets := []domain.Ticket{*ticket}
	if err := r.loadRelations(ctx, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

func (r *ticketRepository) GetByName(ctx context.Context, name string) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.db.QueryRow(ctx, ticketSelect+"\n        WHERE t.name = $1\n        ORDER BY t.id DESC\n        LIMIT 1", name))
	if err != nil {
		return nil, err
	}
	tickets := []domain.Ticket{*ticket}
	if err := r.loadRelations(ctx, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (name, status, company_id, requester_id, company_entitlement_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	var ceID *int64
	if ticket.CompanyEntitlement != nil {
		ceID = &ticket.CompanyEntitlement.ID
	}
	return r.db.QueryRow(ctx, query,
		ticket.Name,
		ticket.Status,
		ticket.CompanyID,
		ticket.RequesterID,
		ceID,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE tickets SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AddSupport attaches a support user; it reports false when already attached.
func (r *ticketRepository) AddSupport(ctx context.Context, ticketID, userID int64, at time.Time) (bool, error) {
	const query = `
        INSERT INTO ticket_supports (ticket_id, user_id, assigned_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (ticket_id, user_id) DO NOTHING`
	cmd, err := r.db.Exec(ctx, query, ticketID, userID, at)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) AddTAMs(ctx context.Context, ticketID int64, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	const query = `
        INSERT INTO ticket_tams (ticket_id, user_id)
        SELECT $1, UNNEST($2::bigint[])
        ON CONFLICT (ticket_id, user_id) DO NOTHING`
	_, err := r.db.Exec(ctx, query, ticketID, userIDs)
	return err
}

func (r *ticketRepository) CountByCompanyEntitlement(ctx context.Context, companyEntitlementID int64) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE company_entitlement_id = $1`, companyEntitlementID,
	).Scan(&count)
	return count, err
}

// loadRelations fills assignees, TAMs and entitlement levels in bulk.
func (r *ticketRepository) loadRelations(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := lo.Map(tickets, func(t domain.Ticket, _ int) int64 { return t.ID })
	index := make(map[int64]*domain.Ticket, len(tickets))
	for i := range tickets {
		index[tickets[i].ID] = &tickets[i]
	}

	supportRows, err := r.db.Query(ctx, `
        SELECT s.ticket_id, s.assigned_at, `+userColumns+`
        FROM ticket_supports s JOIN users u ON u.id = s.user_id
        WHERE s.ticket_id = ANY($1)
        ORDER BY s.ticket_id, s.assigned_at, u.id`, ids)
	if err != nil {
		return err
	}
	defer supportRows.Close()
	for supportRows.Next() {
		var ticketID int64
		var a domain.Assignee
		dest := append([]any{&ticketID, &a.AssignedAt}, userDest(&a.User)...)
		if err := supportRows.Scan(dest...); err != nil {
			return err
		}
		if t := index[ticketID]; t != nil {
			t.Support = append(t.Support, a)
		}
	}
	if err := supportRows.Err(); err != nil {
		return err
	}

	tamRows, err := r.db.Query(ctx, `
        SELECT tt.ticket_id, `+userColumns+`
        FROM ticket_tams tt JOIN users u ON u.id = tt.user_id
        WHERE tt.ticket_id = ANY($1)
        ORDER BY tt.ticket_id, u.id`, ids)
	if err != nil {
		return err
	}
	defer tamRows.Close()
	for tamRows.Next() {
		var ticketID int64
		var u domain.User
		if err := tamRows.Scan(append([]any{&ticketID}, userDest(&u)...)...); err != nil {
			return err
		}
		if t := index[ticketID]; t != nil {
			t.TAMs = append(t.TAMs, u)
		}
	}
	if err := tamRows.Err(); err != nil {
		return err
	}

	entitlementIDs := lo.Uniq(lo.FilterMap(tickets, func(t domain.Ticket, _ int) (int64, bool) {
		if t.CompanyEntitlement == nil || t.CompanyEntitlement.Entitlement == nil {
			return 0, false
		}
		return t.CompanyEntitlement.Entitlement.ID, true
	}))
	levels, err := entitlementLevels(ctx, r.db, entitlementIDs)
	if err != nil {
		return err
	}
	for i := range tickets {
		ce := tickets[i].CompanyEntitlement
		if ce != nil && ce.Entitlement != nil {
			ce.Entitlement.SupportLevels = levels[ce.Entitlement.ID]
		}
	}
	return nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t          domain.Ticket
		ceID       *int64
		ceCompany  *int64
		ceDate     *time.Time
		ceDuration *string
		eID        *int64
		eName      *string
		eDesc      *string
		ePrice     *string
		level      nullableLevel
	)
	dest := []any{
		&t.ID, &t.Name, &t.Status, &t.CompanyID, &t.CompanyName, &t.RequesterID, &t.CreatedAt,
		&ceID, &ceCompany, &ceDate, &ceDuration,
		&eID, &eName, &eDesc, &ePrice,
	}
	if err := row.Scan(append(dest, level.dest()...)...); err != nil {
		return nil, err
	}

	if ceID != nil {
		ce := &domain.CompanyEntitlement{
			ID:           *ceID,
			Date:         ceDate,
			Duration:     domain.ParseDuration(lo.FromPtr(ceDuration)),
			SupportLevel: level.value(),
		}
		ce.CompanyID = lo.FromPtr(ceCompany)
		if eID != nil {
			ent, err := buildEntitlement(*eID, lo.FromPtr(eName), lo.FromPtr(eDesc), lo.FromPtr(ePrice))
			if err != nil {
				return nil, err
			}
			ce.Entitlement = ent
		}
		t.CompanyEntitlement = ce
	}
	return &t, nil
}
