package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories struct {
	Tickets   TicketRepository
	Messages  MessageRepository
	Companies CompanyRepository
	Users     UserRepository
	Catalog   CatalogRepository
	History   TicketHistoryRepository
}

// TxRunner runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

// Store hands out pool-bound repositories and transactional scopes.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Repositories returns repositories that run each statement on the pool.
func (s *Store) Repositories() Repositories {
	return bind(s.pool)
}

// WithinTx implements TxRunner.
func (s *Store) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(bind(tx))
	})
}

func bind(db DBTX) Repositories {
	return Repositories{
		Tickets:   NewTicketRepository(db),
		Messages:  NewMessageRepository(db),
		Companies: NewCompanyRepository(db),
		Users:     NewUserRepository(db),
		Catalog:   NewCatalogRepository(db),
		History:   NewTicketHistoryRepository(db),
	}
}
