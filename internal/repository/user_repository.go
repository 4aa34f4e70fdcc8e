package repository

import (
	"context"
	"strings"

	"github.com/spec-kit/support-desk/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.User, error)
	// CompanyTAMs lists the account managers that are members of a company.
	CompanyTAMs(ctx context.Context, companyID int64) ([]domain.User, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `u.id, u.name, u.full_name, u.email, u.password_hash, u.user_type, u.created_at`

func userDest(u *domain.User) []any {
	return []any{&u.ID, &u.Name, &u.FullName, &u.Email, &u.PasswordHash, &u.Type, &u.CreatedAt}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users u WHERE LOWER(u.email) = $1`,
		strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.QueryRow(ctx, query, arg).Scan(userDest(&user)...); err != nil {
		return nil, err
	}
	user.Type = domain.ParseUserType(string(user.Type))

	rows, err := r.db.Query(ctx, `SELECT company_id FROM company_users WHERE user_id = $1 ORDER BY company_id`, user.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var companyID int64
		if err := rows.Scan(&companyID); err != nil {
			return nil, err
		}
		user.CompanyIDs = append(user.CompanyIDs, companyID)
	}
	return &user, rows.Err()
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = ANY($1) ORDER BY u.id`, ids)
}

func (r *userRepository) CompanyTAMs(ctx context.Context, companyID int64) ([]domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM company_users cu JOIN users u ON u.id = cu.user_id
        WHERE cu.company_id = $1 AND LOWER(TRIM(u.user_type)) = $2
        ORDER BY u.id`
	return r.list(ctx, query, companyID, string(domain.UserTypeTAM))
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(userDest(&u)...); err != nil {
			return nil, err
		}
		u.Type = domain.ParseUserType(string(u.Type))
		users = append(users, u)
	}
	return users, rows.Err()
}
