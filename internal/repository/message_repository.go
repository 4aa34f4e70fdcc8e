package repository

import (
	"context"

	"github.com/spec-kit/support-desk/internal/domain"
)

// MessageRepository persists ticket thread entries.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	// ListNewestFirst returns messages of the given tickets, newest first.
	ListNewestFirst(ctx context.Context, ticketIDs []int64) ([]domain.Message, error)
}

type messageRepository struct {
	db DBTX
}

// NewMessageRepository creates repository.
func NewMessageRepository(db DBTX) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const query = `
        INSERT INTO messages (ticket_id, author_id, body, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id`
	return r.db.QueryRow(ctx, query, msg.TicketID, msg.AuthorID, msg.Body, msg.CreatedAt).Scan(&msg.ID)
}

func (r *messageRepository) ListNewestFirst(ctx context.Context, ticketIDs []int64) ([]domain.Message, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	const query = `
        SELECT m.id, m.ticket_id, m.body, m.author_id, m.created_at,
               u.id, u.name, u.full_name, u.email, u.user_type
        FROM messages m
        LEFT JOIN users u ON u.id = m.author_id
        WHERE m.ticket_id = ANY($1)
        ORDER BY m.created_at DESC, m.id DESC`
	rows, err := r.db.Query(ctx, query, ticketIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var authorID *int64
		var name, fullName, email, userType *string
		if err := rows.Scan(&msg.ID, &msg.TicketID, &msg.Body, &msg.AuthorID, &msg.CreatedAt,
			&authorID, &name, &fullName, &email, &userType); err != nil {
			return nil, err
		}
		if authorID != nil {
			msg.Author = &domain.User{ID: *authorID}
			if name != nil {
				msg.Author.Name = *name
			}
			if fullName != nil {
				msg.Author.FullName = *fullName
			}
			if email != nil {
				msg.Author.Email = *email
			}
			if userType != nil {
				msg.Author.Type = domain.ParseUserType(*userType)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
