package repository

import (
	"context"
	"fmt"
	"whatsapp_crm/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Insert appends a message. A repeated whatsapp_message_id yields ErrDuplicate
// and leaves the table untouched.
func (r *MessageRepository) Insert(ctx context.Context, m *entities.Message) error {
	if m.MessageType == "" {
		m.MessageType = entities.MessageText
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO messages (chat_id, content, role, message_type, whatsapp_message_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, m.ChatID, m.Content, string(m.Role), string(m.MessageType), m.WhatsAppMessageID, jsonOrEmpty(m.Metadata),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByChat(ctx context.Context, chatID string) ([]entities.Message, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, chat_id, content, role, message_type, whatsapp_message_id, metadata, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []entities.Message
	for rows.Next() {
		var m entities.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Content, &m.Role, &m.MessageType,
			&m.WhatsAppMessageID, &m.Metadata, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
