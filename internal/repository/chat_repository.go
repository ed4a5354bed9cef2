package repository

import (
	"context"
	"fmt"
	"time"
	"whatsapp_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

const chatColumns = `id, whatsapp_phone, contact_name, status, instance_id, agent_id, last_message_at, metadata, created_at, updated_at`

// UpsertFromInbound creates the chat for a phone or refreshes its contact name
// and last-message time, in a single statement so concurrent first messages
// from the same number converge on one row.
func (r *ChatRepository) UpsertFromInbound(ctx context.Context, in entities.ChatUpsert) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `
		INSERT INTO chats (whatsapp_phone, contact_name, status, instance_id, last_message_at)
		VALUES ($1, $2, 'active', NULLIF($3, ''), $4)
		ON CONFLICT (whatsapp_phone) DO UPDATE
		SET last_message_at = EXCLUDED.last_message_at,
		    contact_name = EXCLUDED.contact_name,
		    updated_at = NOW()
		RETURNING id
	`, in.Phone, in.ContactName, in.InstanceID, in.At).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert chat %s: %w", in.Phone, err)
	}
	return id, nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*entities.Chat, error) {
	row := r.db.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id)
	c, err := scanChat(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *ChatRepository) GetByPhone(ctx context.Context, phone string) (*entities.Chat, error) {
	row := r.db.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE whatsapp_phone = $1`, phone)
	c, err := scanChat(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// ListWithLastMessage returns chats ordered by recent activity, each with its
// newest message attached.
func (r *ChatRepository) ListWithLastMessage(ctx context.Context) ([]entities.ChatWithLastMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.whatsapp_phone, c.contact_name, c.status, c.instance_id, c.agent_id,
		       c.last_message_at, c.metadata, c.created_at, c.updated_at,
		       m.id, m.content, m.role, m.message_type, m.created_at
		FROM chats c
		LEFT JOIN LATERAL (
			SELECT id, content, role, message_type, created_at
			FROM messages WHERE chat_id = c.id
			ORDER BY created_at DESC LIMIT 1
		) m ON TRUE
		ORDER BY c.last_message_at DESC NULLS LAST
	`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var out []entities.ChatWithLastMessage
	for rows.Next() {
		var (
			c                          entities.ChatWithLastMessage
			msgID, content, role, kind *string
			msgAt                      *time.Time
		)
		if err := rows.Scan(
			&c.ID, &c.WhatsAppPhone, &c.ContactName, &c.Status, &c.InstanceID, &c.AgentID,
			&c.LastMessageAt, &c.Metadata, &c.CreatedAt, &c.UpdatedAt,
			&msgID, &content, &role, &kind, &msgAt,
		); err != nil {
			return nil, err
		}
		if msgID != nil {
			c.LastMessage = &entities.Message{
				ID:          *msgID,
				ChatID:      c.ID,
				Content:     deref(content),
				Role:        entities.MessageRole(deref(role)),
				MessageType: entities.MessageType(deref(kind)),
			}
			if msgAt != nil {
				c.LastMessage.CreatedAt = *msgAt
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChatRepository) UpdateStatus(ctx context.Context, id string, status entities.ChatStatus) (*entities.Chat, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE chats SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+chatColumns, id, string(status))
	c, err := scanChat(row)
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func scanChat(row pgx.Row) (*entities.Chat, error) {
	var c entities.Chat
	err := row.Scan(&c.ID, &c.WhatsAppPhone, &c.ContactName, &c.Status, &c.InstanceID, &c.AgentID,
		&c.LastMessageAt, &c.Metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
