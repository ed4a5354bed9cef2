package repository

import (
	"context"
	"fmt"
	"time"
	"whatsapp_crm/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookRepository owns both audit trails: whatsapp_webhooks for gateway
// deliveries and webhooks_log for automation traffic.
type WebhookRepository struct {
	db *pgxpool.Pool
}

func NewWebhookRepository(db *pgxpool.Pool) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) CreateGatewayLog(ctx context.Context, instanceID, eventType string, payload []byte) (string, error) {
	var id string
	err := r.db.QueryRow(ctx, `
		INSERT INTO whatsapp_webhooks (instance_id, event_type, payload, processing_status)
		VALUES (NULLIF($1, ''), $2, $3, $4)
		RETURNING id
	`, instanceID, eventType, jsonOrEmpty(payload), entities.WebhookProcessing).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("log webhook: %w", err)
	}
	return id, nil
}

// FinishGatewayLog records the final processing status; errText is stored
// only for failed deliveries.
func (r *WebhookRepository) FinishGatewayLog(ctx context.Context, id, status, errText string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE whatsapp_webhooks
		SET processing_status = $2, error_log = NULLIF($3, ''), processed_at = $4
		WHERE id = $1
	`, id, status, errText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update webhook log %s: %w", id, err)
	}
	return nil
}

func (r *WebhookRepository) InsertLog(ctx context.Context, l *entities.WebhookLog) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO webhooks_log (event_type, payload, status, error_message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, l.EventType, jsonOrEmpty(l.Payload), l.Status, l.ErrorMessage).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert webhooks_log: %w", err)
	}
	return nil
}
