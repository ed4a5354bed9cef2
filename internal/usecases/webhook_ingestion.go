package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/infrastructure"
	"whatsapp_crm/internal/interfaces"
	"whatsapp_crm/internal/repository"

	"go.uber.org/zap"
)

const EventMessagesUpsert = "messages.upsert"

var ErrInvalidPayload = errors.New("invalid webhook payload")

// WebhookIngestion turns gateway deliveries into chats and messages and
// hands new inbound text to the reply stage.
type WebhookIngestion struct {
	logs     interfaces.WebhookLogStore
	chats    interfaces.ChatStore
	messages interfaces.MessageStore
	replies  interfaces.ReplyQueue
	log      *zap.Logger
	metrics  *infrastructure.Metrics
	now      func() time.Time
}

func NewWebhookIngestion(
	logs interfaces.WebhookLogStore,
	chats interfaces.ChatStore,
	messages interfaces.MessageStore,
	replies interfaces.ReplyQueue,
	log *zap.Logger,
	metrics *infrastructure.Metrics,
) *WebhookIngestion {
	return &WebhookIngestion{
		logs:     logs,
		chats:    chats,
		messages: messages,
		replies:  replies,
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// HandleWebhook records the delivery, processes it and marks the audit row.
// Only an undecodable body is returned as an error; a failed audit insert is
// logged and processing errors end up in the audit row.
func (w *WebhookIngestion) HandleWebhook(ctx context.Context, raw []byte) error {
	var payload entities.WebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	event := GatewayEventLabel(payload.Type)
	logID, err := w.logs.CreateGatewayLog(ctx, payload.InstanceID, payload.Type, raw)
	if err != nil {
		// Without an audit row nothing is processed; the delivery is still
		// acknowledged.
		w.log.Error("failed to log webhook", zap.String("event", payload.Type), zap.Error(err))
		w.metrics.WebhookEvent("evolution", event, "unlogged")
		return nil
	}

	var procErr error
	if payload.Type == EventMessagesUpsert {
		procErr = w.handleMessageUpsert(ctx, payload.Data, payload.InstanceID)
	}

	status, errText, outcome := entities.WebhookProcessed, "", "processed"
	if procErr != nil {
		status, errText, outcome = entities.WebhookFailed, procErr.Error(), "failed"
		w.log.Error("webhook processing failed",
			zap.String("webhook_id", logID),
			zap.String("event", payload.Type),
			zap.Error(procErr),
		)
	}
	if err := w.logs.FinishGatewayLog(ctx, logID, status, errText); err != nil {
		w.log.Warn("failed to update webhook log", zap.String("webhook_id", logID), zap.Error(err))
	}
	w.metrics.WebhookEvent("evolution", event, outcome)
	return nil
}

func (w *WebhookIngestion) handleMessageUpsert(ctx context.Context, data json.RawMessage, instanceID string) error {
	if len(data) == 0 {
		return nil
	}
	var msg entities.GatewayMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode message data: %w", err)
	}
	if msg.Message == nil || msg.Key.RemoteJid == "" {
		return nil
	}
	if msg.Key.FromMe {
		return nil
	}

	content, msgType, ok := ExtractContent(msg.Message)
	if !ok {
		return nil
	}

	pushName := msg.PushName
	if pushName == "" {
		pushName = "Unknown"
	}
	remoteJid := msg.Key.RemoteJid
	phone := PhoneFromJid(remoteJid)

	chatID, err := w.chats.UpsertFromInbound(ctx, entities.ChatUpsert{
		Phone:       phone,
		ContactName: pushName,
		InstanceID:  instanceID,
		At:          w.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("upsert chat: %w", err)
	}

	meta, _ := json.Marshal(map[string]string{
		"pushName":   pushName,
		"remoteJid":  remoteJid,
		"instanceId": instanceID,
	})
	m := &entities.Message{
		ChatID:      chatID,
		Content:     content,
		Role:        entities.RoleUser,
		MessageType: msgType,
		Metadata:    meta,
	}
	if msg.Key.ID != "" {
		id := msg.Key.ID
		m.WhatsAppMessageID = &id
	}
	if err := w.messages.Insert(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			w.log.Debug("duplicate message ignored", zap.String("whatsapp_message_id", msg.Key.ID))
			return nil
		}
		return fmt.Errorf("insert message: %w", err)
	}

	job := entities.ReplyJob{
		ChatID:     chatID,
		Content:    content,
		InstanceID: instanceID,
		RemoteJid:  remoteJid,
	}
	if err := w.replies.Enqueue(ctx, job); err != nil {
		// The message is stored; only the automatic answer is lost.
		w.log.Error("failed to enqueue reply", zap.String("chat_id", chatID), zap.Error(err))
	}
	return nil
}

// Gateway event types that get their own metric label. Anything else is
// counted as "other" so callers cannot mint new series.
var gatewayEvents = map[string]bool{
	EventMessagesUpsert:   true,
	"messages.update":     true,
	"messages.delete":     true,
	"send.message":        true,
	"connection.update":   true,
	"qrcode.updated":      true,
	"contacts.upsert":     true,
	"contacts.update":     true,
	"chats.upsert":        true,
	"chats.update":        true,
	"presence.update":     true,
	"application.startup": true,
}

// GatewayEventLabel bounds the event label of the webhook metrics.
func GatewayEventLabel(eventType string) string {
	if gatewayEvents[eventType] {
		return eventType
	}
	return "other"
}

// ExtractContent picks the displayable text of a gateway message.
func ExtractContent(c *entities.GatewayContent) (string, entities.MessageType, bool) {
	switch {
	case c.Conversation != nil && *c.Conversation != "":
		return *c.Conversation, entities.MessageText, true
	case c.ExtendedTextMessage != nil && c.ExtendedTextMessage.Text != "":
		return c.ExtendedTextMessage.Text, entities.MessageText, true
	case c.ImageMessage != nil:
		if c.ImageMessage.Caption != nil {
			return *c.ImageMessage.Caption, entities.MessageImage, true
		}
		return "[Image]", entities.MessageImage, true
	case c.AudioMessage != nil:
		return "[Audio]", entities.MessageAudio, true
	}
	return "", "", false
}

// PhoneFromJid strips the "@server" suffix of a WhatsApp JID.
func PhoneFromJid(jid string) string {
	phone, _, _ := strings.Cut(jid, "@")
	return phone
}
