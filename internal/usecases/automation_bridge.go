package usecases

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/infrastructure"
	"whatsapp_crm/internal/interfaces"

	"go.uber.org/zap"
)

// Event types exchanged with the automation platform.
const (
	EventMessageReceived = "message_received"
	EventMessageResponse = "message_response"
	EventQuoteGenerated  = "quote_generated"
	EventUserMessage     = "user_message"

	logEventSentToN8N = "message_sent_to_n8n"
	logEventQuote     = "quote_created"
	logEventUnknown   = "unknown_event"
)

// AutomationEvent is one decoded inbound event. The concrete types are
// MessageResponseEvent, QuoteGeneratedEvent, UserMessageEvent and
// UnknownEvent.
type AutomationEvent interface {
	EventType() string
}

type MessageResponseEvent struct {
	ChatID      string          `json:"chat_id"`
	Message     string          `json:"message"`
	MessageType string          `json:"message_type"`
	Metadata    json.RawMessage `json:"metadata"`
}

type QuoteGeneratedEvent struct {
	ChatID   string      `json:"chat_id"`
	Products []QuoteLine `json:"products"`
	Notes    string      `json:"notes"`
}

type UserMessageEvent struct {
	ChatID   string          `json:"chat_id"`
	Message  string          `json:"message"`
	Metadata json.RawMessage `json:"metadata"`
}

type UnknownEvent struct {
	Type string
}

func (MessageResponseEvent) EventType() string { return EventMessageResponse }
func (QuoteGeneratedEvent) EventType() string  { return EventQuoteGenerated }
func (UserMessageEvent) EventType() string     { return EventUserMessage }
func (e UnknownEvent) EventType() string       { return e.Type }

// automationEventLabel keeps caller-chosen event names out of metric labels.
func automationEventLabel(ev AutomationEvent) string {
	if _, unknown := ev.(UnknownEvent); unknown {
		return "other"
	}
	return ev.EventType()
}

type automationEnvelope struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// ParseAutomationEvent decodes the {event_type, data} envelope into its
// variant.
func ParseAutomationEvent(raw []byte) (AutomationEvent, error) {
	var env automationEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	var ev AutomationEvent
	switch env.EventType {
	case EventMessageResponse:
		var e MessageResponseEvent
		if err := decodeData(env.Data, &e); err != nil {
			return nil, err
		}
		ev = e
	case EventQuoteGenerated:
		var e QuoteGeneratedEvent
		if err := decodeData(env.Data, &e); err != nil {
			return nil, err
		}
		ev = e
	case EventUserMessage:
		var e UserMessageEvent
		if err := decodeData(env.Data, &e); err != nil {
			return nil, err
		}
		ev = e
	default:
		ev = UnknownEvent{Type: env.EventType}
	}
	return ev, nil
}

func decodeData(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

// AutomationBridge connects the CRM with the n8n automation platform in both
// directions.
type AutomationBridge struct {
	notifier   interfaces.AutomationNotifier
	messages   interfaces.MessageStore
	quotes     interfaces.QuoteStore
	logs       interfaces.WebhookLogStore
	calculator *QuoteCalculator
	alerter    interfaces.QuoteAlerter
	secret     string
	log        *zap.Logger
	metrics    *infrastructure.Metrics
	now        func() time.Time
}

type AutomationDeps struct {
	Notifier   interfaces.AutomationNotifier
	Messages   interfaces.MessageStore
	Quotes     interfaces.QuoteStore
	Logs       interfaces.WebhookLogStore
	Calculator *QuoteCalculator
	Alerter    interfaces.QuoteAlerter
	Secret     string
	Log        *zap.Logger
	Metrics    *infrastructure.Metrics
}

func NewAutomationBridge(d AutomationDeps) *AutomationBridge {
	if d.Calculator == nil {
		d.Calculator = NewQuoteCalculator(nil)
	}
	return &AutomationBridge{
		notifier:   d.Notifier,
		messages:   d.Messages,
		quotes:     d.Quotes,
		logs:       d.Logs,
		calculator: d.Calculator,
		alerter:    d.Alerter,
		secret:     d.Secret,
		log:        d.Log,
		metrics:    d.Metrics,
		now:        time.Now,
	}
}

// Authorized reports whether the presented secret is acceptable. With no
// secret configured every caller is.
func (b *AutomationBridge) Authorized(presented string) bool {
	if b.secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(b.secret)) == 1
}

// SendMessageToAutomation forwards an inbound customer message to n8n.
func (b *AutomationBridge) SendMessageToAutomation(ctx context.Context, chatID, phone, message string) error {
	payload := map[string]string{
		"event_type": EventMessageReceived,
		"chat_id":    chatID,
		"phone":      phone,
		"message":    message,
		"timestamp":  b.now().UTC().Format(time.RFC3339Nano),
	}
	if err := b.notifier.Notify(ctx, payload); err != nil {
		b.audit(ctx, logEventSentToN8N, map[string]string{"chatId": chatID, "phone": phone, "message": message}, err)
		return fmt.Errorf("send message to n8n: %w", err)
	}
	b.audit(ctx, logEventSentToN8N, payload, nil)
	return nil
}

// HandleInbound applies one event posted by n8n. Unknown events are audited
// and accepted.
func (b *AutomationBridge) HandleInbound(ctx context.Context, raw []byte) error {
	ev, err := ParseAutomationEvent(raw)
	if err != nil {
		return err
	}

	switch e := ev.(type) {
	case MessageResponseEvent:
		msgType := entities.MessageType(e.MessageType)
		if msgType == "" {
			msgType = entities.MessageText
		}
		err = b.storeMessage(ctx, e.ChatID, e.Message, entities.RoleAssistant, msgType, e.Metadata)
	case UserMessageEvent:
		err = b.storeMessage(ctx, e.ChatID, e.Message, entities.RoleUser, entities.MessageText, e.Metadata)
	case QuoteGeneratedEvent:
		err = b.createQuote(ctx, e)
	case UnknownEvent:
		b.log.Warn("unknown automation event", zap.String("event_type", e.Type))
		b.auditRaw(ctx, logEventUnknown, raw, fmt.Errorf("unknown event type: %s", e.Type))
	}
	if err != nil {
		b.metrics.WebhookEvent("n8n", automationEventLabel(ev), "failed")
		return err
	}

	b.auditRaw(ctx, ev.EventType(), raw, nil)
	b.metrics.WebhookEvent("n8n", automationEventLabel(ev), "processed")
	return nil
}

func (b *AutomationBridge) storeMessage(ctx context.Context, chatID, content string, role entities.MessageRole, msgType entities.MessageType, meta json.RawMessage) error {
	m := &entities.Message{
		ChatID:      chatID,
		Content:     content,
		Role:        role,
		MessageType: msgType,
		Metadata:    meta,
	}
	if err := b.messages.Insert(ctx, m); err != nil {
		return fmt.Errorf("sync message from n8n: %w", err)
	}
	return nil
}

func (b *AutomationBridge) createQuote(ctx context.Context, e QuoteGeneratedEvent) error {
	q, err := b.calculator.BuildDraft(ctx, e.ChatID, e.Products, e.Notes)
	if err == nil {
		err = b.quotes.CreateWithItems(ctx, q)
	}
	if err != nil {
		b.audit(ctx, logEventQuote, e, err)
		return fmt.Errorf("create quote from n8n: %w", err)
	}

	b.audit(ctx, logEventQuote, map[string]string{"quoteId": q.ID, "chatId": e.ChatID}, nil)
	b.log.Info("quote created",
		zap.String("quote_id", q.ID),
		zap.String("quote_number", q.QuoteNumber),
		zap.Float64("total", q.Total),
	)

	if b.alerter != nil {
		if err := b.alerter.QuoteCreated(ctx, q); err != nil {
			b.log.Warn("quote alert failed", zap.String("quote_id", q.ID), zap.Error(err))
		}
	}
	return nil
}

func (b *AutomationBridge) audit(ctx context.Context, event string, payload any, cause error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = nil
	}
	b.auditRaw(ctx, event, raw, cause)
}

// auditRaw writes a webhooks_log row. Audit failures are logged only.
func (b *AutomationBridge) auditRaw(ctx context.Context, event string, payload []byte, cause error) {
	entry := &entities.WebhookLog{
		EventType: event,
		Payload:   payload,
		Status:    entities.LogSuccess,
	}
	if cause != nil {
		msg := cause.Error()
		entry.Status = entities.LogError
		entry.ErrorMessage = &msg
	}
	if err := b.logs.InsertLog(ctx, entry); err != nil {
		b.log.Warn("failed to write webhooks_log", zap.String("event", event), zap.Error(err))
	}
}
