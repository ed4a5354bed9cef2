package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/interfaces"

	"go.uber.org/zap"
)

var (
	ErrRecipientThrottled = errors.New("recipient is being throttled")
	ErrReplyNotStored     = errors.New("reply sent but not stored")
)

// CannedResponder acknowledges every message with a fixed text.
type CannedResponder struct{}

func (CannedResponder) Respond(_ context.Context, _ string, content string) (string, error) {
	return CannedReply(content), nil
}

func CannedReply(content string) string {
	return fmt.Sprintf(`[Auto-Reply] Recibí tu mensaje: "%s". Pronto estaré 100%% operativo con IA.`, content)
}

// FallbackResponder tries Primary and answers with the canned text when it
// fails.
type FallbackResponder struct {
	Primary interfaces.Responder
	Log     *zap.Logger
}

func (f FallbackResponder) Respond(ctx context.Context, chatID, content string) (string, error) {
	answer, err := f.Primary.Respond(ctx, chatID, content)
	if err != nil {
		f.Log.Warn("responder failed, using canned reply", zap.String("chat_id", chatID), zap.Error(err))
		return CannedReply(content), nil
	}
	return answer, nil
}

type throttle interface {
	Allow(recipient string) bool
}

// ReplyService answers an inbound message through the gateway and stores the
// answer.
type ReplyService struct {
	responder interfaces.Responder
	gateway   interfaces.Gateway
	messages  interfaces.MessageStore
	limiter   throttle
	log       *zap.Logger
}

func NewReplyService(responder interfaces.Responder, gateway interfaces.Gateway, messages interfaces.MessageStore, limiter throttle, log *zap.Logger) *ReplyService {
	if responder == nil {
		responder = CannedResponder{}
	}
	return &ReplyService{
		responder: responder,
		gateway:   gateway,
		messages:  messages,
		limiter:   limiter,
		log:       log,
	}
}

// ProcessMessage never panics; failures are reported in the result.
func (s *ReplyService) ProcessMessage(ctx context.Context, job entities.ReplyJob) entities.ReplyResult {
	s.log.Info("processing message", zap.String("chat_id", job.ChatID), zap.Int("attempt", job.Attempt))

	if s.limiter != nil && !s.limiter.Allow(job.RemoteJid) {
		return entities.ReplyResult{Err: ErrRecipientThrottled}
	}

	answer, err := s.responder.Respond(ctx, job.ChatID, job.Content)
	if err != nil {
		return entities.ReplyResult{Err: fmt.Errorf("compose reply: %w", err)}
	}

	sent, err := s.gateway.SendTextMessage(ctx, job.InstanceID, job.RemoteJid, answer)
	if err != nil {
		return entities.ReplyResult{Err: fmt.Errorf("send reply: %w", err)}
	}

	meta, _ := json.Marshal(map[string]string{"generated_by": "system_auto_reply"})
	m := &entities.Message{
		ChatID:      job.ChatID,
		Content:     answer,
		Role:        entities.RoleAssistant,
		MessageType: entities.MessageText,
		Metadata:    meta,
	}
	if sent != nil && sent.Key.ID != "" {
		id := sent.Key.ID
		m.WhatsAppMessageID = &id
	}
	if err := s.messages.Insert(ctx, m); err != nil {
		return entities.ReplyResult{Err: fmt.Errorf("%w: %v", ErrReplyNotStored, err)}
	}
	return entities.ReplyResult{Success: true, MessageID: m.ID}
}

// Handle adapts ProcessMessage to the worker pool. Once the gateway has
// accepted the reply a storage failure is not retried, since a retry would
// message the customer twice.
func (s *ReplyService) Handle(ctx context.Context, job entities.ReplyJob) error {
	res := s.ProcessMessage(ctx, job)
	if res.Success {
		return nil
	}
	if errors.Is(res.Err, ErrReplyNotStored) {
		s.log.Error("reply not stored", zap.String("chat_id", job.ChatID), zap.Error(res.Err))
		return nil
	}
	return res.Err
}
