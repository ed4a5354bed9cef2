package usecases

import (
	"context"
	"errors"
	"testing"
	"whatsapp_crm/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResponder struct {
	answer string
	err    error
}

func (s stubResponder) Respond(context.Context, string, string) (string, error) {
	return s.answer, s.err
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func replyJob() entities.ReplyJob {
	return entities.ReplyJob{
		ChatID:     "chat-1",
		Content:    "Hola",
		InstanceID: "inst-1",
		RemoteJid:  "5215512345678@s.whatsapp.net",
		Attempt:    1,
	}
}

func TestCannedReply(t *testing.T) {
	assert.Equal(t,
		`[Auto-Reply] Recibí tu mensaje: "Hola". Pronto estaré 100% operativo con IA.`,
		CannedReply("Hola"),
	)
}

func TestProcessMessageSendsAndStoresReply(t *testing.T) {
	gw := &fakeGateway{}
	messages := newFakeMessages()
	svc := NewReplyService(nil, gw, messages, nil, zap.NewNop())

	res := svc.ProcessMessage(context.Background(), replyJob())

	require.True(t, res.Success, "%v", res.Err)
	require.Len(t, gw.texts, 1)
	assert.Equal(t, "inst-1", gw.texts[0].instance)
	assert.Equal(t, "5215512345678@s.whatsapp.net", gw.texts[0].number)
	assert.Equal(t, CannedReply("Hola"), gw.texts[0].text)

	stored := messages.all()
	require.Len(t, stored, 1)
	assert.Equal(t, entities.RoleAssistant, stored[0].Role)
	assert.JSONEq(t, `{"generated_by":"system_auto_reply"}`, string(stored[0].Metadata))
	require.NotNil(t, stored[0].WhatsAppMessageID)
	assert.Equal(t, "WAID-1", *stored[0].WhatsAppMessageID)
	assert.Equal(t, stored[0].ID, res.MessageID)
}

func TestProcessMessageGatewayFailure(t *testing.T) {
	gw := &fakeGateway{sendErr: errors.New("gateway down")}
	messages := newFakeMessages()
	svc := NewReplyService(nil, gw, messages, nil, zap.NewNop())

	res := svc.ProcessMessage(context.Background(), replyJob())

	assert.False(t, res.Success)
	assert.ErrorContains(t, res.Err, "gateway down")
	assert.Empty(t, messages.all())
	assert.Error(t, svc.Handle(context.Background(), replyJob()))
}

func TestProcessMessageStoreFailureIsNotRetried(t *testing.T) {
	gw := &fakeGateway{}
	messages := newFakeMessages()
	messages.err = errors.New("db down")
	svc := NewReplyService(nil, gw, messages, nil, zap.NewNop())

	res := svc.ProcessMessage(context.Background(), replyJob())
	assert.ErrorIs(t, res.Err, ErrReplyNotStored)

	assert.NoError(t, svc.Handle(context.Background(), replyJob()))
}

func TestProcessMessageThrottled(t *testing.T) {
	gw := &fakeGateway{}
	svc := NewReplyService(nil, gw, newFakeMessages(), denyAll{}, zap.NewNop())

	res := svc.ProcessMessage(context.Background(), replyJob())

	assert.ErrorIs(t, res.Err, ErrRecipientThrottled)
	assert.Empty(t, gw.texts)
}

func TestFallbackResponder(t *testing.T) {
	ok := FallbackResponder{Primary: stubResponder{answer: "¡Hola! ¿Qué producto buscas?"}, Log: zap.NewNop()}
	answer, err := ok.Respond(context.Background(), "chat-1", "Hola")
	require.NoError(t, err)
	assert.Equal(t, "¡Hola! ¿Qué producto buscas?", answer)

	failing := FallbackResponder{Primary: stubResponder{err: errors.New("rate limited")}, Log: zap.NewNop()}
	answer, err = failing.Respond(context.Background(), "chat-1", "Hola")
	require.NoError(t, err)
	assert.Equal(t, CannedReply("Hola"), answer)
}
