package usecases

import (
	"context"
	"errors"
	"testing"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/infrastructure"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type bridgeFixture struct {
	bridge   *AutomationBridge
	notifier *fakeNotifier
	messages *fakeMessages
	quotes   *fakeQuotes
	logs     *fakeLogs
	alerter  *fakeAlerter
}

func newBridgeFixture(secret string) *bridgeFixture {
	f := &bridgeFixture{
		notifier: &fakeNotifier{},
		messages: newFakeMessages(),
		quotes:   newFakeQuotes(),
		logs:     newFakeLogs(),
		alerter:  &fakeAlerter{},
	}
	f.bridge = NewAutomationBridge(AutomationDeps{
		Notifier: f.notifier,
		Messages: f.messages,
		Quotes:   f.quotes,
		Logs:     f.logs,
		Alerter:  f.alerter,
		Secret:   secret,
		Log:      zap.NewNop(),
	})
	return f
}

func TestAuthorized(t *testing.T) {
	open := newBridgeFixture("")
	assert.True(t, open.bridge.Authorized(""))
	assert.True(t, open.bridge.Authorized("anything"))

	locked := newBridgeFixture("s3cret")
	assert.True(t, locked.bridge.Authorized("s3cret"))
	assert.False(t, locked.bridge.Authorized(""))
	assert.False(t, locked.bridge.Authorized("wrong"))
}

func TestParseAutomationEvent(t *testing.T) {
	ev, err := ParseAutomationEvent([]byte(`{"event_type":"quote_generated","data":{"chat_id":"c1","products":[{"sku":"A","quantity":2,"unit_price":100}]}}`))
	require.NoError(t, err)
	q, ok := ev.(QuoteGeneratedEvent)
	require.True(t, ok)
	assert.Equal(t, "c1", q.ChatID)
	require.Len(t, q.Products, 1)
	assert.Equal(t, 2, q.Products[0].Quantity)

	ev, err = ParseAutomationEvent([]byte(`{"event_type":"something_else"}`))
	require.NoError(t, err)
	assert.Equal(t, UnknownEvent{Type: "something_else"}, ev)

	_, err = ParseAutomationEvent([]byte(`{"event_type":"message_response"}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = ParseAutomationEvent([]byte(`nope`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestHandleInboundMessageResponse(t *testing.T) {
	f := newBridgeFixture("")

	err := f.bridge.HandleInbound(context.Background(), []byte(`{"event_type":"message_response","data":{"chat_id":"c1","message":"Claro, te envío la cotización"}}`))
	require.NoError(t, err)

	msgs := f.messages.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, entities.RoleAssistant, msgs[0].Role)
	assert.Equal(t, entities.MessageText, msgs[0].MessageType)
	assert.Equal(t, "c1", msgs[0].ChatID)

	logs := f.logs.automationEvents()
	require.Len(t, logs, 1)
	assert.Equal(t, EventMessageResponse, logs[0].EventType)
	assert.Equal(t, entities.LogSuccess, logs[0].Status)
}

func TestHandleInboundUserMessage(t *testing.T) {
	f := newBridgeFixture("")

	err := f.bridge.HandleInbound(context.Background(), []byte(`{"event_type":"user_message","data":{"chat_id":"c1","message":"gracias"}}`))
	require.NoError(t, err)

	msgs := f.messages.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, entities.RoleUser, msgs[0].Role)
}

func TestHandleInboundQuoteGenerated(t *testing.T) {
	f := newBridgeFixture("")

	err := f.bridge.HandleInbound(context.Background(), []byte(`{
		"event_type":"quote_generated",
		"data":{"chat_id":"c1","products":[{"sku":"A","name":"Taladro","quantity":2,"unit_price":100,"unit_cost":70}]}
	}`))
	require.NoError(t, err)

	quotes, err := f.quotes.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	q := quotes[0]
	assert.Equal(t, entities.QuoteDraft, q.Status)
	assert.Equal(t, 200.0, q.Subtotal)
	assert.Equal(t, 32.0, q.Tax)
	assert.Equal(t, 232.0, q.Total)
	require.Len(t, q.Items, 1)
	assert.Equal(t, q.ID, q.Items[0].QuoteID)

	require.Len(t, f.alerter.quotes, 1)
	assert.Equal(t, q.ID, f.alerter.quotes[0].ID)

	var events []string
	for _, l := range f.logs.automationEvents() {
		events = append(events, l.EventType+":"+l.Status)
	}
	assert.Equal(t, []string{"quote_created:success", "quote_generated:success"}, events)
}

func TestHandleInboundQuoteStoreFailure(t *testing.T) {
	f := newBridgeFixture("")
	f.quotes.err = errors.New("tx aborted")

	err := f.bridge.HandleInbound(context.Background(), []byte(`{"event_type":"quote_generated","data":{"chat_id":"c1","products":[]}}`))
	require.Error(t, err)

	logs := f.logs.automationEvents()
	require.Len(t, logs, 1)
	assert.Equal(t, "quote_created", logs[0].EventType)
	assert.Equal(t, entities.LogError, logs[0].Status)
	assert.Empty(t, f.alerter.quotes)
}

func TestHandleInboundUnknownEvent(t *testing.T) {
	f := newBridgeFixture("")

	err := f.bridge.HandleInbound(context.Background(), []byte(`{"event_type":"mystery","data":{}}`))
	require.NoError(t, err)

	logs := f.logs.automationEvents()
	require.NotEmpty(t, logs)
	assert.Equal(t, "unknown_event", logs[0].EventType)
	assert.Equal(t, entities.LogError, logs[0].Status)
	require.NotNil(t, logs[0].ErrorMessage)
	assert.Contains(t, *logs[0].ErrorMessage, "mystery")
	assert.Empty(t, f.messages.all())
}

func TestHandleInboundUnknownEventsShareMetricLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newBridgeFixture("")
	f.bridge.metrics = infrastructure.NewMetrics(reg)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, f.bridge.HandleInbound(ctx, []byte(`{"event_type":"`+name+`","data":{}}`)))
	}
	require.NoError(t, f.bridge.HandleInbound(ctx, []byte(`{"event_type":"user_message","data":{"chat_id":"c1","message":"hola"}}`)))

	assert.ElementsMatch(t, []string{"other", EventUserMessage}, webhookEventLabels(t, reg))
}

func TestSendMessageToAutomation(t *testing.T) {
	f := newBridgeFixture("")

	require.NoError(t, f.bridge.SendMessageToAutomation(context.Background(), "c1", "5215512345678", "hola"))

	require.Len(t, f.notifier.payloads, 1)
	payload, ok := f.notifier.payloads[0].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "message_received", payload["event_type"])
	assert.Equal(t, "c1", payload["chat_id"])
	assert.NotEmpty(t, payload["timestamp"])

	logs := f.logs.automationEvents()
	require.Len(t, logs, 1)
	assert.Equal(t, "message_sent_to_n8n", logs[0].EventType)
	assert.Equal(t, entities.LogSuccess, logs[0].Status)
}

func TestSendMessageToAutomationFailure(t *testing.T) {
	f := newBridgeFixture("")
	f.notifier.err = errors.New("n8n down")

	err := f.bridge.SendMessageToAutomation(context.Background(), "c1", "5215512345678", "hola")
	require.Error(t, err)

	logs := f.logs.automationEvents()
	require.Len(t, logs, 1)
	assert.Equal(t, entities.LogError, logs[0].Status)
}
