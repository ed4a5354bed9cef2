package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"whatsapp_crm/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEvolution(t *testing.T, h http.HandlerFunc) *EvolutionClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewEvolutionClient(srv.URL+"/", "test-key", time.Second, zap.NewNop())
}

func TestEvolutionSendTextMessage(t *testing.T) {
	var body map[string]any
	c := newTestEvolution(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/message/sendText/ventas", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("apikey"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"key":{"remoteJid":"521@s.whatsapp.net","fromMe":true,"id":"BAE5"},"status":"PENDING"}`))
	})

	out, err := c.SendTextMessage(context.Background(), "ventas", "521@s.whatsapp.net", "hola")
	require.NoError(t, err)
	assert.Equal(t, "BAE5", out.Key.ID)
	assert.True(t, out.Key.FromMe)

	assert.Equal(t, "521@s.whatsapp.net", body["number"])
	assert.Equal(t, map[string]any{"text": "hola"}, body["textMessage"])
	assert.Equal(t, map[string]any{"delay": 1200.0, "presence": "composing"}, body["options"])
}

func TestEvolutionSendMediaMessage(t *testing.T) {
	var body struct {
		MediaMessage entities.MediaMessage `json:"mediaMessage"`
	}
	c := newTestEvolution(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/message/sendMedia/ventas", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"key":{"id":"M1"}}`))
	})

	_, err := c.SendMediaMessage(context.Background(), "ventas", "521", entities.MediaMessage{
		MediaType: "image", Caption: "foto", Media: "https://x/y.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "image", body.MediaMessage.MediaType)
	assert.Equal(t, "https://x/y.png", body.MediaMessage.Media)
}

func TestEvolutionErrorCarriesRemoteMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string message", `{"status":400,"message":"instance already exists"}`, "instance already exists"},
		{"list message", `{"message":["number is required","text is required"]}`, "number is required; text is required"},
		{"no body", ``, "400 Bad Request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestEvolution(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.CreateInstance(context.Background(), "ventas")
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestEvolutionFetchInstanceStatusNotFound(t *testing.T) {
	c := newTestEvolution(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/instance/connectionState/ghost", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"instance does not exist"}`))
	})

	status, err := c.FetchInstanceStatus(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.Nil(t, status)
}

func TestEvolutionFetchInstanceStatus(t *testing.T) {
	c := newTestEvolution(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"instance":{"instanceName":"ventas","state":"open"}}`))
	})

	status, err := c.FetchInstanceStatus(context.Background(), "ventas")
	require.NoError(t, err)
	assert.Equal(t, "open", status.Instance.State)
}

func TestEvolutionSetWebhook(t *testing.T) {
	var body map[string]any
	c := newTestEvolution(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/set/ventas", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	})

	err := c.SetWebhook(context.Background(), "ventas", "https://crm/api/webhooks/evolution", true, []string{"MESSAGES_UPSERT"})
	require.NoError(t, err)
	assert.Equal(t, "https://crm/api/webhooks/evolution", body["url"])
	assert.Equal(t, true, body["webhook_by_events"])
	assert.Equal(t, []any{"MESSAGES_UPSERT"}, body["events"])
	assert.Equal(t, true, body["enabled"])
}

func TestEvolutionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewEvolutionClient(srv.URL, "k", time.Second, zap.NewNop())

	err := c.FetchInstances(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}
