package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"whatsapp_crm/internal/entities"

	"go.uber.org/zap"
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("evolution api %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a gateway 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// EvolutionClient wraps the Evolution API REST surface. Every call is a
// single request authenticated with the apikey header.
type EvolutionClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewEvolutionClient(baseURL, apiKey string, timeout time.Duration, log *zap.Logger) *EvolutionClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &EvolutionClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *EvolutionClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		var remote struct {
			Message any `json:"message"`
		}
		if json.Unmarshal(raw, &remote) == nil && remote.Message != nil {
			apiErr.Message = remoteMessage(remote.Message)
		}
		c.log.Debug("evolution request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// remoteMessage flattens the gateway's message field, which is sometimes a
// list of strings.
func remoteMessage(v any) string {
	switch m := v.(type) {
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(m)
	}
}

func (c *EvolutionClient) CreateInstance(ctx context.Context, name string) (*entities.EvolutionInstance, error) {
	body := map[string]any{
		"instanceName": name,
		"token":        "",
		"qrcode":       true,
		"integration":  "WHATSAPP-BAILEYS",
	}
	var out entities.EvolutionInstance
	if err := c.do(ctx, http.MethodPost, "/instance/create", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConnectInstance asks the gateway for a pairing QR code.
func (c *EvolutionClient) ConnectInstance(ctx context.Context, name string) (*entities.QRCode, error) {
	var out entities.QRCode
	if err := c.do(ctx, http.MethodGet, "/instance/connect/"+url.PathEscape(name), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *EvolutionClient) DeleteInstance(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/instance/logout/"+url.PathEscape(name), nil, nil)
}

// FetchInstanceStatus returns nil without error when the gateway does not
// know the instance.
func (c *EvolutionClient) FetchInstanceStatus(ctx context.Context, name string) (*entities.InstanceStatus, error) {
	var out entities.InstanceStatus
	err := c.do(ctx, http.MethodGet, "/instance/connectionState/"+url.PathEscape(name), nil, &out)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *EvolutionClient) FetchInstances(ctx context.Context) error {
	var out json.RawMessage
	return c.do(ctx, http.MethodGet, "/instance/fetchInstances", nil, &out)
}

func (c *EvolutionClient) SetWebhook(ctx context.Context, name, webhookURL string, byEvents bool, events []string) error {
	body := map[string]any{
		"url":               webhookURL,
		"webhook_by_events": byEvents,
		"webhook_base64":    false,
		"events":            events,
		"enabled":           true,
	}
	return c.do(ctx, http.MethodPost, "/webhook/set/"+url.PathEscape(name), body, nil)
}

func (c *EvolutionClient) SendTextMessage(ctx context.Context, instance, number, text string) (*entities.SendMessageResponse, error) {
	body := map[string]any{
		"number": number,
		"options": map[string]any{
			"delay":    1200,
			"presence": "composing",
		},
		"textMessage": map[string]string{"text": text},
	}
	var out entities.SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/message/sendText/"+url.PathEscape(instance), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *EvolutionClient) SendMediaMessage(ctx context.Context, instance, number string, media entities.MediaMessage) (*entities.SendMessageResponse, error) {
	body := map[string]any{
		"number": number,
		"options": map[string]any{
			"delay":    1200,
			"presence": "composing",
		},
		"mediaMessage": media,
	}
	var out entities.SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/message/sendMedia/"+url.PathEscape(instance), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
