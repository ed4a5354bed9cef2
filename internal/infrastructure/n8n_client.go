package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrAutomationNotConfigured = errors.New("N8N_WEBHOOK_URL is not configured")

// N8NClient posts events to the automation platform's webhook.
type N8NClient struct {
	url    string
	secret string
	http   *http.Client
}

func NewN8NClient(url, secret string, timeout time.Duration) *N8NClient {
	return &N8NClient{
		url:    url,
		secret: secret,
		http:   &http.Client{Timeout: timeout},
	}
}

func (c *N8NClient) Notify(ctx context.Context, payload any) error {
	if c.url == "" {
		return ErrAutomationNotConfigured
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode automation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set("X-Webhook-Secret", c.secret)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post to n8n: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("n8n webhook responded %s", resp.Status)
	}
	return nil
}
