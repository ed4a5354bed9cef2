package entities

import (
	"encoding/json"
	"time"
)

// Processing states of a gateway webhook audit row.
const (
	WebhookProcessing = "processing"
	WebhookProcessed  = "processed"
	WebhookFailed     = "failed"
)

// Outcome of an automation audit row.
const (
	LogSuccess = "success"
	LogError   = "error"
)

type GatewayWebhook struct {
	ID               string          `json:"id"`
	InstanceID       string          `json:"instance_id"`
	EventType        string          `json:"event_type"`
	Payload          json.RawMessage `json:"payload"`
	ProcessingStatus string          `json:"processing_status"`
	ErrorLog         *string         `json:"error_log"`
	ProcessedAt      *time.Time      `json:"processed_at"`
	CreatedAt        time.Time       `json:"created_at"`
}

type WebhookLog struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	Status       string          `json:"status"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Instance struct {
	ID           string    `json:"id"`
	InstanceName string    `json:"instance_name"`
	InstanceID   string    `json:"instance_id"`
	Status       string    `json:"status"`
	APIKey       string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
