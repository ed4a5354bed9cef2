package entities

import (
	"encoding/json"
	"time"
)

type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "draft"
	QuoteSent     QuoteStatus = "sent"
	QuoteAccepted QuoteStatus = "accepted"
	QuoteRejected QuoteStatus = "rejected"
	QuoteExpired  QuoteStatus = "expired"
)

func (s QuoteStatus) Valid() bool {
	switch s {
	case QuoteDraft, QuoteSent, QuoteAccepted, QuoteRejected, QuoteExpired:
		return true
	}
	return false
}

type Quote struct {
	ID          string          `json:"id"`
	ChatID      string          `json:"chat_id"`
	QuoteNumber string          `json:"quote_number"`
	Subtotal    float64         `json:"subtotal"`
	Tax         float64         `json:"tax"`
	Total       float64         `json:"total"`
	Status      QuoteStatus     `json:"status"`
	Notes       *string         `json:"notes"`
	Metadata    json.RawMessage `json:"metadata"`
	SentAt      *time.Time      `json:"sent_at"`
	AcceptedAt  *time.Time      `json:"accepted_at"`
	RejectedAt  *time.Time      `json:"rejected_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Items       []QuoteItem     `json:"items,omitempty"`
}

type QuoteItem struct {
	ID          string    `json:"id"`
	QuoteID     string    `json:"quote_id"`
	ProductSKU  string    `json:"product_sku"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	UnitCost    float64   `json:"unit_cost"`
	Subtotal    float64   `json:"subtotal"`
	CreatedAt   time.Time `json:"created_at"`
}
