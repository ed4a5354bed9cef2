package entities

import (
	"encoding/json"
	"time"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageAudio    MessageType = "audio"
	MessageVideo    MessageType = "video"
	MessageDocument MessageType = "document"
	MessageQuote    MessageType = "quote"
	MessageProduct  MessageType = "product"
)

// IsMedia reports whether the type is sent through the gateway's media endpoint.
func (t MessageType) IsMedia() bool {
	switch t {
	case MessageImage, MessageVideo, MessageAudio, MessageDocument:
		return true
	}
	return false
}

type Message struct {
	ID                string          `json:"id"`
	ChatID            string          `json:"chat_id"`
	Content           string          `json:"content"`
	Role              MessageRole     `json:"role"`
	MessageType       MessageType     `json:"message_type"`
	WhatsAppMessageID *string         `json:"whatsapp_message_id,omitempty"`
	Metadata          json.RawMessage `json:"metadata"`
	CreatedAt         time.Time       `json:"created_at"`
}
