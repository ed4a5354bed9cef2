package entities

import (
	"encoding/json"
	"time"
)

type ChatStatus string

const (
	ChatActive   ChatStatus = "active"
	ChatArchived ChatStatus = "archived"
	ChatClosed   ChatStatus = "closed"
)

func (s ChatStatus) Valid() bool {
	switch s {
	case ChatActive, ChatArchived, ChatClosed:
		return true
	}
	return false
}

// Chat is a conversation thread with one counterparty phone number.
type Chat struct {
	ID            string          `json:"id"`
	WhatsAppPhone string          `json:"whatsapp_phone"`
	ContactName   *string         `json:"contact_name"`
	Status        ChatStatus      `json:"status"`
	InstanceID    *string         `json:"instance_id"`
	AgentID       *string         `json:"agent_id"`
	LastMessageAt *time.Time      `json:"last_message_at"`
	Metadata      json.RawMessage `json:"metadata"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type ChatWithLastMessage struct {
	Chat
	LastMessage *Message `json:"lastMessage,omitempty"`
}

// ChatUpsert carries what an inbound message knows about its sender.
type ChatUpsert struct {
	Phone       string
	ContactName string
	InstanceID  string
	At          time.Time
}
