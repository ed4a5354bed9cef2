package entities

import "encoding/json"

// WebhookPayload is the envelope the WhatsApp gateway posts for every event.
type WebhookPayload struct {
	Type       string          `json:"type"`
	InstanceID string          `json:"instanceId"`
	Data       json.RawMessage `json:"data"`
}

// GatewayMessage is the data of a messages.upsert event.
type GatewayMessage struct {
	Key struct {
		RemoteJid string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	PushName string          `json:"pushName"`
	Message  *GatewayContent `json:"message"`
}

type GatewayContent struct {
	Conversation        *string          `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedText    `json:"extendedTextMessage,omitempty"`
	ImageMessage        *ImageContent    `json:"imageMessage,omitempty"`
	AudioMessage        *json.RawMessage `json:"audioMessage,omitempty"`
}

type ExtendedText struct {
	Text string `json:"text"`
}

type ImageContent struct {
	Caption *string `json:"caption"`
}

type EvolutionInstance struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		InstanceID   string `json:"instanceId"`
		Status       string `json:"status"`
	} `json:"instance"`
	Hash struct {
		APIKey string `json:"apikey"`
	} `json:"hash"`
	QRCode *QRCode `json:"qrcode,omitempty"`
}

type QRCode struct {
	PairingCode string `json:"pairingCode,omitempty"`
	Code        string `json:"code,omitempty"`
	Base64      string `json:"base64,omitempty"`
	Count       int    `json:"count,omitempty"`
}

type InstanceStatus struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		State        string `json:"state"`
	} `json:"instance"`
}

type SendMessageResponse struct {
	Key struct {
		RemoteJid string `json:"remoteJid"`
		FromMe    bool   `json:"fromMe"`
		ID        string `json:"id"`
	} `json:"key"`
	Status string `json:"status,omitempty"`
}

// MediaMessage is an outbound media send.
type MediaMessage struct {
	MediaType string `json:"mediatype"`
	Caption   string `json:"caption,omitempty"`
	Media     string `json:"media"`
	FileName  string `json:"fileName,omitempty"`
}

// ReplyJob is one unit of work for the reply stage.
type ReplyJob struct {
	ID         string `json:"id"`
	ChatID     string `json:"chat_id"`
	Content    string `json:"content"`
	InstanceID string `json:"instance_id"`
	RemoteJid  string `json:"remote_jid"`
	Attempt    int    `json:"attempt"`
}

type ReplyResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Err       error  `json:"-"`
}
