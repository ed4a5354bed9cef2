package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/interfaces"
	"whatsapp_crm/internal/repository"

	"github.com/skip2/go-qrcode"
	"github.com/vincent-petithory/dataurl"
	"go.uber.org/zap"
)

var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrNoInstance         = errors.New("no WhatsApp instance linked to this chat")
	ErrMediaURLRequired   = errors.New("media URL required for media messages")
	ErrInvalidMessageType = errors.New("invalid message type")
	ErrAppURLMissing      = errors.New("APP_URL not configured")
	ErrLocalWebhookURL    = errors.New("localhost webhook URLs are not supported")
	ErrNoQRCode           = errors.New("gateway returned no QR code")
)

// WebhookEvents are the gateway events the CRM subscribes to.
var WebhookEvents = []string{"MESSAGES_UPSERT", "CONNECTION_UPDATE"}

type WhatsAppUsecase struct {
	gateway   interfaces.Gateway
	instances interfaces.InstanceStore
	chats     interfaces.ChatStore
	messages  interfaces.MessageStore
	appURL    string
	log       *zap.Logger
}

func NewWhatsAppUsecase(gateway interfaces.Gateway, instances interfaces.InstanceStore, chats interfaces.ChatStore, messages interfaces.MessageStore, appURL string, log *zap.Logger) *WhatsAppUsecase {
	return &WhatsAppUsecase{
		gateway:   gateway,
		instances: instances,
		chats:     chats,
		messages:  messages,
		appURL:    strings.TrimRight(appURL, "/"),
		log:       log,
	}
}

func (u *WhatsAppUsecase) webhookURL() string {
	return u.appURL + "/api/webhooks/evolution"
}

func (u *WhatsAppUsecase) isLocal() bool {
	return strings.Contains(u.appURL, "localhost") || strings.Contains(u.appURL, "127.0.0.1")
}

// CreateInstance registers a new instance at the gateway, points its webhook
// at this service when publicly reachable, and records it.
func (u *WhatsAppUsecase) CreateInstance(ctx context.Context, name string) (*entities.EvolutionInstance, error) {
	created, err := u.gateway.CreateInstance(ctx, name)
	if err != nil {
		return nil, err
	}

	if u.appURL != "" && !u.isLocal() {
		if err := u.gateway.SetWebhook(ctx, name, u.webhookURL(), true, WebhookEvents); err != nil {
			u.log.Error("failed to configure webhook", zap.String("instance", name), zap.Error(err))
		} else {
			u.log.Info("webhook configured", zap.String("instance", name))
		}
	} else {
		u.log.Warn("skipping webhook setup: APP_URL is localhost or missing")
	}

	err = u.instances.Create(ctx, &entities.Instance{
		InstanceName: name,
		InstanceID:   created.Instance.InstanceID,
		Status:       "created",
		APIKey:       created.Hash.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("save instance: %w", err)
	}
	return created, nil
}

func (u *WhatsAppUsecase) GetQRCode(ctx context.Context, name string) (*entities.QRCode, error) {
	return u.gateway.ConnectInstance(ctx, name)
}

// GetStatus returns nil for an instance the gateway does not know.
func (u *WhatsAppUsecase) GetStatus(ctx context.Context, name string) (*entities.InstanceStatus, error) {
	return u.gateway.FetchInstanceStatus(ctx, name)
}

func (u *WhatsAppUsecase) DeleteInstance(ctx context.Context, name string) error {
	return u.gateway.DeleteInstance(ctx, name)
}

// QRCodePNG renders the pairing QR as a PNG. The gateway's own image is used
// when it sends one; otherwise the raw code is encoded locally.
func (u *WhatsAppUsecase) QRCodePNG(ctx context.Context, name string, size int) ([]byte, error) {
	qr, err := u.gateway.ConnectInstance(ctx, name)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(qr.Base64, "data:") {
		decoded, err := dataurl.DecodeString(qr.Base64)
		if err == nil && decoded.MediaType.ContentType() == "image/png" {
			return decoded.Data, nil
		}
		if err != nil {
			u.log.Debug("undecodable QR data url, re-encoding", zap.Error(err))
		}
	}
	if qr.Code == "" {
		return nil, ErrNoQRCode
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(qr.Code, qrcode.Medium, size)
}

type WebhookConfigResult struct {
	WebhookURL   string `json:"webhookUrl"`
	InstanceName string `json:"instanceName"`
}

// ConfigureWebhook points an existing instance's webhook at this service.
func (u *WhatsAppUsecase) ConfigureWebhook(ctx context.Context, name string) (*WebhookConfigResult, error) {
	if u.appURL == "" {
		return nil, ErrAppURLMissing
	}
	res := &WebhookConfigResult{WebhookURL: u.webhookURL(), InstanceName: name}
	if u.isLocal() {
		return res, ErrLocalWebhookURL
	}
	u.log.Info("configuring webhook", zap.String("instance", name), zap.String("url", res.WebhookURL))
	if err := u.gateway.SetWebhook(ctx, name, res.WebhookURL, false, WebhookEvents); err != nil {
		return res, fmt.Errorf("evolution api error: %w", err)
	}
	return res, nil
}

func (u *WhatsAppUsecase) ListInstances(ctx context.Context) ([]entities.Instance, error) {
	return u.instances.List(ctx)
}

type SendMessageInput struct {
	ChatID      string `json:"chatId" binding:"required"`
	Content     string `json:"content" binding:"required"`
	MessageType string `json:"messageType"`
	MediaURL    string `json:"mediaUrl"`
}

// SendMessage sends an operator message to a chat's contact and stores it.
func (u *WhatsAppUsecase) SendMessage(ctx context.Context, in SendMessageInput) (*entities.Message, error) {
	msgType := entities.MessageType(in.MessageType)
	if msgType == "" {
		msgType = entities.MessageText
	}
	if msgType != entities.MessageText && !msgType.IsMedia() {
		return nil, ErrInvalidMessageType
	}
	if msgType.IsMedia() && in.MediaURL == "" {
		return nil, ErrMediaURLRequired
	}

	chat, err := u.chats.GetByID(ctx, in.ChatID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	if chat.InstanceID == nil || *chat.InstanceID == "" {
		return nil, ErrNoInstance
	}

	var sent *entities.SendMessageResponse
	if msgType == entities.MessageText {
		sent, err = u.gateway.SendTextMessage(ctx, *chat.InstanceID, chat.WhatsAppPhone, in.Content)
	} else {
		sent, err = u.gateway.SendMediaMessage(ctx, *chat.InstanceID, chat.WhatsAppPhone, entities.MediaMessage{
			MediaType: string(msgType),
			Caption:   in.Content,
			Media:     in.MediaURL,
			FileName:  mediaFileName(msgType, in.MediaURL),
		})
	}
	if err != nil {
		return nil, err
	}

	var evolutionID string
	if sent != nil {
		evolutionID = sent.Key.ID
	}
	meta, _ := json.Marshal(map[string]string{"evolution_id": evolutionID, "status": "sent"})
	m := &entities.Message{
		ChatID:      in.ChatID,
		Content:     in.Content,
		Role:        entities.RoleAssistant,
		MessageType: msgType,
		Metadata:    meta,
	}
	if evolutionID != "" {
		m.WhatsAppMessageID = &evolutionID
	}
	if err := u.messages.Insert(ctx, m); err != nil {
		return nil, fmt.Errorf("store sent message: %w", err)
	}
	return m, nil
}

// mediaFileName is only set for documents, where the recipient sees it.
func mediaFileName(t entities.MessageType, mediaURL string) string {
	if t != entities.MessageDocument {
		return ""
	}
	base := path.Base(strings.SplitN(mediaURL, "?", 2)[0])
	if base == "." || base == "/" {
		return ""
	}
	return base
}
