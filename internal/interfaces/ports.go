package interfaces

import (
	"context"
	"time"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/repository"
)

type ChatStore interface {
	UpsertFromInbound(ctx context.Context, in entities.ChatUpsert) (string, error)
	GetByID(ctx context.Context, id string) (*entities.Chat, error)
	ListWithLastMessage(ctx context.Context) ([]entities.ChatWithLastMessage, error)
	UpdateStatus(ctx context.Context, id string, status entities.ChatStatus) (*entities.Chat, error)
}

type MessageStore interface {
	Insert(ctx context.Context, m *entities.Message) error
	ListByChat(ctx context.Context, chatID string) ([]entities.Message, error)
}

type QuoteStore interface {
	CreateWithItems(ctx context.Context, q *entities.Quote) error
	List(ctx context.Context, status entities.QuoteStatus) ([]entities.Quote, error)
	GetByID(ctx context.Context, id string) (*entities.Quote, error)
	UpdateStatus(ctx context.Context, id string, status entities.QuoteStatus, at time.Time) (*entities.Quote, error)
}

type ProductStore interface {
	ListActive(ctx context.Context, f entities.ProductFilter) ([]entities.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entities.Product, error)
}

type WebhookLogStore interface {
	CreateGatewayLog(ctx context.Context, instanceID, eventType string, payload []byte) (string, error)
	FinishGatewayLog(ctx context.Context, id, status, errText string) error
	InsertLog(ctx context.Context, l *entities.WebhookLog) error
}

type InstanceStore interface {
	Create(ctx context.Context, in *entities.Instance) error
	List(ctx context.Context) ([]entities.Instance, error)
}

type TableCounter interface {
	CountRows(ctx context.Context, tables []string) map[string]repository.TableStat
}

type MetricsStore interface {
	CountWindow(ctx context.Context, from, to time.Time) (repository.WindowCounts, error)
	ConversationsByDay(ctx context.Context, since time.Time) ([]entities.DayCount, error)
	StatusTotals(ctx context.Context) (sent, accepted int, err error)
	QuotesByStatus(ctx context.Context) (map[string]int, error)
	TopProducts(ctx context.Context, acceptedOnly bool, limit int) ([]entities.ProductStat, error)
}

// Gateway is the WhatsApp gateway as seen by the usecases.
type Gateway interface {
	CreateInstance(ctx context.Context, name string) (*entities.EvolutionInstance, error)
	ConnectInstance(ctx context.Context, name string) (*entities.QRCode, error)
	DeleteInstance(ctx context.Context, name string) error
	FetchInstanceStatus(ctx context.Context, name string) (*entities.InstanceStatus, error)
	FetchInstances(ctx context.Context) error
	SetWebhook(ctx context.Context, name, url string, byEvents bool, events []string) error
	SendTextMessage(ctx context.Context, instance, number, text string) (*entities.SendMessageResponse, error)
	SendMediaMessage(ctx context.Context, instance, number string, media entities.MediaMessage) (*entities.SendMessageResponse, error)
}

// ReplyQueue hands inbound messages to the reply stage.
type ReplyQueue interface {
	Enqueue(ctx context.Context, job entities.ReplyJob) error
}

// Responder composes the text answered to an inbound message.
type Responder interface {
	Respond(ctx context.Context, chatID, content string) (string, error)
}

type AutomationNotifier interface {
	Notify(ctx context.Context, payload any) error
}

// QuoteAlerter announces freshly generated quotes to the sales team.
type QuoteAlerter interface {
	QuoteCreated(ctx context.Context, q *entities.Quote) error
}

type MetricsCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}
