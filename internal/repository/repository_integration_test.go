package repository_test

import (
	"context"
	"os"
	"testing"
	"time"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/infrastructure"
	"whatsapp_crm/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// testPool connects to TEST_DATABASE_URL and applies the schema. The tests
// write rows with random keys so they can share a database with other runs.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := infrastructure.NewPostgresClient(ctx, url, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client.Pool
}

func randomPhone() string {
	return "52" + uuid.NewString()[:10]
}

func TestChatUpsertFromInboundIsIdempotent(t *testing.T) {
	pool := testPool(t)
	repo := repository.NewChatRepository(pool)
	ctx := context.Background()
	phone := randomPhone()

	first, err := repo.UpsertFromInbound(ctx, entities.ChatUpsert{Phone: phone, ContactName: "Ana", At: time.Now()})
	require.NoError(t, err)
	second, err := repo.UpsertFromInbound(ctx, entities.ChatUpsert{Phone: phone, ContactName: "Ana María", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	chat, err := repo.GetByPhone(ctx, phone)
	require.NoError(t, err)
	assert.Equal(t, first, chat.ID)
}

func TestMessageInsertRejectsDuplicateExternalID(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	chatID, err := repository.NewChatRepository(pool).UpsertFromInbound(ctx, entities.ChatUpsert{Phone: randomPhone(), At: time.Now()})
	require.NoError(t, err)

	messages := repository.NewMessageRepository(pool)
	external := "WA-" + uuid.NewString()
	msg := &entities.Message{ChatID: chatID, Content: "hola", Role: entities.RoleUser, WhatsAppMessageID: &external}
	require.NoError(t, messages.Insert(ctx, msg))
	assert.NotEmpty(t, msg.ID)

	again := &entities.Message{ChatID: chatID, Content: "hola", Role: entities.RoleUser, WhatsAppMessageID: &external}
	assert.ErrorIs(t, messages.Insert(ctx, again), repository.ErrDuplicate)

	stored, err := messages.ListByChat(ctx, chatID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestQuoteUpdateStatusStampsTransition(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	chatID, err := repository.NewChatRepository(pool).UpsertFromInbound(ctx, entities.ChatUpsert{Phone: randomPhone(), At: time.Now()})
	require.NoError(t, err)

	quotes := repository.NewQuoteRepository(pool)
	q := &entities.Quote{
		ChatID:      chatID,
		QuoteNumber: "COT-TEST-" + uuid.NewString()[:8],
		Subtotal:    200,
		Tax:         32,
		Total:       232,
		Items: []entities.QuoteItem{
			{ProductSKU: "A", ProductName: "Taladro", Quantity: 2, UnitPrice: 100, Subtotal: 200},
		},
	}
	require.NoError(t, quotes.CreateWithItems(ctx, q))
	assert.Equal(t, entities.QuoteDraft, q.Status)

	at := time.Now().UTC().Truncate(time.Second)
	updated, err := quotes.UpdateStatus(ctx, q.ID, entities.QuoteAccepted, at)
	require.NoError(t, err)
	assert.Equal(t, entities.QuoteAccepted, updated.Status)
	require.NotNil(t, updated.AcceptedAt)
	assert.True(t, updated.AcceptedAt.Equal(at))
	assert.Nil(t, updated.RejectedAt)

	loaded, err := quotes.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Items, 1)

	_, err = quotes.UpdateStatus(ctx, uuid.NewString(), entities.QuoteSent, at)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
