package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/interfaces"
	"whatsapp_crm/internal/repository"

	"go.uber.org/zap"
)

const (
	metricsCacheKey = "dashboard:metrics"
	metricsTTL      = 60 * time.Second
	topProducts     = 5
	chartDays       = 30
)

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrNotFound      = errors.New("not found")
)

type DashboardDeps struct {
	Chats    interfaces.ChatStore
	Messages interfaces.MessageStore
	Quotes   interfaces.QuoteStore
	Products interfaces.ProductStore
	Metrics  interfaces.MetricsStore
	Cache    interfaces.MetricsCache
	Log      *zap.Logger
}

// DashboardUsecase serves the read side of the CRM dashboard.
type DashboardUsecase struct {
	chats    interfaces.ChatStore
	messages interfaces.MessageStore
	quotes   interfaces.QuoteStore
	products interfaces.ProductStore
	metrics  interfaces.MetricsStore
	cache    interfaces.MetricsCache
	log      *zap.Logger
	now      func() time.Time
}

func NewDashboardUsecase(d DashboardDeps) *DashboardUsecase {
	return &DashboardUsecase{
		chats:    d.Chats,
		messages: d.Messages,
		quotes:   d.Quotes,
		products: d.Products,
		metrics:  d.Metrics,
		cache:    d.Cache,
		log:      d.Log,
		now:      time.Now,
	}
}

// Metrics returns the dashboard numbers, at most a minute stale.
func (u *DashboardUsecase) Metrics(ctx context.Context) (*entities.DashboardMetrics, error) {
	if u.cache != nil {
		var cached entities.DashboardMetrics
		hit, err := u.cache.Get(ctx, metricsCacheKey, &cached)
		if err != nil {
			u.log.Warn("metrics cache read failed", zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	m, err := u.computeMetrics(ctx)
	if err != nil {
		return nil, err
	}

	if u.cache != nil {
		if err := u.cache.Set(ctx, metricsCacheKey, m, metricsTTL); err != nil {
			u.log.Warn("metrics cache write failed", zap.Error(err))
		}
	}
	return m, nil
}

func (u *DashboardUsecase) computeMetrics(ctx context.Context) (*entities.DashboardMetrics, error) {
	now := u.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	todayCounts, err := u.metrics.CountWindow(ctx, today, tomorrow)
	if err != nil {
		return nil, err
	}
	yesterdayCounts, err := u.metrics.CountWindow(ctx, yesterday, today)
	if err != nil {
		return nil, err
	}
	sent, accepted, err := u.metrics.StatusTotals(ctx)
	if err != nil {
		return nil, err
	}
	byDay, err := u.metrics.ConversationsByDay(ctx, today.AddDate(0, 0, -chartDays))
	if err != nil {
		return nil, err
	}
	byStatus, err := u.metrics.QuotesByStatus(ctx)
	if err != nil {
		return nil, err
	}
	topQuoted, err := u.metrics.TopProducts(ctx, false, topProducts)
	if err != nil {
		return nil, err
	}
	topSold, err := u.metrics.TopProducts(ctx, true, topProducts)
	if err != nil {
		return nil, err
	}

	m := &entities.DashboardMetrics{
		NewConversationsToday:     todayCounts.NewChats,
		NewConversationsYesterday: yesterdayCounts.NewChats,
		QuotesSentToday:           todayCounts.QuotesSent,
		QuotesSentYesterday:       yesterdayCounts.QuotesSent,
		QuotesAcceptedToday:       todayCounts.Accepted,
		QuotesAcceptedYesterday:   yesterdayCounts.Accepted,
		TotalRevenueToday:         todayCounts.Revenue,
		TotalRevenueYesterday:     yesterdayCounts.Revenue,
		ConversionRate:            ConversionRate(sent, accepted),
		ConversationsByDay:        nonNil(byDay),
		QuotesByStatus:            statusCounts(byStatus),
		TopQuotedProducts:         nonNil(topQuoted),
		TopSoldProducts:           nonNil(topSold),
	}
	return m, nil
}

// ConversionRate is accepted over sent as a percentage, 0 when nothing was sent.
func ConversionRate(sent, accepted int) float64 {
	if sent <= 0 {
		return 0
	}
	return float64(accepted) / float64(sent) * 100
}

func statusCounts(m map[string]int) []entities.StatusCount {
	out := make([]entities.StatusCount, 0, len(m))
	for status, n := range m {
		if status == "" {
			status = "unknown"
		}
		out = append(out, entities.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (u *DashboardUsecase) ListChats(ctx context.Context) ([]entities.ChatWithLastMessage, error) {
	chats, err := u.chats.ListWithLastMessage(ctx)
	return nonNil(chats), err
}

func (u *DashboardUsecase) ChatMessages(ctx context.Context, chatID string) ([]entities.Message, error) {
	if _, err := u.chats.GetByID(ctx, chatID); err != nil {
		return nil, mapNotFound(err)
	}
	msgs, err := u.messages.ListByChat(ctx, chatID)
	return nonNil(msgs), err
}

func (u *DashboardUsecase) UpdateChatStatus(ctx context.Context, chatID string, status entities.ChatStatus) (*entities.Chat, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	chat, err := u.chats.UpdateStatus(ctx, chatID, status)
	return chat, mapNotFound(err)
}

func (u *DashboardUsecase) ListQuotes(ctx context.Context, status entities.QuoteStatus) ([]entities.Quote, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	quotes, err := u.quotes.List(ctx, status)
	return nonNil(quotes), err
}

func (u *DashboardUsecase) GetQuote(ctx context.Context, id string) (*entities.Quote, error) {
	q, err := u.quotes.GetByID(ctx, id)
	return q, mapNotFound(err)
}

// UpdateQuoteStatus moves a quote to any status; transitions are not
// checked for legality.
func (u *DashboardUsecase) UpdateQuoteStatus(ctx context.Context, id string, status entities.QuoteStatus) (*entities.Quote, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	q, err := u.quotes.UpdateStatus(ctx, id, status, u.now().UTC())
	return q, mapNotFound(err)
}

func (u *DashboardUsecase) ListProducts(ctx context.Context, f entities.ProductFilter) ([]entities.Product, error) {
	products, err := u.products.ListActive(ctx, f)
	return nonNil(products), err
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
