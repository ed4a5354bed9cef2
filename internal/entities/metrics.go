package entities

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type ProductStat struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// DashboardMetrics is the payload behind GET /api/dashboard/metrics.
type DashboardMetrics struct {
	NewConversationsToday     int           `json:"newConversationsToday"`
	NewConversationsYesterday int           `json:"newConversationsYesterday"`
	QuotesSentToday           int           `json:"quotesSentToday"`
	QuotesSentYesterday       int           `json:"quotesSentYesterday"`
	QuotesAcceptedToday       int           `json:"quotesAcceptedToday"`
	QuotesAcceptedYesterday   int           `json:"quotesAcceptedYesterday"`
	TotalRevenueToday         float64       `json:"totalRevenueToday"`
	TotalRevenueYesterday     float64       `json:"totalRevenueYesterday"`
	ConversionRate            float64       `json:"conversionRate"`
	ConversationsByDay        []DayCount    `json:"conversationsByDay"`
	QuotesByStatus            []StatusCount `json:"quotesByStatus"`
	TopQuotedProducts         []ProductStat `json:"topQuotedProducts"`
	TopSoldProducts           []ProductStat `json:"topSoldProducts"`
}
