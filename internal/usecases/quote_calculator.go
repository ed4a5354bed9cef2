package usecases

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/interfaces"
	"whatsapp_crm/internal/repository"

	"github.com/google/uuid"
)

// TaxRate is the VAT applied on top of a quote's subtotal.
const TaxRate = 0.16

// QuoteLine is one product line as sent by the automation platform.
type QuoteLine struct {
	SKU       string  `json:"sku"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	UnitCost  float64 `json:"unit_cost"`
}

type QuoteTotals struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// CalculateTotals sums quantity × unit price over the lines and adds tax.
// Prices are trusted as given.
func CalculateTotals(lines []QuoteLine) QuoteTotals {
	var subtotal float64
	for _, l := range lines {
		subtotal += float64(l.Quantity) * l.UnitPrice
	}
	tax := subtotal * TaxRate
	return QuoteTotals{
		Subtotal: round2(subtotal),
		Tax:      round2(tax),
		Total:    round2(subtotal + tax),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// QuoteCalculator builds draft quotes, filling names missing from the lines
// out of the catalog.
type QuoteCalculator struct {
	products interfaces.ProductStore
	now      func() time.Time
}

func NewQuoteCalculator(products interfaces.ProductStore) *QuoteCalculator {
	return &QuoteCalculator{products: products, now: time.Now}
}

func (qc *QuoteCalculator) BuildDraft(ctx context.Context, chatID string, lines []QuoteLine, notes string) (*entities.Quote, error) {
	if chatID == "" {
		return nil, errors.New("chat_id is required")
	}
	items := make([]entities.QuoteItem, 0, len(lines))
	for i, l := range lines {
		if l.Name == "" && l.SKU != "" && qc.products != nil {
			p, err := qc.products.GetBySKU(ctx, l.SKU)
			switch {
			case err == nil:
				lines[i].Name = p.Name
			case !errors.Is(err, repository.ErrNotFound):
				return nil, fmt.Errorf("lookup product %s: %w", l.SKU, err)
			}
			l = lines[i]
		}
		items = append(items, entities.QuoteItem{
			ProductSKU:  l.SKU,
			ProductName: l.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			UnitCost:    l.UnitCost,
			Subtotal:    round2(float64(l.Quantity) * l.UnitPrice),
		})
	}

	totals := CalculateTotals(lines)
	q := &entities.Quote{
		ChatID:      chatID,
		QuoteNumber: qc.quoteNumber(),
		Subtotal:    totals.Subtotal,
		Tax:         totals.Tax,
		Total:       totals.Total,
		Status:      entities.QuoteDraft,
		Items:       items,
	}
	if notes != "" {
		q.Notes = &notes
	}
	return q, nil
}

// quoteNumber looks like COT-20260116-1A2B3C4D.
func (qc *QuoteCalculator) quoteNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "COT-" + qc.now().Format("20060102") + "-" + suffix
}
