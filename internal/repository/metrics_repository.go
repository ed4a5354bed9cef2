package repository

import (
	"context"
	"fmt"
	"time"
	"whatsapp_crm/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MetricsRepository struct {
	db *pgxpool.Pool
}

func NewMetricsRepository(db *pgxpool.Pool) *MetricsRepository {
	return &MetricsRepository{db: db}
}

// WindowCounts holds the counters for one [from, to) window.
type WindowCounts struct {
	NewChats   int
	QuotesSent int
	Accepted   int
	Revenue    float64
}

// CountWindow counts chats created, quotes sent and quotes accepted in the
// window, plus the accepted revenue.
func (r *MetricsRepository) CountWindow(ctx context.Context, from, to time.Time) (WindowCounts, error) {
	var w WindowCounts
	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM chats WHERE created_at >= $1 AND created_at < $2),
			(SELECT COUNT(*) FROM quotes WHERE status = 'sent' AND sent_at >= $1 AND sent_at < $2),
			(SELECT COUNT(*) FROM quotes WHERE status = 'accepted' AND accepted_at >= $1 AND accepted_at < $2),
			(SELECT COALESCE(SUM(total), 0)::float8 FROM quotes WHERE status = 'accepted' AND accepted_at >= $1 AND accepted_at < $2)
	`, from, to).Scan(&w.NewChats, &w.QuotesSent, &w.Accepted, &w.Revenue)
	if err != nil {
		return w, fmt.Errorf("count window: %w", err)
	}
	return w, nil
}

// StatusTotals counts all quotes currently sent and accepted.
func (r *MetricsRepository) StatusTotals(ctx context.Context) (sent, accepted int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'accepted')
		FROM quotes
	`).Scan(&sent, &accepted)
	if err != nil {
		return 0, 0, fmt.Errorf("quote status totals: %w", err)
	}
	return sent, accepted, nil
}

// ConversationsByDay counts new chats per UTC day since `since`. Days
// without chats are omitted.
func (r *MetricsRepository) ConversationsByDay(ctx context.Context, since time.Time) ([]entities.DayCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT to_char((created_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS day, COUNT(*)
		FROM chats
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day
	`, since)
	if err != nil {
		return nil, fmt.Errorf("conversations by day: %w", err)
	}
	defer rows.Close()

	var out []entities.DayCount
	for rows.Next() {
		var dc entities.DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

func (r *MetricsRepository) QuotesByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM quotes GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("quotes by status: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

// TopProducts ranks quoted products. With acceptedOnly it ranks items of
// accepted quotes by revenue, otherwise every quote line counts once.
func (r *MetricsRepository) TopProducts(ctx context.Context, acceptedOnly bool, limit int) ([]entities.ProductStat, error) {
	query := `
		SELECT qi.product_sku, MAX(qi.product_name), COUNT(*)::int, SUM(qi.quantity)::int,
		       COALESCE(SUM(qi.quantity * qi.unit_price), 0)::float8
		FROM quote_items qi
		JOIN quotes q ON q.id = qi.quote_id
	`
	if acceptedOnly {
		query += ` WHERE q.status = 'accepted' GROUP BY qi.product_sku ORDER BY 5 DESC LIMIT $1`
	} else {
		query += ` GROUP BY qi.product_sku ORDER BY 3 DESC LIMIT $1`
	}
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	defer rows.Close()

	var out []entities.ProductStat
	for rows.Next() {
		var p entities.ProductStat
		if err := rows.Scan(&p.SKU, &p.Name, &p.Count, &p.Quantity, &p.Revenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
