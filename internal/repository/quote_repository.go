package repository

import (
	"context"
	"fmt"
	"time"
	"whatsapp_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QuoteRepository struct {
	db *pgxpool.Pool
}

func NewQuoteRepository(db *pgxpool.Pool) *QuoteRepository {
	return &QuoteRepository{db: db}
}

const quoteColumns = `id, chat_id, quote_number, subtotal, tax, total, status, notes, metadata, sent_at, accepted_at, rejected_at, created_at, updated_at`

// CreateWithItems stores a quote and its line items in one transaction.
func (r *QuoteRepository) CreateWithItems(ctx context.Context, q *entities.Quote) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if q.Status == "" {
		q.Status = entities.QuoteDraft
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO quotes (chat_id, quote_number, subtotal, tax, total, status, notes, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, q.ChatID, q.QuoteNumber, q.Subtotal, q.Tax, q.Total, string(q.Status), q.Notes, jsonOrEmpty(q.Metadata),
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}

	batch := &pgx.Batch{}
	for i := range q.Items {
		q.Items[i].QuoteID = q.ID
		it := q.Items[i]
		batch.Queue(`
			INSERT INTO quote_items (quote_id, product_sku, product_name, quantity, unit_price, unit_cost, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, it.QuoteID, it.ProductSKU, it.ProductName, it.Quantity, it.UnitPrice, it.UnitCost, it.Subtotal)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert quote items: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *QuoteRepository) List(ctx context.Context, status entities.QuoteStatus) ([]entities.Quote, error) {
	query := `SELECT ` + quoteColumns + ` FROM quotes`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	var out []entities.Quote
	for rows.Next() {
		q, err := scanQuote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (r *QuoteRepository) GetByID(ctx context.Context, id string) (*entities.Quote, error) {
	q, err := scanQuote(r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, quote_id, product_sku, product_name, quantity, unit_price, unit_cost, subtotal, created_at
		FROM quote_items WHERE quote_id = $1 ORDER BY created_at
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list quote items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var it entities.QuoteItem
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.ProductSKU, &it.ProductName, &it.Quantity,
			&it.UnitPrice, &it.UnitCost, &it.Subtotal, &it.CreatedAt); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, it)
	}
	return q, rows.Err()
}

// UpdateStatus moves a quote to any status and stamps the matching
// transition time. Legality of the transition is not checked.
func (r *QuoteRepository) UpdateStatus(ctx context.Context, id string, status entities.QuoteStatus, at time.Time) (*entities.Quote, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE quotes SET
			status = $2,
			sent_at = CASE WHEN $2 = 'sent' THEN $3 ELSE sent_at END,
			accepted_at = CASE WHEN $2 = 'accepted' THEN $3 ELSE accepted_at END,
			rejected_at = CASE WHEN $2 = 'rejected' THEN $3 ELSE rejected_at END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+quoteColumns, id, string(status), at)
	q, err := scanQuote(row)
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

func scanQuote(row pgx.Row) (*entities.Quote, error) {
	var q entities.Quote
	err := row.Scan(&q.ID, &q.ChatID, &q.QuoteNumber, &q.Subtotal, &q.Tax, &q.Total, &q.Status, &q.Notes,
		&q.Metadata, &q.SentAt, &q.AcceptedAt, &q.RejectedAt, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}
