package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"whatsapp_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{
		db: db,
	}
}

const productColumns = `sku, name, description, price, cost, category, stock, is_active, metadata, created_at, updated_at`

// SyncFromCSV upserts catalog rows from a CSV export with the header
// sku,name,description,price,cost,category,stock. It returns how many rows
// were written; malformed rows are skipped.
func (r *ProductRepository) SyncFromCSV(ctx context.Context, src io.Reader) (int, error) {
	reader := csv.NewReader(src)
	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV: %w", err)
	}

	synced := 0
	// Skip header row
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if len(rec) < 7 {
			continue
		}
		price, perr := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		cost, cerr := strconv.ParseFloat(strings.TrimSpace(rec[4]), 64)
		stock, serr := strconv.Atoi(strings.TrimSpace(rec[6]))
		if perr != nil || cerr != nil || serr != nil {
			continue
		}

		_, err := r.db.Exec(ctx, `
			INSERT INTO products (sku, name, description, price, cost, category, stock)
			VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7)
			ON CONFLICT (sku) DO UPDATE
			SET name = EXCLUDED.name,
			    description = EXCLUDED.description,
			    price = EXCLUDED.price,
			    cost = EXCLUDED.cost,
			    category = EXCLUDED.category,
			    stock = EXCLUDED.stock,
			    updated_at = NOW();
		`, strings.TrimSpace(rec[0]), rec[1], rec[2], price, cost, rec[5], stock)
		if err != nil {
			return synced, fmt.Errorf("sync product %s: %w", rec[0], err)
		}
		synced++
	}
	return synced, nil
}

// ListActive returns the active catalog, optionally narrowed by category,
// a name/description search term and a row limit.
func (r *ProductRepository) ListActive(ctx context.Context, f entities.ProductFilter) ([]entities.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active = TRUE`
	args := []any{}
	if f.Category != "" {
		args = append(args, f.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.SearchTerm != "" {
		args = append(args, "%"+f.SearchTerm+"%")
		query += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY name"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (r *ProductRepository) GetBySKU(ctx context.Context, sku string) (*entities.Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE sku = $1`, sku)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrNotFound
	}
	return &products[0], nil
}

func scanProducts(rows pgx.Rows) ([]entities.Product, error) {
	var products []entities.Product
	for rows.Next() {
		var p entities.Product
		err := rows.Scan(&p.SKU, &p.Name, &p.Description, &p.Price, &p.Cost, &p.Category, &p.Stock,
			&p.IsActive, &p.Metadata, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
