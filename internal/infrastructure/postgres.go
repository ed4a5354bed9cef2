package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
	log  *zap.Logger
}

func NewPostgresClient(ctx context.Context, connString string, log *zap.Logger) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool, log: log}

	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

// schema is applied in order on every start; every statement is idempotent.
var schema = []struct {
	name string
	sql  string
}{
	{"extension pgcrypto", `CREATE EXTENSION IF NOT EXISTS pgcrypto;`},
	{"agents", `
		CREATE TABLE IF NOT EXISTS agents (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT 'gemini-pro',
			system_prompt TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"whatsapp_instances", `
		CREATE TABLE IF NOT EXISTS whatsapp_instances (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			instance_name TEXT UNIQUE NOT NULL,
			instance_id TEXT,
			status TEXT NOT NULL DEFAULT 'created',
			api_key TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"whatsapp_webhooks", `
		CREATE TABLE IF NOT EXISTS whatsapp_webhooks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			instance_id TEXT,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			processing_status TEXT NOT NULL DEFAULT 'processing',
			error_log TEXT,
			processed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"chats", `
		CREATE TABLE IF NOT EXISTS chats (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			whatsapp_phone TEXT NOT NULL,
			contact_name TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			instance_id TEXT,
			agent_id UUID REFERENCES agents(id) ON DELETE SET NULL,
			last_message_at TIMESTAMPTZ,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	// One chat per phone; the ingestion upsert relies on this index.
	{"chats phone index", `CREATE UNIQUE INDEX IF NOT EXISTS chats_whatsapp_phone_key ON chats (whatsapp_phone);`},
	{"messages", `
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			chat_id UUID NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			role TEXT NOT NULL,
			message_type TEXT NOT NULL DEFAULT 'text',
			whatsapp_message_id TEXT,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"messages external id index", `CREATE UNIQUE INDEX IF NOT EXISTS messages_whatsapp_message_id_key ON messages (whatsapp_message_id);`},
	{"messages chat index", `CREATE INDEX IF NOT EXISTS messages_chat_id_created_at_idx ON messages (chat_id, created_at);`},
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			sku TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			price NUMERIC(14, 2) NOT NULL,
			cost NUMERIC(14, 2) NOT NULL,
			category TEXT,
			stock INT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"quotes", `
		CREATE TABLE IF NOT EXISTS quotes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			chat_id UUID NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
			quote_number TEXT NOT NULL,
			subtotal NUMERIC(14, 2) NOT NULL DEFAULT 0,
			tax NUMERIC(14, 2) NOT NULL DEFAULT 0,
			total NUMERIC(14, 2) NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'draft',
			notes TEXT,
			metadata JSONB NOT NULL DEFAULT '{}',
			sent_at TIMESTAMPTZ,
			accepted_at TIMESTAMPTZ,
			rejected_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"quote_items", `
		CREATE TABLE IF NOT EXISTS quote_items (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			quote_id UUID NOT NULL REFERENCES quotes(id) ON DELETE CASCADE,
			product_sku TEXT NOT NULL,
			product_name TEXT NOT NULL,
			quantity INT NOT NULL DEFAULT 1,
			unit_price NUMERIC(14, 2) NOT NULL,
			unit_cost NUMERIC(14, 2) NOT NULL,
			subtotal NUMERIC(14, 2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
	{"webhooks_log", `
		CREATE TABLE IF NOT EXISTS webhooks_log (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			status TEXT NOT NULL DEFAULT 'success',
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`},
}

func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, step := range schema {
		if _, err := p.Pool.Exec(ctx, step.sql); err != nil {
			return fmt.Errorf("create %s: %w", step.name, err)
		}
	}
	if p.log != nil {
		p.log.Info("database schema ready", zap.Int("steps", len(schema)))
	}
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
