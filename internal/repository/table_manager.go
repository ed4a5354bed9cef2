package repository

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TableStat is the result of probing one table.
type TableStat struct {
	Exists bool   `json:"exists"`
	Count  *int64 `json:"count,omitempty"`
	Error  string `json:"error,omitempty"`
}

type TableManager struct {
	db *pgxpool.Pool
}

func NewTableManager(db *pgxpool.Pool) *TableManager {
	return &TableManager{db: db}
}

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// CountRows checks each table with an exact count. A failing table is
// reported in its stat instead of aborting the whole check.
func (m *TableManager) CountRows(ctx context.Context, tables []string) map[string]TableStat {
	out := make(map[string]TableStat, len(tables))
	for _, t := range tables {
		if !tableNamePattern.MatchString(t) {
			out[t] = TableStat{Error: "invalid table name"}
			continue
		}
		var n int64
		// Table names cannot be bound as parameters; the pattern above keeps this safe.
		err := m.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&n)
		if err != nil {
			out[t] = TableStat{Error: err.Error()}
			continue
		}
		out[t] = TableStat{Exists: true, Count: &n}
	}
	return out
}
