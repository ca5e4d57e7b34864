package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const postgresDriverName = "pgx"

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OpenPostgres connects to dsn and ensures the snapshots table exists.
func OpenPostgres(ctx context.Context, dsn string, now func() time.Time) (*SQL, error) {
	openMu.Lock()
	db, err := sqlOpen(postgresDriverName, dsn)
	openMu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("snapshot: open postgres: %w", err)
	}

	return newSQL(ctx, db, postgresDialect, now)
}
