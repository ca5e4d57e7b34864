package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register the pure-Go sqlite driver
)

const sqliteMemory = ":memory:"

// OpenSQLite opens (creating if needed) the database file at path. Pass
// ":memory:" for a private in-memory database.
func OpenSQLite(ctx context.Context, path string, now func() time.Time) (*SQL, error) {
	if path != sqliteMemory {
		err := os.MkdirAll(filepath.Dir(path), 0o750)
		if err != nil {
			return nil, fmt.Errorf("snapshot: create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open sqlite: %w", err)
	}

	// One connection: an in-memory database lives and dies with its
	// connection, and sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("snapshot: configure sqlite: %w", err)
	}

	return newSQL(ctx, db, sqliteDialect, now)
}
