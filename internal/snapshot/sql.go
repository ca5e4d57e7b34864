package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// sqlDialect holds the statements that differ between databases. Every
// dialect uses the same table:
//
//	snapshots(key PRIMARY KEY, id, saved_at, payload)
type sqlDialect struct {
	driver Driver
	schema string
	upsert string
	load   string
}

var sqliteDialect = sqlDialect{
	driver: DriverSQLite,
	schema: `CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`,
	upsert: `INSERT INTO snapshots (key, id, saved_at, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET id = excluded.id, saved_at = excluded.saved_at, payload = excluded.payload`,
	load: `SELECT id, saved_at, payload FROM snapshots WHERE key = ?`,
}

var postgresDialect = sqlDialect{
	driver: DriverPostgres,
	schema: `CREATE TABLE IF NOT EXISTS snapshots (
		key TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		payload BYTEA NOT NULL
	)`,
	upsert: `INSERT INTO snapshots (key, id, saved_at, payload) VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE SET id = EXCLUDED.id, saved_at = EXCLUDED.saved_at, payload = EXCLUDED.payload`,
	load: `SELECT id, saved_at, payload FROM snapshots WHERE key = $1`,
}

// SQL stores envelopes as rows of the snapshots table. The envelope fields
// are columns; the warehouse JSON is the payload.
type SQL struct {
	db      *sql.DB
	dialect sqlDialect
	now     func() time.Time
}

func newSQL(ctx context.Context, db *sql.DB, dialect sqlDialect, now func() time.Time) (*SQL, error) {
	if now == nil {
		now = time.Now
	}

	err := db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("snapshot: ping %s: %w", dialect.driver, err)
	}

	_, err = db.ExecContext(ctx, dialect.schema)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("snapshot: ensure snapshots table: %w", err)
	}

	return &SQL{db: db, dialect: dialect, now: now}, nil
}

func (s *SQL) Driver() Driver { return s.dialect.driver }

// DB exposes the underlying handle for tests.
func (s *SQL) DB() *sql.DB { return s.db }

func (s *SQL) Save(ctx context.Context, key string, data []byte) (Info, error) {
	err := validKey(key)
	if err != nil {
		return Info{}, err
	}

	env, err := newEnvelope(data, s.now)
	if err != nil {
		return Info{}, err
	}

	_, err = s.db.ExecContext(ctx, s.dialect.upsert,
		key, env.ID.String(), env.SavedAt.Format(time.RFC3339Nano), []byte(env.Warehouse))
	if err != nil {
		return Info{}, fmt.Errorf("snapshot: upsert %q: %w", key, err)
	}

	return env.info(key), nil
}

func (s *SQL) Load(ctx context.Context, key string) ([]byte, Info, error) {
	var (
		id      string
		savedAt string
		payload []byte
	)

	err := s.db.QueryRowContext(ctx, s.dialect.load, key).Scan(&id, &savedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, Info{}, fmt.Errorf("snapshot: select %q: %w", key, err)
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, Info{}, fmt.Errorf("snapshot: row %q: bad id: %w", key, err)
	}

	at, err := time.Parse(time.RFC3339Nano, savedAt)
	if err != nil {
		return nil, Info{}, fmt.Errorf("snapshot: row %q: bad saved_at: %w", key, err)
	}

	return payload, Info{Key: key, ID: parsedID, Size: int64(len(payload)), SavedAt: at}, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}
