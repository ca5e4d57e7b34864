// Package snapshot persists encoded warehouse snapshots.
//
// A [Backend] stores opaque payloads (the JSON produced by
// warehouse.Store.Encode) under a key. Every save wraps the payload in an
// [Envelope] carrying a fresh id and the save time, so callers can tell two
// saves of identical content apart.
//
// Drivers:
//   - fs: one file per key, replaced atomically, writers serialized by flock
//   - sqlite: a single database file (modernc.org/sqlite, no cgo)
//   - postgres: a shared database reached through pgx's database/sql driver
//   - s3: one object per key in a bucket
//   - memory: process-local, for tests and the interactive shell
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Load when nothing was saved under the key.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrInvalidConfig is returned by Open for unusable configuration.
	ErrInvalidConfig = errors.New("snapshot: invalid config")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("snapshot: backend closed")
)

// Driver names a backend implementation.
type Driver string

const (
	DriverFS       Driver = "fs"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverS3       Driver = "s3"
	DriverMemory   Driver = "memory"
)

// Drivers lists every driver [Open] accepts.
func Drivers() []Driver {
	return []Driver{DriverFS, DriverSQLite, DriverPostgres, DriverS3, DriverMemory}
}

// Info describes one stored snapshot.
type Info struct {
	Key     string
	ID      uuid.UUID
	Size    int64
	SavedAt time.Time
}

// Envelope is the stored form of a snapshot.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	SavedAt   time.Time       `json:"saved_at"`
	Warehouse json.RawMessage `json:"warehouse"`
}

// Backend stores snapshot payloads by key.
//
// Save replaces whatever was stored under key. Load returns [ErrNotFound]
// (wrapped) when the key is unknown. Implementations are safe for concurrent
// use.
type Backend interface {
	Driver() Driver
	Save(ctx context.Context, key string, data []byte) (Info, error)
	Load(ctx context.Context, key string) ([]byte, Info, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Driver Driver

	// Path is the directory for fs and the database file for sqlite.
	Path string

	// DSN is the postgres connection string.
	DSN string

	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool

	// AccessKeyID and SecretAccessKey are optional static s3 keys.
	AccessKeyID     string
	SecretAccessKey string

	// Now stamps envelopes. Defaults to time.Now.
	Now func() time.Time
}

// Open constructs the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	switch cfg.Driver {
	case DriverFS, "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: fs driver needs a path", ErrInvalidConfig)
		}

		return NewFS(cfg.Path, now)
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: sqlite driver needs a path", ErrInvalidConfig)
		}

		return OpenSQLite(ctx, cfg.Path, now)
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: postgres driver needs a dsn", ErrInvalidConfig)
		}

		return OpenPostgres(ctx, cfg.DSN, now)
	case DriverS3:
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("%w: s3 driver needs a bucket", ErrInvalidConfig)
		}

		return OpenS3(ctx, S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			PathStyle:       cfg.PathStyle,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		}, now)
	case DriverMemory:
		return NewMemory(now), nil
	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, cfg.Driver)
	}
}

func validKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidConfig)
	}

	return nil
}

func newEnvelope(data []byte, now func() time.Time) (Envelope, error) {
	var compact bytes.Buffer

	err := json.Compact(&compact, data)
	if err != nil {
		return Envelope{}, fmt.Errorf("snapshot: payload is not valid JSON: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Envelope{}, fmt.Errorf("snapshot: generating id: %w", err)
	}

	return Envelope{
		ID:        id,
		SavedAt:   now().UTC().Truncate(time.Millisecond),
		Warehouse: json.RawMessage(compact.Bytes()),
	}, nil
}

func (e Envelope) info(key string) Info {
	return Info{Key: key, ID: e.ID, Size: int64(len(e.Warehouse)), SavedAt: e.SavedAt}
}

func encodeEnvelope(env Envelope) ([]byte, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encoding envelope: %w", err)
	}

	return raw, nil
}

func decodeEnvelope(key string, raw []byte) ([]byte, Info, error) {
	var env Envelope

	err := json.Unmarshal(raw, &env)
	if err != nil {
		return nil, Info{}, fmt.Errorf("snapshot: decoding %q: %w", key, err)
	}

	if len(env.Warehouse) == 0 {
		return nil, Info{}, fmt.Errorf("snapshot: decoding %q: missing warehouse", key)
	}

	return env.Warehouse, env.info(key), nil
}
