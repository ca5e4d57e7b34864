package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
)

// FS stores each key as <dir>/<key>.json. Writes go through a temp file and
// rename, so readers never see a partial snapshot; concurrent writers
// (including other processes) serialize on <dir>/<key>.json.lock.
type FS struct {
	dir string
	now func() time.Time
}

// NewFS returns a file backend rooted at dir. The directory is created on
// first save.
func NewFS(dir string, now func() time.Time) (*FS, error) {
	if now == nil {
		now = time.Now
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot: resolving %s: %w", dir, err)
	}

	return &FS{dir: abs, now: now}, nil
}

func (f *FS) Driver() Driver { return DriverFS }

// Dir returns the absolute snapshot directory.
func (f *FS) Dir() string { return f.dir }

// PathFor returns the file that holds key.
func (f *FS) PathFor(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FS) Save(ctx context.Context, key string, data []byte) (Info, error) {
	err := f.checkKey(key)
	if err != nil {
		return Info{}, err
	}

	env, err := newEnvelope(data, f.now)
	if err != nil {
		return Info{}, err
	}

	raw, err := encodeEnvelope(env)
	if err != nil {
		return Info{}, err
	}

	path := f.PathFor(key)

	lock, err := lockFile(ctx, path+".lock")
	if err != nil {
		return Info{}, fmt.Errorf("snapshot: %w", err)
	}

	defer func() { _ = lock.Close() }()

	err = atomic.WriteFile(path, bytes.NewReader(raw))
	if err != nil {
		return Info{}, fmt.Errorf("snapshot: writing %s: %w", path, err)
	}

	return env.info(key), nil
}

func (f *FS) Load(_ context.Context, key string) ([]byte, Info, error) {
	err := f.checkKey(key)
	if err != nil {
		return nil, Info{}, err
	}

	raw, err := os.ReadFile(f.PathFor(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if err != nil {
		return nil, Info{}, fmt.Errorf("snapshot: reading %s: %w", key, err)
	}

	return decodeEnvelope(key, raw)
}

func (f *FS) Close() error { return nil }

// Keys map to file names, so path separators and dot-names are refused.
func (f *FS) checkKey(key string) error {
	err := validKey(key)
	if err != nil {
		return err
	}

	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: key %q is not a file name", ErrInvalidConfig, key)
	}

	return nil
}
