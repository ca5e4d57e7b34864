package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/calvinalkan/warehouse/internal/config"
	"github.com/calvinalkan/warehouse/internal/inventory"
	"github.com/calvinalkan/warehouse/internal/snapshot"
	"github.com/calvinalkan/warehouse/pkg/warehouse"
)

// EnvNow pins the clock (RFC 3339) so runs are reproducible.
const EnvNow = "WAREHOUSE_NOW"

type store = warehouse.Store[*inventory.Item]

// session holds what the commands of one invocation share. In the shell
// it lives across command lines, so the loaded store and the policy
// cursor survive between them.
type session struct {
	cfg    config.Config
	env    map[string]string
	stdin  io.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *warehouse.Metrics
	policy   warehouse.Policy[*inventory.Item]

	backend snapshot.Backend
	store   *store
	inShell bool
}

func newSession(cfg config.Config, stdin io.Reader, out, errOut io.Writer, env map[string]string) (*session, error) {
	now, err := clockFromEnv(env)
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: errOut, NoColor: true, TimeFormat: time.RFC3339}).
		Level(cfg.Level()).
		With().Timestamp().Logger()

	registry := prometheus.NewRegistry()

	metrics, err := warehouse.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	policy, err := warehouse.NewPolicy[*inventory.Item](cfg.Policy, cfg.Search())
	if err != nil {
		return nil, err
	}

	return &session{
		cfg:      cfg,
		env:      env,
		stdin:    stdin,
		out:      out,
		errOut:   errOut,
		now:      now,
		logger:   logger,
		registry: registry,
		metrics:  metrics,
		policy:   policy,
	}, nil
}

func clockFromEnv(env map[string]string) (func() time.Time, error) {
	raw := env[EnvNow]
	if raw == "" {
		return time.Now, nil
	}

	fixed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", EnvNow, raw, err)
	}

	return func() time.Time { return fixed }, nil
}

func (s *session) options(maxIdx int) warehouse.Options {
	return warehouse.Options{MaxIdx: maxIdx, Logger: &s.logger, Metrics: s.metrics}
}

// open connects the snapshot backend on first use.
func (s *session) open(ctx context.Context) (snapshot.Backend, error) {
	if s.backend != nil {
		return s.backend, nil
	}

	backend, err := snapshot.Open(ctx, s.cfg.SnapshotConfig(s.now))
	if err != nil {
		return nil, err
	}

	s.backend = backend

	return backend, nil
}

// load returns the current warehouse, reading the snapshot on first use.
func (s *session) load(ctx context.Context) (*store, error) {
	if s.store != nil {
		return s.store, nil
	}

	backend, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	data, info, err := backend.Load(ctx, s.cfg.Snapshot.Key)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return nil, ErrNotInitialized
		}

		return nil, err
	}

	st, err := warehouse.Decode[*inventory.Item](bytes.NewReader(data), s.options(0))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", info.ID, err)
	}

	s.logger.Debug().
		Str("driver", string(backend.Driver())).
		Str("snapshot_id", info.ID.String()).
		Int("products", st.Len()).
		Msg("warehouse loaded")

	s.use(st)

	return st, nil
}

// save persists st and makes it the current warehouse.
func (s *session) save(ctx context.Context, st *store) error {
	backend, err := s.open(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	err = st.Encode(&buf)
	if err != nil {
		return err
	}

	info, err := backend.Save(ctx, s.cfg.Snapshot.Key, buf.Bytes())
	if err != nil {
		// The in-memory store is ahead of the snapshot now; reload next time.
		s.store = nil

		return err
	}

	s.logger.Debug().
		Str("driver", string(backend.Driver())).
		Str("snapshot_id", info.ID.String()).
		Int64("bytes", info.Size).
		Msg("warehouse saved")

	s.store = st

	return nil
}

// use installs the configured admission filters on st.
func (s *session) use(st *store) {
	s.store = st

	if len(st.Filters()) > 0 {
		return
	}

	f := s.cfg.Filters

	if isSet(f.RejectExpired) {
		st.AddFilter(warehouse.RejectExpired[*inventory.Item](s.now))
	}

	if isSet(f.UniqueIDs) {
		st.AddFilter(warehouse.UniqueID[*inventory.Item]())
	}

	if f.MaxAmount > 0 {
		st.AddFilter(warehouse.MaxAmount[*inventory.Item](f.MaxAmount))
	}
}

func (s *session) close() error {
	if s.backend == nil {
		return nil
	}

	err := s.backend.Close()
	s.backend = nil

	return err
}

func isSet(b *bool) bool {
	return b != nil && *b
}
