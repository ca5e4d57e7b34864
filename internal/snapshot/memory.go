package snapshot

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Memory keeps envelopes in process memory.
type Memory struct {
	mu     sync.RWMutex
	now    func() time.Time
	state  map[string]Envelope
	closed bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}

	return &Memory{now: now, state: make(map[string]Envelope)}
}

func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Save(_ context.Context, key string, data []byte) (Info, error) {
	err := validKey(key)
	if err != nil {
		return Info{}, err
	}

	env, err := newEnvelope(data, m.now)
	if err != nil {
		return Info{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Info{}, ErrClosed
	}

	m.state[key] = env

	return env.info(key), nil
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, Info{}, ErrClosed
	}

	env, ok := m.state[key]
	if !ok {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return slices.Clone([]byte(env.Warehouse)), env.info(key), nil
}

// Keys returns the stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return slices.Sorted(maps.Keys(m.state))
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	return nil
}
