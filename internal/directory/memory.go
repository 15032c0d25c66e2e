package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Memory is an in-memory directory of taken names. Lookups compare names
// case-insensitively.
type Memory struct {
	clock   clock.Clock
	latency time.Duration

	mu    sync.RWMutex
	taken map[string]map[string]struct{}
}

type MemoryOption func(*Memory)

// WithLatency delays every lookup, simulating a remote directory.
func WithLatency(d time.Duration) MemoryOption {
	return func(m *Memory) {
		m.latency = d
	}
}

func WithClock(c clock.Clock) MemoryOption {
	return func(m *Memory) {
		m.clock = c
	}
}

// WithTaken seeds the directory. Each entry is "name" or "name@context"; the
// last '@' separates the context.
func WithTaken(entries ...string) MemoryOption {
	return func(m *Memory) {
		for _, entry := range entries {
			value, domain := SplitEntry(entry)
			m.add(value, domain)
		}
	}
}

// WithTakenRaw seeds whole entries under the empty context. Email addresses
// are seeded this way since their '@' is not a context separator.
func WithTakenRaw(entries ...string) MemoryOption {
	return func(m *Memory) {
		for _, entry := range entries {
			m.add(entry, "")
		}
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		clock: clock.New(),
		taken: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Exists reports whether value is taken within domain.
func (m *Memory) Exists(ctx context.Context, value, domain string) (bool, error) {
	if m.latency > 0 {
		timer := m.clock.Timer(m.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.taken[domain][normalize(value)]
	return ok, nil
}

// Add marks value as taken within domain.
func (m *Memory) Add(value, domain string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.add(value, domain)
}

// Remove frees value within domain.
func (m *Memory) Remove(value, domain string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.taken[domain], normalize(value))
}

// Len returns the number of taken names across all contexts.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, names := range m.taken {
		n += len(names)
	}
	return n
}

func (m *Memory) add(value, domain string) {
	names, ok := m.taken[domain]
	if !ok {
		names = make(map[string]struct{})
		m.taken[domain] = names
	}
	names[normalize(value)] = struct{}{}
}

// SplitEntry splits "name@context" at the last '@'. An entry without '@' has
// an empty context.
func SplitEntry(entry string) (value, domain string) {
	i := strings.LastIndexByte(entry, '@')
	if i < 0 {
		return entry, ""
	}
	return entry[:i], entry[i+1:]
}

func normalize(value string) string {
	return strings.ToLower(value)
}
