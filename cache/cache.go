/*
Package cache holds rendered forecast responses between writes.

PURPOSE:
  Forecast computation is side-effect free, so a response for the same
  period and company filter is reusable until the underlying records
  change. The API stores rendered JSON here and invalidates on every write.

INVALIDATION:
  Keys embed a generation counter. Invalidate bumps the counter, which
  orphans every previous entry at once; orphans expire through their TTL.

IMPLEMENTATIONS:
  Redis:  go-redis client, shared across instances
  Memory: process-local, for tests and single-node runs
  Nop:    caching disabled
*/
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Generation identifies the cache state a lookup observed. A result
// computed after a miss is stored under the Generation of that miss, so an
// Invalidate that lands while it is being computed discards it.
type Generation int64

// ResultCache stores rendered forecast responses.
type ResultCache interface {
	Get(ctx context.Context, key string) (value []byte, gen Generation, ok bool, err error)
	Set(ctx context.Context, gen Generation, key string, value []byte) error
	Invalidate(ctx context.Context) error
}

// Key builds the cache key of a forecast request. A nil filter (all
// companies) and an empty filter (no companies) get distinct keys.
func Key(kind, period string, companyIDs []string) string {
	var filter string
	switch {
	case companyIDs == nil:
		filter = "*"
	case len(companyIDs) == 0:
		filter = "-"
	default:
		ids := append([]string(nil), companyIDs...)
		sort.Strings(ids)
		filter = strings.Join(ids, ",")
	}
	return kind + ":" + period + ":" + filter
}

// =============================================================================
// NOP
// =============================================================================

type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, Generation, bool, error) { return nil, 0, false, nil }
func (Nop) Set(context.Context, Generation, string, []byte) error         { return nil }
func (Nop) Invalidate(context.Context) error                              { return nil }

// =============================================================================
// MEMORY
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	gen     Generation
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, Generation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	return v, m.gen, ok, nil
}

// Set drops the value when the cache was invalidated after gen was read.
func (m *Memory) Set(_ context.Context, gen Generation, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil
	}
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.entries = make(map[string][]byte)
	return nil
}

// Len is the number of live entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
