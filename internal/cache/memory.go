package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

const defaultMaxEntries = 10_000

// MemoryStore is the default backend: a concurrent-safe in-process map with
// per-entry TTL and LRU eviction at capacity.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]*memEntry
	order      []string // LRU order: front=oldest, back=newest
	maxEntries int
	bytes      int64

	ttl      ttlPolicy
	clock    clockwork.Clock
	recorder Recorder

	hits   atomic.Int64
	misses atomic.Int64
}

type memEntry struct {
	namespace string
	entityID  string
	payload   []byte
	cachedAt  time.Time
	expiresAt time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMaxEntries caps the number of cached entries. Oldest entries are
// evicted first once the cap is reached.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithClock injects the time source. Tests use a fake clock to force TTL
// expiry without sleeping.
func WithClock(c clockwork.Clock) MemoryOption {
	return func(s *MemoryStore) {
		s.clock = c
	}
}

// WithTTLOverrides replaces namespace default TTLs.
func WithTTLOverrides(overrides map[string]time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttlPolicy{overrides: overrides}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) MemoryOption {
	return func(s *MemoryStore) {
		s.recorder = r
	}
}

// NewMemory creates a MemoryStore.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries:    make(map[string]*memEntry),
		maxEntries: defaultMaxEntries,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the cached payload, or a miss if absent or expired.
// Expired entries are removed on read.
func (s *MemoryStore) Get(_ context.Context, namespace, entityID, variant string) ([]byte, bool) {
	key := Key(namespace, entityID, normalizeVariant(variant))

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		s.misses.Add(1)
		record(s.recorder, namespace, ResultMiss)
		return nil, false
	}

	if s.clock.Now().After(entry.expiresAt) {
		s.removeLocked(key, entry)
		s.misses.Add(1)
		record(s.recorder, namespace, ResultMiss)
		return nil, false
	}

	// Move to back (most recently used).
	s.removeFromOrder(key)
	s.order = append(s.order, key)

	s.hits.Add(1)
	record(s.recorder, namespace, ResultHit)

	out := make([]byte, len(entry.payload))
	copy(out, entry.payload)
	return out, true
}

// Set stores a payload, evicting the oldest entries at capacity. A zero ttl
// selects the namespace default.
func (s *MemoryStore) Set(_ context.Context, namespace, entityID, variant string, payload []byte, ttl time.Duration) bool {
	key := Key(namespace, entityID, normalizeVariant(variant))
	now := s.clock.Now()

	entry := &memEntry{
		namespace: namespace,
		entityID:  entityID,
		payload:   append([]byte(nil), payload...),
		cachedAt:  now,
		expiresAt: now.Add(s.ttl.ttlFor(namespace, ttl)),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// An overwrite cannot grow the entry count, so remove the old entry
	// fully before the eviction check or an unrelated key gets evicted.
	if old, ok := s.entries[key]; ok {
		s.bytes -= int64(len(old.payload) + len(key))
		delete(s.entries, key)
		s.removeFromOrder(key)
	}

	for len(s.entries) >= s.maxEntries && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		if old, ok := s.entries[oldest]; ok {
			s.bytes -= int64(len(old.payload) + len(oldest))
			delete(s.entries, oldest)
		}
	}

	s.entries[key] = entry
	s.order = append(s.order, key)
	s.bytes += int64(len(entry.payload) + len(key))

	record(s.recorder, namespace, ResultSet)
	return true
}

// Delete removes a single entry.
func (s *MemoryStore) Delete(_ context.Context, namespace, entityID, variant string) bool {
	key := Key(namespace, entityID, normalizeVariant(variant))

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	s.removeLocked(key, entry)
	return true
}

// InvalidateEntity removes every entry for the entity id across all
// namespaces and variants.
func (s *MemoryStore) InvalidateEntity(_ context.Context, entityID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int
	var remaining []string
	for _, key := range s.order {
		entry, ok := s.entries[key]
		if ok && entry.entityID == entityID {
			s.bytes -= int64(len(entry.payload) + len(key))
			delete(s.entries, key)
			deleted++
			continue
		}
		remaining = append(remaining, key)
	}
	s.order = remaining
	return deleted
}

// Stats returns a snapshot of cache state.
func (s *MemoryStore) Stats(_ context.Context) Stats {
	s.mu.Lock()
	perNS := make(map[string]int)
	for _, entry := range s.entries {
		perNS[entry.namespace]++
	}
	total := len(s.entries)
	bytes := s.bytes
	s.mu.Unlock()

	hits := s.hits.Load()
	misses := s.misses.Load()

	return Stats{
		Backend:          "memory",
		Enabled:          true,
		TotalKeys:        total,
		KeysPerNamespace: perNS,
		MemoryUsageBytes: bytes,
		Hits:             hits,
		Misses:           misses,
		HitRate:          hitRate(hits, misses),
	}
}

// Enabled reports that the store accepts reads and writes.
func (s *MemoryStore) Enabled() bool { return true }

// Close releases nothing for the in-memory backend.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) removeLocked(key string, entry *memEntry) {
	s.bytes -= int64(len(entry.payload) + len(key))
	delete(s.entries, key)
	s.removeFromOrder(key)
}

func (s *MemoryStore) removeFromOrder(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
