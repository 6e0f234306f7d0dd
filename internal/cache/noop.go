package cache

import (
	"context"
	"time"
)

// NoopStore is the degraded backend used when the configured one is
// unavailable. Every read is a miss and every write is dropped, so callers
// behave exactly as they would on a cold cache.
type NoopStore struct{}

// NewNoop creates a NoopStore.
func NewNoop() *NoopStore { return &NoopStore{} }

func (*NoopStore) Get(context.Context, string, string, string) ([]byte, bool) { return nil, false }

func (*NoopStore) Set(context.Context, string, string, string, []byte, time.Duration) bool {
	return false
}

func (*NoopStore) Delete(context.Context, string, string, string) bool { return false }

func (*NoopStore) InvalidateEntity(context.Context, string) int { return 0 }

func (*NoopStore) Stats(context.Context) Stats {
	return Stats{Backend: "noop", Enabled: false, KeysPerNamespace: map[string]int{}}
}

func (*NoopStore) Enabled() bool { return false }

func (*NoopStore) Close() error { return nil }
