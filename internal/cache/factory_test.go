package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_DefaultsToMemory(t *testing.T) {
	s := Open(context.Background(), Config{}, nil)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	assert.IsType(t, &MemoryStore{}, s)
	assert.True(t, s.Enabled())
}

func TestOpen_Off(t *testing.T) {
	s := Open(context.Background(), Config{Backend: BackendOff}, nil)

	assert.IsType(t, &NoopStore{}, s)
	assert.False(t, s.Enabled())
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s := Open(context.Background(), Config{Backend: BackendSQLite, Path: path}, nil)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck

	require.IsType(t, &SQLiteStore{}, s)

	ok := s.Set(context.Background(), NamespaceBasicInfo, "3550308", "", []byte("x"), 0)
	assert.True(t, ok)
}

func TestOpen_UnreachableBackendDegradesToNoop(t *testing.T) {
	// Parent directory does not exist, so SQLite cannot create the file.
	path := filepath.Join(t.TempDir(), "missing", "sub", "cache.db")
	s := Open(context.Background(), Config{Backend: BackendSQLite, Path: path}, nil)

	assert.IsType(t, &NoopStore{}, s)

	// Callers see a cold cache, never an error.
	ok := s.Set(context.Background(), NamespaceBasicInfo, "3550308", "", []byte("x"), 0)
	assert.False(t, ok)
	_, hit := s.Get(context.Background(), NamespaceBasicInfo, "3550308", "")
	assert.False(t, hit)
}

func TestNoop_Stats(t *testing.T) {
	s := NewNoop()

	stats := s.Stats(context.Background())
	assert.Equal(t, "noop", stats.Backend)
	assert.False(t, stats.Enabled)
	assert.Equal(t, 0, stats.TotalKeys)
	assert.Equal(t, 0, s.InvalidateEntity(context.Background(), "3550308"))
}
