package cache

import (
	"context"
	"database/sql"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists cache entries in a local SQLite database so warm data
// survives process restarts.
type SQLiteStore struct {
	db       *sql.DB
	ttl      ttlPolicy
	recorder Recorder

	hits   atomic.Int64
	misses atomic.Int64
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteTTLOverrides replaces namespace default TTLs.
func WithSQLiteTTLOverrides(overrides map[string]time.Duration) SQLiteOption {
	return func(s *SQLiteStore) {
		s.ttl = ttlPolicy{overrides: overrides}
	}
}

// WithSQLiteRecorder attaches a metrics recorder.
func WithSQLiteRecorder(r Recorder) SQLiteOption {
	return func(s *SQLiteStore) {
		s.recorder = r
	}
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}

	s := &SQLiteStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	namespace  TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	variant    TEXT NOT NULL DEFAULT '',
	payload    BLOB NOT NULL,
	cached_at  DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	PRIMARY KEY (namespace, entity_id, variant)
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_entity_id ON cache_entries(entity_id);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
`

// Migrate creates the cache schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "cache: migrate sqlite")
}

// Get reads a live entry. Backend errors degrade to misses.
func (s *SQLiteStore) Get(ctx context.Context, namespace, entityID, variant string) ([]byte, bool) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM cache_entries
		 WHERE namespace = ? AND entity_id = ? AND variant = ? AND expires_at > ?`,
		namespace, entityID, normalizeVariant(variant), time.Now().UTC(),
	)

	var payload []byte
	err := row.Scan(&payload)
	if err == sql.ErrNoRows {
		s.misses.Add(1)
		record(s.recorder, namespace, ResultMiss)
		return nil, false
	}
	if err != nil {
		zap.L().Warn("cache: sqlite read failed", zap.String("namespace", namespace), zap.Error(err))
		s.misses.Add(1)
		record(s.recorder, namespace, ResultMiss)
		return nil, false
	}

	s.hits.Add(1)
	record(s.recorder, namespace, ResultHit)
	return payload, true
}

// Set upserts an entry. A zero ttl selects the namespace default.
func (s *SQLiteStore) Set(ctx context.Context, namespace, entityID, variant string, payload []byte, ttl time.Duration) bool {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries (namespace, entity_id, variant, payload, cached_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, entity_id, variant) DO UPDATE SET
		   payload = excluded.payload,
		   cached_at = excluded.cached_at,
		   expires_at = excluded.expires_at`,
		namespace, entityID, normalizeVariant(variant), payload, now, now.Add(s.ttl.ttlFor(namespace, ttl)),
	)
	if err != nil {
		zap.L().Warn("cache: sqlite write failed", zap.String("namespace", namespace), zap.Error(err))
		return false
	}

	record(s.recorder, namespace, ResultSet)
	return true
}

// Delete removes a single entry.
func (s *SQLiteStore) Delete(ctx context.Context, namespace, entityID, variant string) bool {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE namespace = ? AND entity_id = ? AND variant = ?`,
		namespace, entityID, normalizeVariant(variant),
	)
	if err != nil {
		zap.L().Warn("cache: sqlite delete failed", zap.String("namespace", namespace), zap.Error(err))
		return false
	}
	n, _ := res.RowsAffected()
	return n > 0
}

// InvalidateEntity removes every entry for the entity id across all
// namespaces and variants.
func (s *SQLiteStore) InvalidateEntity(ctx context.Context, entityID string) int {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE entity_id = ?`, entityID,
	)
	if err != nil {
		zap.L().Warn("cache: sqlite invalidate failed", zap.String("entity_id", entityID), zap.Error(err))
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// PurgeExpired deletes entries past their expiry and returns the count.
func (s *SQLiteStore) PurgeExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "cache: purge expired")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Stats returns a snapshot of cache state including on-disk size.
func (s *SQLiteStore) Stats(ctx context.Context) Stats {
	perNS := make(map[string]int)
	total := 0

	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace, COUNT(*) FROM cache_entries WHERE expires_at > ? GROUP BY namespace`,
		time.Now().UTC(),
	)
	if err != nil {
		zap.L().Warn("cache: sqlite stats failed", zap.Error(err))
	} else {
		defer rows.Close()
		for rows.Next() {
			var ns string
			var n int
			if err := rows.Scan(&ns, &n); err != nil {
				zap.L().Warn("cache: sqlite stats scan failed", zap.Error(err))
				break
			}
			perNS[ns] = n
			total += n
		}
	}

	var pageCount, pageSize int64
	s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount)
	s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize)

	hits := s.hits.Load()
	misses := s.misses.Load()

	return Stats{
		Backend:          "sqlite",
		Enabled:          true,
		TotalKeys:        total,
		KeysPerNamespace: perNS,
		MemoryUsageBytes: pageCount * pageSize,
		Hits:             hits,
		Misses:           misses,
		HitRate:          hitRate(hits, misses),
	}
}

// Enabled reports that the store accepts reads and writes.
func (s *SQLiteStore) Enabled() bool { return true }

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
