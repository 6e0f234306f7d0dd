package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Pool is the subset of pgxpool.Pool the cache uses. pgxmock implements it,
// which lets tests swap in a mock without a running server.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore persists cache entries in PostgreSQL for deployments where
// multiple instances share one cache.
type PostgresStore struct {
	pool     Pool
	ttl      ttlPolicy
	recorder Recorder

	hits   atomic.Int64
	misses atomic.Int64
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresTTLOverrides replaces namespace default TTLs.
func WithPostgresTTLOverrides(overrides map[string]time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		s.ttl = ttlPolicy{overrides: overrides}
	}
}

// WithPostgresRecorder attaches a metrics recorder.
func WithPostgresRecorder(r Recorder) PostgresOption {
	return func(s *PostgresStore) {
		s.recorder = r
	}
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot cache paths.
var preparedStatements = map[string]string{
	"cache_get": `SELECT payload FROM cache_entries
		WHERE namespace = $1 AND entity_id = $2 AND variant = $3 AND expires_at > now()`,
	"cache_set": `INSERT INTO cache_entries (namespace, entity_id, variant, payload, cached_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (namespace, entity_id, variant) DO UPDATE SET
		  payload = excluded.payload,
		  cached_at = excluded.cached_at,
		  expires_at = excluded.expires_at`,
	"cache_delete":     `DELETE FROM cache_entries WHERE namespace = $1 AND entity_id = $2 AND variant = $3`,
	"cache_invalidate": `DELETE FROM cache_entries WHERE entity_id = $1`,
	"cache_purge":      `DELETE FROM cache_entries WHERE expires_at <= now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, opts ...PostgresOption) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "cache: parse postgres config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "cache: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "cache: create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "cache: ping postgres")
	}

	s := &PostgresStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS cache_entries (
	namespace  TEXT NOT NULL,
	entity_id  TEXT NOT NULL,
	variant    TEXT NOT NULL DEFAULT '',
	payload    BYTEA NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (namespace, entity_id, variant)
);

CREATE INDEX IF NOT EXISTS idx_cache_entries_entity_id ON cache_entries(entity_id);
CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries(expires_at);
`

// Migrate creates the cache schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "cache: migrate postgres")
}

// Get reads a live entry. Backend errors degrade to misses.
func (s *PostgresStore) Get(ctx context.Context, namespace, entityID, variant string) ([]byte, bool) {
	row := s.pool.QueryRow(ctx,
		`SELECT payload FROM cache_entries
		WHERE namespace = $1 AND entity_id = $2 AND variant = $3 AND expires_at > now()`,
		namespace, entityID, normalizeVariant(variant),
	)

	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		s.misses.Add(1)
		record(s.recorder, namespace, ResultMiss)
		return nil, false
	}
	if err != nil {
		zap.L().Warn("cache: postgres read failed", zap.String("namespace", namespace), zap.Error(err))
		s.misses.Add(1)
		record(s.recorder, namespace, ResultMiss)
		return nil, false
	}

	s.hits.Add(1)
	record(s.recorder, namespace, ResultHit)
	return payload, true
}

// Set upserts an entry. A zero ttl selects the namespace default.
func (s *PostgresStore) Set(ctx context.Context, namespace, entityID, variant string, payload []byte, ttl time.Duration) bool {
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_entries (namespace, entity_id, variant, payload, cached_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (namespace, entity_id, variant) DO UPDATE SET
		  payload = excluded.payload,
		  cached_at = excluded.cached_at,
		  expires_at = excluded.expires_at`,
		namespace, entityID, normalizeVariant(variant), payload, now, now.Add(s.ttl.ttlFor(namespace, ttl)),
	)
	if err != nil {
		zap.L().Warn("cache: postgres write failed", zap.String("namespace", namespace), zap.Error(err))
		return false
	}

	record(s.recorder, namespace, ResultSet)
	return true
}

// Delete removes a single entry.
func (s *PostgresStore) Delete(ctx context.Context, namespace, entityID, variant string) bool {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cache_entries WHERE namespace = $1 AND entity_id = $2 AND variant = $3`,
		namespace, entityID, normalizeVariant(variant),
	)
	if err != nil {
		zap.L().Warn("cache: postgres delete failed", zap.String("namespace", namespace), zap.Error(err))
		return false
	}
	return tag.RowsAffected() > 0
}

// InvalidateEntity removes every entry for the entity id across all
// namespaces and variants.
func (s *PostgresStore) InvalidateEntity(ctx context.Context, entityID string) int {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM cache_entries WHERE entity_id = $1`, entityID,
	)
	if err != nil {
		zap.L().Warn("cache: postgres invalidate failed", zap.String("entity_id", entityID), zap.Error(err))
		return 0
	}
	return int(tag.RowsAffected())
}

// PurgeExpired deletes entries past their expiry and returns the count.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cache_entries WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "cache: purge expired")
	}
	return int(tag.RowsAffected()), nil
}

// Stats returns a snapshot of cache state including relation size.
func (s *PostgresStore) Stats(ctx context.Context) Stats {
	perNS := make(map[string]int)
	total := 0

	rows, err := s.pool.Query(ctx,
		`SELECT namespace, COUNT(*) FROM cache_entries WHERE expires_at > now() GROUP BY namespace`,
	)
	if err != nil {
		zap.L().Warn("cache: postgres stats failed", zap.Error(err))
	} else {
		defer rows.Close()
		for rows.Next() {
			var ns string
			var n int
			if err := rows.Scan(&ns, &n); err != nil {
				zap.L().Warn("cache: postgres stats scan failed", zap.Error(err))
				break
			}
			perNS[ns] = n
			total += n
		}
	}

	var size int64
	if err := s.pool.QueryRow(ctx, `SELECT pg_total_relation_size('cache_entries')`).Scan(&size); err != nil {
		zap.L().Warn("cache: postgres size lookup failed", zap.Error(err))
	}

	hits := s.hits.Load()
	misses := s.misses.Load()

	return Stats{
		Backend:          "postgres",
		Enabled:          true,
		TotalKeys:        total,
		KeysPerNamespace: perNS,
		MemoryUsageBytes: size,
		Hits:             hits,
		Misses:           misses,
		HitRate:          hitRate(hits, misses),
	}
}

// Enabled reports that the store accepts reads and writes.
func (s *PostgresStore) Enabled() bool { return true }

// Close closes the underlying pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
