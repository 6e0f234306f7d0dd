package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendOff      = "off"
)

// Config selects and tunes the cache backend.
type Config struct {
	Backend    string `yaml:"backend" mapstructure:"backend"`
	Path       string `yaml:"path" mapstructure:"path"`
	URL        string `yaml:"url" mapstructure:"url"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries"`

	// TTLOverrides maps namespace to a custom TTL.
	TTLOverrides map[string]time.Duration `yaml:"ttl_overrides" mapstructure:"ttl_overrides"`
}

// Open builds the configured backend. An unreachable backend degrades to a
// NoopStore with a single warning so scoring keeps working without caching.
func Open(ctx context.Context, cfg Config, recorder Recorder) Store {
	switch cfg.Backend {
	case BackendOff:
		return NewNoop()

	case BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = "locality-cache.db"
		}
		s, err := NewSQLite(path,
			WithSQLiteTTLOverrides(cfg.TTLOverrides),
			WithSQLiteRecorder(recorder),
		)
		if err == nil {
			err = s.Migrate(ctx)
		}
		if err != nil {
			zap.L().Warn("cache: sqlite unavailable, caching disabled",
				zap.String("path", path), zap.Error(err))
			return NewNoop()
		}
		return s

	case BackendPostgres:
		s, err := NewPostgres(ctx, cfg.URL,
			WithPostgresTTLOverrides(cfg.TTLOverrides),
			WithPostgresRecorder(recorder),
		)
		if err == nil {
			err = s.Migrate(ctx)
		}
		if err != nil {
			zap.L().Warn("cache: postgres unavailable, caching disabled", zap.Error(err))
			return NewNoop()
		}
		return s

	default:
		opts := []MemoryOption{WithRecorder(recorder)}
		if cfg.MaxEntries > 0 {
			opts = append(opts, WithMaxEntries(cfg.MaxEntries))
		}
		if len(cfg.TTLOverrides) > 0 {
			opts = append(opts, WithTTLOverrides(cfg.TTLOverrides))
		}
		return NewMemory(opts...)
	}
}
