// Package config loads application configuration from file and environment
// and bootstraps the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/locality/internal/cache"
)

// Config holds the full application configuration.
type Config struct {
	Cache   cache.Config  `yaml:"cache" mapstructure:"cache"`
	Google  GoogleConfig  `yaml:"google" mapstructure:"google"`
	IBGE    IBGEConfig    `yaml:"ibge" mapstructure:"ibge"`
	Places  PlacesConfig  `yaml:"places" mapstructure:"places"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Stats   StatsConfig   `yaml:"stats" mapstructure:"stats"`
	Score   ScoreConfig   `yaml:"score" mapstructure:"score"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Seed    SeedConfig    `yaml:"seed" mapstructure:"seed"`
	Batch   BatchConfig   `yaml:"batch" mapstructure:"batch"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// GoogleConfig holds Google Maps platform credentials and throttling.
type GoogleConfig struct {
	Key           string  `yaml:"key" mapstructure:"key"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// IBGEConfig holds IBGE API settings.
type IBGEConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// PlacesConfig selects the point-of-interest provider.
type PlacesConfig struct {
	// Provider is "google" or "static".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// DatasetPath points the static provider at a JSON place dataset.
	DatasetPath string `yaml:"dataset_path" mapstructure:"dataset_path"`
}

// GeocodeConfig selects the geocoding provider.
type GeocodeConfig struct {
	// Provider is "google" or "static".
	Provider string `yaml:"provider" mapstructure:"provider"`

	// DatasetPath points the static geocoder at a JSON address table.
	DatasetPath string `yaml:"dataset_path" mapstructure:"dataset_path"`
}

// StatsConfig selects the municipal statistics provider.
type StatsConfig struct {
	// Provider is "ibge" or "static".
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// ScoreConfig tunes scoring requests.
type ScoreConfig struct {
	// RadiusMeters is the default search radius when a request omits one.
	RadiusMeters float64 `yaml:"radius_meters" mapstructure:"radius_meters"`

	// CategoriesFile optionally replaces the built-in category table.
	CategoriesFile string `yaml:"categories_file" mapstructure:"categories_file"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// SeedConfig configures municipality seed-list acquisition.
type SeedConfig struct {
	TempDir string `yaml:"temp_dir" mapstructure:"temp_dir"`
	FTPHost string `yaml:"ftp_host" mapstructure:"ftp_host"`
	FTPPath string `yaml:"ftp_path" mapstructure:"ftp_path"`
}

// BatchConfig configures batch scoring.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LOCALITY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("cache.backend", cache.BackendMemory)
	v.SetDefault("cache.max_entries", 10_000)
	v.SetDefault("google.rate_per_second", 10)
	v.SetDefault("google.rate_burst", 10)
	v.SetDefault("ibge.base_url", "https://servicodados.ibge.gov.br")
	v.SetDefault("places.provider", "google")
	v.SetDefault("geocode.provider", "google")
	v.SetDefault("stats.provider", "ibge")
	v.SetDefault("score.radius_meters", 1000)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("seed.temp_dir", "/tmp/locality-seed")
	v.SetDefault("seed.ftp_host", "geoftp.ibge.gov.br:21")
	v.SetDefault("seed.ftp_path", "/organizacao_do_territorio/estrutura_territorial/divisao_territorial")
	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
