package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/aggregate"
	"github.com/sells-group/locality/internal/cache"
	"github.com/sells-group/locality/internal/monitoring"
	"github.com/sells-group/locality/internal/scorer"
	"github.com/sells-group/locality/pkg/geocode"
	"github.com/sells-group/locality/pkg/ibge"
	"github.com/sells-group/locality/pkg/places"
)

// appEnv holds the wired application graph for one command invocation.
// Everything is constructed here and injected explicitly; nothing is global.
type appEnv struct {
	Store   cache.Store
	Places  places.Provider
	Geocode geocode.Geocoder
	Stats   ibge.Client
	Engine  *scorer.Engine
	Orch    *aggregate.Orchestrator
	Metrics *monitoring.Metrics
}

func (e *appEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close cache", zap.Error(err))
	}
}

// initEnv builds the cache, providers, scoring engine and orchestrator from
// the loaded configuration.
func initEnv(ctx context.Context) (*appEnv, error) {
	metrics := monitoring.NewMetrics()

	store := cache.Open(ctx, cfg.Cache, metrics)
	if store.Enabled() {
		metrics.CacheEnabled.Set(1)
	} else {
		metrics.CacheEnabled.Set(0)
	}

	placesProvider, err := buildPlacesProvider(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	geocoder, err := buildGeocoder(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	stats := buildStatsClient(store)

	engineCfg := scorer.DefaultConfig()
	if cfg.Score.CategoriesFile != "" {
		engineCfg, err = scorer.LoadFile(cfg.Score.CategoriesFile)
		if err != nil {
			store.Close()
			return nil, err
		}
	}
	engine, err := scorer.NewEngine(engineCfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	orch := aggregate.NewOrchestrator(placesProvider, geocoder, stats, store, engine)

	return &appEnv{
		Store:   store,
		Places:  placesProvider,
		Geocode: geocoder,
		Stats:   stats,
		Engine:  engine,
		Orch:    orch,
		Metrics: metrics,
	}, nil
}

func buildPlacesProvider(store cache.Store) (places.Provider, error) {
	var provider places.Provider
	switch cfg.Places.Provider {
	case "static":
		dataset, err := loadPlacesDataset(cfg.Places.DatasetPath)
		if err != nil {
			return nil, err
		}
		provider = places.NewStatic(dataset)
	default:
		provider = places.NewGoogle(cfg.Google.Key,
			places.WithRateLimit(cfg.Google.RatePerSecond))
	}
	return places.NewCaching(provider, store), nil
}

func loadPlacesDataset(path string) ([]places.Place, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open places dataset")
	}
	defer f.Close()
	return places.DecodeDataset(f)
}

func buildGeocoder(store cache.Store) (geocode.Geocoder, error) {
	var geocoder geocode.Geocoder
	switch cfg.Geocode.Provider {
	case "static":
		entries, err := loadGeocodeDataset(cfg.Geocode.DatasetPath)
		if err != nil {
			return nil, err
		}
		geocoder = geocode.NewStatic(entries)
	default:
		geocoder = geocode.NewGoogle(cfg.Google.Key,
			geocode.WithRateLimit(cfg.Google.RatePerSecond))
	}
	return geocode.NewCaching(geocoder, store), nil
}

func loadGeocodeDataset(path string) ([]geocode.StaticEntry, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open geocode dataset")
	}
	defer f.Close()
	return geocode.DecodeDataset(f)
}

func buildStatsClient(store cache.Store) ibge.Client {
	var client ibge.Client
	switch cfg.Stats.Provider {
	case "static":
		client = ibge.NewStatic()
	default:
		var opts []ibge.HTTPOption
		if cfg.IBGE.BaseURL != "" {
			opts = append(opts, ibge.WithBaseURL(cfg.IBGE.BaseURL))
		}
		client = ibge.NewHTTP(opts...)
	}
	return ibge.NewCaching(client, store)
}
