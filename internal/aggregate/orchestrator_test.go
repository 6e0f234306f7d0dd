package aggregate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/locality/internal/cache"
	"github.com/sells-group/locality/internal/geo"
	"github.com/sells-group/locality/internal/scorer"
	"github.com/sells-group/locality/pkg/geocode"
	"github.com/sells-group/locality/pkg/ibge"
	"github.com/sells-group/locality/pkg/places"
	"github.com/sells-group/locality/pkg/source"
)

const testEntityID = "3550308"

var testCenter = geo.Point{Lat: -23.5505, Lng: -46.6333}

func testMunicipality() *ibge.Municipality {
	return &ibge.Municipality{
		ID:        testEntityID,
		Name:      "São Paulo",
		State:     "SP",
		StateName: "São Paulo",
		Region:    "Sudeste",
	}
}

func fact(v float64, unit string, year int) *ibge.Fact {
	return &ibge.Fact{Value: v, Unit: unit, Year: year, Source: "stub"}
}

// stubStats is a scriptable ibge.Client that tracks call counts and
// concurrent in-flight fetches.
type stubStats struct {
	mu       sync.Mutex
	calls    map[string]int
	info     *ibge.Municipality
	infoErr  error
	facts    map[ibge.StatisticKind]*ibge.Fact
	factErrs map[ibge.StatisticKind]error
	failIDs  map[string]bool
	delay    time.Duration

	inflight    atomic.Int64
	maxInflight atomic.Int64
}

func newStubStats() *stubStats {
	return &stubStats{
		calls: make(map[string]int),
		info:  testMunicipality(),
		facts: map[ibge.StatisticKind]*ibge.Fact{
			ibge.StatPopulation: fact(11_451_999, "Pessoas", 2022),
			ibge.StatArea:       fact(1521.11, "km²", 2022),
			ibge.StatDensity:    fact(7528.26, "hab/km²", 2022),
		},
		factErrs: make(map[ibge.StatisticKind]error),
		failIDs:  make(map[string]bool),
	}
}

func (s *stubStats) Name() string    { return "stub" }
func (s *stubStats) Available() bool { return true }

func (s *stubStats) track(field string) func() {
	s.mu.Lock()
	s.calls[field]++
	s.mu.Unlock()

	n := s.inflight.Add(1)
	for {
		seen := s.maxInflight.Load()
		if n <= seen || s.maxInflight.CompareAndSwap(seen, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return func() { s.inflight.Add(-1) }
}

func (s *stubStats) callCount(field string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[field]
}

func (s *stubStats) Municipality(ctx context.Context, id string) (*ibge.Municipality, error) {
	done := s.track("basic_info")
	defer done()
	if s.failIDs[id] {
		return nil, source.Unavailable("stub", "municipality", nil)
	}
	if s.infoErr != nil {
		return nil, s.infoErr
	}
	m := *s.info
	m.ID = id
	return &m, nil
}

func (s *stubStats) Statistic(ctx context.Context, id string, kind ibge.StatisticKind) (*ibge.Fact, error) {
	done := s.track(string(kind))
	defer done()
	if s.failIDs[id] {
		return nil, source.Unavailable("stub", "statistic", nil)
	}
	if err := s.factErrs[kind]; err != nil {
		return nil, err
	}
	f := *s.facts[kind]
	return &f, nil
}

func (s *stubStats) Municipalities(ctx context.Context) ([]ibge.Municipality, error) {
	return []ibge.Municipality{*s.info}, nil
}

// stubPlaces is a scriptable places.Provider.
type stubPlaces struct {
	mu    sync.Mutex
	calls int
	pts   []places.Place
	err   error
}

func (s *stubPlaces) Name() string    { return "stub" }
func (s *stubPlaces) Available() bool { return true }

func (s *stubPlaces) NearbySearch(ctx context.Context, center geo.Point, keyword string, radiusMeters float64) ([]places.Place, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.pts, nil
}

func (s *stubPlaces) TextSearch(ctx context.Context, query string) ([]places.Place, error) {
	return s.pts, s.err
}

// stubGeocoder is a scriptable geocode.Geocoder.
type stubGeocoder struct {
	result *geocode.Result
	err    error
}

func (s *stubGeocoder) Name() string    { return "stub" }
func (s *stubGeocoder) Available() bool { return true }

func (s *stubGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubGeocoder) ReverseGeocode(ctx context.Context, p geo.Point) (*geocode.Result, error) {
	return s.result, s.err
}

type orchestratorFixture struct {
	stats    *stubStats
	places   *stubPlaces
	geocoder *stubGeocoder
	store    cache.Store
}

func newFixture() *orchestratorFixture {
	return &orchestratorFixture{
		stats:    newStubStats(),
		places:   &stubPlaces{},
		geocoder: &stubGeocoder{result: &geocode.Result{Location: testCenter, FormattedAddress: "Av. Paulista, São Paulo", Quality: "rooftop", Matched: true}},
		store:    cache.NewNoop(),
	}
}

func (f *orchestratorFixture) build(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	engine, err := scorer.NewEngine(scorer.DefaultConfig())
	require.NoError(t, err)
	base := []Option{WithFetchTimeout(2 * time.Second)}
	return NewOrchestrator(f.places, f.geocoder, f.stats, f.store, engine, append(base, opts...)...)
}
