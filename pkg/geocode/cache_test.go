package geocode

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/locality/internal/cache"
	"github.com/sells-group/locality/internal/geo"
)

type stubGeocoder struct {
	calls  int
	result *Result
	err    error
}

func (s *stubGeocoder) Name() string    { return "stub" }
func (s *stubGeocoder) Available() bool { return true }

func (s *stubGeocoder) Geocode(context.Context, string) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubGeocoder) ReverseGeocode(context.Context, geo.Point) (*Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestCachingGeocode_ReadThrough(t *testing.T) {
	stub := &stubGeocoder{result: &Result{
		Location: geo.Point{Lat: -23.5505, Lng: -46.6333},
		Matched:  true,
	}}
	g := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	first, err := g.Geocode(ctx, "Praça da Sé, São Paulo")
	require.NoError(t, err)
	assert.True(t, first.Matched)

	// Normalization shares the entry across case and whitespace variants.
	second, err := g.Geocode(ctx, "  praça da sé, são paulo ")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls)
}

func TestCachingGeocode_NonMatchCached(t *testing.T) {
	stub := &stubGeocoder{result: &Result{Matched: false, Source: "stub"}}
	g := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	for range 2 {
		got, err := g.Geocode(ctx, "rua inexistente")
		require.NoError(t, err)
		assert.False(t, got.Matched)
	}
	assert.Equal(t, 1, stub.calls, "non-matches are cacheable")
}

func TestCachingGeocode_ErrorsNotCached(t *testing.T) {
	stub := &stubGeocoder{err: eris.New("provider down")}
	g := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	_, err := g.Geocode(ctx, "anywhere")
	require.Error(t, err)
	_, err = g.Geocode(ctx, "anywhere")
	require.Error(t, err)

	assert.Equal(t, 2, stub.calls)
}

func TestCachingReverseGeocode_ReadThrough(t *testing.T) {
	stub := &stubGeocoder{result: &Result{FormattedAddress: "Praça da Sé", Matched: true}}
	g := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	p := geo.Point{Lat: -23.5505, Lng: -46.6333}
	_, err := g.ReverseGeocode(ctx, p)
	require.NoError(t, err)
	_, err = g.ReverseGeocode(ctx, p)
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls)
}

func TestCachingGeocode_ForwardAndReverseDoNotCollide(t *testing.T) {
	stub := &stubGeocoder{result: &Result{Matched: true}}
	g := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	_, err := g.Geocode(ctx, "-23.5505,-46.6333")
	require.NoError(t, err)
	_, err = g.ReverseGeocode(ctx, geo.Point{Lat: -23.5505, Lng: -46.6333})
	require.NoError(t, err)

	assert.Equal(t, 2, stub.calls, "forward and reverse lookups use distinct variants")
}
