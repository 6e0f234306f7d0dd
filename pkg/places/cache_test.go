package places

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/locality/internal/cache"
	"github.com/sells-group/locality/internal/geo"
)

type stubProvider struct {
	calls   int
	results []Place
	err     error
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Available() bool { return true }

func (s *stubProvider) NearbySearch(context.Context, geo.Point, string, float64) ([]Place, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func (s *stubProvider) TextSearch(context.Context, string) ([]Place, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func TestCachingNearbySearch_ReadThrough(t *testing.T) {
	stub := &stubProvider{results: []Place{{ID: "h1", Name: "Hospital Central"}}}
	p := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	first, err := p.NearbySearch(ctx, saoPaulo, "hospital", 1000)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, stub.calls)

	second, err := p.NearbySearch(ctx, saoPaulo, "hospital", 1000)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls, "second search must come from cache")
}

func TestCachingNearbySearch_CachesEmptyResults(t *testing.T) {
	stub := &stubProvider{results: []Place{}}
	p := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	got, err := p.NearbySearch(ctx, saoPaulo, "heliport", 500)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = p.NearbySearch(ctx, saoPaulo, "heliport", 500)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls, "empty result sets are cacheable")
}

func TestCachingNearbySearch_ErrorsNotCached(t *testing.T) {
	stub := &stubProvider{err: eris.New("provider down")}
	p := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	_, err := p.NearbySearch(ctx, saoPaulo, "hospital", 1000)
	require.Error(t, err)

	_, err = p.NearbySearch(ctx, saoPaulo, "hospital", 1000)
	require.Error(t, err)
	assert.Equal(t, 2, stub.calls, "failures must not be cached")
}

func TestCachingNearbySearch_DistinctVariants(t *testing.T) {
	stub := &stubProvider{results: []Place{}}
	p := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	_, err := p.NearbySearch(ctx, saoPaulo, "hospital", 1000)
	require.NoError(t, err)
	_, err = p.NearbySearch(ctx, saoPaulo, "school", 1000)
	require.NoError(t, err)
	_, err = p.NearbySearch(ctx, saoPaulo, "hospital", 2000)
	require.NoError(t, err)

	assert.Equal(t, 3, stub.calls, "keyword and radius are part of the cache key")
}

func TestCachingNearbySearch_NoopStorePassesThrough(t *testing.T) {
	stub := &stubProvider{results: []Place{{ID: "h1"}}}
	p := NewCaching(stub, cache.NewNoop())
	ctx := context.Background()

	for range 2 {
		got, err := p.NearbySearch(ctx, saoPaulo, "hospital", 1000)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 2, stub.calls, "disabled cache always fetches")
}

func TestCachingTextSearch_ReadThrough(t *testing.T) {
	stub := &stubProvider{results: []Place{{ID: "p1", Name: "Parque Ibirapuera"}}}
	p := NewCaching(stub, cache.NewMemory())
	ctx := context.Background()

	first, err := p.TextSearch(ctx, "parque ibirapuera")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := p.TextSearch(ctx, "Parque Ibirapuera ")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls, "query normalization should share the cache entry")
}
