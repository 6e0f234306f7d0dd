package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/locality/internal/cache"
	"github.com/sells-group/locality/pkg/ibge"
	"github.com/sells-group/locality/pkg/source"
)

func TestStatisticalRecord_AllFieldsResolve(t *testing.T) {
	f := newFixture()
	o := f.build(t)

	rec, err := o.StatisticalRecord(context.Background(), testEntityID)

	require.NoError(t, err)
	assert.True(t, rec.Complete())
	assert.Equal(t, testEntityID, rec.EntityID)
	assert.Equal(t, "São Paulo", rec.Info.Name)
	assert.InDelta(t, 11_451_999, rec.Population.Value, 0.1)
	assert.InDelta(t, 1521.11, rec.Area.Value, 0.01)
	assert.InDelta(t, 7528.26, rec.Density.Value, 0.01)
	assert.Empty(t, rec.SourceErrors)
	assert.False(t, rec.RetrievedAt.IsZero())
}

func TestStatisticalRecord_PopulationTimeoutIsFieldError(t *testing.T) {
	// A timed-out population fetch must not take down the request or its
	// sibling fetches.
	f := newFixture()
	f.stats.factErrs[ibge.StatPopulation] = source.Timeout("stub", "statistic", context.DeadlineExceeded)
	o := f.build(t)

	rec, err := o.StatisticalRecord(context.Background(), testEntityID)

	require.NoError(t, err)
	assert.False(t, rec.Complete())
	assert.Nil(t, rec.Population)
	require.NotNil(t, rec.Area)
	require.NotNil(t, rec.Density)
	require.Contains(t, rec.SourceErrors, "population")
	assert.Contains(t, rec.SourceErrors["population"], "timeout")
}

func TestStatisticalRecord_BasicInfoFailureFailsRequest(t *testing.T) {
	f := newFixture()
	f.stats.infoErr = source.NotFound("stub", "municipality")
	o := f.build(t)

	rec, err := o.StatisticalRecord(context.Background(), "9999999")

	require.Error(t, err)
	assert.Nil(t, rec)
	assert.True(t, source.IsNotFound(err))
	assert.Contains(t, err.Error(), "9999999")
}

func TestStatisticalRecord_AllFetchesFailIsSingleError(t *testing.T) {
	f := newFixture()
	f.stats.failIDs[testEntityID] = true
	o := f.build(t)

	rec, err := o.StatisticalRecord(context.Background(), testEntityID)

	require.Error(t, err)
	assert.Nil(t, rec)
	assert.True(t, source.IsUnavailable(err))
}

func TestStatisticalRecord_FetchesRunConcurrently(t *testing.T) {
	f := newFixture()
	f.stats.delay = 30 * time.Millisecond
	o := f.build(t)

	start := time.Now()
	_, err := o.StatisticalRecord(context.Background(), testEntityID)
	elapsed := time.Since(start)

	require.NoError(t, err)
	// Four serial 30ms fetches would need 120ms; overlap proves fan-out.
	assert.Less(t, elapsed, 100*time.Millisecond)
	assert.GreaterOrEqual(t, f.stats.maxInflight.Load(), int64(2))
}

func TestCompositeRecord_CachesCompleteRecords(t *testing.T) {
	f := newFixture()
	f.store = cache.NewMemory()
	o := f.build(t)

	first, err := o.CompositeRecord(context.Background(), testEntityID)
	require.NoError(t, err)
	require.True(t, first.Complete())
	fetchesAfterFirst := f.stats.callCount("basic_info")

	second, err := o.CompositeRecord(context.Background(), testEntityID)
	require.NoError(t, err)

	assert.Equal(t, fetchesAfterFirst, f.stats.callCount("basic_info"), "second call must hit the cache")
	assert.Equal(t, first.Info.Name, second.Info.Name)
	assert.Equal(t, first.Population.Value, second.Population.Value)
}

func TestCompositeRecord_PartialRecordsAreNotCached(t *testing.T) {
	// Incomplete records stay uncached so the failed fields get retried.
	f := newFixture()
	f.store = cache.NewMemory()
	f.stats.factErrs[ibge.StatPopulation] = source.Unavailable("stub", "statistic", nil)
	o := f.build(t)

	_, err := o.CompositeRecord(context.Background(), testEntityID)
	require.NoError(t, err)
	_, err = o.CompositeRecord(context.Background(), testEntityID)
	require.NoError(t, err)

	assert.Equal(t, 2, f.stats.callCount("basic_info"))
}

func TestCompositeRecord_CorruptCacheEntryIsRefetched(t *testing.T) {
	f := newFixture()
	f.store = cache.NewMemory()
	f.store.Set(context.Background(), cache.NamespaceComposite, testEntityID, "", []byte("{not json"), 0)
	o := f.build(t)

	rec, err := o.CompositeRecord(context.Background(), testEntityID)

	require.NoError(t, err)
	assert.True(t, rec.Complete())
	assert.Equal(t, 1, f.stats.callCount("basic_info"))
}
