package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/locality/internal/cache"
)

func TestMetricsImplementCacheRecorder(t *testing.T) {
	var _ cache.Recorder = NewMetricsForTesting()
}

func TestMetricsObservations(t *testing.T) {
	m := NewMetricsForTesting()

	// None of these may panic on fresh label combinations.
	m.CacheOp(cache.NamespaceBasicInfo, cache.ResultHit)
	m.CacheOp(cache.NamespaceSearchResults, cache.ResultMiss)
	m.ObserveRequest("GET", "/v1/score", 200, 120*time.Millisecond)
	m.ObserveRequest("POST", "/v1/cache/warmup", 500, time.Second)
	m.ObserveScore(7.3)
	m.ObserveWarmUp(40, 5, 25)

	assert.NotNil(t, m.CacheOps)
	assert.NotNil(t, m.HTTPRequests)
}
