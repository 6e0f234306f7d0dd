package source

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestBreakerClosedByDefault(t *testing.T) {
	b := NewBreaker(0, 0)
	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	for range 3 {
		assert.True(t, b.Allow())
		b.Record(eris.New("provider down"))
	}

	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsCounter(t *testing.T) {
	b := NewBreaker(3, time.Minute)

	b.Record(eris.New("fail"))
	b.Record(eris.New("fail"))
	b.Record(nil)
	b.Record(eris.New("fail"))
	b.Record(eris.New("fail"))

	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())
}

func TestBreakerNotFoundDoesNotTrip(t *testing.T) {
	b := NewBreaker(2, time.Minute)

	for range 10 {
		b.Record(NotFound("places", "geocode"))
	}

	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(1, 30*time.Second)
	b.nowFunc = func() time.Time { return now }

	b.Record(eris.New("fail"))
	assert.False(t, b.Allow())

	// Advance past the reset timeout: one probe is admitted.
	now = now.Add(31 * time.Second)
	assert.Equal(t, BreakerHalfOpen, b.State())
	assert.True(t, b.Allow())

	// Probe failure reopens immediately.
	b.Record(eris.New("still down"))
	assert.False(t, b.Allow())

	// Probe success closes.
	now = now.Add(31 * time.Second)
	assert.True(t, b.Allow())
	b.Record(nil)
	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())
}
