package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClockedLimiter(rpm, rph, rpd int, data int64) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(rpm, rph, rpd, data)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter_MinuteWindow(t *testing.T) {
	rl, clock := newClockedLimiter(3, 0, 0, 0)

	for range 3 {
		require.NoError(t, rl.CheckRateLimit("a", 0))
	}
	clock.advance(20 * time.Second)

	err := rl.CheckRateLimit("a", 0)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "minute", rle.Type)
	assert.Equal(t, 3, rle.Limit)
	assert.Equal(t, 40*time.Second, rle.RetryAfter)

	// rejected requests are not counted
	assert.Equal(t, 3, rl.GetUsage("a").RequestsLastMinute)

	clock.advance(40 * time.Second)
	require.NoError(t, rl.CheckRateLimit("a", 0))
	assert.Equal(t, 1, rl.GetUsage("a").RequestsLastMinute)
	assert.Equal(t, 4, rl.GetUsage("a").RequestsToday)
}

func TestRateLimiter_HourWindow(t *testing.T) {
	rl, clock := newClockedLimiter(0, 2, 0, 0)

	require.NoError(t, rl.CheckRateLimit("a", 0))
	clock.advance(10 * time.Minute)
	require.NoError(t, rl.CheckRateLimit("a", 0))

	err := rl.CheckRateLimit("a", 0)
	var rle *RateLimitError
	require.True(t, errors.As(err, &rle))
	assert.Equal(t, "hour", rle.Type)
	assert.Equal(t, 50*time.Minute, rle.RetryAfter)

	clock.advance(50 * time.Minute)
	assert.NoError(t, rl.CheckRateLimit("a", 0))
}

func TestRateLimiter_DailyQuotas(t *testing.T) {
	t.Run("requests", func(t *testing.T) {
		rl, clock := newClockedLimiter(0, 0, 2, 0)
		require.NoError(t, rl.CheckRateLimit("a", 0))
		require.NoError(t, rl.CheckRateLimit("a", 0))

		err := rl.CheckRateLimit("a", 0)
		var qe *QuotaExceededError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, "requests", qe.Type)
		assert.EqualValues(t, 2, qe.Limit)
		assert.EqualValues(t, 2, qe.Used)
		assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC), qe.Resets)

		clock.advance(14 * time.Hour)
		assert.NoError(t, rl.CheckRateLimit("a", 0))
	})

	t.Run("data", func(t *testing.T) {
		rl, _ := newClockedLimiter(0, 0, 0, 1000)
		require.NoError(t, rl.CheckRateLimit("a", 600))

		err := rl.CheckRateLimit("a", 500)
		var qe *QuotaExceededError
		require.True(t, errors.As(err, &qe))
		assert.Equal(t, "data", qe.Type)
		assert.EqualValues(t, 600, qe.Used)

		require.NoError(t, rl.CheckRateLimit("a", 400))
		assert.EqualValues(t, 1000, rl.GetUsage("a").DataToday)
	})
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl, _ := newClockedLimiter(1, 0, 0, 0)
	require.NoError(t, rl.CheckRateLimit("a", 0))
	require.Error(t, rl.CheckRateLimit("a", 0))
	assert.NoError(t, rl.CheckRateLimit("b", 0))
	assert.Equal(t, UserUsage{}, rl.GetUsage("unknown"))
}

func TestRateLimiter_Prune(t *testing.T) {
	rl, clock := newClockedLimiter(10, 0, 0, 0)
	require.NoError(t, rl.CheckRateLimit("old", 0))
	clock.advance(30 * time.Minute)
	require.NoError(t, rl.CheckRateLimit("fresh", 0))
	clock.advance(time.Minute)

	assert.Equal(t, 1, rl.Prune(10*time.Minute))
	assert.Equal(t, UserUsage{}, rl.GetUsage("old"))
	assert.Equal(t, 1, rl.GetUsage("fresh").RequestsToday)
	assert.Equal(t, 0, rl.Prune(10*time.Minute))
}

func TestRateLimitErrorMessages(t *testing.T) {
	rle := &RateLimitError{Type: "minute", Limit: 5, RetryAfter: 30 * time.Second}
	assert.Equal(t, "rate limit exceeded for minute (limit: 5, retry after: 30s)", rle.Error())

	qe := &QuotaExceededError{Type: "data", Limit: 10, Used: 12, Resets: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "quota exceeded for data (used: 12, limit: 10, resets: 2026-01-02T00:00:00Z)", qe.Error())
}

func TestNewRateLimiterFromConfig(t *testing.T) {
	rl := NewRateLimiterFromConfig(RateLimitConfig{RequestsPerMinute: 1, MaxDataPerDay: 5})
	assert.Equal(t, 1, rl.requestsPerMinute)
	assert.EqualValues(t, 5, rl.maxDataPerDay)
}
