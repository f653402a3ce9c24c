package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimitConfig holds the per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// RateLimiter manages request rate limiting and quotas per client.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64

	now   func() time.Time
	users map[string]*UserUsage
}

// UserUsage tracks usage for a single client. Minute and hour counters are
// fixed windows starting at the first request in the window.
type UserUsage struct {
	RequestsLastMinute int
	RequestsLastHour   int
	RequestsToday      int
	DataToday          int64

	minuteStart time.Time
	hourStart   time.Time
	day         time.Time
	lastSeen    time.Time
}

// NewRateLimiter creates a new rate limiter with the given limits.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		now:               time.Now,
		users:             make(map[string]*UserUsage),
	}
}

// NewRateLimiterFromConfig creates a rate limiter from cfg, ignoring Enabled.
func NewRateLimiterFromConfig(cfg RateLimitConfig) *RateLimiter {
	return NewRateLimiter(cfg.RequestsPerMinute, cfg.RequestsPerHour, cfg.MaxRequestsPerDay, cfg.MaxDataPerDay)
}

// CheckRateLimit records a request of dataSize bytes from userID, or returns
// a *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) CheckRateLimit(userID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage := rl.usage(userID, now)
	usage.roll(now)

	if err := rl.checkRateLimits(usage, now); err != nil {
		return err
	}
	if err := rl.checkDailyQuotas(usage, dataSize, now); err != nil {
		return err
	}

	usage.RequestsLastMinute++
	usage.RequestsLastHour++
	usage.RequestsToday++
	usage.DataToday += dataSize
	usage.lastSeen = now
	return nil
}

// roll starts new windows once the current ones have expired.
func (u *UserUsage) roll(now time.Time) {
	if today := startOfDay(now); !today.Equal(u.day) {
		u.day = today
		u.RequestsToday = 0
		u.DataToday = 0
	}
	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart = now
		u.RequestsLastMinute = 0
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.hourStart = now
		u.RequestsLastHour = 0
	}
}

func (rl *RateLimiter) checkRateLimits(usage *UserUsage, now time.Time) error {
	if rl.requestsPerMinute > 0 && usage.RequestsLastMinute >= rl.requestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.requestsPerMinute,
			RetryAfter: time.Minute - now.Sub(usage.minuteStart),
		}
	}
	if rl.requestsPerHour > 0 && usage.RequestsLastHour >= rl.requestsPerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.requestsPerHour,
			RetryAfter: time.Hour - now.Sub(usage.hourStart),
		}
	}
	return nil
}

func (rl *RateLimiter) checkDailyQuotas(usage *UserUsage, dataSize int64, now time.Time) error {
	resets := startOfDay(now).AddDate(0, 0, 1)
	if rl.maxRequestsPerDay > 0 && usage.RequestsToday >= rl.maxRequestsPerDay {
		return &QuotaExceededError{
			Type:   "requests",
			Limit:  int64(rl.maxRequestsPerDay),
			Used:   int64(usage.RequestsToday),
			Resets: resets,
		}
	}
	if rl.maxDataPerDay > 0 && usage.DataToday+dataSize > rl.maxDataPerDay {
		return &QuotaExceededError{
			Type:   "data",
			Limit:  rl.maxDataPerDay,
			Used:   usage.DataToday,
			Resets: resets,
		}
	}
	return nil
}

func (rl *RateLimiter) usage(userID string, now time.Time) *UserUsage {
	u, ok := rl.users[userID]
	if !ok {
		u = &UserUsage{minuteStart: now, hourStart: now, day: startOfDay(now), lastSeen: now}
		rl.users[userID] = u
	}
	return u
}

// GetUsage returns a copy of the usage counters for userID.
func (rl *RateLimiter) GetUsage(userID string) UserUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if u, ok := rl.users[userID]; ok {
		return *u
	}
	return UserUsage{}
}

// Prune forgets clients idle for longer than maxIdle and returns how many
// were removed.
func (rl *RateLimiter) Prune(maxIdle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for id, u := range rl.users {
		if now.Sub(u.lastSeen) > maxIdle {
			delete(rl.users, id)
			removed++
		}
	}
	return removed
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
