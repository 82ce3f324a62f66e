package server

import (
	"fmt"
	"sync"
	"time"
)

// RateLimiter counts requests per client in fixed minute, hour and day
// windows. Each window starts with the first request that falls into it.
type RateLimiter struct {
	mu sync.Mutex

	requestsPerMinute int
	requestsPerHour   int
	maxRequestsPerDay int
	maxDataPerDay     int64 // bytes

	now     func() time.Time
	clients map[string]*UserUsage
}

// UserUsage tracks usage for a specific client.
type UserUsage struct {
	MinuteStart   time.Time
	MinuteCount   int
	HourStart     time.Time
	HourCount     int
	DayStart      time.Time
	DayCount      int
	DataToday     int64
	LastRequestAt time.Time
}

// NewRateLimiter creates a new rate limiter with the given limits. A zero
// limit is not enforced.
func NewRateLimiter(requestsPerMinute, requestsPerHour, maxRequestsPerDay int, maxDataPerDay int64) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		requestsPerHour:   requestsPerHour,
		maxRequestsPerDay: maxRequestsPerDay,
		maxDataPerDay:     maxDataPerDay,
		now:               time.Now,
		clients:           make(map[string]*UserUsage),
	}
}

// CheckRateLimit records a request of dataSize bytes from userID, or returns
// a *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) CheckRateLimit(userID string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	usage, ok := rl.clients[userID]
	if !ok {
		usage = &UserUsage{}
		rl.clients[userID] = usage
	}
	usage.roll(now)

	if rl.requestsPerMinute > 0 && usage.MinuteCount >= rl.requestsPerMinute {
		return &RateLimitError{
			Type:       "minute",
			Limit:      rl.requestsPerMinute,
			RetryAfter: usage.MinuteStart.Add(time.Minute).Sub(now),
		}
	}
	if rl.requestsPerHour > 0 && usage.HourCount >= rl.requestsPerHour {
		return &RateLimitError{
			Type:       "hour",
			Limit:      rl.requestsPerHour,
			RetryAfter: usage.HourStart.Add(time.Hour).Sub(now),
		}
	}

	resets := nextMidnight(now)
	if rl.maxRequestsPerDay > 0 && usage.DayCount >= rl.maxRequestsPerDay {
		return &QuotaExceededError{
			Type:   "requests",
			Limit:  int64(rl.maxRequestsPerDay),
			Used:   int64(usage.DayCount),
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

	usage.MinuteCount++
	usage.HourCount++
	usage.DayCount++
	usage.DataToday += dataSize
	usage.LastRequestAt = now
	return nil
}

// roll starts new windows for the periods that have elapsed.
func (u *UserUsage) roll(now time.Time) {
	if u.MinuteStart.IsZero() || now.Sub(u.MinuteStart) >= time.Minute {
		u.MinuteStart, u.MinuteCount = now, 0
	}
	if u.HourStart.IsZero() || now.Sub(u.HourStart) >= time.Hour {
		u.HourStart, u.HourCount = now, 0
	}
	if day := startOfDay(now); !u.DayStart.Equal(day) {
		u.DayStart, u.DayCount, u.DataToday = day, 0, 0
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func nextMidnight(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1)
}

// GetUsage returns a copy of the usage of userID.
func (rl *RateLimiter) GetUsage(userID string) UserUsage {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if usage, ok := rl.clients[userID]; ok {
		return *usage
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
	for id, usage := range rl.clients {
		if now.Sub(usage.LastRequestAt) > maxIdle {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
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
