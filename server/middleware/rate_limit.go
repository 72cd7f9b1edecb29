package middleware

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles note writes per user. Search and version
// listings are read-heavy and left unthrottled.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter

	interval time.Duration
	burst    int
}

// NewRateLimiter creates a limiter allowing one event per interval with
// the given burst per key.
func NewRateLimiter(interval time.Duration, burst int) *RateLimiter {
	return &RateLimiter{
		limits:   make(map[string]*rate.Limiter),
		interval: interval,
		burst:    burst,
	}
}

// NewWriteLimiter returns the default limiter for note writes:
// 2 writes per second sustained, burst of 5.
func NewWriteLimiter() *RateLimiter {
	return NewRateLimiter(time.Second/2, 5)
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rate.Every(rl.interval), rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Allow reports whether a request under the given key may proceed.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// AllowUser is Allow keyed by user id.
func (rl *RateLimiter) AllowUser(userID int32) bool {
	return rl.Allow(strconv.FormatInt(int64(userID), 10))
}
