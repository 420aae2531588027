package utils

import (
	"sync"
	"time"
)

// RateLimiter is an in-process token bucket. It backs the HTTP limits when
// Redis is down and throttles inbound websocket frames.
type RateLimiter struct {
	capacity   int
	interval   time.Duration // time to earn one token
	tokens     int
	lastRefill time.Time
	mutex      sync.Mutex
}

// NewRateLimiter allows rate events per period, starting full.
func NewRateLimiter(rate int, period time.Duration) *RateLimiter {
	if rate < 1 {
		rate = 1
	}
	return &RateLimiter{
		capacity:   rate,
		interval:   period / time.Duration(rate),
		tokens:     rate,
		lastRefill: time.Now(),
	}
}

func (rl *RateLimiter) Allow() bool {
	return rl.AllowAt(time.Now())
}

// AllowAt is Allow with an explicit clock.
func (rl *RateLimiter) AllowAt(now time.Time) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refill(now)
	if rl.tokens == 0 {
		return false
	}
	rl.tokens--
	return true
}

// Remaining returns the tokens left after the last refill.
func (rl *RateLimiter) Remaining() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return rl.tokens
}

// refill credits whole tokens only; the fractional remainder stays in
// lastRefill so slow trickles still add up.
func (rl *RateLimiter) refill(now time.Time) {
	if rl.interval <= 0 {
		rl.tokens = rl.capacity
		return
	}
	earned := int(now.Sub(rl.lastRefill) / rl.interval)
	if earned <= 0 {
		return
	}
	rl.tokens += earned
	if rl.tokens >= rl.capacity {
		rl.tokens = rl.capacity
		rl.lastRefill = now
		return
	}
	rl.lastRefill = rl.lastRefill.Add(time.Duration(earned) * rl.interval)
}
