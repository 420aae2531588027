package utils

import (
	"testing"
	"time"
)

func TestRateLimiterBurstThenRefill(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(3, 3*time.Second)
	start := rl.lastRefill

	for i := 0; i < 3; i++ {
		if !rl.AllowAt(start) {
			t.Fatalf("request %d denied, want allowed within burst", i)
		}
	}
	if rl.AllowAt(start) {
		t.Fatal("4th request allowed, want denied")
	}

	// Two half-intervals add up to one token.
	if rl.AllowAt(start.Add(500 * time.Millisecond)) {
		t.Fatal("allowed after half an interval")
	}
	if !rl.AllowAt(start.Add(time.Second)) {
		t.Fatal("denied after a full interval")
	}
	if got := rl.Remaining(); got != 0 {
		t.Fatalf("Remaining=%d want 0", got)
	}
}

func TestRateLimiterCapsAtCapacity(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(2, time.Minute)
	start := rl.lastRefill

	rl.AllowAt(start)
	rl.AllowAt(start.Add(time.Hour))
	if got := rl.Remaining(); got != 1 {
		t.Fatalf("Remaining=%d want 1", got)
	}
}
