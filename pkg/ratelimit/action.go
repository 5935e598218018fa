package ratelimit

import (
	"sync"
	"time"
)

// actionBucket has two modes: counting inside a window, or cooling down
// after the limit was exceeded (cooldownUntil in the future).
type actionBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time
}

// ActionRateLimiter limits per-user engagement actions (comments, likes).
// Exceeding maxActions within window starts a cooldown during which every
// action is rejected.
//
//	limiter := NewActionRateLimiter(5, 5*time.Second, 15*time.Second)
//	if !limiter.Allow(userID) { return 429 }
type ActionRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*actionBucket
	maxActions  int
	window      time.Duration
	cooldown    time.Duration
	stopCleanup chan struct{}
	closeOnce   sync.Once
	now         func() time.Time
}

func NewActionRateLimiter(maxActions int, window, cooldown time.Duration) *ActionRateLimiter {
	rl := &ActionRateLimiter{
		buckets:     make(map[string]*actionBucket),
		maxActions:  maxActions,
		window:      window,
		cooldown:    cooldown,
		stopCleanup: make(chan struct{}),
		now:         time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

// Allow records an action by key and reports whether it is accepted.
func (rl *ActionRateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &actionBucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	if now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > rl.maxActions {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}
	return true
}

// CooldownSeconds is the Retry-After value for key, 0 when not limited.
func (rl *ActionRateLimiter) CooldownSeconds(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || b.cooldownUntil.IsZero() {
		return 0
	}
	remaining := b.cooldownUntil.Sub(rl.now())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Close stops the cleanup goroutine.
func (rl *ActionRateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *ActionRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup keeps buckets that are still cooling down.
func (rl *ActionRateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)
		if windowExpired && cooldownExpired {
			delete(rl.buckets, key)
		}
	}
}
