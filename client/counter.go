// Package client is the Go SDK of the bookshelf realtime API. It mirrors
// what the mobile app does: one authoritative unread counter per session,
// a typed event stream decoded from the socket, and small state holders
// (notification list, popup, book view) fed by a single Dispatcher.
package client

import (
	"sync"
)

// confirmedKeysLimit bounds how many retired action keys are remembered.
const confirmedKeysLimit = 512

// UnreadCounter reconciles the unread badge across three sources:
// authoritative counts from the server (REST bodies and push events),
// optimistic deltas keyed by the user action that caused them, and the
// reset to zero when the notification list is opened.
//
// The visible value is max(0, last authoritative + pending deltas). A
// delta lives until its action is confirmed, settled by a push for the
// same subject, or rolled back; once a key is retired a late delta for it
// is ignored.
//
// Every authoritative count carries the recipient's count version. A
// count older than the newest one applied is dropped, so REST replies
// and pushes may arrive in any order.
type UnreadCounter struct {
	mu sync.Mutex

	authoritative int
	version       int64
	pending       map[string]pendingDelta

	// confirmed remembers retired keys in insertion order.
	confirmed     map[string]struct{}
	confirmedKeys []string

	value     int
	listeners map[int]func(int)
	nextID    int
}

type pendingDelta struct {
	delta   int
	subject string
}

func NewUnreadCounter() *UnreadCounter {
	return &UnreadCounter{
		pending:   make(map[string]pendingDelta),
		confirmed: make(map[string]struct{}),
		listeners: make(map[int]func(int)),
	}
}

// Value returns the current badge value.
func (c *UnreadCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Version returns the count version of the last applied authoritative
// count.
func (c *UnreadCounter) Version() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Set applies an authoritative count that is not tied to a local action,
// such as the count carried by a push event. Setting the same value twice
// notifies nobody.
func (c *UnreadCounter) Set(n int, version int64) {
	c.mu.Lock()
	c.apply(n, version)
	notify := c.recompute()
	c.mu.Unlock()
	notify()
}

// Confirm applies the authoritative count returned for actionKey and
// retires its pending delta for good. The delta is retired even when the
// count itself is stale.
func (c *UnreadCounter) Confirm(actionKey string, n int, version int64) {
	c.mu.Lock()
	c.apply(n, version)
	delete(c.pending, actionKey)
	c.retire(actionKey)
	notify := c.recompute()
	c.mu.Unlock()
	notify()
}

// Settle applies a pushed count that reports the outcome of subject and
// retires every pending delta recorded for that subject. A push usually
// beats the REST reply of the same action; without this the delta would
// count twice until the reply lands.
func (c *UnreadCounter) Settle(subject string, n int, version int64) {
	c.mu.Lock()
	c.apply(n, version)
	for key, p := range c.pending {
		if p.subject == subject {
			delete(c.pending, key)
			c.retire(key)
		}
	}
	notify := c.recompute()
	c.mu.Unlock()
	notify()
}

// ApplyDelta records an optimistic change for actionKey. A key that was
// already retired is ignored, and a key applies at most one delta.
func (c *UnreadCounter) ApplyDelta(actionKey string, delta int) {
	c.ApplyDeltaFor(actionKey, "", delta)
}

// ApplyDeltaFor is ApplyDelta with the logical subject the action
// changes, such as one notification's read state. An empty subject is
// only retired by Confirm or Rollback.
func (c *UnreadCounter) ApplyDeltaFor(actionKey, subject string, delta int) {
	c.mu.Lock()
	if _, done := c.confirmed[actionKey]; done {
		c.mu.Unlock()
		return
	}
	c.pending[actionKey] = pendingDelta{delta: delta, subject: subject}
	notify := c.recompute()
	c.mu.Unlock()
	notify()
}

// Rollback drops the optimistic delta of a failed action. It reports
// whether the delta was still pending; false means a push already settled
// the action, so the server state includes it.
func (c *UnreadCounter) Rollback(actionKey string) bool {
	c.mu.Lock()
	_, pending := c.pending[actionKey]
	delete(c.pending, actionKey)
	c.retire(actionKey)
	notify := c.recompute()
	c.mu.Unlock()
	notify()
	return pending
}

// ResetOnOpen zeroes the badge when the notification list is opened. Any
// later authoritative count at or above the current version replaces it.
func (c *UnreadCounter) ResetOnOpen() {
	c.mu.Lock()
	c.authoritative = 0
	for key := range c.pending {
		c.retire(key)
	}
	c.pending = make(map[string]pendingDelta)
	notify := c.recompute()
	c.mu.Unlock()
	notify()
}

// apply must hold mu. Equal versions carry the same count and are
// re-applied, which lets a reply undo ResetOnOpen.
func (c *UnreadCounter) apply(n int, version int64) {
	if version < c.version {
		return
	}
	c.version = version
	c.authoritative = clampZero(n)
}

// Subscribe registers fn for value changes and returns the unsubscribe
// func. fn runs outside the counter's lock.
func (c *UnreadCounter) Subscribe(fn func(int)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// recompute must hold mu. It returns the notification to run after
// unlocking; a no-op when the value did not change.
func (c *UnreadCounter) recompute() func() {
	next := c.authoritative
	for _, p := range c.pending {
		next += p.delta
	}
	next = clampZero(next)

	if next == c.value {
		return func() {}
	}
	c.value = next

	fns := make([]func(int), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(next)
		}
	}
}

func (c *UnreadCounter) retire(key string) {
	if _, ok := c.confirmed[key]; ok {
		return
	}
	c.confirmed[key] = struct{}{}
	c.confirmedKeys = append(c.confirmedKeys, key)
	if len(c.confirmedKeys) > confirmedKeysLimit {
		oldest := c.confirmedKeys[0]
		c.confirmedKeys = c.confirmedKeys[1:]
		delete(c.confirmed, oldest)
	}
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
