package client

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnreadCounter_SetIsIdempotent(t *testing.T) {
	c := NewUnreadCounter()
	var seen []int
	c.Subscribe(func(n int) { seen = append(seen, n) })

	c.Set(3, 1)
	c.Set(3, 1)
	c.Set(-2, 2)

	assert.Equal(t, 0, c.Value())
	assert.Equal(t, []int{3, 0}, seen)
}

func TestUnreadCounter_DeltaThenConfirm(t *testing.T) {
	c := NewUnreadCounter()
	c.Set(5, 1)

	c.ApplyDelta("read:n1", -1)
	assert.Equal(t, 4, c.Value())

	// An unrelated push leaves the delta pending.
	c.Set(5, 2)
	assert.Equal(t, 4, c.Value(), "delta still pending until confirmed")

	c.Confirm("read:n1", 4, 3)
	assert.Equal(t, 4, c.Value())

	// A replayed delta for a confirmed action is ignored.
	c.ApplyDelta("read:n1", -1)
	assert.Equal(t, 4, c.Value())
}

func TestUnreadCounter_SettleRetiresMatchingDelta(t *testing.T) {
	c := NewUnreadCounter()
	c.Set(3, 1)

	c.ApplyDeltaFor("k1", readSubject("n1", true), -1)
	c.ApplyDeltaFor("k2", readSubject("n2", true), -1)
	assert.Equal(t, 1, c.Value())

	// The push for n1 already counts n1's read; only n2's delta remains.
	c.Settle(readSubject("n1", true), 2, 2)
	assert.Equal(t, 1, c.Value())

	// The opposite transition is a different subject.
	c.Settle(readSubject("n2", false), 2, 3)
	assert.Equal(t, 1, c.Value())

	assert.False(t, c.Rollback("k1"), "k1 was settled by the push")
	assert.True(t, c.Rollback("k2"))
	assert.Equal(t, 2, c.Value())
}

func TestUnreadCounter_PushBeforeConfirm(t *testing.T) {
	c := NewUnreadCounter()
	c.Set(3, 1)

	c.ApplyDeltaFor("k1", readSubject("n1", true), -1)
	assert.Equal(t, 2, c.Value())

	c.Settle(readSubject("n1", true), 2, 2)
	assert.Equal(t, 2, c.Value(), "the push must not count the read twice")

	c.Confirm("k1", 2, 2)
	assert.Equal(t, 2, c.Value())
}

func TestUnreadCounter_OutOfOrderConfirms(t *testing.T) {
	c := NewUnreadCounter()
	c.Set(3, 0)

	c.ApplyDeltaFor("k1", readSubject("n1", true), -1)
	c.ApplyDeltaFor("k2", readSubject("n2", true), -1)
	assert.Equal(t, 1, c.Value())

	// The server handled n1 first (version 1) and n2 second (version 2),
	// but the replies arrive the other way round.
	c.Confirm("k2", 1, 2)
	assert.Equal(t, 0, c.Value(), "k1 still pending on top of the newest count")

	c.Confirm("k1", 2, 1)
	assert.Equal(t, 1, c.Value(), "the stale reply must not raise the badge")
	assert.Equal(t, int64(2), c.Version())
}

func TestUnreadCounter_IgnoresStalePush(t *testing.T) {
	c := NewUnreadCounter()
	c.Set(2, 1)
	c.Set(1, 2)

	c.Set(2, 1)
	assert.Equal(t, 1, c.Value())
}

func TestUnreadCounter_Rollback(t *testing.T) {
	c := NewUnreadCounter()
	c.Set(2, 1)
	c.ApplyDelta("delete:n1", -1)
	assert.Equal(t, 1, c.Value())

	assert.True(t, c.Rollback("delete:n1"))
	assert.Equal(t, 2, c.Value())
}

func TestUnreadCounter_NeverNegative(t *testing.T) {
	c := NewUnreadCounter()
	c.ApplyDelta("a", -1)
	c.ApplyDelta("b", -1)
	assert.Equal(t, 0, c.Value())

	c.Set(1, 1)
	assert.Equal(t, 0, c.Value())
}

func TestUnreadCounter_ResetOnOpenSupersededByServer(t *testing.T) {
	c := NewUnreadCounter()
	c.Set(4, 1)
	c.ApplyDelta("read:n1", -1)

	c.ResetOnOpen()
	assert.Equal(t, 0, c.Value())
	assert.Equal(t, int64(1), c.Version())

	// A push that arrived mid-transition wins.
	c.Set(1, 2)
	assert.Equal(t, 1, c.Value())

	// The delta dropped by the reset stays dropped.
	c.ApplyDelta("read:n1", -1)
	assert.Equal(t, 1, c.Value())
}

func TestUnreadCounter_Unsubscribe(t *testing.T) {
	c := NewUnreadCounter()
	calls := 0
	unsubscribe := c.Subscribe(func(int) { calls++ })

	c.Set(1, 1)
	unsubscribe()
	c.Set(2, 2)

	assert.Equal(t, 1, calls)
}

func TestUnreadCounter_ConvergesUnderRaces(t *testing.T) {
	c := NewUnreadCounter()
	c.Set(50, 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		key := fmt.Sprintf("read:%d", i)
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.ApplyDelta(key, -1)
			if i%5 == 0 {
				c.Rollback(key)
				return
			}
			c.Confirm(key, 10, int64(i+2))
		}(i)
	}
	wg.Wait()

	// Every action settled; the newest authoritative value stands.
	assert.Equal(t, 10, c.Value())
	assert.Equal(t, int64(51), c.Version())
}

func TestUnreadCounter_ForgetsOldConfirmedKeys(t *testing.T) {
	c := NewUnreadCounter()
	for i := 0; i < confirmedKeysLimit+10; i++ {
		c.Confirm(fmt.Sprintf("k%d", i), 0, 0)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Len(t, c.confirmed, confirmedKeysLimit)
	assert.Len(t, c.confirmedKeys, confirmedKeysLimit)
}
