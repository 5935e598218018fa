// Package services holds the business rules. Services take and return
// domain models, talk to storage only through repository interfaces and
// push realtime events through ws.EventPublisher after a write commits.
package services

import (
	"hash/fnv"
	"sync"
)

// keyedMutex serializes work per key (for example per recipient) over a
// fixed set of stripes.
type keyedMutex struct {
	stripes [64]sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &k.stripes[h.Sum32()%uint32(len(k.stripes))]
	m.Lock()
	return m.Unlock
}
