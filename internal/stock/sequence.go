package stock

import (
	"sync"
	"time"
)

// commitClock hands out commit timestamps that are strictly increasing across
// the whole ledger, independent of which balance keys a movement touched. The
// wall clock is bumped by a nanosecond when two commits land within its
// resolution.
type commitClock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *commitClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UTC()
	if !now.After(c.last) {
		now = c.last.Add(time.Nanosecond)
	}
	c.last = now
	return now
}
