package memstore

import (
	"sync"
	"sync/atomic"
)

// counter is a monotonic counter. Next is linearizable: each call returns
// a unique, increasing value.
type counter struct {
	seq atomic.Int64
}

// Next increments the counter and returns the new value.
func (c *counter) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last value without incrementing.
func (c *counter) Current() int64 {
	return c.seq.Load()
}

// counters holds one counter per sequence name.
type counters struct {
	mu    sync.Mutex
	named map[string]*counter
}

func newCounters() *counters {
	return &counters{named: make(map[string]*counter)}
}

// get returns the counter for name, creating it when create is set.
func (cs *counters) get(name string, create bool) *counter {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.named[name]
	if !ok && create {
		c = &counter{}
		cs.named[name] = c
	}
	return c
}
