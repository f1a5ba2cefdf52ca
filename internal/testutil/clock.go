package testutil

import "sync"

// DeterministicClock is a resettable logical clock for tests.
//
// It satisfies scheduler.Sequencer, so an instance driven by it stamps
// firings with the same seq values on every run. Safe for concurrent use.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock at 0. The first Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last issued sequence number.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Set moves the clock to seq, e.g. after restoring a checkpoint.
func (c *DeterministicClock) Set(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = seq
}

// Reset returns the clock to 0.
func (c *DeterministicClock) Reset() {
	c.Set(0)
}
