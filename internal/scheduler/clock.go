package scheduler

import "sync/atomic"

// Sequencer issues strictly increasing sequence numbers for firings.
// Implemented by Clock and by testutil.DeterministicClock.
type Sequencer interface {
	Next() int64
}

// Clock is the logical clock that stamps an instance's firings. Seq values
// order firings without wall-clock time, so a replayed scenario produces
// the same trace.
//
// Safe for concurrent use, though an instance only calls it from Step.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock at 0. The first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, e.g. from a checkpoint.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
