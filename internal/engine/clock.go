package engine

import (
	"sync/atomic"
	"time"
)

// Clock is a monotonic logical clock stamping engine events.
//
// Every Event handed to an Observer carries a strictly increasing Seq from
// this clock, so traces order identically across runs regardless of wall
// time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
// The engine's sequential dispatch means only one goroutine calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// TimeSource supplies wall time for pass durations and the run wall clock.
// Tests substitute a deterministic source.
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the system clock.
type SystemTime struct{}

// Now returns time.Now().
func (SystemTime) Now() time.Time {
	return time.Now()
}

// stopwatch measures elapsed time against a TimeSource.
type stopwatch struct {
	src   TimeSource
	start time.Time
}

func startStopwatch(src TimeSource) stopwatch {
	return stopwatch{src: src, start: src.Now()}
}

func (s stopwatch) elapsed() time.Duration {
	return s.src.Now().Sub(s.start)
}
