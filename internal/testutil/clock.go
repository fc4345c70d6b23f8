package testutil

import (
	"sync"
	"time"
)

// Epoch is the fixed start time of every FakeTime.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// FakeTime is a wall-time source that advances by a fixed step on every
// reading, so pass durations are deterministic.
//
// Implements engine.TimeSource. Safe for concurrent use.
type FakeTime struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFakeTime creates a source starting at Epoch that advances by step on
// each Now call. A zero step freezes time.
func NewFakeTime(step time.Duration) *FakeTime {
	return &FakeTime{now: Epoch, step: step}
}

// Now returns the current fake time, then advances it by the step.
func (f *FakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.now
	f.now = f.now.Add(f.step)
	return t
}

// Advance moves the clock forward by d without a reading.
func (f *FakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Reset returns the clock to Epoch.
//
// Used for test reuse. The next Now call returns Epoch.
func (f *FakeTime) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = Epoch
}
