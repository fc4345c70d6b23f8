package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_StartsAtZero(t *testing.T) {
	assert.Equal(t, int64(0), NewClock().Current())
	assert.Equal(t, int64(1), NewClock().Next())
}

func TestClock_NextIsStrictlyIncreasing(t *testing.T) {
	c := NewClock()
	prev := c.Current()
	for i := 0; i < 10; i++ {
		next := c.Next()
		assert.Greater(t, next, prev)
		prev = next
	}
	assert.Equal(t, int64(10), c.Current())
}

func TestClock_ConcurrentNextIsUnique(t *testing.T) {
	c := NewClock()
	const n = 100

	var mu sync.Mutex
	seen := make(map[int64]bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := c.Next()
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.Equal(t, int64(n), c.Current())
}

type steppingTime struct {
	now  time.Time
	step time.Duration
}

func (s *steppingTime) Now() time.Time {
	t := s.now
	s.now = s.now.Add(s.step)
	return t
}

func TestStopwatchUsesTimeSource(t *testing.T) {
	src := &steppingTime{now: time.Unix(0, 0), step: 250 * time.Microsecond}
	sw := startStopwatch(src)
	assert.Equal(t, 250*time.Microsecond, sw.elapsed())
	assert.Equal(t, 500*time.Microsecond, sw.elapsed())
}
