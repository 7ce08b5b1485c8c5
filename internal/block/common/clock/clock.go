package clock

import (
	"sync"
	"time"
)

// Clock abstracts wall time so model timestamps and block contexts are testable.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a settable Clock. It is safe for concurrent use because the
// engine stamps models from several message goroutines.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.CurrentTime = c.CurrentTime.Add(d)
	c.mu.Unlock()
}

// Millis returns the clock's current time as unix milliseconds, the unit the
// extension uses for persisted timestamps.
func Millis(c Clock) int64 {
	return c.Now().UnixMilli()
}
