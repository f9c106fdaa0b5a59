package testutil

import (
	"sync"
	"time"
)

// DefaultTime is the instant a new FixedClock starts at: Wednesday of ISO
// week 2025-W11, inside March 2025 and Q1.
var DefaultTime = time.Date(2025, time.March, 12, 9, 30, 0, 0, time.UTC)

// FixedClock is a thread-safe controllable time source for tests.
//
// Now returns the current instant and then advances it by Step, so
// consecutive calls produce strictly increasing timestamps. A zero Step
// freezes the clock.
type FixedClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewFixedClock creates a clock at start that advances by step per call.
// A zero start uses DefaultTime.
func NewFixedClock(start time.Time, step time.Duration) *FixedClock {
	if start.IsZero() {
		start = DefaultTime
	}
	return &FixedClock{now: start, step: step}
}

// Now returns the current time and advances the clock.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Peek returns the current time without advancing.
func (c *FixedClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
