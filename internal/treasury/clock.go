package treasury

import "time"

// SystemClock reports wall-clock time in whole seconds.
type SystemClock struct{}

// Now returns the current Unix time.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// FakeClock is a settable clock for tests.
type FakeClock struct {
	Time uint64
}

// Now returns the configured time.
func (c *FakeClock) Now() uint64 {
	return c.Time
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(seconds uint64) {
	c.Time += seconds
}
