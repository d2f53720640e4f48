package clock

import "time"

// Clock provides current time abstraction for deterministic tests.
// Params: none.
// Returns: current wall-clock time.
type Clock interface {
	Now() time.Time
}

// RealClock reads current UTC time from system clock.
// Params: none.
// Returns: current UTC timestamp.
type RealClock struct{}

// Now returns current UTC time.
// Params: none.
// Returns: current UTC timestamp.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// FakeClock serves a controllable time for cache-expiry tests.
// Params: current fake instant.
// Returns: deterministic clock advanced manually.
type FakeClock struct {
	Current time.Time
}

// Now returns the configured fake instant.
// Params: none.
// Returns: current fake timestamp.
func (c *FakeClock) Now() time.Time {
	return c.Current
}

// Advance moves the fake clock forward.
// Params: step duration.
// Returns: clock state side effect.
func (c *FakeClock) Advance(step time.Duration) {
	c.Current = c.Current.Add(step)
}
