package timing

import "time"

// TickClock turns wall-clock time into a count of due control ticks. It counts
// from a fixed origin, so rounding never accumulates into drift.
type TickClock struct {
	rate    int
	origin  time.Time
	emitted int64
	now     func() time.Time
}

// NewTickClock creates a clock emitting rate ticks per second, starting now.
func NewTickClock(rate int) *TickClock {
	return newTickClock(rate, time.Now)
}

func newTickClock(rate int, now func() time.Time) *TickClock {
	c := &TickClock{rate: rate, now: now}
	c.Reset()
	return c
}

// Due returns how many ticks elapsed since the previous call, at most max
// when max is positive. Ticks beyond max are dropped, the clock does not try
// to catch up after a stall.
func (c *TickClock) Due(max int) int {
	total := TicksSince(c.now().Sub(c.origin), c.rate)
	n := total - c.emitted
	if max > 0 && n > int64(max) {
		c.emitted = total
		return max
	}
	c.emitted = total
	return int(n)
}

// Reset restarts counting from now.
func (c *TickClock) Reset() {
	c.origin = c.now()
	c.emitted = 0
}

// Rate returns the tick rate in Hz.
func (c *TickClock) Rate() int {
	return c.rate
}
