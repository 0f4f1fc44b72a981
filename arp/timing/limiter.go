package timing

import "time"

// Limiter paces the host loop that feeds control ticks to the controller.
type Limiter interface {
	// WaitForNextTick blocks until it's time for the next poll.
	// Returns immediately if timing is behind schedule.
	WaitForNextTick()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// PollInterval is how often the real-time loop wakes up to catch up on
// control ticks. At the default control rate that is about 5 ticks per poll.
const PollInterval = time.Millisecond

// TickDuration returns the wall-clock length of one control tick at rate Hz.
func TickDuration(rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Second / time.Duration(rate)
}

// TicksSince converts an elapsed wall-clock duration to whole control ticks
// at rate Hz.
func TicksSince(elapsed time.Duration, rate int) int64 {
	if elapsed <= 0 || rate <= 0 {
		return 0
	}
	// Split to keep elapsed*rate from overflowing on long runs.
	secs := int64(elapsed / time.Second)
	rem := int64(elapsed % time.Second)
	return secs*int64(rate) + rem*int64(rate)/int64(time.Second)
}
