package timing

import (
	"log/slog"
	"time"
)

// AdaptiveLimiter uses precise timing with drift compensation.
// Combines sleep for efficiency with busy-waiting for accuracy.
type AdaptiveLimiter struct {
	interval     time.Duration
	nextTickTime time.Time
	tickCounter  int64
	started      time.Time
}

func NewAdaptiveLimiter(interval time.Duration) *AdaptiveLimiter {
	if interval <= 0 {
		interval = PollInterval
	}
	now := time.Now()
	return &AdaptiveLimiter{
		interval:     interval,
		nextTickTime: now,
		started:      now,
	}
}

func (a *AdaptiveLimiter) WaitForNextTick() {
	now := time.Now()
	sleepTime := a.nextTickTime.Sub(now)

	if sleepTime > 0 {
		if sleepTime < 2*time.Millisecond {
			for time.Now().Before(a.nextTickTime) {
				// busy-wait for times under 2ms, higher accuracy.
			}
		} else {
			time.Sleep(sleepTime - time.Millisecond)
			for time.Now().Before(a.nextTickTime) {
			}
		}
	} else if sleepTime < -5*a.interval {
		// Too far behind, skip ahead instead of bursting.
		a.nextTickTime = now
	}

	a.nextTickTime = a.nextTickTime.Add(a.interval)
	a.tickCounter++

	if a.tickCounter%1000 == 0 {
		actualTime := time.Now()
		drift := actualTime.Sub(a.nextTickTime)

		if drift.Abs() > 10*a.interval {
			a.nextTickTime = a.nextTickTime.Add(drift / 10)
			slog.Debug("Poll timing drift correction",
				"drift_ms", drift.Milliseconds(),
				"polls_per_sec", float64(a.tickCounter)/actualTime.Sub(a.started).Seconds())
		}
	}
}

func (a *AdaptiveLimiter) Reset() {
	a.nextTickTime = time.Now()
	a.started = a.nextTickTime
	a.tickCounter = 0
}
