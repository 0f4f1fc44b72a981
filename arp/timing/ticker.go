package timing

import "time"

// TickerLimiter uses time.Ticker for simple, consistent polling.
// Less accurate than AdaptiveLimiter but simpler and good enough for most cases.
type TickerLimiter struct {
	interval time.Duration
	ticker   *time.Ticker
	ch       <-chan time.Time
}

func NewTickerLimiter(interval time.Duration) *TickerLimiter {
	if interval <= 0 {
		interval = PollInterval
	}
	ticker := time.NewTicker(interval)
	return &TickerLimiter{
		interval: interval,
		ticker:   ticker,
		ch:       ticker.C,
	}
}

func (t *TickerLimiter) WaitForNextTick() {
	<-t.ch
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(t.interval)
}

func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
