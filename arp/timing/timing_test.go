package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTicksSince(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		rate     int
		expected int64
	}{
		{"one second", time.Second, 4902, 4902},
		{"half a second", 500 * time.Millisecond, 4902, 2451},
		{"rounds down", time.Millisecond, 4902, 4},
		{"a day", 24 * time.Hour, 48000, 24 * 3600 * 48000},
		{"negative", -time.Second, 4902, 0},
		{"no rate", time.Second, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TicksSince(tt.elapsed, tt.rate))
		})
	}
}

func TestTickDuration(t *testing.T) {
	// 1s/4902 is 203.998µs, truncated to whole nanoseconds.
	assert.Equal(t, 203998*time.Nanosecond, TickDuration(4902))
	assert.Equal(t, time.Millisecond, TickDuration(1000))
	assert.Equal(t, time.Duration(0), TickDuration(0))
}

func TestTickClock_NoDrift(t *testing.T) {
	now := time.Unix(0, 0)
	c := newTickClock(4902, func() time.Time { return now })

	total := 0
	for i := 0; i < 1000; i++ {
		now = now.Add(time.Millisecond)
		total += c.Due(0)
	}
	// 4.902 ticks per ms: per-call rounding must not lose the fractions.
	assert.Equal(t, 4902, total)
}

func TestTickClock_DropsAfterStall(t *testing.T) {
	now := time.Unix(0, 0)
	c := newTickClock(1000, func() time.Time { return now })

	now = now.Add(time.Second)
	assert.Equal(t, 50, c.Due(50))

	now = now.Add(10 * time.Millisecond)
	assert.Equal(t, 10, c.Due(50))

	c.Reset()
	assert.Equal(t, 0, c.Due(0))
	assert.Equal(t, 1000, c.Rate())
}

func TestTickerLimiter(t *testing.T) {
	l := NewTickerLimiter(0)
	defer l.Stop()
	assert.Equal(t, PollInterval, l.interval)

	start := time.Now()
	for i := 0; i < 3; i++ {
		l.WaitForNextTick()
	}
	assert.GreaterOrEqual(t, time.Since(start), 2*PollInterval)
}

func TestAdaptiveLimiter(t *testing.T) {
	l := NewAdaptiveLimiter(2 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 5; i++ {
		l.WaitForNextTick()
	}
	// The first tick is due immediately.
	assert.GreaterOrEqual(t, time.Since(start), 7*time.Millisecond)
}
