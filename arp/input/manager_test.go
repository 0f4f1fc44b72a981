package input

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/valerio/go-arp/arp/backend"
	"github.com/valerio/go-arp/arp/input/action"
	"github.com/valerio/go-arp/arp/input/event"
)

func newTestManager() (*Manager, *time.Time) {
	m := NewManager()
	now := time.Unix(0, 0)
	m.now = func() time.Time { return now }
	return m, &now
}

func TestManager_Debouncing(t *testing.T) {
	tests := []struct {
		name           string
		action         action.Action
		eventType      event.Type
		timeBetween    time.Duration
		expectDebounce bool
	}{
		{
			name:           "control rapid press - should debounce",
			action:         action.TempoUp,
			eventType:      event.Press,
			timeBetween:    100 * time.Millisecond,
			expectDebounce: true,
		},
		{
			name:           "control slow press - should not debounce",
			action:         action.TempoUp,
			eventType:      event.Press,
			timeBetween:    200 * time.Millisecond,
			expectDebounce: false,
		},
		{
			name:           "note rapid press - should not debounce",
			action:         action.NoteC,
			eventType:      event.Press,
			timeBetween:    10 * time.Millisecond,
			expectDebounce: false,
		},
		{
			name:           "note rapid release - should not debounce",
			action:         action.NoteG,
			eventType:      event.Release,
			timeBetween:    time.Millisecond,
			expectDebounce: false,
		},
		{
			name:           "hold event type - should not debounce",
			action:         action.TempoUp,
			eventType:      event.Hold,
			timeBetween:    10 * time.Millisecond,
			expectDebounce: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, now := newTestManager()
			calls := 0
			m.On(tt.action, tt.eventType, func() { calls++ })

			// First event should always go through
			assert.True(t, m.Trigger(tt.action, tt.eventType), "First event should always pass")

			*now = now.Add(tt.timeBetween)
			result := m.Trigger(tt.action, tt.eventType)

			if tt.expectDebounce {
				assert.False(t, result, "Second event should be debounced")
				assert.Equal(t, 1, calls)
			} else {
				assert.True(t, result, "Second event should not be debounced")
				assert.Equal(t, 2, calls)
			}
		})
	}
}

func TestManager_MultipleActions(t *testing.T) {
	m, _ := newTestManager()

	// Different actions shouldn't interfere with each other
	assert.True(t, m.Trigger(action.TempoUp, event.Press))
	assert.True(t, m.Trigger(action.SwingUp, event.Press))

	assert.False(t, m.Trigger(action.TempoUp, event.Press))
	assert.False(t, m.Trigger(action.SwingUp, event.Press))
}

func TestManager_DisabledDebounce(t *testing.T) {
	m, _ := newTestManager()
	m.SetDebounce(0)

	for i := 0; i < 5; i++ {
		assert.True(t, m.Trigger(action.PatternNext, event.Press))
	}
}

func TestManager_CallbacksRunInOrder(t *testing.T) {
	m, _ := newTestManager()
	var got []string
	m.On(action.Panic, event.Press, func() { got = append(got, "first") })
	m.On(action.Panic, event.Press, func() { got = append(got, "second") })
	m.On(action.Panic, event.Release, func() { got = append(got, "release") })

	m.Trigger(action.Panic, event.Press)
	assert.Equal(t, []string{"first", "second"}, got)

	// No callback registered is fine.
	assert.True(t, m.Trigger(action.Reset, event.Press))
}

func TestManager_Dispatch(t *testing.T) {
	m, _ := newTestManager()
	var got []action.Action
	for _, act := range []action.Action{action.NoteC, action.NoteE, action.Quit} {
		m.On(act, event.Press, func() { got = append(got, act) })
	}

	m.Dispatch([]backend.InputEvent{
		{Action: action.NoteC, Type: event.Press},
		{Action: action.NoteE, Type: event.Hold},
		{Action: action.NoteE, Type: event.Press},
		{Action: action.Quit, Type: event.Press},
	})
	assert.Equal(t, []action.Action{action.NoteC, action.NoteE, action.Quit}, got)
}

func TestDefaultKeyMap(t *testing.T) {
	seen := map[action.Action]bool{}
	for _, act := range DefaultKeyMap {
		seen[act] = true
	}
	for act := action.NoteC; act <= action.NoteCHigh; act++ {
		assert.True(t, seen[act], "note %s has no key", act)
	}

	act, ok := GetDefaultMapping("q")
	assert.True(t, ok)
	assert.Equal(t, action.Quit, act)

	_, ok = GetDefaultMapping("F13")
	assert.False(t, ok)
}
