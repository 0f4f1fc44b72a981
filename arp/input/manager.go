package input

import (
	"time"

	"github.com/valerio/go-arp/arp/backend"
	"github.com/valerio/go-arp/arp/input/action"
	"github.com/valerio/go-arp/arp/input/event"
)

const (
	// debounceDuration is the minimum time between debounced events
	debounceDuration = 150 * time.Millisecond
)

// Manager handles input actions and their associated callbacks
type Manager struct {
	handlers      map[action.Action]map[event.Type][]func()
	lastTriggered map[action.Action]map[event.Type]time.Time
	debounce      time.Duration
	now           func() time.Time
}

func NewManager() *Manager {
	return &Manager{
		handlers:      make(map[action.Action]map[event.Type][]func()),
		lastTriggered: make(map[action.Action]map[event.Type]time.Time),
		debounce:      debounceDuration,
		now:           time.Now,
	}
}

// SetDebounce changes the minimum time between two presses of the same
// control. Zero disables debouncing.
func (m *Manager) SetDebounce(d time.Duration) {
	m.debounce = d
}

// On registers a callback for a specific action and event type
func (m *Manager) On(act action.Action, evt event.Type, callback func()) {
	if m.handlers[act] == nil {
		m.handlers[act] = make(map[event.Type][]func())
	}
	m.handlers[act][evt] = append(m.handlers[act][evt], callback)
}

// Trigger handles the given action and event type. It reports false when the
// event was debounced.
func (m *Manager) Trigger(act action.Action, evt event.Type) bool {
	// Notes must follow the keys exactly, only controls are debounced.
	if !act.IsNote() && (evt == event.Press || evt == event.Release) && m.debounce > 0 {
		now := m.now()
		if m.lastTriggered[act] == nil {
			m.lastTriggered[act] = make(map[event.Type]time.Time)
		}
		if last, ok := m.lastTriggered[act][evt]; ok && now.Sub(last) < m.debounce {
			return false
		}
		m.lastTriggered[act][evt] = now
	}

	for _, callback := range m.handlers[act][evt] {
		callback()
	}
	return true
}

// Dispatch triggers every event returned by a backend update.
func (m *Manager) Dispatch(events []backend.InputEvent) {
	for _, evt := range events {
		m.Trigger(evt.Action, evt.Type)
	}
}
