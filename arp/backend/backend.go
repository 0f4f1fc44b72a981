package backend

import (
	"github.com/valerio/go-arp/arp/engine"
	"github.com/valerio/go-arp/arp/input/action"
	"github.com/valerio/go-arp/arp/input/event"
)

// Backend represents a front end for the arpeggiator.
// Backends are responsible for:
// - Showing the published engine state (terminal, logs, etc.)
// - Translating platform-specific input into InputEvents
type Backend interface {
	// Init configures the backend with the provided configuration.
	// This is a required step before calling Update.
	Init(config BackendConfig) error

	// Update shows the given state and returns the input gathered since the
	// previous call.
	Update(state engine.State) ([]InputEvent, error)

	// Cleanup resources when shutting down
	Cleanup() error
}

// InputEvent is a single action coming from a backend.
type InputEvent struct {
	Action action.Action
	Type   event.Type
}

// BackendConfig holds configuration for backends
type BackendConfig struct {
	Title    string
	ShowHelp bool   // Backends may ignore unsupported features
	MIDIIn   string // Port names, shown in status lines
	MIDIOut  string
}
