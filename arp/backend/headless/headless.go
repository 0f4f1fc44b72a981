package headless

import (
	"log/slog"
	"os"

	"github.com/valerio/go-arp/arp/backend"
	"github.com/valerio/go-arp/arp/controller"
	"github.com/valerio/go-arp/arp/engine"
	"github.com/valerio/go-arp/arp/input/action"
	"github.com/valerio/go-arp/arp/input/event"
)

// progressInterval is how many slots pass between progress logs, one bar.
const progressInterval = controller.NumSlots

// Backend implements the Backend interface for automated runs: it plays a
// fixed number of slots and quits.
type Backend struct {
	config       backend.BackendConfig
	maxSlots     uint64
	lastProgress uint64
	done         bool
}

// New returns a backend that requests quit once maxSlots slots have played.
// Zero runs until interrupted.
func New(maxSlots int) *Backend {
	return &Backend{maxSlots: uint64(max(maxSlots, 0))}
}

func (h *Backend) Init(config backend.BackendConfig) error {
	h.config = config

	// Set up debug logging for headless mode
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	slog.Info("Running headless mode",
		"slots", h.maxSlots,
		"midi_in", h.config.MIDIIn,
		"midi_out", h.config.MIDIOut)

	return nil
}

// Update logs progress and signals quit when the run is over.
func (h *Backend) Update(state engine.State) ([]backend.InputEvent, error) {
	if h.done {
		return nil, nil
	}

	if state.Slots >= h.lastProgress+progressInterval {
		h.lastProgress = state.Slots - state.Slots%progressInterval
		slog.Info("Slot progress",
			"completed", state.Slots,
			"total", h.maxSlots,
			"source", state.Source,
			"tempo", state.Tempo,
			"estimated_tempo", state.EstimatedTempo)
	}

	if h.maxSlots == 0 || state.Slots < h.maxSlots {
		return nil, nil
	}

	h.done = true
	slog.Info("Headless execution completed", "slots", state.Slots, "ticks", state.Ticks)

	// Signal completion via quit event
	return []backend.InputEvent{{Action: action.Quit, Type: event.Press}}, nil
}

func (h *Backend) Cleanup() error {
	return nil
}
