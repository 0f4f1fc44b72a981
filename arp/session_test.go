package arp_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-arp/arp"
	"github.com/valerio/go-arp/arp/backend"
	"github.com/valerio/go-arp/arp/bit"
	"github.com/valerio/go-arp/arp/controller"
	"github.com/valerio/go-arp/arp/engine"
	"github.com/valerio/go-arp/arp/input/action"
	"github.com/valerio/go-arp/arp/input/event"
	"github.com/valerio/go-arp/arp/voice"
)

// MockBackend is a test backend that returns predetermined events
type MockBackend struct {
	script      [][]backend.InputEvent
	initialized bool
	cleanedUp   bool
	updateCalls int
	states      []engine.State
	handled     []action.Action
}

func (m *MockBackend) Init(config backend.BackendConfig) error {
	m.initialized = true
	return nil
}

func (m *MockBackend) Update(state engine.State) ([]backend.InputEvent, error) {
	m.updateCalls++
	m.states = append(m.states, state)
	if m.updateCalls <= len(m.script) {
		return m.script[m.updateCalls-1], nil
	}
	return nil, nil
}

func (m *MockBackend) Cleanup() error {
	m.cleanedUp = true
	return nil
}

func (m *MockBackend) HandleAction(act action.Action) {
	m.handled = append(m.handled, act)
}

func press(act action.Action) backend.InputEvent {
	return backend.InputEvent{Action: act, Type: event.Press}
}

func release(act action.Action) backend.InputEvent {
	return backend.InputEvent{Action: act, Type: event.Release}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestEngine(t *testing.T) (*engine.Engine, *voice.Recorder) {
	t.Helper()
	rec := voice.NewRecorder()
	ctrl := controller.New(controller.WithLogger(quiet()))
	ctrl.Init([]controller.Voice{rec})
	return engine.New(ctrl, engine.WithLogger(quiet())), rec
}

// step runs one frame per scripted batch and lets the engine apply the
// resulting commands.
func step(t *testing.T, s *arp.Session, e *engine.Engine, m *MockBackend, events ...backend.InputEvent) engine.State {
	t.Helper()
	m.script = append(m.script, events)
	for m.updateCalls < len(m.script) {
		require.NoError(t, s.Step())
	}
	e.RunTicks(1)
	return e.Snapshot()
}

func newTestSession(t *testing.T, config arp.SessionConfig) (*arp.Session, *engine.Engine, *MockBackend) {
	t.Helper()
	e, _ := newTestEngine(t)
	m := &MockBackend{}
	s := arp.NewSession(e, m, config)
	s.Input().SetDebounce(0)
	return s, e, m
}

func TestEventFlow(t *testing.T) {
	tests := []struct {
		name          string
		events        []backend.InputEvent
		expectedQuit  bool
		expectedHeld  []uint8
		expectedTempo uint8
	}{
		{
			name:          "quit event stops loop",
			events:        []backend.InputEvent{press(action.Quit)},
			expectedQuit:  true,
			expectedTempo: controller.DefaultTempo,
		},
		{
			name: "note keys are passed through",
			events: []backend.InputEvent{
				press(action.NoteC),
				press(action.NoteE),
				{Action: action.NoteE, Type: event.Hold},
				press(action.NoteG),
				release(action.NoteE),
			},
			expectedHeld:  []uint8{60, 67},
			expectedTempo: controller.DefaultTempo,
		},
		{
			name: "controls are applied",
			events: []backend.InputEvent{
				press(action.TempoDown),
			},
			expectedTempo: controller.DefaultTempo - 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e, m := newTestSession(t, arp.SessionConfig{})

			state := step(t, s, e, m, tt.events...)

			assert.Equal(t, tt.expectedQuit, s.Done())
			var held []uint8
			for _, h := range state.Held {
				held = append(held, h.Note)
			}
			assert.Equal(t, tt.expectedHeld, held)
			assert.Equal(t, tt.expectedTempo, state.Tempo)
			assert.Equal(t, 1, m.updateCalls)
		})
	}
}

func TestSession_TempoStepsFromPublishedState(t *testing.T) {
	s, e, m := newTestSession(t, arp.SessionConfig{})

	// Each press reads the last published tempo, so presses within one
	// frame collapse.
	state := step(t, s, e, m, press(action.TempoUp), press(action.TempoUp))
	assert.Equal(t, uint8(controller.DefaultTempo+1), state.Tempo)

	state = step(t, s, e, m, press(action.TempoUp))
	assert.Equal(t, uint8(controller.DefaultTempo+2), state.Tempo)
}

func TestSession_Controls(t *testing.T) {
	s, e, m := newTestSession(t, arp.SessionConfig{Pattern: 3})

	state := step(t, s, e, m, press(action.SwingDown))
	assert.Equal(t, uint8(0), state.Swing, "swing must not wrap below zero")

	state = step(t, s, e, m, press(action.SwingUp))
	assert.Equal(t, uint8(4), state.Swing)

	state = step(t, s, e, m, press(action.PatternNext))
	assert.Equal(t, controller.BuiltinPattern(4), state.Pattern)

	step(t, s, e, m, press(action.PatternPrev))
	state = step(t, s, e, m, press(action.PatternPrev))
	assert.Equal(t, controller.BuiltinPattern(2), state.Pattern)

	state = step(t, s, e, m, press(action.PatternSizeDown))
	assert.Equal(t, uint8(controller.NumSlots-1), state.PatternSize)

	state = step(t, s, e, m, press(action.OctavesDown))
	assert.Equal(t, uint8(1), state.Octaves)
	state = step(t, s, e, m, press(action.OctavesUp))
	assert.Equal(t, uint8(2), state.Octaves)

	state = step(t, s, e, m, press(action.DirectionNext))
	assert.Equal(t, controller.DirectionDown, state.Direction)

	state = step(t, s, e, m, press(action.ModeToggle))
	assert.Equal(t, controller.ModeMonophonic, state.Mode)
	state = step(t, s, e, m, press(action.ModeToggle))
	assert.Equal(t, controller.ModeArpeggiator, state.Mode)
}

func TestSession_PatternWraps(t *testing.T) {
	s, e, m := newTestSession(t, arp.SessionConfig{})

	state := step(t, s, e, m, press(action.PatternPrev))
	assert.Equal(t, controller.BuiltinPattern(controller.NumPatterns-1), state.Pattern)

	state = step(t, s, e, m, press(action.PatternNext))
	assert.Equal(t, controller.BuiltinPattern(0), state.Pattern)
}

func TestSession_ToggleStep(t *testing.T) {
	s, e, m := newTestSession(t, arp.SessionConfig{})

	for i := 0; i < 2; i++ {
		prev := e.Snapshot()
		state := step(t, s, e, m, press(action.PatternToggleStep))
		assert.Equal(t, bit.Toggle16(prev.Step, prev.Pattern), state.Pattern)
		assert.NotEqual(t, prev.Pattern, state.Pattern)
	}
}

func TestSession_KeyboardOctave(t *testing.T) {
	s, e, m := newTestSession(t, arp.SessionConfig{})
	require.Equal(t, arp.DefaultKeyOctave, s.KeyOctave())

	state := step(t, s, e, m, press(action.KeyboardOctaveUp), press(action.NoteA))
	require.Len(t, state.Held, 1)
	assert.Equal(t, uint8(81), state.Held[0].Note)
	assert.Equal(t, uint8(arp.DefaultVelocity), state.Held[0].Velocity)

	// The release matches the press even after the octave moved.
	state = step(t, s, e, m, press(action.KeyboardOctaveDown), press(action.KeyboardOctaveDown), release(action.NoteA))
	assert.Empty(t, state.Held)
	assert.Equal(t, arp.DefaultKeyOctave-1, s.KeyOctave())

	for i := 0; i < 10; i++ {
		step(t, s, e, m, press(action.KeyboardOctaveDown))
	}
	assert.Equal(t, 0, s.KeyOctave())

	state = step(t, s, e, m, press(action.NoteC))
	assert.Equal(t, uint8(12), state.Held[0].Note)
}

func TestSession_PanicForgetsKeys(t *testing.T) {
	s, e, m := newTestSession(t, arp.SessionConfig{Velocity: 64})

	state := step(t, s, e, m, press(action.NoteC), press(action.NoteD))
	require.Len(t, state.Held, 2)
	assert.Equal(t, uint8(64), state.Held[0].Velocity)

	state = step(t, s, e, m, press(action.Panic))
	assert.Empty(t, state.Held)

	// Releasing a key after the panic sends nothing.
	step(t, s, e, m, release(action.NoteC))
	state = step(t, s, e, m, press(action.NoteE), release(action.NoteD))
	require.Len(t, state.Held, 1)
	assert.Equal(t, uint8(64), state.Held[0].Note)
}

func TestSession_ForwardsBackendActions(t *testing.T) {
	s, e, m := newTestSession(t, arp.SessionConfig{})

	step(t, s, e, m, press(action.DebugLogLevelIncrease), press(action.DebugLogLevelDecrease))
	assert.Equal(t, []action.Action{action.DebugLogLevelIncrease, action.DebugLogLevelDecrease}, m.handled)
}

func TestSession_Debounce(t *testing.T) {
	e, _ := newTestEngine(t)
	m := &MockBackend{}
	s := arp.NewSession(e, m, arp.SessionConfig{})

	step(t, s, e, m, press(action.OctavesUp))
	state := step(t, s, e, m, press(action.OctavesUp))
	assert.Equal(t, uint8(2), state.Octaves, "second press within the debounce window is dropped")

	// Notes are never debounced.
	state = step(t, s, e, m, press(action.NoteC), release(action.NoteC), press(action.NoteC))
	assert.Len(t, state.Held, 1)
}

func TestSession_Run(t *testing.T) {
	e, _ := newTestEngine(t)
	m := &MockBackend{script: [][]backend.InputEvent{
		{press(action.NoteC)},
		nil,
		nil,
		{press(action.Quit)},
	}}
	s := arp.NewSession(e, m, arp.SessionConfig{FrameInterval: time.Millisecond})
	require.NoError(t, m.Init(backend.BackendConfig{Title: "Test"}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	assert.True(t, m.initialized)
	assert.True(t, m.cleanedUp)
	assert.True(t, s.Done())
	assert.Equal(t, 4, m.updateCalls)

	// The engine applied the note before stopping.
	assert.Len(t, e.Snapshot().Held, 1)
}

func TestSession_RunStopsOnCancel(t *testing.T) {
	e, _ := newTestEngine(t)
	m := &MockBackend{}
	s := arp.NewSession(e, m, arp.SessionConfig{FrameInterval: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))
	assert.True(t, m.cleanedUp)
	assert.Greater(t, m.updateCalls, 1)
}

func TestBackendInterface(t *testing.T) {
	var _ backend.Backend = (*MockBackend)(nil)
	var _ arp.ActionHandler = (*MockBackend)(nil)
}
