// Package arp ties an engine to a front end: it polls the backend for input,
// turns actions into engine commands and hands the published state back for
// display.
package arp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valerio/go-arp/arp/backend"
	"github.com/valerio/go-arp/arp/bit"
	"github.com/valerio/go-arp/arp/controller"
	"github.com/valerio/go-arp/arp/engine"
	"github.com/valerio/go-arp/arp/input"
	"github.com/valerio/go-arp/arp/input/action"
	"github.com/valerio/go-arp/arp/input/event"
)

const (
	DefaultFrameInterval = time.Second / 30
	DefaultKeyOctave     = 4
	DefaultVelocity      = 100

	swingIncrement = 4
	maxKeyOctave   = 8
)

// ActionHandler is implemented by backends that handle some actions
// themselves, like changing their log filter.
type ActionHandler interface {
	HandleAction(act action.Action)
}

// SessionConfig holds the front end settings of a session.
type SessionConfig struct {
	FrameInterval time.Duration
	Velocity      uint8
	KeyOctave     int
	Pattern       uint8 // built-in pattern selected at startup
}

// Session runs a backend against an engine.
type Session struct {
	engine  *engine.Engine
	backend backend.Backend
	input   *input.Manager
	config  SessionConfig

	keyOctave int
	patternID int
	keyNotes  map[action.Action]uint8 // note sent for each key that is down
	quit      bool
}

// NewSession binds the default actions of a backend to an engine.
func NewSession(e *engine.Engine, b backend.Backend, config SessionConfig) *Session {
	if config.FrameInterval <= 0 {
		config.FrameInterval = DefaultFrameInterval
	}
	if config.Velocity == 0 {
		config.Velocity = DefaultVelocity
	}
	if config.KeyOctave <= 0 {
		config.KeyOctave = DefaultKeyOctave
	}

	s := &Session{
		engine:    e,
		backend:   b,
		input:     input.NewManager(),
		config:    config,
		keyOctave: min(config.KeyOctave, maxKeyOctave),
		patternID: int(config.Pattern) % controller.NumPatterns,
		keyNotes:  make(map[action.Action]uint8),
	}
	s.bind()
	return s
}

// Input returns the manager actions are dispatched through, to register more
// callbacks.
func (s *Session) Input() *input.Manager {
	return s.input
}

// KeyOctave returns the octave of the computer keyboard's lowest C.
func (s *Session) KeyOctave() int {
	return s.keyOctave
}

// Done reports whether quit was requested.
func (s *Session) Done() bool {
	return s.quit
}

// Run drives an initialized backend until quit is requested or ctx is done,
// then cleans it up. The engine runs on its own goroutine for the lifetime of
// Run.
//
// Backends may replace the default logger in Init, so components that keep a
// logger should be built after Init.
func (s *Session) Run(ctx context.Context) (err error) {
	defer func() {
		err = errors.Join(err, s.backend.Cleanup())
	}()

	ctx, cancel := context.WithCancel(ctx)
	engineDone := make(chan error, 1)
	go func() { engineDone <- s.engine.Run(ctx) }()

	ticker := time.NewTicker(s.config.FrameInterval)
	defer ticker.Stop()

	for !s.quit {
		if err = s.Step(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			s.quit = true
		case <-ticker.C:
		}
	}

	cancel()
	return errors.Join(err, <-engineDone)
}

// Step runs one front end frame: the backend shows the latest state and its
// input is dispatched.
func (s *Session) Step() error {
	events, err := s.backend.Update(s.engine.Snapshot())
	if err != nil {
		return fmt.Errorf("update backend: %w", err)
	}
	s.input.Dispatch(events)
	return nil
}

func (s *Session) bind() {
	for act := action.NoteC; act <= action.NoteCHigh; act++ {
		s.input.On(act, event.Press, func() { s.noteOn(act) })
		s.input.On(act, event.Release, func() { s.noteOff(act) })
	}

	s.input.On(action.KeyboardOctaveUp, event.Press, func() { s.shiftKeyboard(1) })
	s.input.On(action.KeyboardOctaveDown, event.Press, func() { s.shiftKeyboard(-1) })

	s.onPress(action.TempoUp, func(st engine.State) engine.Command {
		return engine.SetTempo(clampByte(int(st.Tempo) + 1))
	})
	s.onPress(action.TempoDown, func(st engine.State) engine.Command {
		return engine.SetTempo(clampByte(int(st.Tempo) - 1))
	})
	s.onPress(action.SwingUp, func(st engine.State) engine.Command {
		return engine.SetSwing(clampByte(int(st.Swing) + swingIncrement))
	})
	s.onPress(action.SwingDown, func(st engine.State) engine.Command {
		return engine.SetSwing(clampByte(int(st.Swing) - swingIncrement))
	})
	s.onPress(action.PatternNext, func(engine.State) engine.Command {
		s.patternID = (s.patternID + 1) % controller.NumPatterns
		return engine.SetPattern(uint8(s.patternID))
	})
	s.onPress(action.PatternPrev, func(engine.State) engine.Command {
		s.patternID = (s.patternID + controller.NumPatterns - 1) % controller.NumPatterns
		return engine.SetPattern(uint8(s.patternID))
	})
	s.onPress(action.PatternToggleStep, func(st engine.State) engine.Command {
		return engine.SetCustomPattern(bit.Toggle16(st.Step, st.Pattern))
	})
	s.onPress(action.PatternSizeUp, func(st engine.State) engine.Command {
		return engine.SetPatternSize(clampByte(int(st.PatternSize) + 1))
	})
	s.onPress(action.PatternSizeDown, func(st engine.State) engine.Command {
		return engine.SetPatternSize(clampByte(int(st.PatternSize) - 1))
	})
	s.onPress(action.OctavesUp, func(st engine.State) engine.Command {
		return engine.SetOctaves(clampByte(int(st.Octaves) + 1))
	})
	s.onPress(action.OctavesDown, func(st engine.State) engine.Command {
		return engine.SetOctaves(clampByte(int(st.Octaves) - 1))
	})
	s.onPress(action.DirectionNext, func(st engine.State) engine.Command {
		return engine.SetDirection((st.Direction + 1) % 4)
	})
	s.onPress(action.ModeToggle, func(st engine.State) engine.Command {
		if st.Mode == controller.ModeArpeggiator {
			return engine.SetMode(controller.ModeMonophonic)
		}
		return engine.SetMode(controller.ModeArpeggiator)
	})
	s.onPress(action.Reset, func(engine.State) engine.Command { return engine.Reset() })
	s.onPress(action.Panic, func(engine.State) engine.Command {
		clear(s.keyNotes)
		return engine.AllNotesOff()
	})

	s.input.On(action.Quit, event.Press, func() {
		slog.Info("Quit requested")
		s.quit = true
	})

	if h, ok := s.backend.(ActionHandler); ok {
		for _, act := range []action.Action{action.DebugLogLevelIncrease, action.DebugLogLevelDecrease} {
			s.input.On(act, event.Press, func() { h.HandleAction(act) })
		}
	}
}

// onPress submits the command built from the latest state when act is
// pressed.
func (s *Session) onPress(act action.Action, build func(engine.State) engine.Command) {
	s.input.On(act, event.Press, func() {
		cmd := build(s.engine.Snapshot())
		slog.Debug("Action", "action", act.String(), "command", cmd.String())
		s.engine.Submit(cmd)
	})
}

func (s *Session) noteOn(act action.Action) {
	note := 12*(s.keyOctave+1) + act.Semitone()
	if note > 127 {
		return
	}
	s.keyNotes[act] = uint8(note)
	s.engine.Submit(engine.NoteOn(uint8(note), s.config.Velocity))
}

// noteOff releases the note the key started, even if the keyboard octave
// changed in between.
func (s *Session) noteOff(act action.Action) {
	note, ok := s.keyNotes[act]
	if !ok {
		return
	}
	delete(s.keyNotes, act)
	s.engine.Submit(engine.NoteOff(note))
}

func (s *Session) shiftKeyboard(delta int) {
	octave := max(0, min(maxKeyOctave, s.keyOctave+delta))
	if octave == s.keyOctave {
		return
	}
	s.keyOctave = octave
	slog.Info("Keyboard octave changed", "octave", octave)
}

func clampByte(v int) uint8 {
	return uint8(max(0, min(255, v)))
}
