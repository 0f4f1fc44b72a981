// Package controller routes held notes to a voice, clocked by a 16 step
// pattern.
//
// A Controller is driven from two sides. Audio and ExternalSync are the
// interrupt-like entry points: they only decrement a counter and may be called
// from any goroutine. Everything else, Control included, must be called from a
// single goroutine, which is then the only writer of the pattern, arpeggio and
// tempo estimator state.
package controller

import (
	"log/slog"
	"sync/atomic"

	"github.com/valerio/go-arp/arp/notestack"
)

// Timing constants.
const (
	// DefaultControlRate is the rate, in Hz, at which Audio is expected to be
	// called.
	DefaultControlRate = 4902

	// MIDIClockPrescaler is the number of external clock pulses per slot:
	// MIDI runs at 24 ppqn, the pattern at 4 slots per quarter note.
	MIDIClockPrescaler = 24 / 4

	// SlotsPerBeat is the number of pattern slots in a quarter note.
	SlotsPerBeat = 4

	// NumSlots is the maximum pattern length.
	NumSlots = 16
)

// Parameter ranges. Out of range values are clamped, never rejected.
const (
	MinTempo   = 40
	MaxTempo   = 240
	MaxSwing   = 127
	MaxOctaves = 4

	minControlRate = 1000
	maxControlRate = 48000
)

// Defaults applied by Init.
const (
	DefaultTempo   = 120
	DefaultOctaves = 1
)

// ClockSource identifies which counter is driving the pattern.
type ClockSource uint8

const (
	SourceInternal ClockSource = iota
	SourceExternal
)

func (s ClockSource) String() string {
	if s == SourceExternal {
		return "external"
	}
	return "internal"
}

// Controller is the voice controller/arpeggiator state. The zero value is not
// usable, create one with New and bind voices with Init.
type Controller struct {
	// Written by Audio/ExternalSync, read and reset by Control.
	internal atomic.Int32
	external atomic.Int32
	// Set by ExternalStart, consumed by Control.
	startPending atomic.Bool

	controlRate   int32
	stepDurations [2]int32

	tempo uint8
	swing uint8

	// 16 slots x-o-x pattern, bit n triggers a note on slot n.
	pattern uint16
	// Single bit, rotates by one every slot.
	patternMask uint16
	step        uint8
	patternSize uint8

	arpeggioStep int8 // -1 until the first note of a run is picked
	increment    int8 // +1/-1, only flips in DirectionUpDown
	octaveStep   uint8
	octaves      uint8
	direction    Direction
	mode         Mode

	notes  *notestack.Stack
	voices []Voice

	sounding     bool
	soundingNote uint8

	hasTicked bool
	started   bool // a slot was consumed since Reset

	// External clock tracking, owned by Control.
	source         ClockSource
	lastExternal   int32
	externalIdle   uint32
	externalWindow uint32

	// Counts control ticks per slot while the external clock drives the
	// pattern, to estimate its tempo.
	estimatorNum    uint16
	estimatorDen    uint8
	estimatorPrimed bool
	estimate        uint16

	random RandomSource
	logger *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithRandom sets the byte source used by DirectionRandom.
func WithRandom(r RandomSource) Option {
	return func(c *Controller) {
		if r != nil {
			c.random = r
		}
	}
}

// WithLogger sets the logger used for clock source and configuration changes.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithControlRate sets the rate at which the host calls Audio.
func WithControlRate(hz int) Option {
	return func(c *Controller) {
		c.controlRate = int32(clamp(hz, minControlRate, maxControlRate))
	}
}

// New creates a controller with default settings and no voices bound.
func New(opts ...Option) *Controller {
	c := &Controller{
		controlRate: DefaultControlRate,
		notes:       notestack.New(),
		random:      NewRandom(1),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.externalWindow = uint32(c.controlRate / 2)
	c.Init(nil)
	return c
}

// Init binds the voices and restores every setting to its default. The slice
// is not copied; the controller never resizes it.
func (c *Controller) Init(voices []Voice) {
	c.voices = voices
	c.notes.Clear()
	c.sounding = false
	c.tempo = DefaultTempo
	c.swing = 0
	c.pattern = patterns[0]
	c.patternSize = NumSlots
	c.octaves = DefaultOctaves
	c.direction = DirectionUp
	c.mode = ModeArpeggiator
	c.estimate = 0
	c.RecomputeStepDurations()
	c.Reset()
}

// Reset rewinds the pattern and arpeggio and forgets the external clock. The
// next consumed slot is slot 0: immediately on the internal clock, on the
// first pulse of an external one.
func (c *Controller) Reset() {
	c.external.Store(1)
	c.restart(SourceInternal)
}

// ExternalStart restarts the pattern on the next external pulse, as a MIDI
// Start does. It must be called from the goroutine calling ExternalSync so
// that pulses following it count from the restart even before Control runs.
func (c *Controller) ExternalStart() {
	c.external.Store(1)
	c.startPending.Store(true)
}

func (c *Controller) restart(source ClockSource) {
	c.internal.Store(0)
	c.lastExternal = 1
	c.externalIdle = 0
	c.source = source

	c.step = c.patternSize - 1
	c.patternMask = 1 << c.step
	c.hasTicked = false
	c.started = false
	c.rewind()

	c.estimatorNum = 0
	c.estimatorDen = 0
	c.estimatorPrimed = false
}

// Step returns the index of the current slot.
func (c *Controller) Step() uint8 { return c.step }

// HasTicked reports whether a slot boundary was consumed since the last
// ClearTick.
func (c *Controller) HasTicked() bool { return c.hasTicked }

// ClearTick acknowledges the last slot boundary.
func (c *Controller) ClearTick() { c.hasTicked = false }

// HasArpeggiatorNote reports whether the current slot is a trigger slot. It
// is false after Reset until the first slot is consumed.
func (c *Controller) HasArpeggiatorNote() bool {
	return c.started && c.patternMask&c.pattern != 0
}

// EstimatedBeatDuration returns the average slot duration of the external
// clock over the last complete beat, in control ticks. It is 0 until an
// external clock has been observed for a full beat, and keeps its last value
// once the clock goes away.
func (c *Controller) EstimatedBeatDuration() uint16 { return c.estimate }

// EstimatedTempo converts EstimatedBeatDuration to BPM, 0 when unknown.
func (c *Controller) EstimatedTempo() uint16 {
	if c.estimate == 0 {
		return 0
	}
	bpm := c.controlRate * 15 / int32(c.estimate)
	return uint16(clamp(int(bpm), 0, 0xFFFF))
}

// ClockSource returns the counter that drove the last Control call.
func (c *Controller) ClockSource() ClockSource { return c.source }

// ControlRate returns the expected Audio call rate in Hz.
func (c *Controller) ControlRate() int { return int(c.controlRate) }

func (c *Controller) Tempo() uint8 { return c.tempo }
func (c *Controller) Swing() uint8 { return c.swing }
func (c *Controller) Pattern() uint16 { return c.pattern }
func (c *Controller) PatternSize() uint8 { return c.patternSize }
func (c *Controller) Octaves() uint8 { return c.octaves }
func (c *Controller) Direction() Direction { return c.direction }
func (c *Controller) Mode() Mode { return c.mode }

// SoundingNote returns the pitch currently held on the voice, ok is false
// when the voice is released.
func (c *Controller) SoundingNote() (uint8, bool) {
	return c.soundingNote, c.sounding
}

// HeldNotes appends the held notes to dst, lowest pitch first.
func (c *Controller) HeldNotes(dst []notestack.Entry) []notestack.Entry {
	for i := 0; i < c.notes.Size(); i++ {
		dst = append(dst, c.notes.Sorted(i))
	}
	return dst
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
