// Package engine hosts a controller: it feeds it control ticks, serializes
// changes coming from MIDI, UI and remote goroutines, and publishes snapshots
// of its state.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/valerio/go-arp/arp/controller"
	"github.com/valerio/go-arp/arp/notestack"
	"github.com/valerio/go-arp/arp/timing"
)

const (
	DefaultQueueSize = 256

	// defaultMaxCatchUp bounds the ticks run after a stall, 100ms of audio.
	defaultMaxCatchUp = controller.DefaultControlRate / 10
)

// State is a point-in-time copy of the controller, safe to hand to other
// goroutines.
type State struct {
	Step        uint8
	PatternSize uint8
	Pattern     uint16
	Trigger     bool // current slot is a trigger slot

	Tempo     uint8
	Swing     uint8
	Octaves   uint8
	Direction controller.Direction
	Mode      controller.Mode

	Source             controller.ClockSource
	EstimatedSlotTicks uint16
	EstimatedTempo     uint16

	Held         []notestack.Entry
	SoundingNote uint8
	Sounding     bool

	Ticks uint64
	Slots uint64
}

// SlotObserver is notified on the engine goroutine every time a slot boundary
// is consumed. Implementations must not block.
type SlotObserver interface {
	OnSlot(State)
}

// SlotObserverFunc adapts a function to a SlotObserver.
type SlotObserverFunc func(State)

func (f SlotObserverFunc) OnSlot(s State) { f(s) }

// Engine owns a controller. Only the goroutine calling RunTicks or Run may
// touch the controller; everything else goes through Submit and Snapshot.
type Engine struct {
	ctrl      *controller.Controller
	commands  chan Command
	observers []SlotObserver
	limiter   timing.Limiter
	logger    *slog.Logger

	queueSize  int
	maxCatchUp int

	ticks uint64
	slots uint64

	mu    sync.RWMutex
	state State
}

type Option func(*Engine)

// WithLimiter sets the pacing of Run, a ticker at timing.PollInterval by
// default.
func WithLimiter(l timing.Limiter) Option { return func(e *Engine) { e.limiter = l } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithQueueSize sets how many commands can be pending before Submit drops.
func WithQueueSize(n int) Option { return func(e *Engine) { e.queueSize = n } }

// WithObserver adds a slot observer.
func WithObserver(o SlotObserver) Option {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithMaxCatchUp bounds how many ticks Run replays after the host stalled.
func WithMaxCatchUp(ticks int) Option { return func(e *Engine) { e.maxCatchUp = ticks } }

// New wraps a controller. The controller must already have its voices bound.
func New(ctrl *controller.Controller, opts ...Option) *Engine {
	e := &Engine{
		ctrl:       ctrl,
		logger:     slog.Default(),
		queueSize:  DefaultQueueSize,
		maxCatchUp: defaultMaxCatchUp,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.queueSize <= 0 {
		e.queueSize = DefaultQueueSize
	}
	e.commands = make(chan Command, e.queueSize)
	e.publish()
	return e
}

// Submit queues a command without blocking. It reports false, and the
// command is lost, when the queue is full.
func (e *Engine) Submit(cmd Command) bool {
	select {
	case e.commands <- cmd:
		return true
	default:
		e.logger.Warn("Command queue full, dropping command", "command", cmd.String())
		return false
	}
}

// ExternalSync forwards an external clock pulse. Unlike Submit it goes
// straight to the controller and may be called from any goroutine.
func (e *Engine) ExternalSync() {
	e.ctrl.ExternalSync()
}

// ExternalStart restarts the pattern on the next external pulse. Call it from
// the goroutine calling ExternalSync.
func (e *Engine) ExternalStart() {
	e.ctrl.ExternalStart()
}

// Snapshot returns the state published after the last batch of ticks.
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := e.state
	s.Held = append([]notestack.Entry(nil), e.state.Held...)
	return s
}

// RunTicks applies pending commands and runs n control ticks: Audio then
// Control, reporting every consumed slot to the observers.
func (e *Engine) RunTicks(n int) {
	e.drain()
	for i := 0; i < n; i++ {
		e.ctrl.Audio()
		e.ctrl.Control()
		e.ticks++
		if e.ctrl.HasTicked() {
			e.ctrl.ClearTick()
			e.slots++
			if len(e.observers) > 0 {
				s := e.capture()
				for _, o := range e.observers {
					o.OnSlot(s)
				}
			}
		}
		if i%64 == 63 {
			e.drain()
		}
	}
	e.publish()
}

// Run feeds the controller in real time until ctx is done. Elapsed wall time
// is converted to control ticks at the controller's rate.
func (e *Engine) Run(ctx context.Context) error {
	limiter := e.limiter
	if limiter == nil {
		t := timing.NewTickerLimiter(timing.PollInterval)
		defer t.Stop()
		limiter = t
	}
	clock := timing.NewTickClock(e.ctrl.ControlRate())
	limiter.Reset()

	e.logger.Info("Engine started",
		"control_rate", clock.Rate(),
		"tick", timing.TickDuration(clock.Rate()),
		"poll_interval", timing.PollInterval)

	for {
		select {
		case <-ctx.Done():
			e.drain()
			e.publish()
			e.logger.Info("Engine stopped", "ticks", e.ticks, "slots", e.slots)
			return nil
		default:
		}

		limiter.WaitForNextTick()
		due := clock.Due(e.maxCatchUp)
		e.RunTicks(due)
	}
}

func (e *Engine) drain() {
	for {
		select {
		case cmd := <-e.commands:
			e.logger.Debug("Applying command", "command", cmd.String())
			cmd.Apply(e.ctrl)
		default:
			return
		}
	}
}

func (e *Engine) capture() State {
	c := e.ctrl
	note, sounding := c.SoundingNote()
	return State{
		Step:               c.Step(),
		PatternSize:        c.PatternSize(),
		Pattern:            c.Pattern(),
		Trigger:            c.HasArpeggiatorNote(),
		Tempo:              c.Tempo(),
		Swing:              c.Swing(),
		Octaves:            c.Octaves(),
		Direction:          c.Direction(),
		Mode:               c.Mode(),
		Source:             c.ClockSource(),
		EstimatedSlotTicks: c.EstimatedBeatDuration(),
		EstimatedTempo:     c.EstimatedTempo(),
		Held:               c.HeldNotes(nil),
		SoundingNote:       note,
		Sounding:           sounding,
		Ticks:              e.ticks,
		Slots:              e.slots,
	}
}

func (e *Engine) publish() {
	s := e.capture()
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}
