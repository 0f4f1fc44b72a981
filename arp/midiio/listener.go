package midiio

import (
	"fmt"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/valerio/go-arp/arp/engine"
)

// Omni makes a listener accept notes on every channel.
const Omni = -1

// Target receives what the listener decodes. *engine.Engine implements it.
type Target interface {
	Submit(cmd engine.Command) bool
	ExternalSync()
	ExternalStart()
}

// Listener translates inbound MIDI into controller input. Clock pulses and
// Start go straight to the controller; everything else is queued as an engine
// command.
type Listener struct {
	target  Target
	channel int
	logger  *slog.Logger
}

type ListenerOption func(*Listener)

// WithChannel only accepts notes and channel mode messages on channel (0-15),
// or on every channel with Omni.
func WithChannel(channel int) ListenerOption {
	return func(l *Listener) { l.channel = channel }
}

func WithListenerLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) { l.logger = logger }
}

func NewListener(target Target, opts ...ListenerOption) *Listener {
	l := &Listener{
		target:  target,
		channel: Omni,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Listen starts receiving from in. The returned func stops listening.
func (l *Listener) Listen(in drivers.In) (func(), error) {
	stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
		l.Handle(msg)
	}, midi.UseTimeCode(), midi.HandleError(func(err error) {
		l.logger.Warn("MIDI input error", "port", in.String(), "error", err)
	}))
	if err != nil {
		return nil, fmt.Errorf("listen to %s: %w", in.String(), err)
	}
	l.logger.Info("Listening for MIDI", "port", in.String(), "channel", l.channelName())
	return stop, nil
}

// Handle processes one inbound message.
func (l *Listener) Handle(msg midi.Message) {
	var ch, key, vel, cc, val uint8

	switch {
	case msg.Is(midi.TimingClockMsg):
		l.target.ExternalSync()
	case msg.Is(midi.StartMsg):
		l.logger.Debug("MIDI start")
		l.target.ExternalStart()
	case msg.GetNoteStart(&ch, &key, &vel):
		if l.accepts(ch) {
			l.target.Submit(engine.NoteOn(key, vel))
		}
	case msg.GetNoteEnd(&ch, &key):
		if l.accepts(ch) {
			l.target.Submit(engine.NoteOff(key))
		}
	case msg.GetControlChange(&ch, &cc, &val):
		if !l.accepts(ch) {
			return
		}
		switch cc {
		case ccAllNotesOff:
			l.target.Submit(engine.AllNotesOff())
		case ccAllSoundOff:
			l.target.Submit(engine.AllSoundOff())
		}
	}
}

func (l *Listener) accepts(ch uint8) bool {
	return l.channel == Omni || int(ch) == l.channel
}

func (l *Listener) channelName() string {
	if l.channel == Omni {
		return "omni"
	}
	return fmt.Sprint(l.channel + 1)
}
