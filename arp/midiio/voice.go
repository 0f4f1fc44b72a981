// Package midiio connects the controller to MIDI ports: a voice that plays
// on an output channel, and a listener feeding notes and clock from an input.
package midiio

import (
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
)

// Standard channel mode controllers.
const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// SendFunc writes one message to a port, as returned by midi.SendTo.
type SendFunc func(msg midi.Message) error

// Voice plays the controller output as notes on a MIDI channel.
type Voice struct {
	send    SendFunc
	channel uint8

	note uint8
	on   bool

	logger *slog.Logger
}

type VoiceOption func(*Voice)

func WithVoiceLogger(l *slog.Logger) VoiceOption { return func(v *Voice) { v.logger = l } }

// NewVoice creates a voice sending on channel (0-15).
func NewVoice(send SendFunc, channel uint8, opts ...VoiceOption) *Voice {
	v := &Voice{
		send:    send,
		channel: channel & 0x0f,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Trigger plays note. On a legato trigger the new note starts before the old
// one ends, so a mono synth with legato glide will slide between them. The
// same note is never overlapped with itself.
func (v *Voice) Trigger(note, velocity uint8, legato bool) {
	note &= 0x7f
	if v.on && (!legato || v.note == note) {
		v.write(midi.NoteOff(v.channel, v.note))
		v.on = false
	}
	prev, wasOn := v.note, v.on
	v.write(midi.NoteOn(v.channel, note, max(velocity&0x7f, 1)))
	if wasOn {
		v.write(midi.NoteOff(v.channel, prev))
	}
	v.note = note
	v.on = true
}

func (v *Voice) Release() {
	if !v.on {
		return
	}
	v.write(midi.NoteOff(v.channel, v.note))
	v.on = false
}

// Kill ends the note and asks the receiver to cut every sound on the channel.
func (v *Voice) Kill() {
	v.Release()
	v.write(midi.ControlChange(v.channel, ccAllSoundOff, 0))
}

// Channel returns the output channel, 0 based.
func (v *Voice) Channel() uint8 {
	return v.channel
}

func (v *Voice) write(msg midi.Message) {
	if err := v.send(msg); err != nil {
		v.logger.Warn("MIDI send failed", "message", msg.String(), "error", err)
	}
}
