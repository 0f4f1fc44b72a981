// Package voice holds in-process implementations of controller.Voice.
package voice

import (
	"fmt"
	"sync"
)

// Kind is the type of a recorded voice command.
type Kind uint8

const (
	KindTrigger Kind = iota
	KindRelease
	KindKill
)

func (k Kind) String() string {
	switch k {
	case KindTrigger:
		return "trigger"
	case KindRelease:
		return "release"
	case KindKill:
		return "kill"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Event is one command received by a voice. Note and Velocity are only set
// for triggers.
type Event struct {
	Kind     Kind
	Note     uint8
	Velocity uint8
	Legato   bool
}

func (e Event) String() string {
	if e.Kind != KindTrigger {
		return e.Kind.String()
	}
	if e.Legato {
		return fmt.Sprintf("trigger %d/%d legato", e.Note, e.Velocity)
	}
	return fmt.Sprintf("trigger %d/%d", e.Note, e.Velocity)
}

// Recorder is a voice that remembers every command it gets. It is safe for
// concurrent use, so a UI can read it while the controller plays.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	gate   bool
	note   uint8
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Trigger(note, velocity uint8, legato bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: KindTrigger, Note: note, Velocity: velocity, Legato: legato})
	r.gate = true
	r.note = note
}

func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: KindRelease})
	r.gate = false
}

func (r *Recorder) Kill() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Kind: KindKill})
	r.gate = false
}

// Events returns a copy of the recorded commands.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Notes returns the pitches of the recorded triggers, in order.
func (r *Recorder) Notes() []uint8 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var notes []uint8
	for _, e := range r.events {
		if e.Kind == KindTrigger {
			notes = append(notes, e.Note)
		}
	}
	return notes
}

// Gate reports the last triggered pitch and whether it is still held.
func (r *Recorder) Gate() (note uint8, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.note, r.gate
}

// Clear forgets the recorded commands. The gate state is kept.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = r.events[:0]
}
