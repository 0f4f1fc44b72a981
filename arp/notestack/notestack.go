// Package notestack keeps track of the keys currently held down.
//
// The stack is ordered by arrival: index 0 is the most recently pressed key.
// A second, pitch-ordered view is kept alongside so arpeggiators can walk the
// held notes from lowest to highest without sorting on every step. Storage is
// fixed size; nothing is allocated after construction.
package notestack

import "fmt"

// Capacity is the maximum number of simultaneously held notes. Pressing a key
// when the stack is full drops the oldest one.
const Capacity = 10

// Entry is a held note.
type Entry struct {
	Note     uint8
	Velocity uint8
}

// Stack is an ordered record of held notes supporting removal of arbitrary
// entries.
type Stack struct {
	entries [Capacity]Entry // most recent first
	sorted  [Capacity]uint8 // indexes into entries, rebuilt on every change
	size    int
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{}
}

// Push adds a note on top of the stack. A note that is already held is moved
// to the top with its new velocity.
func (s *Stack) Push(note, velocity uint8) {
	s.remove(note)
	if s.size == Capacity {
		s.size--
	}
	copy(s.entries[1:s.size+1], s.entries[:s.size])
	s.entries[0] = Entry{Note: note, Velocity: velocity}
	s.size++
	s.sort()
}

// Remove deletes a note from anywhere in the stack, reporting whether it was
// held.
func (s *Stack) Remove(note uint8) bool {
	if !s.remove(note) {
		return false
	}
	s.sort()
	return true
}

// Clear empties the stack.
func (s *Stack) Clear() {
	s.size = 0
}

// Size returns the number of held notes.
func (s *Stack) Size() int {
	return s.size
}

// Contains reports whether the note is held.
func (s *Stack) Contains(note uint8) bool {
	return s.index(note) >= 0
}

// MostRecent returns the last pressed note still held, ok is false when the
// stack is empty.
func (s *Stack) MostRecent() (Entry, bool) {
	if s.size == 0 {
		return Entry{}, false
	}
	return s.entries[0], true
}

// Note returns the i-th entry in arrival order, 0 being the most recent.
// Out of range indexes return the zero Entry.
func (s *Stack) Note(i int) Entry {
	if i < 0 || i >= s.size {
		return Entry{}
	}
	return s.entries[i]
}

// Sorted returns the i-th entry in pitch order, 0 being the lowest.
// Out of range indexes return the zero Entry.
func (s *Stack) Sorted(i int) Entry {
	if i < 0 || i >= s.size {
		return Entry{}
	}
	return s.entries[s.sorted[i]]
}

func (s *Stack) index(note uint8) int {
	for i := 0; i < s.size; i++ {
		if s.entries[i].Note == note {
			return i
		}
	}
	return -1
}

func (s *Stack) remove(note uint8) bool {
	i := s.index(note)
	if i < 0 {
		return false
	}
	copy(s.entries[i:s.size-1], s.entries[i+1:s.size])
	s.size--
	return true
}

// sort rebuilds the pitch-ordered index with an insertion sort, the stack is
// never larger than Capacity.
func (s *Stack) sort() {
	for i := 0; i < s.size; i++ {
		s.sorted[i] = uint8(i)
	}
	for i := 1; i < s.size; i++ {
		j := i
		for j > 0 && s.entries[s.sorted[j-1]].Note > s.entries[s.sorted[j]].Note {
			s.sorted[j-1], s.sorted[j] = s.sorted[j], s.sorted[j-1]
			j--
		}
	}
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Name returns the name of a MIDI note, 60 is C4.
func Name(note uint8) string {
	return fmt.Sprintf("%s%d", noteNames[note%12], int(note)/12-1)
}
