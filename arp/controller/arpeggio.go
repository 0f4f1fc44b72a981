package controller

import (
	"fmt"
	"strings"
)

// Direction is the order in which held notes are arpeggiated.
type Direction uint8

const (
	DirectionUp Direction = iota
	DirectionDown
	DirectionUpDown
	DirectionRandom

	numDirections
)

var directionNames = [numDirections]string{"up", "down", "updown", "random"}

func (d Direction) String() string {
	if d < numDirections {
		return directionNames[d]
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// ParseDirection accepts the names returned by Direction.String, plus
// "up-down" and "up_down".
func ParseDirection(name string) (Direction, error) {
	n := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(strings.TrimSpace(name)))
	for i, dn := range directionNames {
		if n == dn {
			return Direction(i), nil
		}
	}
	return DirectionUp, fmt.Errorf("unknown arpeggio direction %q", name)
}

// Mode selects between the arpeggiator and plain monophonic playing.
type Mode uint8

const (
	// ModeArpeggiator plays the held notes one at a time on trigger slots.
	ModeArpeggiator Mode = iota
	// ModeMonophonic plays the last held key, re-triggered on trigger slots.
	ModeMonophonic
)

func (m Mode) String() string {
	if m == ModeMonophonic {
		return "mono"
	}
	return "arp"
}

// ParseMode accepts "arp"/"arpeggiator" and "mono"/"monophonic".
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "arp", "arpeggiator":
		return ModeArpeggiator, nil
	case "mono", "monophonic":
		return ModeMonophonic, nil
	}
	return ModeArpeggiator, fmt.Errorf("unknown mode %q", name)
}

// SetOctaves sets how many octaves the arpeggio spans.
func (c *Controller) SetOctaves(octaves uint8) {
	c.octaves = uint8(clamp(int(octaves), 1, MaxOctaves))
	c.octaveStep = min(c.octaveStep, c.octaves-1)
}

// SetDirection sets the arpeggio direction. Unknown values fold back into the
// four supported directions.
func (c *Controller) SetDirection(d Direction) {
	c.direction = d % numDirections
}

// SetMode switches between arpeggiator and monophonic playing. The sounding
// note is released and the arpeggio restarts.
func (c *Controller) SetMode(m Mode) {
	if m > ModeMonophonic {
		m = ModeArpeggiator
	}
	if m == c.mode {
		return
	}
	c.mode = m
	c.releaseSounding()
	c.rewind()
}

// NoteOn registers a pressed key. A zero velocity is treated as a release.
func (c *Controller) NoteOn(note, velocity uint8) {
	if velocity == 0 {
		c.NoteOff(note)
		return
	}
	note &= 0x7f

	wasEmpty := c.notes.Size() == 0
	c.notes.Push(note, velocity)

	if c.mode == ModeArpeggiator {
		if wasEmpty {
			c.rewind()
		}
		return
	}

	if v := c.voice(); v != nil {
		v.Trigger(note, velocity, c.sounding)
	}
	c.sounding = true
	c.soundingNote = note
}

// NoteOff registers a released key.
func (c *Controller) NoteOff(note uint8) {
	note &= 0x7f
	if !c.notes.Remove(note) {
		return
	}

	if c.mode == ModeArpeggiator {
		if c.notes.Size() == 0 {
			c.releaseSounding()
		}
		return
	}

	if !c.sounding || c.soundingNote != note {
		return
	}
	top, ok := c.notes.MostRecent()
	if !ok {
		c.releaseSounding()
		return
	}
	if v := c.voice(); v != nil {
		v.Trigger(top.Note, top.Velocity, true)
	}
	c.soundingNote = top.Note
}

// AllNotesOff releases the voices and forgets every held key.
func (c *Controller) AllNotesOff() {
	for _, v := range c.voices {
		v.Release()
	}
	c.sounding = false
	c.notes.Clear()
	c.rewind()
}

// AllSoundOff silences every voice immediately. Held keys are kept.
func (c *Controller) AllSoundOff() {
	for _, v := range c.voices {
		v.Kill()
	}
	c.sounding = false
}

// fire plays the next note on a trigger slot.
func (c *Controller) fire() {
	if c.mode == ModeMonophonic {
		if top, ok := c.notes.MostRecent(); ok {
			c.play(top.Note, top.Velocity)
		}
		return
	}

	size := c.notes.Size()
	if size == 0 {
		return
	}

	// Keys may have been released since the last slot.
	if int(c.arpeggioStep) >= size {
		c.arpeggioStep = int8(size - 1)
	}
	if c.octaveStep >= c.octaves {
		c.octaveStep = c.octaves - 1
	}

	pos := c.nextPosition(size, size*int(c.octaves))
	c.arpeggioStep = int8(pos % size)
	c.octaveStep = uint8(pos / size)

	e := c.notes.Sorted(int(c.arpeggioStep))
	note := min(int(e.Note)+12*int(c.octaveStep), 127)
	c.play(uint8(note), e.Velocity)
}

// nextPosition walks the flattened note x octave range of length n.
func (c *Controller) nextPosition(size, n int) int {
	if c.direction == DirectionRandom {
		return int(c.random.Byte()) % n
	}

	if c.arpeggioStep < 0 {
		if c.direction == DirectionDown {
			c.increment = -1
			return n - 1
		}
		c.increment = 1
		return 0
	}

	pos := int(c.octaveStep)*size + int(c.arpeggioStep)
	switch c.direction {
	case DirectionDown:
		return (pos - 1 + n) % n
	case DirectionUpDown:
		if n == 1 {
			return 0
		}
		pos += int(c.increment)
		if pos >= n {
			c.increment = -1
			pos = n - 2
		} else if pos < 0 {
			c.increment = 1
			pos = 1
		}
		return pos
	default:
		return (pos + 1) % n
	}
}

// silence handles a rest slot.
func (c *Controller) silence() {
	if c.mode == ModeArpeggiator {
		c.releaseSounding()
	}
}

func (c *Controller) play(note, velocity uint8) {
	v := c.voice()
	if v == nil {
		return
	}
	if c.sounding {
		v.Release()
	}
	v.Trigger(note, velocity, false)
	c.sounding = true
	c.soundingNote = note
}

func (c *Controller) releaseSounding() {
	if !c.sounding {
		return
	}
	if v := c.voice(); v != nil {
		v.Release()
	}
	c.sounding = false
}

// rewind makes the next arpeggio note the first of a run.
func (c *Controller) rewind() {
	c.arpeggioStep = -1
	c.octaveStep = 0
	c.increment = 1
}

func (c *Controller) voice() Voice {
	if len(c.voices) == 0 {
		return nil
	}
	return c.voices[0]
}
