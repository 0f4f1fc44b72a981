package voice

import "github.com/valerio/go-arp/arp/controller"

// Multi forwards every command to a list of voices, so one controller voice
// slot can drive, say, a MIDI port and a recorder at once.
type Multi []controller.Voice

// NewMulti drops nil entries from voices.
func NewMulti(voices ...controller.Voice) Multi {
	m := make(Multi, 0, len(voices))
	for _, v := range voices {
		if v != nil {
			m = append(m, v)
		}
	}
	return m
}

func (m Multi) Trigger(note, velocity uint8, legato bool) {
	for _, v := range m {
		v.Trigger(note, velocity, legato)
	}
}

func (m Multi) Release() {
	for _, v := range m {
		v.Release()
	}
}

func (m Multi) Kill() {
	for _, v := range m {
		v.Kill()
	}
}
