package controller

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/valerio/go-arp/arp/bit"
)

// patternTable holds the built-in rhythms, one character per slot starting
// from slot 0: 'x' triggers a note, '-' rests.
var patternTable = [NumPatterns]string{
	"xxxxxxxxxxxxxxxx",
	"x-x-x-x-x-x-x-x-",
	"-x-x-x-x-x-x-x-x",
	"x---x---x---x---",
	"xx-xxx-xxx-xxx-x",
	"x-xxx-xxx-xxx-xx",
	"x--x--x--x--x-x-",
	"x-xx-xx-x-xx-xx-",
	"xx-x-xx-xx-x-xx-",
	"x--xx--xx--xx-x-",
	"x-x--x-x-x--x-x-",
	"xxx-xxx-xxx-xxx-",
	"x---x-x-x---x-x-",
	"x-----x-----x---",
	"xx--xx--xx--xx--",
	"x-x-x-xxx-x-x-xx",
}

// NumPatterns is the number of built-in patterns.
const NumPatterns = 16

var patterns [NumPatterns]uint16

func init() {
	for i, p := range patternTable {
		bits, err := ParsePattern(p)
		if err != nil {
			panic(fmt.Sprintf("controller: built-in pattern %d: %v", i, err))
		}
		patterns[i] = bits
	}
}

// BuiltinPattern returns the bits of a built-in pattern, the id wraps around
// the table.
func BuiltinPattern(id uint8) uint16 {
	return patterns[int(id)%NumPatterns]
}

// ParsePattern converts an x-o-x string ('x' or 'X' for a trigger, '-', '.'
// or 'o' for a rest) into a slot mask. Spaces are ignored.
func ParsePattern(s string) (uint16, error) {
	var bits uint16
	var slot uint8
	for _, r := range s {
		if r == ' ' {
			continue
		}
		if slot >= NumSlots {
			return 0, fmt.Errorf("pattern %q is longer than %d slots", s, NumSlots)
		}
		switch r {
		case 'x', 'X':
			bits = bit.Set16(slot, bits)
		case '-', '.', 'o':
		default:
			return 0, fmt.Errorf("pattern %q: invalid slot character %q", s, r)
		}
		slot++
	}
	if slot == 0 {
		return 0, fmt.Errorf("pattern is empty")
	}
	return bits, nil
}

// ResolvePattern accepts either a built-in pattern id or an x-o-x string. id
// is -1 for an x-o-x string.
func ResolvePattern(s string) (bits uint16, id int, err error) {
	s = strings.TrimSpace(s)
	if n, convErr := strconv.Atoi(s); convErr == nil {
		if n < 0 || n >= NumPatterns {
			return 0, -1, fmt.Errorf("built-in pattern %d does not exist (0-%d)", n, NumPatterns-1)
		}
		return BuiltinPattern(uint8(n)), n, nil
	}
	bits, err = ParsePattern(s)
	return bits, -1, err
}

// FormatPattern renders the first size slots of a mask as an x-o-x string.
func FormatPattern(bits uint16, size uint8) string {
	size = uint8(clamp(int(size), 1, NumSlots))
	var sb strings.Builder
	for i := uint8(0); i < size; i++ {
		if bit.IsSet16(i, bits) {
			sb.WriteByte('x')
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// SetTempo sets the internal clock tempo in BPM.
func (c *Controller) SetTempo(bpm uint8) {
	c.tempo = uint8(clamp(int(bpm), MinTempo, MaxTempo))
	c.RecomputeStepDurations()
}

// SetSwing sets how much time moves from odd slots to even slots, 0 is
// straight and MaxSwing is the heaviest shuffle.
func (c *Controller) SetSwing(amount uint8) {
	c.swing = uint8(clamp(int(amount), 0, MaxSwing))
	c.RecomputeStepDurations()
}

// SetPattern selects a built-in pattern.
func (c *Controller) SetPattern(id uint8) {
	c.pattern = BuiltinPattern(id)
	c.logger.Debug("Pattern selected", "id", int(id)%NumPatterns, "pattern", FormatPattern(c.pattern, NumSlots))
}

// SetCustomPattern uses an arbitrary slot mask, bit n triggers slot n.
func (c *Controller) SetCustomPattern(bits uint16) {
	c.pattern = bits
}

// SetPatternSize sets the number of active slots. A position past the new end
// moves to the last slot, so the next slot is slot 0.
func (c *Controller) SetPatternSize(n uint8) {
	c.patternSize = uint8(clamp(int(n), 1, NumSlots))
	if c.step >= c.patternSize {
		c.step = c.patternSize - 1
		c.patternMask = 1 << c.step
	}
}

// StepDurations returns the length, in control ticks, of even and odd slots.
func (c *Controller) StepDurations() [2]uint16 {
	return [2]uint16{uint16(c.stepDurations[0]), uint16(c.stepDurations[1])}
}

// RecomputeStepDurations derives slot lengths from tempo and swing. Swing
// moves up to half a slot from every odd slot to the even slot before it, so
// a pair of slots always lasts exactly two straight 16th notes.
func (c *Controller) RecomputeStepDurations() {
	nominal := c.controlRate * 15 / int32(max(c.tempo, MinTempo))
	shift := nominal * int32(c.swing) / 256
	c.stepDurations[0] = nominal + shift
	c.stepDurations[1] = nominal - shift
	c.logger.Debug("Step durations updated",
		"tempo", c.tempo,
		"swing", c.swing,
		"even", c.stepDurations[0],
		"odd", c.stepDurations[1])
}

// advance moves to the next slot and plays or silences it.
func (c *Controller) advance() {
	c.patternMask = bit.Rotate16(c.patternMask, c.patternSize)
	c.step++
	if c.step >= c.patternSize {
		c.step = 0
	}
	c.hasTicked = true
	c.started = true

	if c.patternMask&c.pattern != 0 {
		c.fire()
	} else {
		c.silence()
	}
}
