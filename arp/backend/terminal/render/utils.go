package render

import (
	"strings"

	"github.com/valerio/go-arp/arp/notestack"
)

// NoteList renders held notes in the given order.
func NoteList(held []notestack.Entry) string {
	if len(held) == 0 {
		return "-"
	}
	names := make([]string, len(held))
	for i, e := range held {
		names[i] = notestack.Name(e.Note)
	}
	return strings.Join(names, " ")
}

// SlotKind classifies a pattern slot for drawing.
type SlotKind int

const (
	SlotRest SlotKind = iota
	SlotTrigger
	SlotInactive // past the pattern size
)

// Slot returns how slot i of a pattern should be drawn.
func Slot(pattern uint16, size, i uint8) SlotKind {
	switch {
	case i >= size:
		return SlotInactive
	case pattern&(1<<i) != 0:
		return SlotTrigger
	default:
		return SlotRest
	}
}

// SlotRune returns the character for a slot kind.
func SlotRune(k SlotKind) rune {
	switch k {
	case SlotTrigger:
		return '█'
	case SlotRest:
		return '·'
	}
	return ' '
}

// Truncate shortens s to width runes, marking the cut with "...".
func Truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width > 3 {
		return string(r[:width-3]) + "..."
	}
	if width > 0 {
		return string(r[:width])
	}
	return ""
}
