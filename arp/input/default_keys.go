package input

import "github.com/valerio/go-arp/arp/input/action"

// DefaultKeyMap provides default key mappings that work across backends.
// The two bottom letter rows form a piano keyboard, as in most trackers.
var DefaultKeyMap = map[string]action.Action{
	// Notes
	"a": action.NoteC,
	"w": action.NoteCSharp,
	"s": action.NoteD,
	"e": action.NoteDSharp,
	"d": action.NoteE,
	"f": action.NoteF,
	"t": action.NoteFSharp,
	"g": action.NoteG,
	"y": action.NoteGSharp,
	"h": action.NoteA,
	"u": action.NoteASharp,
	"j": action.NoteB,
	"k": action.NoteCHigh,

	"z": action.KeyboardOctaveDown,
	"x": action.KeyboardOctaveUp,

	// Arpeggiator controls
	"Up":    action.TempoUp,
	"Down":  action.TempoDown,
	"Right": action.SwingUp,
	"Left":  action.SwingDown,
	"]":     action.PatternNext,
	"[":     action.PatternPrev,
	"/":     action.PatternToggleStep,
	".":     action.PatternSizeUp,
	",":     action.PatternSizeDown,
	"o":     action.OctavesUp,
	"i":     action.OctavesDown,
	"p":     action.DirectionNext,
	"m":     action.ModeToggle,

	"Enter":  action.Reset,
	"Space":  action.Panic,
	"Escape": action.Quit,
	"q":      action.Quit,

	// Debug controls
	"+": action.DebugLogLevelIncrease,
	"=": action.DebugLogLevelIncrease, // Alternative without shift
	"-": action.DebugLogLevelDecrease,
	"_": action.DebugLogLevelDecrease, // Alternative with shift
}

// GetDefaultMapping returns the default action for a key, if one exists
func GetDefaultMapping(key string) (action.Action, bool) {
	act, ok := DefaultKeyMap[key]
	return act, ok
}
