package action

import "fmt"

// Action represents input actions that can be performed on the arpeggiator
type Action int

const (
	// Computer keyboard notes, one octave plus the upper C.
	NoteC Action = iota
	NoteCSharp
	NoteD
	NoteDSharp
	NoteE
	NoteF
	NoteFSharp
	NoteG
	NoteGSharp
	NoteA
	NoteASharp
	NoteB
	NoteCHigh

	// Keyboard octave
	KeyboardOctaveUp
	KeyboardOctaveDown

	// Arpeggiator settings
	TempoUp
	TempoDown
	SwingUp
	SwingDown
	PatternNext
	PatternPrev
	PatternToggleStep
	PatternSizeUp
	PatternSizeDown
	OctavesUp
	OctavesDown
	DirectionNext
	ModeToggle

	// Transport
	Reset
	Panic
	Quit

	// Debug controls
	DebugLogLevelIncrease
	DebugLogLevelDecrease

	numActions
)

// Category groups actions by how backends deliver them.
type Category int

const (
	// CategoryNote actions are tracked while the key is down and produce
	// Press, Hold and Release events.
	CategoryNote Category = iota
	// CategoryControl actions change a setting and only produce Press.
	CategoryControl
	// CategoryApp actions act on the program itself.
	CategoryApp
)

func (c Category) String() string {
	switch c {
	case CategoryNote:
		return "note"
	case CategoryControl:
		return "control"
	case CategoryApp:
		return "app"
	}
	return "unknown"
}

// Info describes an action for logs and help screens.
type Info struct {
	Description string
	Category    Category
}

var infos = [numActions]Info{
	NoteC:      {"C", CategoryNote},
	NoteCSharp: {"C#", CategoryNote},
	NoteD:      {"D", CategoryNote},
	NoteDSharp: {"D#", CategoryNote},
	NoteE:      {"E", CategoryNote},
	NoteF:      {"F", CategoryNote},
	NoteFSharp: {"F#", CategoryNote},
	NoteG:      {"G", CategoryNote},
	NoteGSharp: {"G#", CategoryNote},
	NoteA:      {"A", CategoryNote},
	NoteASharp: {"A#", CategoryNote},
	NoteB:      {"B", CategoryNote},
	NoteCHigh:  {"C+1", CategoryNote},

	KeyboardOctaveUp:   {"Keyboard octave up", CategoryControl},
	KeyboardOctaveDown: {"Keyboard octave down", CategoryControl},

	TempoUp:           {"Tempo up", CategoryControl},
	TempoDown:         {"Tempo down", CategoryControl},
	SwingUp:           {"Swing up", CategoryControl},
	SwingDown:         {"Swing down", CategoryControl},
	PatternNext:       {"Next pattern", CategoryControl},
	PatternPrev:       {"Previous pattern", CategoryControl},
	PatternToggleStep: {"Toggle playing step", CategoryControl},
	PatternSizeUp:     {"Pattern longer", CategoryControl},
	PatternSizeDown:   {"Pattern shorter", CategoryControl},
	OctavesUp:         {"More octaves", CategoryControl},
	OctavesDown:       {"Fewer octaves", CategoryControl},
	DirectionNext:     {"Next direction", CategoryControl},
	ModeToggle:        {"Toggle arp/mono", CategoryControl},

	Reset: {"Restart pattern", CategoryControl},
	Panic: {"All notes off", CategoryControl},
	Quit:  {"Quit", CategoryApp},

	DebugLogLevelIncrease: {"Show more logs", CategoryApp},
	DebugLogLevelDecrease: {"Show fewer logs", CategoryApp},
}

// GetInfo returns the description and category of an action.
func GetInfo(act Action) Info {
	if act < 0 || act >= numActions {
		return Info{Description: fmt.Sprintf("Action(%d)", int(act)), Category: CategoryApp}
	}
	return infos[act]
}

func (a Action) String() string { return GetInfo(a).Description }

// IsNote reports whether the action plays a keyboard note.
func (a Action) IsNote() bool { return a >= NoteC && a <= NoteCHigh }

// Semitone returns the offset of a note action from the keyboard's C.
func (a Action) Semitone() int { return int(a - NoteC) }
