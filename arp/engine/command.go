package engine

import (
	"fmt"

	"github.com/valerio/go-arp/arp/controller"
)

// CommandKind identifies a controller mutation.
type CommandKind uint8

const (
	CmdNoteOn CommandKind = iota
	CmdNoteOff
	CmdAllNotesOff
	CmdAllSoundOff
	CmdReset
	CmdSetTempo
	CmdSetSwing
	CmdSetPattern
	CmdSetCustomPattern
	CmdSetPatternSize
	CmdSetOctaves
	CmdSetDirection
	CmdSetMode
)

var commandNames = map[CommandKind]string{
	CmdNoteOn:           "note-on",
	CmdNoteOff:          "note-off",
	CmdAllNotesOff:      "all-notes-off",
	CmdAllSoundOff:      "all-sound-off",
	CmdReset:            "reset",
	CmdSetTempo:         "set-tempo",
	CmdSetSwing:         "set-swing",
	CmdSetPattern:       "set-pattern",
	CmdSetCustomPattern: "set-custom-pattern",
	CmdSetPatternSize:   "set-pattern-size",
	CmdSetOctaves:       "set-octaves",
	CmdSetDirection:     "set-direction",
	CmdSetMode:          "set-mode",
}

func (k CommandKind) String() string {
	if name, ok := commandNames[k]; ok {
		return name
	}
	return fmt.Sprintf("CommandKind(%d)", uint8(k))
}

// Command is a queued change to the controller. Commands are applied on the
// goroutine running the engine, between two control ticks.
type Command struct {
	Kind     CommandKind
	Note     uint8
	Velocity uint8
	Value    uint8
	Bits     uint16
}

func NoteOn(note, velocity uint8) Command {
	return Command{Kind: CmdNoteOn, Note: note, Velocity: velocity}
}

func NoteOff(note uint8) Command { return Command{Kind: CmdNoteOff, Note: note} }
func AllNotesOff() Command { return Command{Kind: CmdAllNotesOff} }
func AllSoundOff() Command { return Command{Kind: CmdAllSoundOff} }
func Reset() Command { return Command{Kind: CmdReset} }
func SetTempo(bpm uint8) Command { return Command{Kind: CmdSetTempo, Value: bpm} }
func SetSwing(amount uint8) Command { return Command{Kind: CmdSetSwing, Value: amount} }
func SetPattern(id uint8) Command { return Command{Kind: CmdSetPattern, Value: id} }
func SetCustomPattern(bits uint16) Command { return Command{Kind: CmdSetCustomPattern, Bits: bits} }
func SetPatternSize(n uint8) Command { return Command{Kind: CmdSetPatternSize, Value: n} }
func SetOctaves(n uint8) Command { return Command{Kind: CmdSetOctaves, Value: n} }
func SetDirection(d controller.Direction) Command { return Command{Kind: CmdSetDirection, Value: uint8(d)} }
func SetMode(m controller.Mode) Command { return Command{Kind: CmdSetMode, Value: uint8(m)} }

// Apply runs the command against c.
func (cmd Command) Apply(c *controller.Controller) {
	switch cmd.Kind {
	case CmdNoteOn:
		c.NoteOn(cmd.Note, cmd.Velocity)
	case CmdNoteOff:
		c.NoteOff(cmd.Note)
	case CmdAllNotesOff:
		c.AllNotesOff()
	case CmdAllSoundOff:
		c.AllSoundOff()
	case CmdReset:
		c.Reset()
	case CmdSetTempo:
		c.SetTempo(cmd.Value)
	case CmdSetSwing:
		c.SetSwing(cmd.Value)
	case CmdSetPattern:
		c.SetPattern(cmd.Value)
	case CmdSetCustomPattern:
		c.SetCustomPattern(cmd.Bits)
	case CmdSetPatternSize:
		c.SetPatternSize(cmd.Value)
	case CmdSetOctaves:
		c.SetOctaves(cmd.Value)
	case CmdSetDirection:
		c.SetDirection(controller.Direction(cmd.Value))
	case CmdSetMode:
		c.SetMode(controller.Mode(cmd.Value))
	}
}

func (cmd Command) String() string {
	switch cmd.Kind {
	case CmdNoteOn:
		return fmt.Sprintf("%s %d/%d", cmd.Kind, cmd.Note, cmd.Velocity)
	case CmdNoteOff:
		return fmt.Sprintf("%s %d", cmd.Kind, cmd.Note)
	case CmdAllNotesOff, CmdAllSoundOff, CmdReset:
		return cmd.Kind.String()
	case CmdSetCustomPattern:
		return fmt.Sprintf("%s %s", cmd.Kind, controller.FormatPattern(cmd.Bits, controller.NumSlots))
	case CmdSetDirection:
		return fmt.Sprintf("%s %s", cmd.Kind, controller.Direction(cmd.Value))
	case CmdSetMode:
		return fmt.Sprintf("%s %s", cmd.Kind, controller.Mode(cmd.Value))
	}
	return fmt.Sprintf("%s %d", cmd.Kind, cmd.Value)
}
