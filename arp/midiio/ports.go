package midiio

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ListPorts returns the names of the available input and output ports.
func ListPorts() (ins, outs []string) {
	for _, in := range midi.GetInPorts() {
		ins = append(ins, in.String())
	}
	for _, out := range midi.GetOutPorts() {
		outs = append(outs, out.String())
	}
	return ins, outs
}

// FindInPort returns the first input whose name contains fragment, case
// insensitive. A plain number selects the port by index.
func FindInPort(fragment string) (drivers.In, error) {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return nil, fmt.Errorf("no MIDI inputs available")
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	i, err := matchPort(names, fragment)
	if err != nil {
		return nil, fmt.Errorf("MIDI input: %w", err)
	}
	return ins[i], nil
}

// FindOutPort is FindInPort for outputs.
func FindOutPort(fragment string) (drivers.Out, error) {
	outs := midi.GetOutPorts()
	if len(outs) == 0 {
		return nil, fmt.Errorf("no MIDI outputs available")
	}
	names := make([]string, len(outs))
	for i, out := range outs {
		names[i] = out.String()
	}
	i, err := matchPort(names, fragment)
	if err != nil {
		return nil, fmt.Errorf("MIDI output: %w", err)
	}
	return outs[i], nil
}

// OpenOutput finds an output port and returns a send func for it.
func OpenOutput(fragment string) (SendFunc, drivers.Out, error) {
	out, err := FindOutPort(fragment)
	if err != nil {
		return nil, nil, err
	}
	send, err := midi.SendTo(out)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", out.String(), err)
	}
	return send, out, nil
}

// Close shuts the MIDI driver down.
func Close() {
	midi.CloseDriver()
}

func matchPort(names []string, fragment string) (int, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(fragment)); err == nil {
		if n < 0 || n >= len(names) {
			return -1, fmt.Errorf("port index %d out of range (%d ports)", n, len(names))
		}
		return n, nil
	}

	lower := strings.ToLower(fragment)
	for i, name := range names {
		if strings.Contains(strings.ToLower(name), lower) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no port contains %q", fragment)
}
