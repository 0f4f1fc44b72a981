// Package config loads arpeggiator presets from YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/valerio/go-arp/arp/controller"
)

// MIDIConfig selects the ports and channels. Channels are 1-16 as printed on
// devices; an input channel of 0 listens on all of them.
type MIDIConfig struct {
	In         string `yaml:"in,omitempty"`
	Out        string `yaml:"out,omitempty"`
	InChannel  int    `yaml:"in_channel"`
	OutChannel int    `yaml:"out_channel"`
}

// Config is a preset: controller settings plus how to reach the outside
// world. Out of range numbers are clamped when applied, only values that
// cannot be interpreted are errors.
type Config struct {
	Tempo       uint8  `yaml:"tempo"`
	Swing       uint8  `yaml:"swing"`
	Pattern     string `yaml:"pattern"` // built-in id or an x-o-x string
	PatternSize uint8  `yaml:"pattern_size"`
	Octaves     uint8  `yaml:"octaves"`
	Direction   string `yaml:"direction"`
	Mode        string `yaml:"mode"`

	// Hold lists notes pressed at startup, handy without a keyboard.
	Hold     []uint8 `yaml:"hold,omitempty,flow"`
	Velocity uint8   `yaml:"velocity"`

	ControlRate int        `yaml:"control_rate"`
	MIDI        MIDIConfig `yaml:"midi"`
}

// Default returns the settings the controller starts with.
func Default() *Config {
	return &Config{
		Tempo:       controller.DefaultTempo,
		Pattern:     "0",
		PatternSize: controller.NumSlots,
		Octaves:     controller.DefaultOctaves,
		Direction:   controller.DirectionUp.String(),
		Mode:        controller.ModeArpeggiator.String(),
		Velocity:    100,
		ControlRate: controller.DefaultControlRate,
		MIDI: MIDIConfig{
			OutChannel: 1,
		},
	}
}

// DefaultPath returns where the preset is looked up when none is given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "go-arp", "preset.yaml"), nil
}

// Load reads a preset. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML preset.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the preset, creating the directory if needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode preset: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create preset directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write preset: %w", err)
	}
	return nil
}

// Validate reports every field that cannot be interpreted.
func (c *Config) Validate() error {
	var errs []error
	if _, _, err := c.PatternBits(); err != nil {
		errs = append(errs, fmt.Errorf("pattern: %w", err))
	}
	if _, err := controller.ParseDirection(c.Direction); err != nil {
		errs = append(errs, fmt.Errorf("direction: %w", err))
	}
	if _, err := controller.ParseMode(c.Mode); err != nil {
		errs = append(errs, fmt.Errorf("mode: %w", err))
	}
	for _, n := range c.Hold {
		if n > 127 {
			errs = append(errs, fmt.Errorf("hold: note %d is not a MIDI note", n))
		}
	}
	if c.MIDI.InChannel < 0 || c.MIDI.InChannel > 16 {
		errs = append(errs, fmt.Errorf("midi.in_channel: %d is not 0 (omni) or 1-16", c.MIDI.InChannel))
	}
	if c.MIDI.OutChannel < 1 || c.MIDI.OutChannel > 16 {
		errs = append(errs, fmt.Errorf("midi.out_channel: %d is not 1-16", c.MIDI.OutChannel))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid preset: %w", errors.Join(errs...))
	}
	return nil
}

// PatternBits resolves the pattern field. builtin is set when the pattern is
// a table id; bits then holds the id. An empty pattern is built-in 0.
func (c *Config) PatternBits() (bits uint16, builtin bool, err error) {
	if strings.TrimSpace(c.Pattern) == "" {
		return 0, true, nil
	}
	bits, id, err := controller.ResolvePattern(c.Pattern)
	if err != nil {
		return 0, false, err
	}
	if id >= 0 {
		return uint16(id), true, nil
	}
	return bits, false, nil
}

// Apply pushes the controller settings of the preset. It must run on the
// goroutine that owns c.
func (c *Config) Apply(ctrl *controller.Controller) error {
	if err := c.Validate(); err != nil {
		return err
	}
	bits, builtin, _ := c.PatternBits()
	direction, _ := controller.ParseDirection(c.Direction)
	mode, _ := controller.ParseMode(c.Mode)

	ctrl.SetTempo(c.Tempo)
	ctrl.SetSwing(c.Swing)
	if builtin {
		ctrl.SetPattern(uint8(bits))
	} else {
		ctrl.SetCustomPattern(bits)
	}
	ctrl.SetPatternSize(c.PatternSize)
	ctrl.SetOctaves(c.Octaves)
	ctrl.SetDirection(direction)
	ctrl.SetMode(mode)
	for _, n := range c.Hold {
		ctrl.NoteOn(n, max(c.Velocity, 1))
	}
	return nil
}

// ListenChannel returns the 0 based listen channel, or -1 for all channels.
func (m MIDIConfig) ListenChannel() int {
	if m.InChannel == 0 {
		return -1
	}
	return m.InChannel - 1
}

// SendChannel returns the 0 based output channel.
func (m MIDIConfig) SendChannel() uint8 {
	return uint8(m.OutChannel-1) & 0x0f
}
