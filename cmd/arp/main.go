package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"github.com/valerio/go-arp/arp"
	"github.com/valerio/go-arp/arp/backend"
	"github.com/valerio/go-arp/arp/backend/headless"
	"github.com/valerio/go-arp/arp/backend/terminal"
	"github.com/valerio/go-arp/arp/config"
	"github.com/valerio/go-arp/arp/controller"
	"github.com/valerio/go-arp/arp/engine"
	"github.com/valerio/go-arp/arp/input/action"
	"github.com/valerio/go-arp/arp/midiio"
	"github.com/valerio/go-arp/arp/remote"
	"github.com/valerio/go-arp/arp/timing"
	"github.com/valerio/go-arp/arp/voice"
)

func main() {
	app := cli.NewApp()
	app.Name = "arp"
	app.Description = "A MIDI arpeggiator with swing and external clock sync"
	app.Usage = "arp [options]"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "Path to a YAML preset (default: user config dir, if present)",
		},
		cli.StringFlag{
			Name:  "save",
			Usage: "Write the effective settings to a preset file and exit",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without the terminal interface, logging to stderr",
		},
		cli.IntFlag{
			Name:  "slots",
			Usage: "Number of slots to play in headless mode (0 = until interrupted)",
		},
		cli.IntFlag{
			Name:  "tempo",
			Usage: "Internal clock tempo in BPM (40-240)",
		},
		cli.IntFlag{
			Name:  "swing",
			Usage: "Swing amount (0-127)",
		},
		cli.StringFlag{
			Name:  "pattern",
			Usage: "Built-in pattern number (0-15) or a pattern like x-x-xx--",
		},
		cli.IntFlag{
			Name:  "pattern-size",
			Usage: "Number of active slots (1-16)",
		},
		cli.IntFlag{
			Name:  "octaves",
			Usage: "Arpeggio range in octaves (1-4)",
		},
		cli.StringFlag{
			Name:  "direction",
			Usage: "Arpeggio direction: up, down, updown or random",
		},
		cli.StringFlag{
			Name:  "mode",
			Usage: "arp or mono",
		},
		cli.IntSliceFlag{
			Name:  "hold",
			Usage: "Note to hold from startup, repeatable (e.g. --hold 60 --hold 64)",
		},
		cli.StringFlag{
			Name:  "midi-in",
			Usage: "MIDI input port (name fragment or index) for notes and clock",
		},
		cli.StringFlag{
			Name:  "midi-out",
			Usage: "MIDI output port (name fragment or index) for the voice",
		},
		cli.IntFlag{
			Name:  "channel",
			Usage: "MIDI output channel (1-16)",
		},
		cli.IntFlag{
			Name:  "in-channel",
			Usage: "MIDI input channel (1-16, 0 = all)",
		},
		cli.BoolFlag{
			Name:  "precise-timing",
			Usage: "Pace the engine with sleep plus busy-wait instead of a ticker (more CPU, less jitter)",
		},
		cli.BoolFlag{
			Name:  "mcp",
			Usage: "Serve MCP tools on stdin/stdout (implies headless)",
		},
		cli.BoolFlag{
			Name:  "list-ports",
			Usage: "List MIDI ports and exit",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
		},
	}
	app.Action = runArpeggiator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running arpeggiator", "error", err)
		os.Exit(1)
	}
}

func runArpeggiator(c *cli.Context) error {
	if c.Bool("debug") {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		slog.SetDefault(slog.New(handler))
	}

	if c.Bool("list-ports") {
		defer midiio.Close()
		ins, outs := midiio.ListPorts()
		printPorts("MIDI inputs", ins)
		printPorts("MIDI outputs", outs)
		return nil
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	if path := c.String("save"); path != "" {
		if err := cfg.Save(path); err != nil {
			return err
		}
		slog.Info("Preset saved", "path", path)
		return nil
	}

	return run(c, cfg)
}

func run(c *cli.Context, cfg *config.Config) error {
	defer midiio.Close()

	useMCP := c.Bool("mcp")
	var b backend.Backend
	switch {
	case useMCP:
		// stdout carries the MCP protocol.
		b = headless.New(0)
	case c.Bool("headless"):
		b = headless.New(c.Int("slots"))
	default:
		b = terminal.New()
	}

	if err := b.Init(backend.BackendConfig{
		Title:    "go-arp",
		ShowHelp: true,
		MIDIIn:   cfg.MIDI.In,
		MIDIOut:  cfg.MIDI.Out,
	}); err != nil {
		return fmt.Errorf("init backend: %w", err)
	}
	if t, ok := b.(*terminal.Backend); ok && c.Bool("debug") {
		t.HandleAction(action.DebugLogLevelIncrease)
	}

	// Everything below logs through the logger the backend installed.
	v, err := buildVoice(cfg)
	if err != nil {
		return errors.Join(err, b.Cleanup())
	}

	ctrl := controller.New(controller.WithControlRate(cfg.ControlRate))
	ctrl.Init([]controller.Voice{v})
	if err := cfg.Apply(ctrl); err != nil {
		return errors.Join(err, b.Cleanup())
	}

	var engineOpts []engine.Option
	if c.Bool("precise-timing") {
		engineOpts = append(engineOpts, engine.WithLimiter(timing.NewAdaptiveLimiter(timing.PollInterval)))
	}
	eng := engine.New(ctrl, engineOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MIDI.In != "" {
		in, err := midiio.FindInPort(cfg.MIDI.In)
		if err != nil {
			return errors.Join(err, b.Cleanup())
		}
		listener := midiio.NewListener(eng, midiio.WithChannel(cfg.MIDI.ListenChannel()))
		stopListening, err := listener.Listen(in)
		if err != nil {
			return errors.Join(err, b.Cleanup())
		}
		defer stopListening()
	}

	if useMCP {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		srv := remote.New(eng)
		go func() {
			// The client closing stdin ends the session.
			if err := srv.ServeStdio(ctx); err != nil {
				slog.Error("MCP server stopped", "error", err)
			}
			cancel()
		}()
	}

	patternID := uint8(0)
	if bits, builtin, _ := cfg.PatternBits(); builtin {
		patternID = uint8(bits)
	}
	session := arp.NewSession(eng, b, arp.SessionConfig{
		Velocity: cfg.Velocity,
		Pattern:  patternID,
	})
	err = session.Run(ctx)

	// The engine has stopped, nothing else touches the controller.
	ctrl.AllNotesOff()
	return err
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		if def, err := config.DefaultPath(); err == nil {
			if _, statErr := os.Stat(def); statErr == nil {
				path = def
			}
		}
	}

	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		slog.Info("Preset loaded", "path", path)
	}

	if c.IsSet("tempo") {
		cfg.Tempo = clampByte(c.Int("tempo"))
	}
	if c.IsSet("swing") {
		cfg.Swing = clampByte(c.Int("swing"))
	}
	if c.IsSet("pattern") {
		cfg.Pattern = c.String("pattern")
	}
	if c.IsSet("pattern-size") {
		cfg.PatternSize = clampByte(c.Int("pattern-size"))
	}
	if c.IsSet("octaves") {
		cfg.Octaves = clampByte(c.Int("octaves"))
	}
	if c.IsSet("direction") {
		cfg.Direction = c.String("direction")
	}
	if c.IsSet("mode") {
		cfg.Mode = c.String("mode")
	}
	if c.IsSet("hold") {
		cfg.Hold = cfg.Hold[:0]
		for _, n := range c.IntSlice("hold") {
			cfg.Hold = append(cfg.Hold, clampByte(n))
		}
	}
	if c.IsSet("midi-in") {
		cfg.MIDI.In = c.String("midi-in")
	}
	if c.IsSet("midi-out") {
		cfg.MIDI.Out = c.String("midi-out")
	}
	if c.IsSet("channel") {
		cfg.MIDI.OutChannel = c.Int("channel")
	}
	if c.IsSet("in-channel") {
		cfg.MIDI.InChannel = c.Int("in-channel")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildVoice sends to the MIDI output when one is configured. The voice is
// always logged, at debug level when MIDI carries it.
func buildVoice(cfg *config.Config) (controller.Voice, error) {
	if cfg.MIDI.Out == "" {
		slog.Warn("No MIDI output configured, notes are only logged")
		return voice.NewLogVoice("voice", voice.WithLevel(slog.LevelInfo)), nil
	}

	send, out, err := midiio.OpenOutput(cfg.MIDI.Out)
	if err != nil {
		return nil, err
	}
	slog.Info("Sending to MIDI output", "port", out.String(), "channel", cfg.MIDI.OutChannel)
	return voice.NewMulti(
		midiio.NewVoice(send, cfg.MIDI.SendChannel()),
		voice.NewLogVoice("voice"),
	), nil
}

func printPorts(title string, names []string) {
	fmt.Println(title + ":")
	if len(names) == 0 {
		fmt.Println("  (none)")
	}
	for i, name := range names {
		fmt.Printf("  %d: %s\n", i, name)
	}
}

func clampByte(v int) uint8 {
	return uint8(max(0, min(255, v)))
}
