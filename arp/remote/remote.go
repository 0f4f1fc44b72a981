// Package remote exposes the arpeggiator as MCP tools, so an assistant can
// inspect and play it over stdio.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/valerio/go-arp/arp/controller"
	"github.com/valerio/go-arp/arp/engine"
	"github.com/valerio/go-arp/arp/notestack"
)

const (
	serverName    = "go-arp"
	serverVersion = "1.0.0"
)

// Engine is the part of engine.Engine the tools use. Every change goes
// through Submit so the engine goroutine stays the only writer.
type Engine interface {
	Submit(cmd engine.Command) bool
	Snapshot() engine.State
}

// Status is the JSON document returned by arp_status.
type Status struct {
	Step           int      `json:"step"`
	Pattern        string   `json:"pattern"`
	PatternSize    int      `json:"pattern_size"`
	Tempo          int      `json:"tempo"`
	Swing          int      `json:"swing"`
	Octaves        int      `json:"octaves"`
	Direction      string   `json:"direction"`
	Mode           string   `json:"mode"`
	Clock          string   `json:"clock"`
	EstimatedTempo int      `json:"estimated_tempo,omitempty"`
	Held           []string `json:"held"`
	Playing        string   `json:"playing,omitempty"`
	Slots          uint64   `json:"slots"`
}

// NewStatus converts a snapshot for display.
func NewStatus(s engine.State) Status {
	st := Status{
		Step:           int(s.Step) + 1,
		Pattern:        controller.FormatPattern(s.Pattern, s.PatternSize),
		PatternSize:    int(s.PatternSize),
		Tempo:          int(s.Tempo),
		Swing:          int(s.Swing),
		Octaves:        int(s.Octaves),
		Direction:      s.Direction.String(),
		Mode:           s.Mode.String(),
		Clock:          "internal",
		EstimatedTempo: int(s.EstimatedTempo),
		Held:           make([]string, len(s.Held)),
		Slots:          s.Slots,
	}
	if s.Source == controller.SourceExternal {
		st.Clock = "external"
	}
	for i, e := range s.Held {
		st.Held[i] = notestack.Name(e.Note)
	}
	if s.Sounding {
		st.Playing = notestack.Name(s.SoundingNote)
	}
	return st
}

// Server registers the arpeggiator tools on an MCP server.
type Server struct {
	engine Engine
	mcp    *server.MCPServer
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for tool calls.
func WithLogger(l *slog.Logger) Option { return func(s *Server) { s.logger = l } }

// New creates the MCP server and registers every tool.
func New(e Engine, opts ...Option) *Server {
	s := &Server{
		engine: e,
		logger: slog.Default(),
		mcp: server.NewMCPServer(
			serverName,
			serverVersion,
			server.WithToolCapabilities(false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying server, to serve it on another transport.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio answers requests on stdin/stdout until ctx is done or stdin is
// closed.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve answers requests read from in, writing responses to out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info("Starting MCP server", "name", serverName, "version", serverVersion)
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve mcp: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("arp_status",
		mcp.WithDescription("Returns the arpeggiator state as JSON: pattern, current step, tempo, swing, clock source, held and playing notes."),
	), s.handleStatus)

	s.mcp.AddTool(mcp.NewTool("arp_set-tempo",
		mcp.WithDescription("Sets the internal clock tempo. Ignored while an external MIDI clock drives the pattern."),
		mcp.WithNumber("bpm", mcp.Required(), mcp.Description("Tempo in BPM (40-240).")),
	), s.handleSetTempo)

	s.mcp.AddTool(mcp.NewTool("arp_set-swing",
		mcp.WithDescription("Sets the swing amount. Even steps get longer and odd steps shorter by the same amount."),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Swing amount, 0 is straight and 127 the heaviest shuffle.")),
	), s.handleSetSwing)

	s.mcp.AddTool(mcp.NewTool("arp_set-pattern",
		mcp.WithDescription("Selects the rhythm: a built-in pattern number or a custom pattern where 'x' plays and '-' rests."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Built-in pattern number (0-15) or up to 16 characters like \"x-x-xx--\".")),
		mcp.WithNumber("size", mcp.Description("Optional number of active steps (1-16).")),
	), s.handleSetPattern)

	s.mcp.AddTool(mcp.NewTool("arp_set-octaves",
		mcp.WithDescription("Sets how many octaves the arpeggio spans."),
		mcp.WithNumber("octaves", mcp.Required(), mcp.Description("Octave range (1-4).")),
	), s.handleSetOctaves)

	s.mcp.AddTool(mcp.NewTool("arp_set-direction",
		mcp.WithDescription("Sets the order in which held notes are played."),
		mcp.WithString("direction", mcp.Required(), mcp.Enum("up", "down", "updown", "random")),
	), s.handleSetDirection)

	s.mcp.AddTool(mcp.NewTool("arp_set-mode",
		mcp.WithDescription("Switches between the arpeggiator and plain monophonic playing."),
		mcp.WithString("mode", mcp.Required(), mcp.Enum("arp", "mono")),
	), s.handleSetMode)

	s.mcp.AddTool(mcp.NewTool("arp_note",
		mcp.WithDescription("Presses or releases a key, as if played on a MIDI keyboard."),
		mcp.WithNumber("note", mcp.Required(), mcp.Description("MIDI note number (0-127), 60 is middle C.")),
		mcp.WithString("action", mcp.Required(), mcp.Enum("on", "off")),
		mcp.WithNumber("velocity", mcp.Description("Velocity for note on (1-127), defaults to 100.")),
	), s.handleNote)

	s.mcp.AddTool(mcp.NewTool("arp_panic",
		mcp.WithDescription("Releases every held key and silences the voice."),
	), s.handlePanic)

	s.mcp.AddTool(mcp.NewTool("arp_reset",
		mcp.WithDescription("Restarts the pattern and the arpeggio from the first step."),
	), s.handleReset)
}

func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := json.MarshalIndent(NewStatus(s.engine.Snapshot()), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status: %w", err)
	}
	return mcp.NewToolResultText(string(status)), nil
}

func (s *Server) handleSetTempo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	bpm, err := request.RequireInt("bpm")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.submit(engine.SetTempo(toByte(bpm)))
}

func (s *Server) handleSetSwing(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	amount, err := request.RequireInt("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.submit(engine.SetSwing(toByte(amount)))
}

func (s *Server) handleSetPattern(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := request.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bits, id, err := controller.ResolvePattern(pattern)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if size := request.GetInt("size", 0); size > 0 {
		if res, err := s.submit(engine.SetPatternSize(toByte(size))); res.IsError {
			return res, err
		}
	}
	if id >= 0 {
		return s.submit(engine.SetPattern(uint8(id)))
	}
	return s.submit(engine.SetCustomPattern(bits))
}

func (s *Server) handleSetOctaves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	octaves, err := request.RequireInt("octaves")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.submit(engine.SetOctaves(toByte(octaves)))
}

func (s *Server) handleSetDirection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := controller.ParseDirection(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.submit(engine.SetDirection(d))
}

func (s *Server) handleSetMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := controller.ParseMode(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.submit(engine.SetMode(m))
}

func (s *Server) handleNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := request.RequireInt("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if note < 0 || note > 127 {
		return mcp.NewToolResultError(fmt.Sprintf("note %d is not a MIDI note (0-127)", note)), nil
	}
	act, err := request.RequireString("action")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	switch act {
	case "on":
		velocity := request.GetInt("velocity", 100)
		return s.submit(engine.NoteOn(uint8(note), uint8(max(1, min(127, velocity)))))
	case "off":
		return s.submit(engine.NoteOff(uint8(note)))
	}
	return mcp.NewToolResultError(fmt.Sprintf("unknown note action %q, use \"on\" or \"off\"", act)), nil
}

func (s *Server) handlePanic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.submit(engine.AllNotesOff())
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.submit(engine.Reset())
}

func (s *Server) submit(cmd engine.Command) (*mcp.CallToolResult, error) {
	s.logger.Debug("[mcp] Submitting command", "command", cmd.String())
	if !s.engine.Submit(cmd) {
		return mcp.NewToolResultError("command queue is full, try again"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("ok: %s", cmd)), nil
}

// toByte clamps a tool argument into the controller's byte range, the
// controller clamps it further.
func toByte(v int) uint8 {
	return uint8(max(0, min(255, v)))
}
