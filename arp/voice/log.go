package voice

import (
	"context"
	"log/slog"
)

// LogVoice logs every command it receives. Useful to follow what the
// arpeggiator plays without any sound output.
type LogVoice struct {
	name   string
	level  slog.Level
	logger *slog.Logger
}

type LogVoiceOption func(*LogVoice)

// WithLogger sets the logger, slog.Default() otherwise.
func WithLogger(l *slog.Logger) LogVoiceOption { return func(v *LogVoice) { v.logger = l } }

// WithLevel sets the level the commands are logged at, Debug by default.
func WithLevel(level slog.Level) LogVoiceOption { return func(v *LogVoice) { v.level = level } }

// NewLogVoice creates a logging voice identified by name in the log output.
func NewLogVoice(name string, opts ...LogVoiceOption) *LogVoice {
	v := &LogVoice{
		name:   name,
		level:  slog.LevelDebug,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *LogVoice) Trigger(note, velocity uint8, legato bool) {
	v.logger.Log(context.Background(), v.level, "voice trigger",
		"voice", v.name,
		"note", note,
		"velocity", velocity,
		"legato", legato)
}

func (v *LogVoice) Release() {
	v.logger.Log(context.Background(), v.level, "voice release", "voice", v.name)
}

func (v *LogVoice) Kill() {
	v.logger.Log(context.Background(), v.level, "voice kill", "voice", v.name)
}
