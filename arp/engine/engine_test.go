package engine_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-arp/arp/controller"
	"github.com/valerio/go-arp/arp/engine"
	"github.com/valerio/go-arp/arp/notestack"
	"github.com/valerio/go-arp/arp/timing"
	"github.com/valerio/go-arp/arp/voice"
)

func newEngine(t *testing.T, opts ...engine.Option) (*engine.Engine, *voice.Recorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := voice.NewRecorder()
	c := controller.New(controller.WithLogger(logger))
	c.Init([]controller.Voice{rec})
	opts = append([]engine.Option{engine.WithLogger(logger)}, opts...)
	return engine.New(c, opts...), rec
}

// slotTicks is the slot length at the default tempo and control rate.
const slotTicks = controller.DefaultControlRate * 15 / controller.DefaultTempo

func TestRunTicks_AppliesCommandsInOrder(t *testing.T) {
	e, rec := newEngine(t)

	require.True(t, e.Submit(engine.NoteOn(67, 100)))
	require.True(t, e.Submit(engine.NoteOn(60, 100)))
	require.True(t, e.Submit(engine.NoteOn(64, 100)))
	require.True(t, e.Submit(engine.NoteOff(67)))

	e.RunTicks(4 * slotTicks)

	assert.Equal(t, []uint8{60, 64, 60, 64}, rec.Notes())
	s := e.Snapshot()
	assert.Equal(t, []notestack.Entry{{Note: 60, Velocity: 100}, {Note: 64, Velocity: 100}}, s.Held)
	assert.Equal(t, uint64(4*slotTicks), s.Ticks)
	assert.Equal(t, uint64(4), s.Slots)
}

func TestRunTicks_SettingCommands(t *testing.T) {
	e, _ := newEngine(t)

	e.Submit(engine.SetTempo(90))
	e.Submit(engine.SetSwing(30))
	e.Submit(engine.SetPattern(3))
	e.Submit(engine.SetPatternSize(8))
	e.Submit(engine.SetOctaves(2))
	e.Submit(engine.SetDirection(controller.DirectionDown))
	e.Submit(engine.SetMode(controller.ModeMonophonic))
	e.RunTicks(0)

	s := e.Snapshot()
	assert.Equal(t, uint8(90), s.Tempo)
	assert.Equal(t, uint8(30), s.Swing)
	assert.Equal(t, controller.BuiltinPattern(3), s.Pattern)
	assert.Equal(t, uint8(8), s.PatternSize)
	assert.Equal(t, uint8(2), s.Octaves)
	assert.Equal(t, controller.DirectionDown, s.Direction)
	assert.Equal(t, controller.ModeMonophonic, s.Mode)

	e.Submit(engine.SetCustomPattern(0x00F0))
	e.RunTicks(0)
	assert.Equal(t, uint16(0x00F0), e.Snapshot().Pattern)
}

func TestRunTicks_SlotObserver(t *testing.T) {
	var steps []uint8
	var triggers []bool
	e, _ := newEngine(t, engine.WithObserver(engine.SlotObserverFunc(func(s engine.State) {
		steps = append(steps, s.Step)
		triggers = append(triggers, s.Trigger)
	})))

	e.Submit(engine.SetCustomPattern(0b0101))
	e.Submit(engine.SetPatternSize(4))
	e.Submit(engine.Reset())
	e.RunTicks(6 * slotTicks)

	assert.Equal(t, []uint8{0, 1, 2, 3, 0, 1}, steps)
	assert.Equal(t, []bool{true, false, true, false, true, false}, triggers)
}

func TestRunTicks_PanicCommands(t *testing.T) {
	e, rec := newEngine(t)
	e.Submit(engine.NoteOn(60, 100))
	e.RunTicks(1)
	require.Equal(t, []uint8{60}, rec.Notes())

	e.Submit(engine.AllSoundOff())
	e.RunTicks(0)
	events := rec.Events()
	assert.Equal(t, voice.KindKill, events[len(events)-1].Kind)
	assert.Len(t, e.Snapshot().Held, 1)

	e.Submit(engine.AllNotesOff())
	e.RunTicks(0)
	assert.Empty(t, e.Snapshot().Held)
	assert.False(t, e.Snapshot().Sounding)
}

func TestSubmit_DropsWhenFull(t *testing.T) {
	e, _ := newEngine(t, engine.WithQueueSize(2))

	assert.True(t, e.Submit(engine.NoteOn(60, 100)))
	assert.True(t, e.Submit(engine.NoteOn(62, 100)))
	assert.False(t, e.Submit(engine.NoteOn(64, 100)))

	e.RunTicks(0)
	assert.Len(t, e.Snapshot().Held, 2)
	assert.True(t, e.Submit(engine.NoteOn(64, 100)))
}

func TestSnapshot_IsACopy(t *testing.T) {
	e, _ := newEngine(t)
	e.Submit(engine.NoteOn(60, 100))
	e.RunTicks(0)

	s := e.Snapshot()
	s.Held[0].Note = 1
	assert.Equal(t, uint8(60), e.Snapshot().Held[0].Note)
}

func TestExternalSync(t *testing.T) {
	e, rec := newEngine(t)
	e.Submit(engine.NoteOn(60, 100))

	// Half a slot of internal time, then an external pulse takes over.
	e.RunTicks(slotTicks / 2)
	e.ExternalSync()
	e.RunTicks(1)

	s := e.Snapshot()
	assert.Equal(t, controller.SourceExternal, s.Source)
	assert.Equal(t, uint64(2), s.Slots)
	assert.Equal(t, []uint8{60, 60}, rec.Notes())
}

func TestRun_StopsOnCancel(t *testing.T) {
	e, rec := newEngine(t, engine.WithLimiter(timing.NewTickerLimiter(timing.PollInterval)))
	e.Submit(engine.SetTempo(controller.MaxTempo))
	e.Submit(engine.NoteOn(60, 100))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}

	s := e.Snapshot()
	assert.Greater(t, s.Ticks, uint64(0))
	assert.GreaterOrEqual(t, s.Slots, uint64(1))
	assert.NotEmpty(t, rec.Notes())
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "note-on 60/100", engine.NoteOn(60, 100).String())
	assert.Equal(t, "note-off 60", engine.NoteOff(60).String())
	assert.Equal(t, "reset", engine.Reset().String())
	assert.Equal(t, "set-tempo 140", engine.SetTempo(140).String())
	assert.Equal(t, "set-direction updown", engine.SetDirection(controller.DirectionUpDown).String())
	assert.Equal(t, "set-mode mono", engine.SetMode(controller.ModeMonophonic).String())
	assert.Equal(t, "set-custom-pattern x-x-------------", engine.SetCustomPattern(0b101).String())
	assert.Equal(t, "CommandKind(99)", engine.CommandKind(99).String())
}
