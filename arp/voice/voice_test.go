package voice_test

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valerio/go-arp/arp/controller"
	"github.com/valerio/go-arp/arp/voice"
)

func TestRecorder(t *testing.T) {
	r := voice.NewRecorder()

	r.Trigger(60, 100, false)
	r.Trigger(64, 90, true)
	note, on := r.Gate()
	assert.True(t, on)
	assert.Equal(t, uint8(64), note)

	r.Release()
	r.Kill()
	_, on = r.Gate()
	assert.False(t, on)

	assert.Equal(t, []voice.Event{
		{Kind: voice.KindTrigger, Note: 60, Velocity: 100},
		{Kind: voice.KindTrigger, Note: 64, Velocity: 90, Legato: true},
		{Kind: voice.KindRelease},
		{Kind: voice.KindKill},
	}, r.Events())
	assert.Equal(t, []uint8{60, 64}, r.Notes())

	r.Clear()
	assert.Empty(t, r.Events())
}

func TestEventString(t *testing.T) {
	assert.Equal(t, "trigger 60/100", voice.Event{Kind: voice.KindTrigger, Note: 60, Velocity: 100}.String())
	assert.Equal(t, "trigger 60/100 legato", voice.Event{Kind: voice.KindTrigger, Note: 60, Velocity: 100, Legato: true}.String())
	assert.Equal(t, "release", voice.Event{Kind: voice.KindRelease}.String())
	assert.Equal(t, "Kind(7)", voice.Kind(7).String())
}

func TestLogVoice(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	v := voice.NewLogVoice("lead", voice.WithLogger(logger))
	v.Trigger(67, 127, true)
	v.Release()
	v.Kill()

	out := buf.String()
	assert.Contains(t, out, "voice trigger")
	assert.Contains(t, out, "voice=lead")
	assert.Contains(t, out, "note=67")
	assert.Contains(t, out, "legato=true")
	assert.Contains(t, out, "voice release")
	assert.Contains(t, out, "voice kill")
}

func TestLogVoice_LevelFiltered(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	voice.NewLogVoice("quiet", voice.WithLogger(logger)).Trigger(60, 100, false)
	assert.Empty(t, buf.String())

	voice.NewLogVoice("loud", voice.WithLogger(logger), voice.WithLevel(slog.LevelInfo)).Trigger(60, 100, false)
	assert.Contains(t, buf.String(), "voice=loud")
}

func TestMulti(t *testing.T) {
	a, b := voice.NewRecorder(), voice.NewRecorder()
	m := voice.NewMulti(a, nil, b)
	require.Len(t, m, 2)

	m.Trigger(60, 100, false)
	m.Release()
	m.Kill()

	assert.Equal(t, a.Events(), b.Events())
	assert.Len(t, a.Events(), 3)
}

func TestMulti_DrivenByController(t *testing.T) {
	a, b := voice.NewRecorder(), voice.NewRecorder()
	c := controller.New()
	c.Init([]controller.Voice{voice.NewMulti(a, b)})

	c.NoteOn(60, 100)
	c.NoteOn(64, 100)
	for i := 0; i < 4*int(c.StepDurations()[0]); i++ {
		c.Control()
		c.Audio()
	}

	assert.Equal(t, []uint8{60, 64, 60, 64}, a.Notes())
	assert.Equal(t, a.Notes(), b.Notes())
}

var (
	_ controller.Voice = (*voice.Recorder)(nil)
	_ controller.Voice = (*voice.LogVoice)(nil)
	_ controller.Voice = voice.Multi(nil)
)
