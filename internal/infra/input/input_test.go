package input

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/osa030/vibebox/internal/infra/config"
)

const sampleScript = `
steps:
  - buttons: [true]
    beat: true
    repeat: 3
  - arrows: [false, true]
  - {}
`

func TestParseScript(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		steps   int
	}{
		{name: "valid", data: sampleScript, steps: 3},
		{name: "empty", data: "steps: []\n", steps: 0},
		{name: "too many buttons", data: "steps:\n  - buttons: [true, true, true, true]\n", wantErr: true},
		{name: "too many arrows", data: "steps:\n  - arrows: [true, true, true, true, true]\n", wantErr: true},
		{name: "negative repeat", data: "steps:\n  - repeat: -1\n", wantErr: true},
		{name: "malformed", data: "steps: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := ParseScript([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, s.Steps, tt.steps)
		})
	}
}

func TestScriptSource_Poll(t *testing.T) {
	script, err := ParseScript([]byte(sampleScript))
	require.NoError(t, err)
	src := NewScriptSource(script, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s, err := src.Poll(ctx)
		require.NoError(t, err)
		assert.True(t, s.Buttons[0], "tick %d", i)
		assert.Equal(t, i == 0, s.Beat, "beat fires only on the first tick of its step")
	}

	s, err := src.Poll(ctx)
	require.NoError(t, err)
	assert.False(t, s.Buttons[0])
	assert.Equal(t, [4]bool{false, true, false, false}, s.Arrows)

	s, err = src.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, [4]bool{}, s.Arrows)

	_, err = src.Poll(ctx)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.NoError(t, src.Close())
}

func TestScriptSource_Loop(t *testing.T) {
	script, err := ParseScript([]byte("steps:\n  - beat: true\n  - {}\n"))
	require.NoError(t, err)
	src := NewScriptSource(script, true)

	var beats int
	for i := 0; i < 6; i++ {
		s, err := src.Poll(context.Background())
		require.NoError(t, err)
		if s.Beat {
			beats++
		}
	}
	assert.Equal(t, 3, beats)
}

func TestScriptSource_EmptyLoopExhausts(t *testing.T) {
	src := NewScriptSource(&Script{}, true)
	_, err := src.Poll(context.Background())
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestNewScriptSourceFromSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleScript), 0o644))

	src, err := NewScriptSourceFromSettings(map[string]any{"path": path, "loop": true})
	require.NoError(t, err)
	assert.True(t, src.loop)
	assert.Len(t, src.script.Steps, 3)

	_, err = NewScriptSourceFromSettings(map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Path")

	_, err = NewScriptSourceFromSettings(map[string]any{"path": filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read script file")
}

func TestNewFromConfig(t *testing.T) {
	src, err := NewFromConfig(config.InputConfig{Type: "none"})
	require.NoError(t, err)
	assert.IsType(t, Idle{}, src)

	s, err := src.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, s)

	_, err = NewFromConfig(config.InputConfig{Type: "serial"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported input type")

	_, err = NewFromConfig(config.InputConfig{Type: "midi", Settings: map[string]any{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Port")
}

func TestDecodeSettings_MIDIDefaults(t *testing.T) {
	var cfg MIDIConfig
	require.NoError(t, decodeSettings(map[string]any{"port": "pads", "channel": 10}, &cfg))

	assert.Equal(t, "pads", cfg.Port)
	assert.Equal(t, 10, cfg.Channel)
	assert.Equal(t, []int{36, 37, 38}, cfg.ButtonNotes)
	assert.Equal(t, []int{48, 49, 50, 51}, cfg.ArrowNotes)
	assert.Equal(t, 60, cfg.BeatNote)

	err := decodeSettings(map[string]any{"port": "pads", "button_notes": []int{1, 2}}, &MIDIConfig{})
	assert.Error(t, err)
}

func TestMIDISource_Handle(t *testing.T) {
	cfg := MIDIConfig{
		ButtonNotes: []int{36, 37, 38},
		ArrowNotes:  []int{48, 49, 50, 51},
		BeatNote:    60,
	}
	src := newMIDISource(cfg)
	ctx := context.Background()

	src.handle(gomidi.NoteOn(0, 36, 100), 0)
	src.handle(gomidi.NoteOn(0, 51, 90), 0)
	src.handle(gomidi.NoteOn(0, 60, 127), 0)
	src.handle(gomidi.NoteOn(0, 60, 127), 0)
	src.handle(gomidi.ControlChange(0, 7, 100), 0)

	s, err := src.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, [3]bool{true, false, false}, s.Buttons)
	assert.Equal(t, [4]bool{false, false, false, true}, s.Arrows)
	assert.True(t, s.Beat, "pulses collapse into one beat")

	s, err = src.Poll(ctx)
	require.NoError(t, err)
	assert.True(t, s.Buttons[0], "note stays pressed until released")
	assert.False(t, s.Beat)

	src.handle(gomidi.NoteOff(0, 36), 0)
	src.handle(gomidi.NoteOn(0, 51, 0), 0)
	s, err = src.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, [3]bool{}, s.Buttons)
	assert.Equal(t, [4]bool{}, s.Arrows)

	assert.NoError(t, src.Close())
}

func TestMIDISource_ChannelFilter(t *testing.T) {
	src := newMIDISource(MIDIConfig{
		Channel:     10,
		ButtonNotes: []int{36, 37, 38},
		ArrowNotes:  []int{48, 49, 50, 51},
		BeatNote:    60,
	})

	src.handle(gomidi.NoteOn(0, 37, 100), 0)
	src.handle(gomidi.NoteOn(9, 38, 100), 0)

	s, err := src.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [3]bool{false, false, true}, s.Buttons)
}
