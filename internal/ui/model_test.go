package ui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/vibebox/internal/app/binding"
	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/app/playback"
	"github.com/osa030/vibebox/internal/domain/arrow"
	"github.com/osa030/vibebox/internal/domain/button"
)

type fakeDevice struct {
	snapshot device.Snapshot
	queued   []binding.Action
}

func (f *fakeDevice) Snapshot() device.Snapshot { return f.snapshot }
func (f *fakeDevice) Enqueue(a binding.Action)  { f.queued = append(f.queued, a) }

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(Model)
	}
	return m
}

func TestModel_KeysLatchInputs(t *testing.T) {
	dev := &fakeDevice{}
	keys := NewKeyboardSource()
	m := NewModel(dev, keys)

	press(m, "1", "3", "h", "l", "l", " ")

	s, err := keys.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [button.Count]bool{true, false, true}, s.Buttons)
	assert.Equal(t, [arrow.Count]bool{true, false, false, false}, s.Arrows)
	assert.True(t, s.Beat)

	s, err = keys.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, s.Beat, "beat is consumed by one poll")
	assert.True(t, s.Buttons[0], "buttons stay latched")
}

func TestModel_CommandKeys(t *testing.T) {
	dev := &fakeDevice{}
	m := NewModel(dev, nil)

	press(m, "p", "enter", "x", "s", "n", "N", "1")

	assert.Equal(t, []binding.Action{
		binding.ActionPrime,
		binding.ActionStart,
		binding.ActionStop,
		binding.ActionSync,
		binding.ActionNextChart,
		binding.ActionPrevChart,
	}, dev.queued)
}

func TestModel_SnapshotRefresh(t *testing.T) {
	dev := &fakeDevice{}
	m := NewModel(dev, nil)
	assert.Contains(t, m.View(), "STOPPED")

	next, cmd := m.Update(snapshotMsg(device.Snapshot{
		Playback:   playback.StateStarted,
		ChartTitle: "Butterfly",
		ChartCount: 2,
		ChartTotal: 12,
	}))
	assert.NotNil(t, cmd, "refresh is rescheduled")

	view := next.(Model).View()
	assert.Contains(t, view, "STARTED")
	assert.Contains(t, view, "chart 1/2")
	assert.Contains(t, view, "Butterfly")
}

func TestModel_ButtonStates(t *testing.T) {
	tests := []struct {
		name  string
		state button.State
		want  string
	}{
		{name: "released", state: button.State{}, want: "[1] up"},
		{name: "press edge", state: button.State{IsPressed: true, IsPressedNow: true}, want: "[1] down"},
		{name: "pressed below hold threshold", state: button.State{IsPressed: true}, want: "[1] down"},
		{name: "held", state: button.State{IsPressed: true, HeldState: true}, want: "[1] held"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s device.Snapshot
			s.Buttons[0] = tt.state
			next, _ := NewModel(&fakeDevice{}, nil).Update(snapshotMsg(s))
			assert.Contains(t, next.(Model).View(), tt.want)
		})
	}
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(&fakeDevice{}, nil)
	next, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, next.(Model).View())
}
