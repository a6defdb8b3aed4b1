// Package ui provides the terminal view of the device.
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/osa030/vibebox/internal/app/binding"
	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/app/playback"
	"github.com/osa030/vibebox/internal/domain/arrow"
	"github.com/osa030/vibebox/internal/domain/button"
)

// RefreshInterval is how often the view re-reads the device snapshot.
const RefreshInterval = 50 * time.Millisecond

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5fd7"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#666"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#fff")).Bold(true)
	heldStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf00")).Bold(true)
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888"))
	primedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffaf00"))
	startedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fff87")).Bold(true)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var arrowGlyphs = [arrow.Count]string{"←", "↓", "↑", "→"}

// Device is the part of the device the view reads and drives.
type Device interface {
	Snapshot() device.Snapshot
	Enqueue(binding.Action)
}

type snapshotMsg device.Snapshot

// Model is the bubbletea model of the terminal view.
type Model struct {
	device   Device
	keys     *KeyboardSource
	snapshot device.Snapshot
	quitting bool
}

// NewModel creates a view. keys may be nil when input comes from elsewhere.
func NewModel(dev Device, keys *KeyboardSource) Model {
	return Model{
		device:   dev,
		keys:     keys,
		snapshot: dev.Snapshot(),
	}
}

func refresh(dev Device) tea.Cmd {
	return tea.Tick(RefreshInterval, func(time.Time) tea.Msg {
		return snapshotMsg(dev.Snapshot())
	})
}

func (m Model) Init() tea.Cmd {
	return refresh(m.device)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "1", "2", "3":
			if m.keys != nil {
				m.keys.ToggleButton(button.ID(msg.String()[0] - '1'))
			}

		case "h", "j", "k", "l":
			if m.keys != nil {
				m.keys.ToggleArrow(arrow.Direction(strings.Index("hjkl", msg.String())))
			}

		case " ", "space":
			if m.keys != nil {
				m.keys.Beat()
			}

		case "p":
			m.device.Enqueue(binding.ActionPrime)
		case "enter":
			m.device.Enqueue(binding.ActionStart)
		case "x":
			m.device.Enqueue(binding.ActionStop)
		case "s":
			m.device.Enqueue(binding.ActionSync)
		case "n":
			m.device.Enqueue(binding.ActionNextChart)
		case "N":
			m.device.Enqueue(binding.ActionPrevChart)
		}

	case snapshotMsg:
		m.snapshot = device.Snapshot(msg)
		return m, refresh(m.device)
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.snapshot

	header := headerStyle.Render("vibebox") + "  " + playbackLabel(s.Playback)
	if s.SyncPending {
		header += "  " + heldStyle.Render("sync")
	}

	var buttons []string
	for i, b := range s.Buttons {
		label := fmt.Sprintf("[%d]", i+1)
		switch {
		case b.HeldState:
			buttons = append(buttons, heldStyle.Render(label+" held"))
		case b.IsPressed:
			buttons = append(buttons, activeStyle.Render(label+" down"))
		default:
			buttons = append(buttons, dimStyle.Render(label+" up  "))
		}
	}

	var arrows []string
	for i, on := range s.Arrows {
		if on {
			arrows = append(arrows, activeStyle.Render(arrowGlyphs[i]))
		} else {
			arrows = append(arrows, dimStyle.Render(arrowGlyphs[i]))
		}
	}

	chartLine := dimStyle.Render("no charts")
	if s.ChartCount > 0 {
		chartLine = fmt.Sprintf("chart %d/%d  %s  %d/%d  %.2fs",
			s.ChartIndex+1, s.ChartCount, s.ChartTitle,
			s.ChartApplied, s.ChartTotal, float64(s.ChartPosition)/1000)
	}

	timeLine := dimStyle.Render(fmt.Sprintf("tick %d  now %d  beat %d", s.Tick, s.TimeNow, s.TimeBeat))

	body := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		strings.Join(buttons, "  "),
		strings.Join(arrows, " "),
		chartLine,
		timeLine,
	)

	help := dimStyle.Render("1-3:buttons  hjkl:arrows  space:beat  p:prime  enter:start  x:stop  s:sync  n/N:chart  q:quit")

	return "\n" + panelStyle.Render(body) + "\n" + help + "\n"
}

func playbackLabel(p playback.State) string {
	switch p {
	case playback.StateStarted:
		return startedStyle.Render("STARTED")
	case playback.StatePrimed:
		return primedStyle.Render("PRIMED")
	default:
		return stoppedStyle.Render("STOPPED")
	}
}
