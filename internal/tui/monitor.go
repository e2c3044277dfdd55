// SPDX-License-Identifier: MIT
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sonify/internal/synth"
)

// DefaultRefresh is how often the monitor samples engine stats.
const DefaultRefresh = 100 * time.Millisecond

const peakBarWidth = 24

// Window lengths, in milliseconds, that +/- step through.
var windowSteps = []float64{1, 2, 5, 10, 20, 50, 100, 200, 500}

var (
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D7D7D")).
			Width(17)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E05252"))
)

// Controller is the slice of synth.Engine the monitor reads and steers.
type Controller interface {
	Stats() synth.Stats
	Waveform() synth.Waveform
	SetWaveform(synth.Waveform)
	Window() float64
	SetWindow(ms float64) error
}

// MonitorOptions configures a MonitorModel.
type MonitorOptions struct {
	Refresh  time.Duration
	Title    string
	Snapshot func() (string, error) // Saves the canvas; nil disables the key
}

type monitorKeys struct {
	Waveform key.Binding
	Longer   key.Binding
	Shorter  key.Binding
	Snapshot key.Binding
	Quit     key.Binding
}

func (k monitorKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Waveform, k.Longer, k.Shorter, k.Snapshot, k.Quit}
}

func (k monitorKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func newMonitorKeys(canSnapshot bool) monitorKeys {
	k := monitorKeys{
		Waveform: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "waveform")),
		Longer:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "longer window")),
		Shorter:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "shorter window")),
		Snapshot: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "snapshot")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
	k.Snapshot.SetEnabled(canSnapshot)
	return k
}

type tickMsg time.Time

type snapshotMsg struct {
	path string
	err  error
}

// MonitorModel is a Bubble Tea model showing what the engine is playing
// and hearing, refreshed on a timer.
type MonitorModel struct {
	ctl     Controller
	opts    MonitorOptions
	keys    monitorKeys
	help    help.Model
	stats   synth.Stats
	status  string
	err     error
	started time.Time
}

// NewMonitorModel creates a monitor for ctl.
func NewMonitorModel(ctl Controller, opts MonitorOptions) MonitorModel {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Title == "" {
		opts.Title = "sonify"
	}
	return MonitorModel{
		ctl:     ctl,
		opts:    opts,
		keys:    newMonitorKeys(opts.Snapshot != nil),
		help:    help.New(),
		stats:   ctl.Stats(),
		started: time.Now(),
	}
}

func (m MonitorModel) tick() tea.Cmd {
	return tea.Tick(m.opts.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the refresh timer.
func (m MonitorModel) Init() tea.Cmd {
	return m.tick()
}

// Update handles timer ticks, snapshot results and key presses.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case tickMsg:
		m.stats = m.ctl.Stats()
		return m, m.tick()

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
		} else {
			m.err = nil
			m.status = "saved " + msg.path
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Waveform):
			next := nextWaveform(m.ctl.Waveform())
			m.ctl.SetWaveform(next)
			m.status = "waveform " + next.String()
			m.err = nil

		case key.Matches(msg, m.keys.Longer):
			m.stepWindow(1)

		case key.Matches(msg, m.keys.Shorter):
			m.stepWindow(-1)

		case key.Matches(msg, m.keys.Snapshot):
			save := m.opts.Snapshot
			m.status = "saving..."
			return m, func() tea.Msg {
				path, err := save()
				return snapshotMsg{path: path, err: err}
			}
		}
	}
	return m, nil
}

func (m *MonitorModel) stepWindow(dir int) {
	cur := m.ctl.Window()
	target := cur
	if dir > 0 {
		for _, ms := range windowSteps {
			if ms > cur {
				target = ms
				break
			}
		}
	} else {
		for i := len(windowSteps) - 1; i >= 0; i-- {
			if windowSteps[i] < cur {
				target = windowSteps[i]
				break
			}
		}
	}
	if target == cur {
		return
	}
	if err := m.ctl.SetWindow(target); err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.status = fmt.Sprintf("window %g ms", target)
}

func nextWaveform(cur synth.Waveform) synth.Waveform {
	for i, w := range synth.Waveforms {
		if cur != nil && w.String() == cur.String() {
			return synth.Waveforms[(i+1)%len(synth.Waveforms)]
		}
	}
	return synth.Waveforms[0]
}

// View renders the monitor.
func (m MonitorModel) View() string {
	s := m.stats
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.opts.Title))
	sb.WriteString("\n\n")

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(label))
		sb.WriteString(infoStyle.Render(value))
		sb.WriteString("\n")
	}
	row("Tone", fmt.Sprintf("#%d  %.1f Hz  amp %.3f", s.ToneIndex, s.Frequency, s.Amplitude))
	row("Waveform", s.Waveform)
	row("Pitch", fmt.Sprintf("%.1f Hz", s.Pitch))
	row("Peak", fmt.Sprintf("%s %.3f", peakBar(s.Peak), s.Peak))
	row("Colour", swatch(s.LastColor)+fmt.Sprintf(" #%06X", s.LastColor&0xFFFFFF))
	row("Hop", fmt.Sprintf("%d frames @ %.0f Hz", s.HopSize, s.SampleRate))
	row("Hops", fmt.Sprintf("%d (%d events dropped)", s.Hops, s.Dropped))
	row("Uptime", time.Since(m.started).Truncate(time.Second).String())

	sb.WriteString("\n")
	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render("Error: " + m.err.Error()))
	case m.status != "":
		sb.WriteString(highlightStyle.Render(m.status))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func peakBar(peak float64) string {
	n := int(min(max(peak, 0), 1) * peakBarWidth)
	return "[" + strings.Repeat("█", n) + strings.Repeat(" ", peakBarWidth-n) + "]"
}

func swatch(argb uint32) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(fmt.Sprintf("#%06X", argb&0xFFFFFF))).
		Render("    ")
}

// RunMonitor runs the monitor until the user quits or ctx is cancelled.
func RunMonitor(ctx context.Context, ctl Controller, opts MonitorOptions) error {
	p := tea.NewProgram(
		NewMonitorModel(ctl, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if err != nil && (errors.Is(err, tea.ErrProgramKilled) || ctx.Err() != nil) {
		return nil
	}
	return err
}
