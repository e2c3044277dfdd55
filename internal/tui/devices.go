// SPDX-License-Identifier: MIT

// Package tui holds the terminal interfaces: an interactive device browser
// and the live engine monitor.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"sonify/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// chromeHeight is the title, help line and spacing around the viewport.
const chromeHeight = 4

// hostDevices is replaced in tests.
var hostDevices = audio.HostDevices

type browserKeys struct {
	Up      key.Binding
	Down    key.Binding
	Details key.Binding
	Back    key.Binding
	Quit    key.Binding
}

func (k browserKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Details, k.Back, k.Quit}
}

func (k browserKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func newBrowserKeys() browserKeys {
	return browserKeys{
		Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Details: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back"), key.WithDisabled()),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type devicesMsg []audio.Device

type errMsg struct {
	err error
}

// DeviceListModel browses the PortAudio devices: a list, and a details
// pane for the selected entry.
type DeviceListModel struct {
	devices  []audio.Device
	selected int
	details  bool
	viewport viewport.Model
	ready    bool
	err      error
	keys     browserKeys
	help     help.Model
}

// NewDeviceListModel creates an empty browser; devices load in Init.
func NewDeviceListModel() DeviceListModel {
	return DeviceListModel{keys: newBrowserKeys(), help: help.New()}
}

// Init loads the device list.
func (m DeviceListModel) Init() tea.Cmd {
	return func() tea.Msg {
		devices, err := hostDevices()
		if err != nil {
			return errMsg{err}
		}
		return devicesMsg(devices)
	}
}

// Update handles sizing, loading and navigation.
func (m DeviceListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-chromeHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - chromeHeight
		}
		m.help.Width = msg.Width

	case devicesMsg:
		m.devices = msg

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.selected = max(m.selected-1, 0)
		case key.Matches(msg, m.keys.Down):
			m.selected = min(m.selected+1, max(len(m.devices)-1, 0))
		case key.Matches(msg, m.keys.Details):
			m.details = len(m.devices) > 0
		case key.Matches(msg, m.keys.Back):
			m.details = false
		}
		// Arrow keys move the selection, not the page.
		m.keys.Up.SetEnabled(!m.details)
		m.keys.Down.SetEnabled(!m.details)
		m.keys.Details.SetEnabled(!m.details)
		m.keys.Back.SetEnabled(m.details)
	}

	if m.ready {
		m.viewport.SetContent(m.content())
	}
	return m, nil
}

// View renders the UI.
func (m DeviceListModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}
	if !m.ready {
		return "Initializing..."
	}

	title := "Audio Devices"
	if m.details {
		title = "Device Details"
	}
	return titleStyle.Render(title) + "\n\n" + m.viewport.View() + "\n" + m.help.View(m.keys)
}

func (m DeviceListModel) content() string {
	if len(m.devices) == 0 {
		return "No audio devices found."
	}
	if m.details {
		return describeDevice(m.devices[m.selected])
	}

	nameWidth := 0
	for _, d := range m.devices {
		nameWidth = max(nameWidth, lipgloss.Width(d.Name))
	}

	var sb strings.Builder
	for i, d := range m.devices {
		line := fmt.Sprintf("%3d  %-*s  %-12s  in %2d  out %2d  %6.0f Hz",
			d.ID, nameWidth, d.Name, d.Type(), d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
		if i == m.selected {
			line = highlightStyle.Render("▶ " + line)
		} else {
			line = infoStyle.Render("  " + line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

func describeDevice(d audio.Device) string {
	rows := [][2]string{
		{"ID", fmt.Sprint(d.ID)},
		{"Host API", d.HostAPI},
		{"Type", d.Type()},
		{"Input channels", fmt.Sprint(d.MaxInputChannels)},
		{"Output channels", fmt.Sprint(d.MaxOutputChannels)},
		{"Sample rate", fmt.Sprintf("%.0f Hz", d.DefaultSampleRate)},
		{"Input latency", fmt.Sprintf("%s - %s", d.LowInputLatency, d.HighInputLatency)},
	}

	var sb strings.Builder
	sb.WriteString(highlightStyle.Render(d.Name))
	sb.WriteString("\n\n")
	for _, r := range rows {
		sb.WriteString(labelStyle.Render(r[0]))
		sb.WriteString(infoStyle.Render(r[1]))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	if d.Duplex() {
		fmt.Fprintf(&sb, "Usable alone: --device %d\n", d.ID)
	} else {
		sb.WriteString("Pair with another device via --input-device/--output-device\n")
	}
	return sb.String()
}

// RunDeviceList launches the interactive device browser. PortAudio must be
// initialized.
func RunDeviceList() error {
	_, err := tea.NewProgram(NewDeviceListModel(), tea.WithAltScreen()).Run()
	return err
}
