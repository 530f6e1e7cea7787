// Package status renders the top bar: daemon link, addon link, and the
// Blender process snapshot.
package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/lebduska/blendmate/internal/bridge"
	"github.com/lebduska/blendmate/internal/monitor"
	"github.com/lebduska/blendmate/internal/tui/theme"
)

// Model holds the status bar state.
type Model struct {
	DaemonConnected bool
	Bridge          string
	Monitor         monitor.Snapshot
	Width           int
}

// New creates a status bar model.
func New() Model {
	return Model{Bridge: bridge.StatusDisconnected}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var daemonStr string
	if m.DaemonConnected {
		daemonStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● daemon")
	} else {
		daemonStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ connecting...")
	}

	var addonStr string
	if m.Bridge == bridge.StatusConnected {
		addonStr = lipgloss.NewStyle().Foreground(theme.ColorAddon).Render("● addon")
	} else {
		addonStr = theme.StyleDimmed.Render("○ addon")
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := daemonStr + sep + addonStr + sep + m.monitorPart()

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}

func (m Model) monitorPart() string {
	if !m.Monitor.Running || len(m.Monitor.Processes) == 0 {
		return theme.StyleDimmed.Render("blender: not running")
	}
	p := m.Monitor.Processes[0]
	return lipgloss.NewStyle().Foreground(theme.ColorAddon).Render(
		fmt.Sprintf("blender: pid %d  %.1f%% cpu  %.0f MiB", p.PID, p.CPUPercent, p.MemoryMB))
}
