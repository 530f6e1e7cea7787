// Package files renders the .blend file inspector pane.
package files

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lebduska/blendmate/internal/fileinfo"
	"github.com/lebduska/blendmate/internal/tui/theme"
)

// SubmitMsg asks the app to stat the given path.
type SubmitMsg struct{ Path string }

// InfoMsg carries the stat result back into the view.
type InfoMsg struct {
	Info *fileinfo.Info
	Err  error
}

// Model holds the file inspector state.
type Model struct {
	Input  textinput.Model
	Info   *fileinfo.Info
	Err    error
	Width  int
	Height int
}

// New creates the pane with the path input focused.
func New() Model {
	ti := textinput.New()
	ti.Placeholder = "/path/to/scene.blend"
	ti.Prompt = "path: "
	ti.CharLimit = 1024
	ti.Focus()
	return Model{Input: ti}
}

// Update handles path editing and arriving results.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case InfoMsg:
		m.Info = msg.Info
		m.Err = msg.Err
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "enter" {
			path := m.Input.Value()
			if path == "" {
				return m, nil
			}
			return m, func() tea.Msg { return SubmitMsg{Path: path} }
		}
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// View renders the input line and the info card.
func (m Model) View() string {
	sections := []string{m.Input.View()}

	switch {
	case m.Err != nil:
		sections = append(sections, "",
			lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(m.Err.Error()))
	case m.Info != nil:
		sections = append(sections, "", m.renderCard())
	default:
		sections = append(sections, "",
			theme.StyleDimmed.Render("Enter a path to inspect a file."))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderCard() string {
	info := m.Info

	label := theme.StyleDimmed
	rows := []string{
		label.Render("name     ") + theme.StyleHeader.Render(info.Name),
		label.Render("path     ") + info.Path,
	}
	if info.IsDir {
		rows = append(rows, label.Render("type     ")+"directory")
	} else {
		rows = append(rows,
			label.Render("size     ")+fmt.Sprintf("%s (%d bytes)", info.SizeHuman, info.SizeBytes),
			label.Render("ext      ")+info.Ext,
		)
	}
	rows = append(rows, label.Render("modified ")+info.ModTime.Format("2006-01-02 15:04:05"))

	card := lipgloss.JoinVertical(lipgloss.Left, rows...)
	width := m.Width - 4
	if width < 30 {
		width = 30
	}
	return theme.StyleBorder.Width(width).Padding(0, 1).Render(card)
}
