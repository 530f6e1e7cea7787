// Package assist renders the helper-CLI pane: a prompt box, a spinner
// while the helper runs, and the markdown-rendered answer.
package assist

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/lebduska/blendmate/internal/tui/theme"
)

// SubmitMsg asks the app to run the helper with the given prompt.
type SubmitMsg struct{ Prompt string }

// ResultMsg carries the helper outcome back into the view.
type ResultMsg struct {
	OK         bool
	Code       int
	Output     string // helper stdout, treated as markdown
	Stderr     string
	DurationMS int64
	Err        error // daemon/transport failure, nil on an ordinary result
}

// Model holds the assist pane state.
type Model struct {
	Input  textarea.Model
	Busy   bool
	Width  int
	Height int

	spin     spinner.Model
	result   *ResultMsg
	rendered string
}

// New creates the pane with the prompt box focused.
func New() Model {
	ta := textarea.New()
	ta.Placeholder = "Ask about modifiers, shortcuts, scene setup..."
	ta.SetHeight(3)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorAI)

	return Model{Input: ta, spin: sp}
}

// SetSize updates the pane dimensions.
func (m *Model) SetSize(width, height int) {
	m.Width = width
	m.Height = height
	m.Input.SetWidth(width - 4)
}

// Update handles keys, the spinner, and arriving results.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.Busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case ResultMsg:
		m.Busy = false
		res := msg
		m.result = &res
		m.rendered = ""
		if msg.Err == nil && msg.Output != "" {
			m.rendered = renderMarkdown(msg.Output, m.contentWidth())
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+s" {
			prompt := strings.TrimSpace(m.Input.Value())
			if m.Busy || prompt == "" {
				return m, nil
			}
			m.Busy = true
			return m, tea.Batch(m.spin.Tick, func() tea.Msg { return SubmitMsg{Prompt: prompt} })
		}
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// View renders the prompt box and whatever the helper said last.
func (m Model) View() string {
	sections := []string{
		m.Input.View(),
		theme.StyleDimmed.Render("ctrl+s to ask"),
	}

	switch {
	case m.Busy:
		sections = append(sections, "", m.spin.View()+" asking...")
	case m.result != nil:
		sections = append(sections, "", m.renderResult())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderResult() string {
	res := m.result

	if res.Err != nil {
		return lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("assist failed: " + res.Err.Error())
	}

	var parts []string
	if m.rendered != "" {
		parts = append(parts, m.rendered)
	} else if res.Output != "" {
		parts = append(parts, res.Output)
	}

	if !res.OK {
		parts = append(parts, lipgloss.NewStyle().Foreground(theme.ColorDanger).
			Render(fmt.Sprintf("helper exited with code %d", res.Code)))
	}
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		parts = append(parts, theme.StyleDimmed.Render(truncateLines(stderr, 6)))
	}
	if res.DurationMS > 0 {
		parts = append(parts, theme.StyleDimmed.Render(fmt.Sprintf("(%dms)", res.DurationMS)))
	}

	if len(parts) == 0 {
		return theme.StyleDimmed.Render("(empty response)")
	}
	return strings.Join(parts, "\n")
}

func (m Model) contentWidth() int {
	w := m.Width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// renderMarkdown formats helper output for the terminal, falling back
// to the raw text when rendering fails.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func truncateLines(s string, max int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[:max], "\n") + "\n..."
}
