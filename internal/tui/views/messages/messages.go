// Package messages renders the live relay traffic feed with a compose
// line for sending envelopes back to the addon.
package messages

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/lebduska/blendmate/internal/protocol"
	"github.com/lebduska/blendmate/internal/tui/theme"
)

const (
	maxEntries = 500
	fps        = 60
	pageLines  = 8
)

// FrameMsg drives the scroll animation.
type FrameMsg struct{}

// SubmitMsg carries a composed line up to the app.
type SubmitMsg struct{ Text string }

// Direction marks where an entry came from.
type Direction string

const (
	DirIn  Direction = "in"  // addon → app
	DirOut Direction = "out" // app → addon
	DirSys Direction = "sys" // local notes
)

// Entry is one feed line.
type Entry struct {
	Time time.Time
	Dir  Direction
	Msg  *protocol.Message // nil when the payload didn't parse
	Raw  string
}

// Model holds the traffic feed state.
type Model struct {
	Entries []Entry
	Input   textinput.Model
	Width   int
	Height  int

	spring    harmonica.Spring
	scrollPos float64 // animated offset from the bottom, in lines
	scrollVel float64
	target    float64
	animating bool
}

// New creates an empty feed with the compose line focused.
func New() Model {
	ti := textinput.New()
	ti.Placeholder = `/get scene frame_current  ·  /set <target> <path> <value>  ·  raw {"v":1,...}`
	ti.Prompt = "> "
	ti.CharLimit = 4096
	ti.Focus()

	return Model{
		Input:  ti,
		spring: harmonica.NewSpring(harmonica.FPS(fps), 8.0, 1.0),
	}
}

// AddIncoming appends a relayed addon payload.
func (m *Model) AddIncoming(raw string) { m.addPayload(DirIn, raw) }

// AddOutgoing appends a payload sent to the addon.
func (m *Model) AddOutgoing(raw string) { m.addPayload(DirOut, raw) }

// AddSystem appends a local note (connection changes, send failures).
func (m *Model) AddSystem(text string) {
	m.appendEntry(Entry{Time: time.Now(), Dir: DirSys, Raw: text})
}

func (m *Model) addPayload(dir Direction, raw string) {
	e := Entry{Time: time.Now(), Dir: dir, Raw: raw}
	if msg, err := protocol.Parse([]byte(raw)); err == nil {
		e.Msg = &msg
	}
	m.appendEntry(e)
}

func (m *Model) appendEntry(e Entry) {
	m.Entries = append(m.Entries, e)
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	// Fresh traffic jump-cuts to the bottom; the spring only animates
	// deliberate scrolling.
	m.target = 0
	m.scrollPos = 0
	m.scrollVel = 0
	m.animating = false
}

// Update handles keys, input editing, and animation frames.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case FrameMsg:
		if !m.animating {
			return m, nil
		}
		m.scrollPos, m.scrollVel = m.spring.Update(m.scrollPos, m.scrollVel, m.target)
		if m.settled() {
			m.scrollPos = m.target
			m.scrollVel = 0
			m.animating = false
			return m, nil
		}
		return m, frameTick()

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			text := strings.TrimSpace(m.Input.Value())
			if text == "" {
				return m, nil
			}
			m.Input.Reset()
			return m, func() tea.Msg { return SubmitMsg{Text: text} }
		case "pgup":
			return m.scrollBy(pageLines)
		case "pgdown":
			return m.scrollBy(-pageLines)
		}
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m Model) scrollBy(lines int) (Model, tea.Cmd) {
	m.target += float64(lines)
	max := float64(len(m.Entries) - 1)
	if max < 0 {
		max = 0
	}
	if m.target > max {
		m.target = max
	}
	if m.target < 0 {
		m.target = 0
	}
	if m.animating {
		return m, nil
	}
	m.animating = true
	return m, frameTick()
}

func (m Model) settled() bool {
	return math.Abs(m.scrollPos-m.target) < 0.05 && math.Abs(m.scrollVel) < 0.05
}

func frameTick() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg {
		return FrameMsg{}
	})
}

// View renders the feed above the compose line.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	visible := m.Height - 2
	if visible < 3 {
		visible = 3
	}

	var lines []string
	if len(m.Entries) == 0 {
		lines = append(lines, theme.StyleDimmed.Render("  No traffic yet."))
	} else {
		offset := int(math.Round(m.scrollPos))
		end := len(m.Entries) - offset
		start := end - visible
		if start < 0 {
			start = 0
		}
		if end < start {
			end = start
		}
		for i := start; i < end; i++ {
			lines = append(lines, renderEntry(m.Entries[i], width))
		}
		if offset > 0 {
			lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", offset)))
		}
	}

	body := strings.Join(lines, "\n")
	return lipgloss.JoinVertical(lipgloss.Left, body, "", m.Input.View())
}

func renderEntry(e Entry, width int) string {
	ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05"))
	arrow := dirArrow(e.Dir)

	if e.Dir == DirSys {
		return fmt.Sprintf("%s %s %s", ts, arrow, theme.StyleDimmed.Render(e.Raw))
	}

	if e.Msg == nil {
		bad := lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("??")
		return fmt.Sprintf("%s %s %s %s", ts, arrow, bad, truncate(e.Raw, width-16))
	}

	badge := theme.SourceBadge(string(e.Msg.Source))
	typ := lipgloss.NewStyle().Foreground(theme.TypeColor(e.Msg.Type)).Render(e.Msg.Type)
	body := compactBody(*e.Msg)
	line := fmt.Sprintf("%s %s %s %s", ts, arrow, badge, typ)
	if body != "" {
		line += " " + theme.StyleDimmed.Render(truncate(body, width-len(e.Msg.Type)-20))
	}
	return line
}

func dirArrow(dir Direction) string {
	switch dir {
	case DirIn:
		return "←"
	case DirOut:
		return "→"
	default:
		return "·"
	}
}

// compactBody renders a message body as one-line JSON.
func compactBody(msg protocol.Message) string {
	if msg.Body == nil {
		return ""
	}
	data, err := json.Marshal(msg.Body)
	if err != nil {
		return ""
	}
	return string(data)
}

func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
