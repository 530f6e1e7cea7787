// Package app holds the root Bubble Tea model wiring the daemon client
// to the panes.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lebduska/blendmate/internal/client"
	"github.com/lebduska/blendmate/internal/protocol"
	"github.com/lebduska/blendmate/internal/tui/theme"
	assistview "github.com/lebduska/blendmate/internal/tui/views/assist"
	"github.com/lebduska/blendmate/internal/tui/views/files"
	"github.com/lebduska/blendmate/internal/tui/views/messages"
	"github.com/lebduska/blendmate/internal/tui/views/status"
)

// Pane identifies the active view.
type Pane int

const (
	PaneMessages Pane = iota
	PaneAssist
	PaneFiles
	paneCount
)

// sentMsg reports the outcome of forwarding a payload to the addon.
type sentMsg struct {
	raw string
	err error
}

// Model is the root Bubble Tea model.
type Model struct {
	ws     *client.WSClient
	http   *client.HTTPClient
	ctx    context.Context
	cancel context.CancelFunc

	keys   KeyMap
	width  int
	height int
	pane   Pane

	statusBar status.Model
	messages  messages.Model
	assist    assistview.Model
	files     files.Model
}

// New creates the root model.
func New(ws *client.WSClient, http *client.HTTPClient) Model {
	ctx, cancel := context.WithCancel(context.Background())
	return Model{
		ws:        ws,
		http:      http,
		ctx:       ctx,
		cancel:    cancel,
		keys:      DefaultKeyMap(),
		statusBar: status.New(),
		messages:  messages.New(),
		assist:    assistview.New(),
		files:     files.New(),
	}
}

// Init starts the daemon connection.
func (m Model) Init() tea.Cmd {
	return m.ws.Listen(m.ctx)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		bodyHeight := msg.Height - 5
		m.messages.Width = msg.Width
		m.messages.Height = bodyHeight
		m.messages.Input.Width = msg.Width - 4
		m.assist.SetSize(msg.Width, bodyHeight)
		m.files.Width = msg.Width
		m.files.Height = bodyHeight
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case client.ConnStateMsg:
		m.statusBar.DaemonConnected = msg.Connected
		if msg.Connected {
			m.messages.AddSystem("daemon link up")
			return m, m.ws.ReadLoop(m.ctx)
		}
		m.messages.AddSystem("daemon link lost, reconnecting")
		return m, m.ws.Listen(m.ctx)

	case client.StatusMsg:
		m.statusBar.Bridge = msg.Status
		m.messages.AddSystem("addon " + msg.Status)
		return m, m.ws.ReadLoop(m.ctx)

	case client.PeerMsg:
		m.messages.AddIncoming(msg.Payload)
		return m, m.ws.ReadLoop(m.ctx)

	case client.MonitorMsg:
		m.statusBar.Monitor = msg.Snapshot
		return m, m.ws.ReadLoop(m.ctx)

	case messages.SubmitMsg:
		raw, err := composeOutgoing(msg.Text)
		if err != nil {
			m.messages.AddSystem(err.Error())
			return m, nil
		}
		return m, m.sendCmd(raw)

	case sentMsg:
		if msg.err != nil {
			m.messages.AddSystem("send failed: " + msg.err.Error())
		} else {
			m.messages.AddOutgoing(msg.raw)
		}
		return m, nil

	case assistview.SubmitMsg:
		return m, m.assistCmd(msg.Prompt)

	case assistview.ResultMsg:
		var cmd tea.Cmd
		m.assist, cmd = m.assist.Update(msg)
		return m, cmd

	case files.SubmitMsg:
		return m, m.fileInfoCmd(msg.Path)

	case files.InfoMsg:
		var cmd tea.Cmd
		m.files, cmd = m.files.Update(msg)
		return m, cmd

	case messages.FrameMsg:
		var cmd tea.Cmd
		m.messages, cmd = m.messages.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.assist, cmd = m.assist.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		m.ws.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.NextPane):
		m.pane = (m.pane + 1) % paneCount
		return m, nil

	case key.Matches(msg, m.keys.Messages):
		m.pane = PaneMessages
		return m, nil

	case key.Matches(msg, m.keys.Assist):
		m.pane = PaneAssist
		return m, nil

	case key.Matches(msg, m.keys.Files):
		m.pane = PaneFiles
		return m, nil
	}

	return m.updateActive(msg)
}

// updateActive routes a message to the focused pane.
func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.pane {
	case PaneMessages:
		m.messages, cmd = m.messages.Update(msg)
	case PaneAssist:
		m.assist, cmd = m.assist.Update(msg)
	case PaneFiles:
		m.files, cmd = m.files.Update(msg)
	}
	return m, cmd
}

func (m Model) sendCmd(raw string) tea.Cmd {
	httpc := m.http
	return func() tea.Msg {
		return sentMsg{raw: raw, err: httpc.SendText(raw)}
	}
}

func (m Model) assistCmd(prompt string) tea.Cmd {
	httpc := m.http
	return func() tea.Msg {
		res, err := httpc.Assist(prompt)
		if err != nil {
			return assistview.ResultMsg{Err: err}
		}
		return assistview.ResultMsg{
			OK:         res.OK,
			Code:       res.Code,
			Output:     res.Stdout,
			Stderr:     res.Stderr,
			DurationMS: res.DurationMS,
		}
	}
}

func (m Model) fileInfoCmd(path string) tea.Cmd {
	httpc := m.http
	return func() tea.Msg {
		info, err := httpc.GetFileInfo(path)
		return files.InfoMsg{Info: info, Err: err}
	}
}

// composeOutgoing turns a composed line into a wire payload. Slash
// shortcuts build property commands; anything else must already be a
// valid envelope.
func composeOutgoing(text string) (string, error) {
	fields := strings.Fields(text)
	switch {
	case strings.HasPrefix(text, "/get"):
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: /get <target> <path>")
		}
		return encodeEnvelope(protocol.PropertyGet(fields[1], fields[2]))

	case strings.HasPrefix(text, "/set"):
		if len(fields) < 4 {
			return "", fmt.Errorf("usage: /set <target> <path> <value>")
		}
		rawVal := strings.Join(fields[3:], " ")
		var value any
		if err := json.Unmarshal([]byte(rawVal), &value); err != nil {
			// Bare words go through as strings.
			value = rawVal
		}
		return encodeEnvelope(protocol.PropertySet(fields[1], fields[2], value))

	case strings.HasPrefix(text, "/"):
		return "", fmt.Errorf("unknown command %q", fields[0])

	default:
		if _, err := protocol.Parse([]byte(text)); err != nil {
			return "", fmt.Errorf("not a valid envelope: %v", err)
		}
		return text, nil
	}
}

func encodeEnvelope(msg protocol.Message) (string, error) {
	data, err := msg.Encode()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.statusBar.View(),
		m.renderTabs(),
		m.activeView(),
		theme.StyleDimmed.Render(m.helpLine()),
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderTabs() string {
	labels := []string{"traffic", "assist", "files"}
	var parts []string
	for i, label := range labels {
		if Pane(i) == m.pane {
			parts = append(parts, theme.StyleSelected.Render("["+label+"]"))
		} else {
			parts = append(parts, theme.StyleDimmed.Render(" "+label+" "))
		}
	}
	return " " + strings.Join(parts, " ")
}

func (m Model) activeView() string {
	switch m.pane {
	case PaneAssist:
		return m.assist.View()
	case PaneFiles:
		return m.files.View()
	default:
		return m.messages.View()
	}
}

func (m Model) helpLine() string {
	switch m.pane {
	case PaneAssist:
		return "  tab:pane  ctrl+s:ask  ctrl+c:quit"
	case PaneFiles:
		return "  tab:pane  enter:inspect  ctrl+c:quit"
	default:
		return "  tab:pane  enter:send  pgup/pgdn:scroll  ctrl+c:quit"
	}
}
