package app

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lebduska/blendmate/internal/client"
	"github.com/lebduska/blendmate/internal/protocol"
	"github.com/lebduska/blendmate/internal/tui/views/messages"
)

func newTestModel() Model {
	m := New(client.NewWSClient("ws://127.0.0.1:9/ws"), client.NewHTTPClient("http://127.0.0.1:9"))
	m.width = 80
	m.height = 24
	return m
}

func TestComposeOutgoing(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantErr  bool
	}{
		{
			name:     "get builds a property read",
			input:    "/get objects['Cube'] location",
			wantType: protocol.TypeCommandPropertyGet,
		},
		{
			name:     "set builds a property write",
			input:    "/set objects['Cube'] location [1,2,3]",
			wantType: protocol.TypeCommandPropertySet,
		},
		{
			name:    "get with missing path → error",
			input:   "/get objects['Cube']",
			wantErr: true,
		},
		{
			name:    "set with missing value → error",
			input:   "/set objects['Cube'] location",
			wantErr: true,
		},
		{
			name:    "unknown slash command → error",
			input:   "/frobnicate now",
			wantErr: true,
		},
		{
			name:    "plain text → error",
			input:   "hello addon",
			wantErr: true,
		},
		{
			name:     "raw envelope passes through",
			input:    `{"v":1,"type":"heartbeat","ts":1,"id":"aaaaaaaa","source":"blendmate"}`,
			wantType: protocol.TypeHeartbeat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := composeOutgoing(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("composeOutgoing(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("composeOutgoing(%q): %v", tt.input, err)
			}
			msg, err := protocol.Parse([]byte(raw))
			if err != nil {
				t.Fatalf("composed payload does not parse: %v", err)
			}
			if msg.Type != tt.wantType {
				t.Errorf("type = %q, want %q", msg.Type, tt.wantType)
			}
		})
	}
}

func TestComposeOutgoing_SetValueTyping(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{
			name:  "json number stays a number",
			input: "/set scene frame_current 42",
			want:  float64(42),
		},
		{
			name:  "json bool stays a bool",
			input: "/set objects['Cube'] hide_viewport true",
			want:  true,
		},
		{
			name:  "bare word becomes a string",
			input: "/set scene name Untitled",
			want:  "Untitled",
		},
		{
			name:  "multi-word value joins with spaces",
			input: "/set scene name My Scene",
			want:  "My Scene",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := composeOutgoing(tt.input)
			if err != nil {
				t.Fatalf("composeOutgoing(%q): %v", tt.input, err)
			}
			msg, err := protocol.Parse([]byte(raw))
			if err != nil {
				t.Fatalf("composed payload does not parse: %v", err)
			}
			body, ok := msg.Body.(map[string]any)
			if !ok {
				t.Fatalf("body is %T, want an object", msg.Body)
			}
			params, ok := body["params"].(map[string]any)
			if !ok {
				t.Fatalf("params missing from body: %v", body)
			}
			if params["value"] != tt.want {
				t.Errorf("value = %v (%T), want %v (%T)",
					params["value"], params["value"], tt.want, tt.want)
			}
		})
	}
}

func TestViewBeforeFirstResize(t *testing.T) {
	m := New(nil, nil)
	if got := m.View(); !strings.Contains(got, "Initializing") {
		t.Errorf("zero-size view = %q, want initializing notice", got)
	}
}

func TestViewShowsPanes(t *testing.T) {
	m := newTestModel()

	v := m.View()
	for _, want := range []string{"traffic", "assist", "files", "connecting", "addon"} {
		if !strings.Contains(v, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}

func TestPaneSwitching(t *testing.T) {
	m := newTestModel()

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = model.(Model)
	if m.pane != PaneAssist {
		t.Fatalf("pane after tab = %d, want %d", m.pane, PaneAssist)
	}

	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = model.(Model)
	if m.pane != PaneFiles {
		t.Fatalf("pane after second tab = %d, want %d", m.pane, PaneFiles)
	}

	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = model.(Model)
	if m.pane != PaneMessages {
		t.Fatalf("pane should wrap back to %d, got %d", PaneMessages, m.pane)
	}

	model, _ = m.Update(tea.KeyMsg{Type: tea.KeyF2})
	m = model.(Model)
	if m.pane != PaneAssist {
		t.Errorf("f2 should jump to assist, got pane %d", m.pane)
	}
}

func TestUpdateRecordsSendOutcome(t *testing.T) {
	m := newTestModel()

	model, _ := m.Update(sentMsg{raw: "x", err: errors.New("boom")})
	m = model.(Model)
	if n := len(m.messages.Entries); n != 1 {
		t.Fatalf("entries = %d, want 1", n)
	}
	if got := m.messages.Entries[0].Raw; !strings.Contains(got, "send failed: boom") {
		t.Errorf("feed entry = %q, want send failure note", got)
	}

	payload := `{"v":1,"type":"heartbeat","ts":1,"id":"aaaaaaaa","source":"blendmate"}`
	model, _ = m.Update(sentMsg{raw: payload})
	m = model.(Model)
	last := m.messages.Entries[len(m.messages.Entries)-1]
	if last.Dir != messages.DirOut {
		t.Errorf("direction = %q, want %q", last.Dir, messages.DirOut)
	}
	if last.Msg == nil || last.Msg.Type != protocol.TypeHeartbeat {
		t.Errorf("sent payload should parse as a heartbeat, got %+v", last.Msg)
	}
}

func TestUpdateAppendsPeerTraffic(t *testing.T) {
	m := newTestModel()

	payload := `{"v":1,"type":"event.scene.connected","ts":1,"id":"bbbbbbbb","source":"blender_addon"}`
	model, cmd := m.Update(client.PeerMsg{Payload: payload})
	m = model.(Model)
	if cmd == nil {
		t.Error("peer traffic should re-issue the read loop")
	}
	if n := len(m.messages.Entries); n != 1 {
		t.Fatalf("entries = %d, want 1", n)
	}
	if got := m.messages.Entries[0].Dir; got != messages.DirIn {
		t.Errorf("direction = %q, want %q", got, messages.DirIn)
	}
}

func TestUpdateTracksBridgeStatus(t *testing.T) {
	m := newTestModel()

	model, cmd := m.Update(client.StatusMsg{Status: "connected"})
	m = model.(Model)
	if cmd == nil {
		t.Error("status updates should re-issue the read loop")
	}
	if m.statusBar.Bridge != "connected" {
		t.Errorf("bridge status = %q, want connected", m.statusBar.Bridge)
	}

	v := m.View()
	if !strings.Contains(v, "addon connected") {
		t.Errorf("feed should note the addon status change")
	}
}
