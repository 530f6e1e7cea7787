package client

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lebduska/blendmate/internal/assist"
	"github.com/lebduska/blendmate/internal/bridge"
	"github.com/lebduska/blendmate/internal/hub"
	"github.com/lebduska/blendmate/internal/monitor"
)

type stubSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *stubSender) Send(payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, payload)
	return nil
}

func (s *stubSender) Connected() bool { return true }

func (s *stubSender) sentLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

// startDaemon serves a real hub for the client under test to talk to.
func startDaemon(t *testing.T, sender hub.Sender, runner *assist.Runner) (*hub.Hub, string) {
	t.Helper()

	h := hub.New(sender, runner)
	go h.ListenAndServe("127.0.0.1:0")

	deadline := time.Now().Add(2 * time.Second)
	for h.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("hub did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Cleanup(func() { h.Close() })
	return h, h.Addr().String()
}

// runCmd executes a Bubble Tea command with a timeout.
func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("command did not return")
		return nil
	}
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name  string
		event wireEvent
		check func(t *testing.T, msg tea.Msg)
	}{
		{
			name:  "status",
			event: wireEvent{Kind: hub.KindStatus, Data: json.RawMessage(`"connected"`)},
			check: func(t *testing.T, msg tea.Msg) {
				m, ok := msg.(StatusMsg)
				if !ok || m.Status != bridge.StatusConnected {
					t.Errorf("got %#v, want StatusMsg connected", msg)
				}
			},
		},
		{
			name:  "message",
			event: wireEvent{Kind: hub.KindMessage, Data: json.RawMessage(`"{\"v\":1,\"type\":\"heartbeat\"}"`)},
			check: func(t *testing.T, msg tea.Msg) {
				m, ok := msg.(PeerMsg)
				if !ok || m.Payload != `{"v":1,"type":"heartbeat"}` {
					t.Errorf("got %#v, want PeerMsg with the raw payload", msg)
				}
			},
		},
		{
			name:  "monitor",
			event: wireEvent{Kind: hub.KindMonitor, Data: json.RawMessage(`{"running":true,"processes":[{"pid":4,"name":"blender"}]}`)},
			check: func(t *testing.T, msg tea.Msg) {
				m, ok := msg.(MonitorMsg)
				if !ok || !m.Snapshot.Running || len(m.Snapshot.Processes) != 1 {
					t.Errorf("got %#v, want MonitorMsg with one process", msg)
				}
			},
		},
		{
			name:  "unknown kind dropped",
			event: wireEvent{Kind: "telemetry", Data: json.RawMessage(`{}`)},
			check: func(t *testing.T, msg tea.Msg) {
				if msg != nil {
					t.Errorf("got %#v, want nil", msg)
				}
			},
		},
		{
			name:  "malformed data dropped",
			event: wireEvent{Kind: hub.KindStatus, Data: json.RawMessage(`5`)},
			check: func(t *testing.T, msg tea.Msg) {
				if msg != nil {
					t.Errorf("got %#v, want nil", msg)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, dispatch(tt.event))
		})
	}
}

func TestNextDelay(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{reconnectBaseDelay, 2 * time.Second},
		{4 * time.Second, 8 * time.Second},
		{16 * time.Second, reconnectMaxDelay},
		{reconnectMaxDelay, reconnectMaxDelay},
	}
	for _, tt := range tests {
		if got := nextDelay(tt.in); got != tt.want {
			t.Errorf("nextDelay(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestListenDeliversEvents(t *testing.T) {
	h, addr := startDaemon(t, &stubSender{}, nil)

	ws := NewWSClient("ws://" + addr + "/ws")
	defer ws.Close()
	ctx := context.Background()

	msg := runCmd(t, ws.Listen(ctx))
	if m, ok := msg.(ConnStateMsg); !ok || !m.Connected {
		t.Fatalf("got %#v, want connected ConnStateMsg", msg)
	}

	// The hub greets every new client with the remembered status.
	msg = runCmd(t, ws.ReadLoop(ctx))
	if m, ok := msg.(StatusMsg); !ok || m.Status != bridge.StatusDisconnected {
		t.Fatalf("got %#v, want the disconnected greeting", msg)
	}

	if err := h.EmitStatus(bridge.StatusConnected); err != nil {
		t.Fatal(err)
	}
	msg = runCmd(t, ws.ReadLoop(ctx))
	if m, ok := msg.(StatusMsg); !ok || m.Status != bridge.StatusConnected {
		t.Fatalf("got %#v, want StatusMsg connected", msg)
	}

	payload := `{"v":1,"type":"event.scene.connected","source":"blender_addon"}`
	if err := h.EmitMessage(payload); err != nil {
		t.Fatal(err)
	}
	msg = runCmd(t, ws.ReadLoop(ctx))
	if m, ok := msg.(PeerMsg); !ok || m.Payload != payload {
		t.Fatalf("got %#v, want PeerMsg with the exact payload", msg)
	}

	h.PublishMonitor(monitor.Snapshot{Running: true})
	msg = runCmd(t, ws.ReadLoop(ctx))
	if m, ok := msg.(MonitorMsg); !ok || !m.Snapshot.Running {
		t.Fatalf("got %#v, want a running MonitorMsg", msg)
	}
}

func TestReadLoop_ReportsDisconnect(t *testing.T) {
	h, addr := startDaemon(t, &stubSender{}, nil)

	ws := NewWSClient("ws://" + addr + "/ws")
	defer ws.Close()
	ctx := context.Background()

	runCmd(t, ws.Listen(ctx))
	runCmd(t, ws.ReadLoop(ctx)) // drain the status greeting

	h.Close()

	msg := runCmd(t, ws.ReadLoop(ctx))
	m, ok := msg.(ConnStateMsg)
	if !ok || m.Connected {
		t.Fatalf("got %#v, want disconnected ConnStateMsg", msg)
	}
	if m.Err == nil {
		t.Error("expected a read error on teardown")
	}
}

func TestReadLoop_WithoutConnection(t *testing.T) {
	ws := NewWSClient("ws://127.0.0.1:0/ws")

	msg := runCmd(t, ws.ReadLoop(context.Background()))
	m, ok := msg.(ConnStateMsg)
	if !ok || m.Connected || m.Err == nil {
		t.Fatalf("got %#v, want a failed ConnStateMsg", msg)
	}
}

func TestSendText_ForwardsToDaemon(t *testing.T) {
	sender := &stubSender{}
	_, addr := startDaemon(t, sender, nil)

	hc := NewHTTPClient("http://" + addr)
	payload := `{"v":1,"type":"command.property.get"}`
	if err := hc.SendText(payload); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	sent := sender.sentLog()
	if len(sent) != 1 || sent[0] != payload {
		t.Fatalf("daemon forwarded %v, want [%s]", sent, payload)
	}
}

func TestGetStatus(t *testing.T) {
	_, addr := startDaemon(t, &stubSender{}, nil)

	hc := NewHTTPClient("http://" + addr)
	status, err := hc.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if status.Bridge != bridge.StatusConnected {
		t.Errorf("bridge = %q, want connected", status.Bridge)
	}
}

func TestGetFileInfo(t *testing.T) {
	_, addr := startDaemon(t, &stubSender{}, nil)
	hc := NewHTTPClient("http://" + addr)

	dir := t.TempDir()
	path := filepath.Join(dir, "scene.blend")
	if err := os.WriteFile(path, make([]byte, 512), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := hc.GetFileInfo(path)
	if err != nil {
		t.Fatalf("GetFileInfo: %v", err)
	}
	if info.Name != "scene.blend" || info.SizeBytes != 512 {
		t.Errorf("unexpected info: %+v", info)
	}

	if _, err := hc.GetFileInfo(filepath.Join(dir, "missing.blend")); err == nil {
		t.Error("expected an error for a missing file")
	} else if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want the 404 surfaced", err)
	}
}

func TestAssist_RoundTrip(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skipf("cat not available: %v", err)
	}

	runner := assist.New("cat", nil, 5*time.Second)
	_, addr := startDaemon(t, &stubSender{}, runner)

	hc := NewHTTPClient("http://" + addr)
	res, err := hc.Assist("select the active object")
	if err != nil {
		t.Fatalf("Assist: %v", err)
	}
	if !res.OK || res.Stdout != "select the active object" {
		t.Errorf("unexpected result: %+v", res)
	}
}
