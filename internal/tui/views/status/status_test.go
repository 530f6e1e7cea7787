package status

import (
	"strings"
	"testing"

	"github.com/lebduska/blendmate/internal/bridge"
	"github.com/lebduska/blendmate/internal/monitor"
)

func TestViewDisconnected(t *testing.T) {
	m := New()
	m.Width = 80

	v := m.View()
	if !strings.Contains(v, "connecting") {
		t.Error("bar should show the daemon as connecting")
	}
	if !strings.Contains(v, "addon") {
		t.Error("bar should always show the addon slot")
	}
	if !strings.Contains(v, "not running") {
		t.Error("bar should show blender as not running")
	}
}

func TestViewConnected(t *testing.T) {
	m := New()
	m.Width = 80
	m.DaemonConnected = true
	m.Bridge = bridge.StatusConnected

	v := m.View()
	if !strings.Contains(v, "daemon") {
		t.Error("bar should name the daemon link")
	}
	if strings.Contains(v, "connecting") {
		t.Error("connected bar should drop the connecting hint")
	}
}

func TestViewMonitorSnapshot(t *testing.T) {
	m := New()
	m.Width = 100
	m.Monitor = monitor.Snapshot{
		Running: true,
		Processes: []monitor.ProcInfo{
			{PID: 4242, Name: "blender", CPUPercent: 12.5, MemoryMB: 512},
		},
	}

	v := m.View()
	for _, want := range []string{"pid 4242", "12.5% cpu", "512 MiB"} {
		if !strings.Contains(v, want) {
			t.Errorf("bar should contain %q", want)
		}
	}
}
