package files

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lebduska/blendmate/internal/fileinfo"
)

func TestEnterSubmitsPath(t *testing.T) {
	m := New()
	m.Input.SetValue("/tmp/scene.blend")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("enter with a path should emit a submit")
	}
	msg := cmd()
	sub, ok := msg.(SubmitMsg)
	if !ok {
		t.Fatalf("expected SubmitMsg, got %T", msg)
	}
	if sub.Path != "/tmp/scene.blend" {
		t.Errorf("path = %q", sub.Path)
	}
}

func TestEnterIgnoredWhenEmpty(t *testing.T) {
	m := New()
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("empty path should not submit")
	}
}

func TestViewPlaceholder(t *testing.T) {
	m := New()
	if v := m.View(); !strings.Contains(v, "Enter a path") {
		t.Error("fresh pane should show the hint")
	}
}

func TestViewShowsInfoCard(t *testing.T) {
	m := New()
	m.Width = 80
	m, _ = m.Update(InfoMsg{Info: &fileinfo.Info{
		Path:      "/tmp/scene.blend",
		Name:      "scene.blend",
		Ext:       ".blend",
		SizeBytes: 2048,
		SizeHuman: "2.0 KiB",
		ModTime:   time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
	}})

	v := m.View()
	for _, want := range []string{"scene.blend", "2.0 KiB", "2048 bytes", ".blend", "2025-06-01"} {
		if !strings.Contains(v, want) {
			t.Errorf("card should contain %q", want)
		}
	}
}

func TestViewShowsDirectory(t *testing.T) {
	m := New()
	m, _ = m.Update(InfoMsg{Info: &fileinfo.Info{
		Path:  "/tmp",
		Name:  "tmp",
		IsDir: true,
	}})

	v := m.View()
	if !strings.Contains(v, "directory") {
		t.Error("card should mark directories")
	}
	if strings.Contains(v, "bytes") {
		t.Error("directories should not report a size")
	}
}

func TestViewShowsError(t *testing.T) {
	m := New()
	m, _ = m.Update(InfoMsg{Err: errors.New("stat failed: 404")})
	if v := m.View(); !strings.Contains(v, "stat failed: 404") {
		t.Error("view should surface lookup errors")
	}
}

func TestErrorClearedByNextResult(t *testing.T) {
	m := New()
	m, _ = m.Update(InfoMsg{Err: errors.New("nope")})
	m, _ = m.Update(InfoMsg{Info: &fileinfo.Info{Name: "ok.blend"}})
	if m.Err != nil {
		t.Error("a good result should clear the previous error")
	}
	if v := m.View(); !strings.Contains(v, "ok.blend") {
		t.Error("view should show the new card")
	}
}
