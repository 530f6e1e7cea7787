// Package monitor polls the local process table for a running Blender
// instance and publishes resource snapshots.
package monitor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcInfo describes one matched process.
type ProcInfo struct {
	PID        int32         `json:"pid"`
	Name       string        `json:"name"`
	CPUPercent float64       `json:"cpuPercent"`
	MemoryMB   float64       `json:"memoryMb"`
	Uptime     time.Duration `json:"uptime"`
}

// Snapshot is the result of one poll.
type Snapshot struct {
	Running   bool       `json:"running"`
	Processes []ProcInfo `json:"processes"`
	TakenAt   time.Time  `json:"takenAt"`
}

// Watcher scans for processes whose name contains the configured
// needle and hands each snapshot to a publish func.
type Watcher struct {
	needle   string
	interval time.Duration
	publish  func(Snapshot)

	// list is swapped out by tests.
	list func() ([]ProcInfo, error)

	wasRunning bool
}

func New(processName string, interval time.Duration, publish func(Snapshot)) *Watcher {
	w := &Watcher{
		needle:   strings.ToLower(processName),
		interval: interval,
		publish:  publish,
	}
	w.list = w.listMatching
	return w
}

// Start polls until ctx is canceled. It blocks; run it in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Printf("[monitor] watching for %q every %s", w.needle, w.interval)

	w.pollOnce()
	for {
		select {
		case <-ctx.Done():
			log.Println("[monitor] stopped")
			return
		case <-ticker.C:
			w.pollOnce()
		}
	}
}

func (w *Watcher) pollOnce() {
	procs, err := w.list()
	if err != nil {
		log.Printf("[monitor] process scan failed: %v", err)
		return
	}

	running := len(procs) > 0
	if running != w.wasRunning {
		if running {
			log.Printf("[monitor] %s running (pid %d)", w.needle, procs[0].PID)
		} else {
			log.Printf("[monitor] %s no longer running", w.needle)
		}
		w.wasRunning = running
	}

	w.publish(Snapshot{
		Running:   running,
		Processes: procs,
		TakenAt:   time.Now(),
	})
}

func (w *Watcher) matches(name string) bool {
	return strings.Contains(strings.ToLower(name), w.needle)
}

func (w *Watcher) listMatching() ([]ProcInfo, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("listing processes: %w", err)
	}

	now := time.Now()
	var matched []ProcInfo
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			// Process may have exited between listing and inspection.
			continue
		}
		if !w.matches(name) {
			continue
		}

		info := ProcInfo{PID: p.Pid, Name: name}
		if cpu, err := p.CPUPercent(); err == nil {
			info.CPUPercent = cpu
		}
		if mem, err := p.MemoryInfo(); err == nil && mem != nil {
			info.MemoryMB = float64(mem.RSS) / (1024 * 1024)
		}
		if created, err := p.CreateTime(); err == nil && created > 0 {
			info.Uptime = now.Sub(time.UnixMilli(created))
		}
		matched = append(matched, info)
	}
	return matched, nil
}
