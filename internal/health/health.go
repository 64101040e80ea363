package health

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Snapshot is the health report served at /api/health.
type Snapshot struct {
	Status         string    `json:"status"`
	Uptime         string    `json:"uptime"`
	CPUPercent     float64   `json:"cpuPercent"`
	MemoryRSS      uint64    `json:"memoryRss"`
	Goroutines     int       `json:"goroutines"`
	ActiveSessions int       `json:"activeSessions"`
	Clients        int       `json:"clients"`
	Timestamp      time.Time `json:"timestamp"`
}

// Counter reports a live gauge; satisfied by the relay's session store
// (ActiveCount) and registry (ClientCount).
type Counter interface {
	ActiveCount() int
	ClientCount() int
}

type Handler struct {
	startedAt time.Time
	proc      *process.Process
	counter   Counter
}

func NewHandler(counter Counter) *Handler {
	h := &Handler{
		startedAt: time.Now(),
		counter:   counter,
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Printf("health: process handle unavailable: %v", err)
	} else {
		h.proc = proc
	}
	return h
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", h.handleHealth)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := Snapshot{
		Status:     "ok",
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Timestamp:  time.Now().UTC(),
	}

	if h.counter != nil {
		snap.ActiveSessions = h.counter.ActiveCount()
		snap.Clients = h.counter.ClientCount()
	}

	if h.proc != nil {
		if cpu, err := h.proc.CPUPercent(); err == nil {
			snap.CPUPercent = cpu
		}
		if mem, err := h.proc.MemoryInfo(); err == nil && mem != nil {
			snap.MemoryRSS = mem.RSS
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}
