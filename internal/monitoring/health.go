package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthChecker reports the state of a running optimization
type HealthChecker struct {
	mu           sync.RWMutex
	startTime    time.Time
	lastProgress time.Time
	current      int
	total        int
	finished     bool
	errors       []string
}

type HealthStatus struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	LastProgress time.Time `json:"last_progress"`
	Current      int       `json:"current"`
	Total        int       `json:"total"`
	Uptime       string    `json:"uptime"`
	Errors       []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	now := time.Now()
	return &HealthChecker{
		startTime:    now,
		lastProgress: now,
		errors:       make([]string, 0),
	}
}

// Progress records a progress tick; usable as an optimizer progress callback
func (h *HealthChecker) Progress(current, total int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current, h.total = current, total
	h.lastProgress = time.Now()
}

// Finish marks the run complete
func (h *HealthChecker) Finish(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.finished = true
	if err != nil {
		h.errors = append(h.errors, err.Error())
	}
}

// Status returns the current health snapshot
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "running"
	switch {
	case len(h.errors) > 0:
		status = "failed"
	case h.finished:
		status = "finished"
	case time.Since(h.lastProgress) > 10*time.Minute:
		status = "stalled"
	}

	return HealthStatus{
		Status:       status,
		Timestamp:    time.Now(),
		LastProgress: h.lastProgress,
		Current:      h.current,
		Total:        h.total,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Errors:       append([]string(nil), h.errors...),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	switch health.Status {
	case "stalled":
		w.WriteHeader(http.StatusServiceUnavailable)
	case "failed":
		w.WriteHeader(http.StatusInternalServerError)
	}
	json.NewEncoder(w).Encode(health)
}
