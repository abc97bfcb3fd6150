package httpx

import (
	"context"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	healthResponse       = `{"status":"ok"}`
	defaultReadyTimeout  = 2 * time.Second
	readyStatusOK        = "ok"
	readyStatusUnhealthy = "unavailable"
)

// HealthCheck reports whether a backing dependency can serve requests.
type HealthCheck func(ctx context.Context) error

// ReadinessResponse is the body of GET /readyz.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler answers liveness checks. It never touches dependencies.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, healthResponse)
}

// readinessHandler runs every named check concurrently and reports 503 if any fails.
type readinessHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

func newReadinessHandler(checks map[string]HealthCheck, timeout time.Duration) *readinessHandler {
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	return &readinessHandler{checks: checks, timeout: timeout}
}

func (h *readinessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		mu      sync.Mutex
		g       errgroup.Group
		results = make(map[string]string, len(names))
		healthy = true
	)
	for _, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			status := readyStatusOK
			if err := check(ctx); err != nil {
				status = readyStatusUnhealthy + ": " + err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			results[name] = status
			if status != readyStatusOK {
				healthy = false
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := ReadinessResponse{Status: readyStatusOK, Checks: results}
	code := http.StatusOK
	if !healthy {
		resp.Status = readyStatusUnhealthy
		code = http.StatusServiceUnavailable
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}
	WriteJSON(w, code, resp)
}
