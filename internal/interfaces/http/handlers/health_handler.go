package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/molscout/pkg/types/common"
)

// HealthChecker is implemented by dependencies that gate readiness.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness endpoints.
type HealthHandler struct {
	checkers     []HealthChecker
	version      string
	checkTimeout time.Duration

	mu       sync.RWMutex
	draining bool
}

// NewHealthHandler creates a HealthHandler. Nil checkers are ignored.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	h := &HealthHandler{version: version, checkTimeout: 5 * time.Second}
	for _, c := range checkers {
		if c != nil {
			h.checkers = append(h.checkers, c)
		}
	}
	return h
}

// SetDraining makes readiness fail while the server shuts down.
func (h *HealthHandler) SetDraining(draining bool) {
	h.mu.Lock()
	h.draining = draining
	h.mu.Unlock()
}

func (h *HealthHandler) isDraining() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.draining
}

// Liveness handles GET /healthz. It never checks dependencies.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, common.HealthResponse{
		Status:    common.HealthUp,
		Version:   h.version,
		Timestamp: common.NewTimestamp(),
	})
}

// Readiness handles GET /readyz: 200 when every checker passes, 503
// otherwise.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	resp := common.HealthResponse{
		Status:    common.HealthUp,
		Version:   h.version,
		Timestamp: common.NewTimestamp(),
	}
	if h.isDraining() {
		resp.Status = common.HealthDown
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.checkTimeout)
	defer cancel()

	resp.Components = h.checkAll(ctx)
	for _, c := range resp.Components {
		if c.Status != common.HealthUp {
			resp.Status = common.HealthDown
		}
	}

	code := http.StatusOK
	if resp.Status != common.HealthUp {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// checkAll runs all checkers concurrently; results are sorted by name.
func (h *HealthHandler) checkAll(ctx context.Context) []common.ComponentHealth {
	results := make([]common.ComponentHealth, len(h.checkers))
	var wg sync.WaitGroup

	for i, checker := range h.checkers {
		wg.Add(1)
		go func(i int, c HealthChecker) {
			defer wg.Done()

			start := time.Now()
			err := c.Check(ctx)
			ch := common.ComponentHealth{
				Name:    c.Name(),
				Status:  common.HealthUp,
				Latency: time.Since(start),
			}
			if err != nil {
				ch.Status = common.HealthDown
				ch.Message = err.Error()
			}
			results[i] = ch
		}(i, checker)
	}

	wg.Wait()
	sort.Slice(results, func(a, b int) bool { return results[a].Name < results[b].Name })
	return results
}
