// Package health serves the liveness and readiness probes.
//
// /healthz answers 200 whenever the process can serve HTTP at all. /readyz
// additionally runs every registered [Checker] (postgres, nats, and so on)
// and answers 503 with per-check detail when any dependency is down.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds one readiness check.
const checkTimeout = 5 * time.Second

// Checker probes one dependency for the readiness endpoint.
type Checker struct {
	// Name labels the check in the JSON response, e.g. "postgres".
	Name string

	// Check returns nil when the dependency is healthy. It must respect
	// context cancellation.
	Check func(ctx context.Context) error
}

// Handler serves the probe endpoints. The checker list is fixed at
// construction, so Handler is safe for concurrent use.
type Handler struct {
	checkers []Checker
}

// New creates a Handler evaluating the given checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// result is the JSON body of both probe responses.
type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz always reports ok: a process that got this far can serve HTTP.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz runs every checker under a [checkTimeout] deadline and reports 503
// when any of them fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	res := result{
		Status: "ok",
		Checks: make(map[string]string, len(h.checkers)),
	}
	status := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			res.Checks[c.Name] = "fail: " + err.Error()
			res.Status = "fail"
			status = http.StatusServiceUnavailable
			continue
		}
		res.Checks[c.Name] = "ok"
	}

	writeJSON(w, status, res)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
