// Package health serves the liveness and readiness endpoints on the
// telemetry listener.
//
//   - /healthz — liveness; a process that answers HTTP is alive. Reports
//     uptime.
//   - /readyz  — readiness; 200 only while every registered [Probe] reports
//     ready, 503 otherwise.
//
// Probes here are flag reads (is the capture stream running), not remote
// dependency checks, so they are evaluated inline without timeouts.
package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// Probe is a named readiness signal.
type Probe struct {
	// Name keys the probe in the /readyz response body.
	Name string

	// Ready reports the current state. Must be safe for concurrent use.
	Ready func() bool

	// Cause explains a not-ready probe in the response body.
	Cause error
}

// Handler answers the health endpoints. Create with [New]; the probe set is
// fixed after construction.
type Handler struct {
	probes  []Probe
	started time.Time
}

// New creates a Handler evaluating the given probes on each /readyz request.
func New(probes ...Probe) *Handler {
	return &Handler{
		probes:  append([]Probe(nil), probes...),
		started: time.Now(),
	}
}

type livenessBody struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

type readinessBody struct {
	Status string            `json:"status"`
	Probes map[string]string `json:"probes,omitempty"`
}

// Healthz always returns 200 with the process uptime.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, livenessBody{
		Status: "alive",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}

// Readyz returns 200 while every probe reports ready. A failing probe turns
// the response into 503 and names its cause.
func (h *Handler) Readyz(w http.ResponseWriter, _ *http.Request) {
	body := readinessBody{
		Status: "ready",
		Probes: make(map[string]string, len(h.probes)),
	}
	status := http.StatusOK

	for _, p := range h.probes {
		if p.Ready() {
			body.Probes[p.Name] = "ok"
			continue
		}
		body.Status = "unready"
		status = http.StatusServiceUnavailable
		if p.Cause != nil {
			body.Probes[p.Name] = p.Cause.Error()
		} else {
			body.Probes[p.Name] = "not ready"
		}
	}

	writeJSON(w, status, body)
}

// Register adds the /healthz and /readyz routes to mux.
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
