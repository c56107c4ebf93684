// Package health serves /health with the state of a service's dependencies.
package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Report is the /health response body.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
	Counts map[string]int    `json:"counts,omitempty"`
}

type check struct {
	name string
	up   func() bool
}

type count struct {
	name string
	n    func() int
}

// Handler collects checks and counters. A failing check degrades the report but
// the endpoint still answers 200: the service keeps serving and parking events.
type Handler struct {
	checks []check
	counts []count
}

// New returns a handler with no checks, which always reports ok.
func New() *Handler {
	return &Handler{}
}

// Check registers a dependency reported as "up" or "down".
func (h *Handler) Check(name string, up func() bool) *Handler {
	h.checks = append(h.checks, check{name: name, up: up})
	return h
}

// Count registers a counter reported as is.
func (h *Handler) Count(name string, n func() int) *Handler {
	h.counts = append(h.counts, count{name: name, n: n})
	return h
}

// Report evaluates every check and counter.
func (h *Handler) Report() Report {
	r := Report{Status: StatusOK}
	if h == nil {
		return r
	}
	for _, c := range h.checks {
		if r.Checks == nil {
			r.Checks = make(map[string]string, len(h.checks))
		}
		if c.up() {
			r.Checks[c.name] = "up"
			continue
		}
		r.Checks[c.name] = "down"
		r.Status = StatusDegraded
	}
	for _, c := range h.counts {
		if r.Counts == nil {
			r.Counts = make(map[string]int, len(h.counts))
		}
		r.Counts[c.name] = c.n()
	}
	return r
}

// Serve is the gin handler for GET /health.
func (h *Handler) Serve(c *gin.Context) {
	c.JSON(http.StatusOK, h.Report())
}
