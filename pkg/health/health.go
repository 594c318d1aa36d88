// Package health reports bridge liveness and readiness on /healthz and
// /readyz.
package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// Serving states.
const (
	StateStarting = "starting"
	StateReady    = "ready"
	StateDraining = "draining"
)

// Engine session states.
const (
	SessionAuthenticated   = "authenticated"
	SessionUnauthenticated = "unauthenticated"
)

// Checker holds the serving state. It is safe for concurrent use.
type Checker struct {
	state   atomic.Value // string
	session func() bool
	version string
}

// Option configures a Checker.
type Option func(*Checker)

// WithEngineSession adds the engine login state to readiness reports.
// It never makes the bridge unready: queries log in on demand.
func WithEngineSession(hasToken func() bool) Option {
	return func(c *Checker) { c.session = hasToken }
}

// WithVersion adds a build version to every report.
func WithVersion(v string) Option {
	return func(c *Checker) { c.version = v }
}

// NewChecker returns a Checker in the starting state.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{}
	c.state.Store(StateStarting)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetReady marks the bridge as serving.
func (c *Checker) SetReady() { c.state.Store(StateReady) }

// SetDraining marks the bridge as shutting down.
func (c *Checker) SetDraining() { c.state.Store(StateDraining) }

// State returns StateStarting, StateReady or StateDraining.
func (c *Checker) State() string {
	s, _ := c.state.Load().(string)
	return s
}

// IsReady reports whether the bridge is serving.
func (c *Checker) IsReady() bool { return c.State() == StateReady }

// Session returns the engine session state, or "" when not tracked.
func (c *Checker) Session() string {
	switch {
	case c.session == nil:
		return ""
	case c.session():
		return SessionAuthenticated
	default:
		return SessionUnauthenticated
	}
}

// Report is the body of both health endpoints.
type Report struct {
	Status  string `json:"status"`
	Engine  string `json:"engine,omitempty"`
	Version string `json:"version,omitempty"`
}

// LivenessHandler answers 200 while the process runs.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		write(w, http.StatusOK, Report{Status: "ok", Version: c.version})
	}
}

// ReadinessHandler answers 200 when ready and 503 otherwise.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		code := http.StatusServiceUnavailable
		if c.IsReady() {
			code = http.StatusOK
		}
		write(w, code, Report{Status: c.State(), Engine: c.Session(), Version: c.version})
	}
}

func write(w http.ResponseWriter, code int, r Report) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(r)
}
