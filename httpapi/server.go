// Package httpapi implements the HTTP surface (§6.3): a thin net/http
// adapter over the agent-loop driver and approval gate. The router itself
// is explicitly out of core scope (§1, "HTTP router internals"), so this
// package intentionally stays on the standard library rather than pulling
// in a routing framework — see DESIGN.md for the full justification.
package httpapi

import (
	"net/http"

	"github.com/arcanrun/arcane/approval"
	"github.com/arcanrun/arcane/driver"
	"github.com/arcanrun/arcane/telemetry"
)

// Server exposes the §6.3 HTTP surface over a Driver and approval Gate.
type Server struct {
	Driver *driver.Driver
	Gate   *approval.Gate
	Logger telemetry.Logger
}

// New constructs a Server. A nil logger uses telemetry.NoopLogger.
func New(d *driver.Driver, gate *approval.Gate, logger telemetry.Logger) *Server {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	return &Server{Driver: d, Gate: gate, Logger: logger}
}

// Mux builds the §6.3 routes on a fresh http.ServeMux.
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /approve", s.handleApprove)
	mux.HandleFunc("GET /approvals", s.handleApprovals)
	return mux
}
