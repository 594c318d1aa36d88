// Package simplejson serves the dashboard Simple JSON datasource protocol
// on top of the engine executor.
package simplejson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/sync/errgroup"

	"github.com/txn2/dremio-simplejson/pkg/audit"
	"github.com/txn2/dremio-simplejson/pkg/engine"
)

// RootMessage is the liveness text served at GET /.
const RootMessage = "dremio-simplejson bridge running"

const (
	// maxBodyBytes bounds inbound request bodies.
	maxBodyBytes = 1 << 20

	// maxParallelTargets bounds engine jobs run at once for one /query.
	maxParallelTargets = 4
)

// Runner executes SQL and returns the complete result set.
type Runner interface {
	Run(ctx context.Context, sql string) (*engine.ResultSet, error)
}

// AuditQuerier reads recorded query events.
type AuditQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// Deps holds the handler's collaborators.
type Deps struct {
	Runner  Runner
	Catalog *Catalog

	// TestSQL is run by GET /test-query.
	TestSQL string

	// AuditQuerier enables GET /api/v1/audit/queries (optional).
	AuditQuerier AuditQuerier

	// AuditSummarizer enables GET /api/v1/audit/summary (optional).
	AuditSummarizer audit.Summarizer

	// Health mounts /healthz and /readyz (optional).
	Health interface {
		LivenessHandler() http.HandlerFunc
		ReadinessHandler() http.HandlerFunc
	}

	// QueryTimeout bounds one /query request across all of its targets
	// (optional, zero means no bound).
	QueryTimeout time.Duration

	// Now returns the current time (optional, defaults to the UTC clock).
	// The default query range is the day of Now in its location.
	Now func() time.Time
}

// Handler provides the Simple JSON endpoints.
type Handler struct {
	mux        *http.ServeMux
	deps       Deps
	authMiddle func(http.Handler) http.Handler
}

// NewHandler creates a Simple JSON handler. authMiddle, when non-nil, wraps
// the protocol and audit routes; health and docs routes stay open.
func NewHandler(deps Deps, authMiddle func(http.Handler) http.Handler) *Handler {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	h := &Handler{
		mux:        http.NewServeMux(),
		deps:       deps,
		authMiddle: authMiddle,
	}
	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.handle("GET /{$}", h.root)
	h.handle("POST /search", h.search)
	h.handle("POST /query", h.query)
	h.handle("GET /test-query", h.testQuery)
	h.handle("POST /annotations", h.annotations)
	if h.deps.AuditQuerier != nil {
		h.handle("GET /api/v1/audit/queries", h.listAuditQueries)
	}
	if h.deps.AuditSummarizer != nil {
		h.handle("GET /api/v1/audit/summary", h.auditSummary)
	}

	if h.deps.Health != nil {
		h.mux.HandleFunc("GET /healthz", h.deps.Health.LivenessHandler())
		h.mux.HandleFunc("GET /readyz", h.deps.Health.ReadinessHandler())
	}
	h.mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (h *Handler) handle(pattern string, fn http.HandlerFunc) {
	var handler http.Handler = fn
	if h.authMiddle != nil {
		handler = h.authMiddle(handler)
	}
	h.mux.Handle(pattern, handler)
}

// root handles GET /.
//
// @Summary      Liveness text
// @Description  Returns a plain text message when the bridge is running.
// @Tags         SimpleJSON
// @Produce      plain
// @Success      200  {string}  string
// @Router       / [get]
func (*Handler) root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, RootMessage)
}

// search handles POST /search.
//
// @Summary      List targets
// @Description  Returns the names of the configured query targets.
// @Tags         SimpleJSON
// @Produce      json
// @Success      200  {array}  string
// @Router       /search [post]
func (h *Handler) search(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Catalog.Names())
}

// query handles POST /query.
//
// @Summary      Query targets
// @Description  Runs the SQL of each requested target and returns one table per target.
// @Tags         SimpleJSON
// @Accept       json
// @Produce      json
// @Param        request  body  QueryRequest  true  "Targets and time range"
// @Success      200  {array}   Table
// @Failure      400  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /query [post]
func (h *Handler) query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	names := req.targetNames()
	if len(names) == 0 {
		slog.Debug("rejecting query", "error", engine.ErrInvalidRequest)
		writeError(w, statusFor(engine.ErrInvalidRequest), engine.ErrInvalidRequest.Detail)
		return
	}

	tr := req.Range.WithDefault(DayRange(h.deps.Now()))
	if tr.From.After(tr.To) {
		writeError(w, http.StatusBadRequest, "invalid time range")
		return
	}

	stmts := make([]string, len(names))
	for i, name := range names {
		stmt, err := h.deps.Catalog.SQL(name, tr)
		if err != nil {
			slog.Debug("rejecting query", "target", name, "error", err)
			writeError(w, http.StatusBadRequest, ErrUnknownTarget.Error())
			return
		}
		stmts[i] = stmt
	}

	// Tables keep request order; the first failure cancels the other runs.
	tables := make([]Table, len(names))
	ctx := r.Context()
	if h.deps.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deps.QueryTimeout)
		defer cancel()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelTargets)
	for i, name := range names {
		g.Go(func() error {
			rs, err := h.deps.Runner.Run(audit.WithTarget(ctx, name), stmts[i])
			if err != nil {
				return fmt.Errorf("target %s: %w", name, err)
			}
			tables[i] = NewTable(rs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("query failed", "kind", engine.KindOf(err), "error", err)
		writeError(w, statusFor(err), "query failed")
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

// testQuery handles GET /test-query.
//
// @Summary      Diagnostic query
// @Description  Runs the configured diagnostic SQL and returns the raw rows.
// @Tags         SimpleJSON
// @Produce      json
// @Success      200  {array}   object
// @Failure      500  {object}  errorResponse
// @Router       /test-query [get]
func (h *Handler) testQuery(w http.ResponseWriter, r *http.Request) {
	rs, err := h.deps.Runner.Run(audit.WithTarget(r.Context(), "test-query"), h.deps.TestSQL)
	if err != nil {
		slog.Error("test query failed", "kind", engine.KindOf(err), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "query failed", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rs.Rows)
}

// annotations handles POST /annotations.
//
// @Summary      Annotations
// @Description  Annotations are not supported; always returns an empty list.
// @Tags         SimpleJSON
// @Produce      json
// @Success      200  {array}  object
// @Router       /annotations [post]
func (*Handler) annotations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []any{})
}

// statusFor maps an engine failure to an HTTP status.
func statusFor(err error) int {
	if engine.KindOf(err) == engine.KindInvalidRequest {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
