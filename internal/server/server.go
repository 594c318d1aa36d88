// Package server assembles the bridge from its configuration and runs the
// HTTP listener.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver for the audit store

	"github.com/txn2/dremio-simplejson/pkg/audit"
	auditpostgres "github.com/txn2/dremio-simplejson/pkg/audit/postgres"
	"github.com/txn2/dremio-simplejson/pkg/config"
	"github.com/txn2/dremio-simplejson/pkg/database/migrate"
	"github.com/txn2/dremio-simplejson/pkg/engine"
	"github.com/txn2/dremio-simplejson/pkg/health"
	bridgehttp "github.com/txn2/dremio-simplejson/pkg/http"
	"github.com/txn2/dremio-simplejson/pkg/simplejson"
)

var (
	_ simplejson.Runner       = (*engine.Executor)(nil)
	_ simplejson.AuditQuerier = (*auditpostgres.Store)(nil)
)

// Server is a configured bridge.
type Server struct {
	cfg      *config.Config
	executor *engine.Executor
	health   *health.Checker
	handler  http.Handler

	auditDB    *sql.DB
	auditStore *auditpostgres.Store
}

// Options holds optional collaborators, mainly for tests.
type Options struct {
	// AuditDB replaces opening cfg.Audit.DSN when audit is enabled.
	AuditDB *sql.DB

	// HTTPClient is used for engine requests.
	HTTPClient *http.Client
}

// New builds a bridge from cfg. When audit is enabled it connects to the
// audit database and applies migrations.
func New(cfg *config.Config, opts Options) (*Server, error) {
	s := &Server{cfg: cfg}

	var auditLogger audit.Logger = audit.NoopLogger{}
	if cfg.Audit.Enabled {
		if err := s.openAudit(opts.AuditDB); err != nil {
			return nil, err
		}
		auditLogger = s.auditStore
	}

	exec, err := engine.New(cfg.EngineConfig(), engine.Options{
		HTTPClient:  opts.HTTPClient,
		AuditLogger: auditLogger,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating engine executor: %w", err)
	}
	s.executor = exec

	targets := make([]simplejson.Target, len(cfg.Targets))
	for i, t := range cfg.Targets {
		targets[i] = simplejson.Target{Name: t.Name, SQL: t.SQL}
	}
	catalog, err := simplejson.NewCatalog(targets)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("building target catalog: %w", err)
	}

	s.health = health.NewChecker(
		health.WithVersion(Version),
		health.WithEngineSession(func() bool {
			_, ok := exec.Tokens().Get()
			return ok
		}),
	)

	deps := simplejson.Deps{
		Runner:  exec,
		Catalog: catalog,
		TestSQL: cfg.Test.SQL,
		Health:  s.health,
		Now:     func() time.Time { return time.Now().UTC() },
	}
	// The write timeout is validated to exceed max_wait, so a /query cut
	// short here still gets its error response written.
	deps.QueryTimeout = cfg.Engine.MaxWait
	if s.auditStore != nil {
		deps.AuditQuerier = s.auditStore
		deps.AuditSummarizer = s.auditStore
	}

	s.handler = bridgehttp.RequestID(simplejson.NewHandler(deps, bridgehttp.AuthMiddleware(authConfig(cfg.Auth))))
	return s, nil
}

func (s *Server) openAudit(db *sql.DB) error {
	if db == nil {
		var err error
		db, err = sql.Open("postgres", s.cfg.Audit.DSN)
		if err != nil {
			return fmt.Errorf("opening audit database: %w", err)
		}
		if err := db.Ping(); err != nil {
			_ = db.Close()
			return fmt.Errorf("connecting to audit database: %w", err)
		}
	}
	st, err := migrate.Run(db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("migrating audit database: %w", err)
	}
	if st.Dirty {
		slog.Warn("audit schema is dirty", "version", st.Version)
	}

	s.auditDB = db
	s.auditStore = auditpostgres.New(db, auditpostgres.Config{RetentionDays: s.cfg.Audit.RetentionDays})
	s.auditStore.StartRetention(s.cfg.Audit.CleanupInterval)
	slog.Info("query audit enabled", "schema_version", st.Version, "retention_days", s.cfg.Audit.RetentionDays)
	return nil
}

func authConfig(c config.AuthConfig) bridgehttp.AuthConfig {
	var out bridgehttp.AuthConfig
	if c.Basic.Enabled {
		out.BasicUsername = c.Basic.Username
		out.BasicPasswordHash = c.Basic.PasswordHash
	}
	if c.Bearer.Enabled {
		out.BearerSecret = []byte(c.Bearer.Secret)
		out.BearerIssuer = c.Bearer.Issuer
		out.BearerAudience = c.Bearer.Audience
	}
	return out
}

// Handler returns the bridge's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Health returns the readiness checker.
func (s *Server) Health() *health.Checker {
	return s.health
}

// Login authenticates against the engine. A failure is logged and
// returned; queries retry the login on demand.
func (s *Server) Login(ctx context.Context) error {
	if err := s.executor.Authenticate(ctx); err != nil {
		slog.Error("engine login failed", "host", s.cfg.Engine.Host, "error", err)
		return err
	}
	slog.Info("engine login succeeded", "host", s.cfg.Engine.Host)
	return nil
}

// Serve accepts connections on ln until ctx is canceled, then drains
// in-flight requests within the configured shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	if s.cfg.Server.LoginOnStart {
		_ = s.Login(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.health.SetReady()
	slog.Info("bridge listening", "address", ln.Addr().String(), "version", Version)

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.health.SetDraining()
	slog.Info("shutting down", "timeout", s.cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Address, err)
	}
	return s.Serve(ctx, ln)
}

// Close stops the audit cleanup routine and closes the audit database.
func (s *Server) Close() error {
	var errs []error
	if s.auditStore != nil {
		errs = append(errs, s.auditStore.Close())
	}
	if s.auditDB != nil {
		errs = append(errs, s.auditDB.Close())
	}
	return errors.Join(errs...)
}
