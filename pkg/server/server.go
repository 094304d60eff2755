package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/exceller/pkg/config"
	"mercator-hq/exceller/pkg/history"
	"mercator-hq/exceller/pkg/runner"
	"mercator-hq/exceller/pkg/schema/store"
	"mercator-hq/exceller/pkg/telemetry/health"
	"mercator-hq/exceller/pkg/telemetry/tracing"
)

// Schemas is the schema set the server serves.
type Schemas interface {
	Get(name string) (*store.Entry, error)
	List() []*store.Entry
	Version() string
}

// Deps are the collaborators of a Server. Schemas and Runner are required.
type Deps struct {
	Schemas Schemas
	Runner  *runner.Runner

	// History backs GET /v1/runs. Nil disables the route.
	History history.Storage

	// Health serves the probes. Nil disables them.
	Health *health.Checker

	// Metrics is served on cfg.Telemetry.Metrics.Path when metrics are enabled.
	Metrics http.Handler

	Tracer *tracing.Tracer
	Logger *slog.Logger

	Version   string
	Commit    string
	BuildTime string
}

// Server is the transformation HTTP service.
type Server struct {
	cfg     *config.Config
	deps    Deps
	logger  *slog.Logger
	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
	running    bool
}

// New builds a server. It does not listen until Start.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Schemas == nil {
		return nil, errors.New("server: schemas are required")
	}
	if deps.Runner == nil {
		return nil, errors.New("server: runner is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = tracing.Noop()
	}
	s := &Server{cfg: cfg, deps: deps, logger: deps.Logger}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the routed handler with its middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and blocks until ctx is done or
// the listener fails. Cancelling ctx shuts the server down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Server.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		ln.Close()
		return errors.New("server is already running")
	}
	s.running = true
	s.httpServer = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	srv := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	tlsCfg := s.cfg.Server.TLS
	go func() {
		s.logger.Info("Starting server", "address", ln.Addr().String(), "tls", tlsCfg.Enabled())
		var err error
		if tlsCfg.Enabled() {
			err = srv.ServeTLS(ln, tlsCfg.CertFile, tlsCfg.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	}
}

// Shutdown stops accepting connections and waits for in-flight requests up
// to the configured shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	running := s.running
	s.running = false
	s.mu.Unlock()
	if !running || srv == nil {
		return nil
	}

	s.logger.Info("Initiating graceful shutdown", "timeout", s.cfg.Server.ShutdownTimeout.String())
	if s.cfg.Server.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
		defer cancel()
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	keys := newAPIKeys(s.cfg.Server.APIKeys)
	mux.Handle("POST /v1/transform/{schema...}", keys.require(s.logger, http.HandlerFunc(s.handleTransform)))
	mux.Handle("GET /v1/schemas", keys.require(s.logger, http.HandlerFunc(s.handleSchemas)))
	if s.deps.History != nil {
		mux.Handle("GET /v1/runs", keys.require(s.logger, http.HandlerFunc(s.handleRuns)))
	}

	if s.deps.Health != nil {
		mux.Handle("/healthz", s.deps.Health.LivenessHandler())
		mux.Handle("/readyz", s.deps.Health.ReadinessHandler())
	}
	mux.Handle("/version", health.VersionHandler(s.deps.Version, s.deps.Commit, s.deps.BuildTime))

	if m := s.cfg.Telemetry.Metrics; m.Enabled && s.deps.Metrics != nil {
		mux.Handle("GET "+m.Path, s.deps.Metrics)
	}

	// Recovery is outermost so panics in any middleware are caught.
	return chain(mux,
		recoveryMiddleware(s.logger),
		requestIDMiddleware,
		loggingMiddleware(s.logger),
		s.deps.Tracer.Middleware,
	)
}
