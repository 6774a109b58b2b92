// Package server assembles the match service, its stores and the HTTP
// surface from a Config and runs them until the context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/okian/scout/internal/adapters/http/api"
	"github.com/okian/scout/internal/adapters/http/site"
	"github.com/okian/scout/internal/adapters/http/swagger"
	"github.com/okian/scout/internal/adapters/repository"
	"github.com/okian/scout/internal/adapters/ws"
	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/pkg/logger"
)

// HTTP server timeout constants. Writes are unbounded so websocket
// streams are not cut by the server.
const (
	readTimeout       = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	statsInterval     = 30 * time.Second
)

// Server is a wired, not yet listening, scouting service.
type Server struct {
	cfg     *config.Config
	svc     *service.Service
	hub     *ws.Hub
	handler http.Handler
	logger  logger.Logger
}

// New opens the configured snapshot store and wires the service, the
// websocket hub and every HTTP route.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	hub := ws.NewHub(ws.WithSendBuffer(cfg.WSSendBuffer), ws.WithLogger(log.Named("ws")))
	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithClock(cfg.AutoLengthSec, cfg.MatchLengthSec),
		service.WithTickHz(cfg.TickHz),
		service.WithFrameQueueSize(cfg.FrameQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithSnapshotStore(store),
		service.WithRankStore(repository.NewTreapStore()),
		service.WithPublisher(hub),
	)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	api.NewServer(svc, hub, cfg.MaxLeaderboardLimit).Register(ctx, mux)

	return &Server{cfg: cfg, svc: svc, hub: hub, handler: mux, logger: log}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (repository.SnapshotStore, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		store, err := repository.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		return store, nil
	default:
		return repository.NewMemorySnapshotStore(), nil
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler { return s.handler }

// Service returns the wired match service.
func (s *Server) Service() *service.Service { return s.svc }

// Run starts the service and serves on the configured address until ctx
// ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if err := s.svc.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer s.svc.Stop()
	defer func() { _ = s.hub.Close() }()

	go s.logStats(ctx)

	srv := &http.Server{
		Handler:           s.handler,
		ReadTimeout:       readTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	// Websockets are hijacked and not tracked by Shutdown.
	_ = s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}
	s.logger.Info(ctx, "server stopped")
	return nil
}

// logStats periodically logs service counters at debug level.
func (s *Server) logStats(ctx context.Context) {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := s.svc.GetStats()
			fields := make([]logger.Field, 0, len(stats))
			for k, v := range stats {
				fields = append(fields, logger.Any(k, v))
			}
			s.logger.Debug(ctx, "service stats", fields...)
		}
	}
}
