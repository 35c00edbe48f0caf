// Package app wires the battle archive, runner and HTTP API into a server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/louisbranch/autoresolve/internal/platform/timeouts"
	httpapi "github.com/louisbranch/autoresolve/internal/services/battle/api/http"
	"github.com/louisbranch/autoresolve/internal/services/battle/archive"
	"github.com/louisbranch/autoresolve/internal/services/battle/domain/engine"
	"github.com/louisbranch/autoresolve/internal/services/battle/storage/sqlite"
	"go.uber.org/zap"
)

// Config configures the battle server.
type Config struct {
	Addr           string
	DBPath         string
	MaxRounds      int
	RoundLimit     int
	AllowLua       bool
	AllowedOrigins []string
	Logger         *zap.Logger
}

// Server serves the battle API over HTTP.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	store      *sqlite.Store
	logger     *zap.Logger
}

// New opens the archive and binds the listener.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	store, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open battle store: %w", err)
	}

	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	runner := archive.NewRunner(store, engine.Config{MaxRounds: cfg.MaxRounds, Logger: logger})
	api := httpapi.NewServer(store, runner, httpapi.Options{
		Logger:      logger,
		RoundLimit:  cfg.RoundLimit,
		AllowLua:    cfg.AllowLua,
		CheckOrigin: originChecker(cfg.AllowedOrigins),
	})
	return &Server{
		httpServer: &http.Server{
			Handler:           api.Handler(),
			ReadHeaderTimeout: timeouts.ReadHeader,
			IdleTimeout:       timeouts.Idle,
		},
		listener: listener,
		store:    store,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve runs the HTTP server until the context ends.
//
// On cancellation, it performs a bounded shutdown so in-flight requests
// are drained before hard close.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("battle server is nil")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	s.logger.Info("battle server listening", zap.String("addr", s.Addr()))
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		err := s.httpServer.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases the archive.
func (s *Server) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Run starts a server and blocks until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := server.Close(); err != nil {
			server.logger.Warn("close battle store", zap.Error(err))
		}
	}()
	return server.Serve(ctx)
}

// originChecker accepts listed origins, or any origin for "*". An empty list
// keeps the websocket same-origin check.
func originChecker(allowed []string) func(*http.Request) bool {
	cleaned := make([]string, 0, len(allowed))
	for _, origin := range allowed {
		if origin = strings.TrimSpace(origin); origin != "" {
			cleaned = append(cleaned, origin)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	if slices.Contains(cleaned, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(cleaned, origin)
	}
}
