// Package server exposes the commands over HTTP and websockets
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"onlycut/internal/app"
	"onlycut/internal/logging"
	"onlycut/internal/transport"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const shutdownTimeout = 5 * time.Second

// Server routes requests to Commands. Websocket sessions and spawned
// probes live as long as the context given to New.
type Server struct {
	ctx      context.Context
	commands *app.Commands
	bus      *transport.Bus
	logger   *logging.Logger
	router   *mux.Router
	upgrader websocket.Upgrader

	allowedOrigins []string
}

// Option configures a Server
type Option func(*Server)

// WithAllowedOrigins lets pages served from origins call the API, e.g. the
// desktop frontend's dev server
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		for _, o := range origins {
			if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
				s.allowedOrigins = append(s.allowedOrigins, strings.ToLower(o))
			}
		}
	}
}

// New creates a server. bus must be the emitter the commands publish to.
func New(ctx context.Context, commands *app.Commands, bus *transport.Bus, logger *logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Server{
		ctx:      ctx,
		commands: commands,
		bus:      bus,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.routes()
	return s
}

// checkOrigin accepts non-browser clients, same-origin pages and the
// configured origins
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return slices.Contains(s.allowedOrigins, strings.ToLower(strings.TrimRight(origin, "/")))
}

// originGuard rejects cross-origin requests before they reach a handler
func (s *Server) originGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.checkOrigin(r) {
			s.logger.Warnf("Rejected %s %s from origin %s", r.Method, r.URL.Path, r.Header.Get("Origin"))
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) routes() {
	s.router.Use(s.originGuard)
	s.router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/api/probe", s.handleProbe).Methods(http.MethodPost)
	s.router.HandleFunc("/ws/resource", s.handleResource).Methods(http.MethodGet)
	s.router.HandleFunc("/ws/events", s.handleEvents).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until the server context is cancelled
func (s *Server) ListenAndServe(addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Server listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-s.ctx.Done():
	}

	s.logger.Infof("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
