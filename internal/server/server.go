// Package server exposes the engine over a local JSON-lines socket and an
// HTTP API.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/pixeld/internal/config"
	"github.com/jmylchreest/pixeld/internal/events"
	"github.com/jmylchreest/pixeld/internal/http/handlers"
	"github.com/jmylchreest/pixeld/internal/http/mw"
	"github.com/jmylchreest/pixeld/internal/http/routes"
	"github.com/jmylchreest/pixeld/internal/ws"
	"github.com/jmylchreest/pixeld/pkg/color"
)

// Controller is the engine surface the server drives.
type Controller interface {
	handlers.AreaController
	SetAreaColor(id int, c color.Color, on bool) error
	Dump(w io.Writer)
}

// Server serves the socket and HTTP APIs for a running engine.
type Server struct {
	logger     *slog.Logger
	cfg        *config.Config
	areas      Controller
	eventBus   *events.Bus
	info       handlers.VersionInfo
	socketPath string
	listener   net.Listener
	shutdown   chan struct{}
	wg         sync.WaitGroup
	rootCtx    context.Context
	rootCancel context.CancelFunc
	router     chi.Router
	hub        *ws.Hub
	httpServer *http.Server
}

// New creates a server for areas. Events published on bus are streamed to
// websocket and socket subscribers.
func New(logger *slog.Logger, cfg *config.Config, areas Controller, bus *events.Bus, info handlers.VersionInfo) *Server {
	rootCtx, rootCancel := context.WithCancel(context.Background())

	s := &Server{
		logger:     logger,
		cfg:        cfg,
		areas:      areas,
		eventBus:   bus,
		info:       info,
		socketPath: cfg.Server.UnixSocket,
		shutdown:   make(chan struct{}),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
		hub:        ws.NewHub(logger, bus),
	}
	s.router = s.newRouter()
	return s
}

// newRouter wires the Chi router, the Huma API and the raw endpoints.
func (s *Server) newRouter() chi.Router {
	keys := mw.NewKeySet(s.cfg.API.Keys)

	// Rate limiting runs at Chi level, before auth, to blunt brute force.
	router := chi.NewRouter()
	router.Use(mw.RequestLogging(s.logger))
	router.Use(mw.RateLimitByIP(mw.RateLimitFromConfig(s.cfg.API)))

	api := humachi.New(router, routes.NewHumaConfig(s.info.Version, ""))

	// Public routes have no Security set and pass through unauthenticated.
	api.UseMiddleware(mw.HumaAuth(api, s.logger, keys))

	routes.Register(api, &routes.Handlers{
		HealthCheck:  handlers.HealthCheck,
		VersionCheck: handlers.VersionHandler(s.info),
		Area:         &handlers.AreaHandler{Areas: s.areas},
		Logging:      &handlers.LoggingHandler{Logger: s.logger},
	})

	rawAuth := mw.RawAPIKeyAuth(s.logger, keys)
	router.With(rawAuth).Get("/api/v1/ws", ws.Handler(s.hub, s.logger))
	router.Handle("/metrics", promhttp.Handler())

	if !keys.Enabled() {
		s.logger.Warn("No API keys configured, mutating HTTP endpoints are unauthenticated")
	}
	return router
}

// HTTPHandler returns the HTTP API handler.
func (s *Server) HTTPHandler() http.Handler {
	return s.router
}

// SocketPath returns the path of the control socket.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening on the socket and, when configured, over HTTP.
func (s *Server) Start() error {
	s.logger.Info("Starting pixeld server")

	s.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in WebSocket hub", "recover", r)
			}
		}()
		s.hub.Run(s.rootCtx)
	})

	if s.socketPath != "" {
		if err := s.listenSocket(); err != nil {
			s.rootCancel()
			return err
		}
	}

	if s.cfg.API.ListenAddress != "" {
		ln, err := net.Listen("tcp", s.cfg.API.ListenAddress)
		if err != nil {
			s.rootCancel()
			return fmt.Errorf("failed to listen on %s: %w", s.cfg.API.ListenAddress, err)
		}
		s.logger.Info("Starting HTTP API server", "address", ln.Addr().String())

		s.httpServer = &http.Server{
			Handler:      s.router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		s.wg.Go(func() {
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("panic in HTTP server goroutine", "recover", r)
				}
			}()
			if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
				s.logger.Error("HTTP server failed", "error", err)
			}
			s.logger.Info("HTTP server stopped")
		})
	}

	return nil
}

// listenSocket replaces any stale socket file and starts accepting.
func (s *Server) listenSocket() error {
	sockDir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(sockDir, 0755); err != nil {
		return fmt.Errorf("failed to create socket directory %s: %w", sockDir, err)
	}

	if _, err := os.Stat(s.socketPath); err == nil {
		if err := os.Remove(s.socketPath); err != nil {
			return fmt.Errorf("failed to remove existing socket file %s: %w", s.socketPath, err)
		}
	}

	var err error
	s.listener, err = net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket %s: %w", s.socketPath, err)
	}
	s.logger.Info("Listening on Unix socket", "path", s.socketPath)

	s.wg.Add(1)
	go s.acceptConnections()
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() {
	s.logger.Info("Shutting down pixeld server")
	s.rootCancel()
	close(s.shutdown)

	if s.listener != nil {
		s.logger.Info("Closing Unix socket listener")
		s.listener.Close()
	}

	if s.httpServer != nil {
		s.logger.Info("Shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown failed", "error", err)
		}
	}

	s.logger.Info("Waiting for services to stop...")
	s.wg.Wait()
	s.logger.Info("pixeld server shut down gracefully")
}
