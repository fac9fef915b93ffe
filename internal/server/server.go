// Package server is the wiring layer: it assembles the database, hub,
// controller, services, and handlers, maps them onto routes, and owns
// startup/shutdown.
//
// The dependency chain is built in one place (the composition root):
//
//	sqlite.DB → AuthService → AuthHandler        (HTTP boundary)
//	sqlite.DB + SessionRegistry + Hub → Controller → WSHandler (realtime)
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/pollchat/internal/auth"
	"github.com/sakif/pollchat/internal/handler"
	"github.com/sakif/pollchat/internal/middleware"
	"github.com/sakif/pollchat/internal/realtime"
	sqliteRepo "github.com/sakif/pollchat/internal/repository/sqlite"
	"github.com/sakif/pollchat/internal/service"
	"github.com/sakif/pollchat/internal/session"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port        int
	StaticDir   string
	DBPath      string
	JWTSecret   string
	PollOptions []string
}

// Server owns the HTTP listener, the hub goroutine, and the database
// connection; Start runs them and Close is implied by Start returning.
type Server struct {
	router   *chi.Mux
	config   Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	hub      *realtime.Hub
	sessions *session.Registry
}

// New assembles the full dependency graph.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath, cfg.PollOptions)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       db,
		hub:      realtime.NewHub(logger),
		sessions: session.NewRegistry(),
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes wires middleware, handlers, and routes.
//
// Route map:
//
//	POST /register  → create account
//	POST /login     → credential login
//	POST /logout    → clear session cookie
//	GET  /api/me    → authenticated profile (JWT cookie)
//	GET  /ws        → websocket upgrade into the event hub
//	GET  /*         → static frontend
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	authService := service.NewAuthService(s.db, passwords, tokens, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)

	controller := realtime.NewController(s.hub, s.sessions, s.db, s.db, s.db, s.logger)
	wsHandler := handler.NewWSHandler(s.hub, controller, s.logger)

	s.router.Post("/register", authHandler.HandleRegister)
	s.router.Post("/login", authHandler.HandleLogin)
	s.router.Post("/logout", authHandler.HandleLogout)

	s.router.Route("/api", func(r chi.Router) {
		r.With(auth.RequireAuth(tokens)).Get("/me", authHandler.HandleMe)
	})

	s.router.Get("/ws", wsHandler.HandleWS)

	// Static frontend. The client script and markup are boundary assets;
	// everything dynamic happens over /ws.
	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/*", fileServer)

	return nil
}

// Start runs the hub and the HTTP server, blocking until SIGINT/SIGTERM or a
// listener error. Shutdown order: stop accepting requests, give in-flight
// requests 30s, cancel the hub (closing every websocket), close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
		// No blanket ReadTimeout/WriteTimeout: they would also kill live
		// websocket connections. Header reads still get a bound.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		stopHub()
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
