// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: New opens the database and the upload
// store, builds the services on top of them, and hands the services to the
// handlers. Nothing below this package knows which concrete store or
// identity provider it is talking to.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/tailor/internal/auth"
	"github.com/sakif/tailor/internal/config"
	"github.com/sakif/tailor/internal/handler"
	"github.com/sakif/tailor/internal/middleware"
	"github.com/sakif/tailor/internal/repository/sqldb"
	"github.com/sakif/tailor/internal/service"
	"github.com/sakif/tailor/internal/storage"
)

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it during shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqldb.DB
	store  storage.Storage
}

// New opens the database and the upload store named by cfg and wires the
// routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	dialect, err := sqldb.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sqldb.New(dialect, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening upload storage: %w", err)
	}

	s, err := newServer(cfg, logger, db, store)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newServer wires an already opened database and store. Tests call it with
// an in-memory database and a temp directory.
func newServer(cfg *config.Config, logger *slog.Logger, db *sqldb.DB, store storage.Storage) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func openStorage(cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case "", "local":
		return storage.NewLocal(cfg.LocalDir)
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return storage.NewMinIO(ctx, storage.MinIOConfig{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			UseSSL:          cfg.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /api/health                     → liveness + database ping
// GET    /api/movement-types             → movement type lookup
// GET    /api/parts/{partType}           → list a catalog
// GET    /api/parts/{partType}/{id}      → one part
// POST   /api/parts/{partType}           → create           [user]
// PUT    /api/parts/{partType}/{id}      → update           [user, owner]
// DELETE /api/parts/{partType}/{id}      → delete           [user, owner]
// GET    /api/my/parts                   → caller's parts   [user]
// GET    /api/builds                     → caller's builds  [user]
// POST   /api/builds                     → save a build     [user]
// DELETE /api/builds/{id}                → delete a build   [user, owner]
// POST   /api/builds/{id}/publish        → publish toggle   [user, owner]
// GET    /api/me, /api/profile           → caller's profile [user]
// PUT    /api/profile                    → edit profile     [user]
// POST   /api/uploads/presign            → reserve a key    [user]
// PUT    /api/uploads/put?key=           → upload bytes     [user]
// GET    /api/uploads/file/*             → serve an upload
// GET    /metrics                        → Prometheus
// GET    /auth/login|callback|logout     → Google login (only when configured)
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the logger can print it; Recoverer sits inside
// the logger so a panic is still logged as a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)

	tokens, err := auth.NewTokenService(s.config.Session.Secret, s.config.Session.TTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// === Services ===
	partService := service.NewPartService(s.db.Parts(), s.db.MovementTypes(), s.logger)
	buildService := service.NewBuildService(s.db.Builds(), s.logger)
	userService := service.NewUserService(s.db.Users(), s.logger)
	authService := service.NewAuthService(userService, tokens, s.logger)
	uploadService := service.NewUploadService(s.store, s.config.Storage.MaxUploadBytes, s.logger)

	// === Handlers ===
	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	partHandler := handler.NewPartHandler(partService, s.logger)
	buildHandler := handler.NewBuildHandler(buildService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	uploadHandler := handler.NewUploadHandler(uploadService, s.logger)

	requireUser := auth.RequireUser(tokens, userService, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.HandleHealth)
		r.Get("/movement-types", partHandler.HandleMovementTypes)

		r.Get("/parts/{partType}", partHandler.HandleList)
		r.Get("/parts/{partType}/{id}", partHandler.HandleGet)
		r.Get("/uploads/file/*", uploadHandler.HandleFile)
		r.Head("/uploads/file/*", uploadHandler.HandleFile)

		r.With(auth.OptionalUser(tokens, userService)).Get("/me", userHandler.HandleMe)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Post("/parts/{partType}", partHandler.HandleCreate)
			r.Put("/parts/{partType}/{id}", partHandler.HandleUpdate)
			r.Patch("/parts/{partType}/{id}", partHandler.HandleUpdate)
			r.Delete("/parts/{partType}/{id}", partHandler.HandleDelete)
			r.Get("/my/parts", partHandler.HandleMine)

			r.Get("/builds", buildHandler.HandleList)
			r.Post("/builds", buildHandler.HandleCreate)
			r.Delete("/builds/{id}", buildHandler.HandleDelete)
			r.Post("/builds/{id}/publish", buildHandler.HandlePublish)

			r.Get("/profile", userHandler.HandleProfile)
			r.Put("/profile", userHandler.HandleUpdateProfile)

			r.Post("/uploads/presign", uploadHandler.HandlePresign)
			r.Put("/uploads/put", uploadHandler.HandlePut)
		})
	})

	s.router.Handle("/metrics", promhttp.Handler())

	// === Login ===
	// Without Google credentials the API still serves the public catalog;
	// every route behind requireUser answers 401.
	if !s.config.Google.LoginEnabled() {
		s.logger.Warn("GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET not set, login is disabled")
		return nil
	}

	provider := auth.NewGoogleProvider(
		s.config.Google.ClientID,
		s.config.Google.ClientSecret,
		s.config.Google.CallbackURL,
	)
	authHandler := handler.NewAuthHandler(provider, authService, s.config.Server.FrontendURL, s.config.Server.SecureCookies, s.logger)

	s.router.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.HandleLogin)
		r.Get("/callback", authHandler.HandleCallback)
		r.Get("/logout", authHandler.HandleLogout)
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// On SIGINT or SIGTERM the server stops accepting connections, gives
// in-flight requests 30 seconds to finish, and then closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second, // uploads go through the server
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", string(s.db.Dialect())),
			slog.String("storage", s.store.Backend()),
			slog.Bool("login", s.config.Google.LoginEnabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
