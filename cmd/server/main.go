package main

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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sumo/backend/internal/config"
	"github.com/sumo/backend/internal/handlers"
	"github.com/sumo/backend/internal/logging"
	appMiddleware "github.com/sumo/backend/internal/middleware"
	"github.com/sumo/backend/internal/services"
	"github.com/sumo/backend/internal/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exiting", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	logger, err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.SetupDatabase(cfg.DatabaseURL, cfg.MaxDBConnections)
	if err != nil {
		return err
	}
	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	// Social accounts live in MongoDB when configured; everything else stays relational.
	var accounts services.AccountStore = services.NewGormAccountStore(db)
	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		mongoStore, err := services.NewMongoAccountStore(connectCtx, cfg.MongoURI, cfg.MongoDB)
		cancel()
		if err != nil {
			return fmt.Errorf("connecting to mongo: %w", err)
		}
		defer mongoStore.Close(context.Background())
		accounts = mongoStore
		logger.Info("social accounts stored in mongo", "db", cfg.MongoDB)
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	shortener := services.NewBitlyShortener(cfg.BitlyAPIURL, cfg.BitlyLogin, cfg.BitlyAPIKey, cfg.BitlyTimeout)
	if shortener.Login == "" || shortener.APIKey == "" {
		logger.Warn("bitly credentials not set; short urls will be empty")
	}

	api := handlers.NewRouter(handlers.RouterDeps{
		Verifier:     verifier,
		Permissions:  services.NewPermissionService(db, cfg.PermissionCacheTTL),
		Moderation:   services.NewModerationService(accounts),
		Contributors: services.NewContributorService(db),
		Shortener:    shortener,
	})

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Mount("/", api)

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("support API server starting", "addr", cfg.ServerAddress)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newVerifier prefers Firebase ID tokens when a project is configured and
// falls back to HS256 tokens signed with JWT_SECRET.
func newVerifier(ctx context.Context, cfg *config.Config) (appMiddleware.TokenVerifier, error) {
	if cfg.FirebaseProjectID != "" {
		v, err := appMiddleware.NewFirebaseVerifier(ctx, appMiddleware.FirebaseAuthConfig{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsJSON: cfg.FirebaseCredentialsJSON,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing firebase auth: %w", err)
		}
		slog.Info("verifying firebase id tokens", "project", cfg.FirebaseProjectID)
		return v, nil
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("one of JWT_SECRET or FIREBASE_PROJECT_ID must be set")
	}
	return appMiddleware.NewJWTVerifier(cfg.JWTSecret), nil
}
