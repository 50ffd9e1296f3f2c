package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/handlers"
	"github.com/SscSPs/cbs_ledger/internal/middleware"
	"github.com/SscSPs/cbs_ledger/internal/platform/config"
	"github.com/SscSPs/cbs_ledger/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/subcommands"
)

type serveCmd struct {
	migrate         bool
	shutdownTimeout time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the ledger HTTP API" }
func (*serveCmd) Usage() string {
	return `cbs_ledger serve [-migrate] [-shutdown-timeout 15s]

  Starts the HTTP API on PORT using the store named by STORAGE_DRIVER.
`
}

func (s *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&s.migrate, "migrate", true, "Apply pending migrations before serving (postgres only).")
	f.DurationVar(&s.shutdownTimeout, "shutdown-timeout", 15*time.Second, "How long in-flight requests get to finish on shutdown.")
}

func (s *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := loadConfig(os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		return subcommands.ExitFailure
	}

	if s.migrate && cfg.StorageDriver == config.StoragePostgres {
		logger.Info("Running database migrations...")
		if _, err := database.RunMigrations(logger, cfg.DatabaseURL, cfg.MigrationsPath, database.MigrateUp); err != nil {
			logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
			return subcommands.ExitFailure
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	defer app.Close()

	r, err := newRouter(app)
	if err != nil {
		logger.Error("Failed to build router", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.StorageDriver))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", slog.String("error", err.Error()))
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

func newRouter(app *application) (*gin.Engine, error) {
	cfg := app.cfg
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(app.logger), gin.Recovery())
	if err := r.SetTrustedProxies(nil); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	if slices.Contains(cfg.CORSAllowedOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	if cfg.RateLimit != "" {
		limiterInstance, err := middleware.NewMemoryLimiter(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid RATE_LIMIT: %w", err)
		}
		r.Use(middleware.RateLimit(limiterInstance))
	}

	handlers.RegisterRoutes(r, cfg, app.services, app.storeHealth)
	return r, nil
}
