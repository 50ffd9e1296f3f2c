package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	boltstore "github.com/SscSPs/cbs_ledger/internal/adapters/database/bolt"
	"github.com/SscSPs/cbs_ledger/internal/adapters/database/guard"
	"github.com/SscSPs/cbs_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/cbs_ledger/internal/adapters/database/pgsql"
	"github.com/SscSPs/cbs_ledger/internal/adapters/locking"
	portslocking "github.com/SscSPs/cbs_ledger/internal/core/ports/locking"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/core/services"
	"github.com/SscSPs/cbs_ledger/internal/platform/config"
	"github.com/SscSPs/cbs_ledger/pkg/database"
	goredislib "github.com/redis/go-redis/v9"
)

// application is the wired ledger shared by every subcommand.
type application struct {
	cfg      *config.Config
	logger   *slog.Logger
	services *portssvc.ServiceContainer
	breaker  *guard.Breaker
	closers  []func()
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

// loadConfig loads configuration and installs the JSON logger as the default.
func loadConfig(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg, w)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger}

	repos, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.breaker = guard.NewBreaker(cfg.StorageDriver, guard.Config{
		ConsecutiveFailures: cfg.BreakerMaxFailures,
		OpenTimeout:         cfg.BreakerOpenTimeout,
		MaxRequests:         1,
	}, logger)
	repos = guard.Wrap(repos, app.breaker)

	locks, err := app.openLocks(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	ledgerCfg := services.DefaultLedgerConfig()
	ledgerCfg.MaxAttempts = cfg.MaxPostAttempts
	ledgerCfg.PostTimeout = cfg.PostTimeout
	ledgerCfg.LockTimeout = cfg.LockTimeout
	ledgerCfg.RetryBaseDelay = cfg.RetryBaseDelay

	app.services = services.NewServiceContainer(repos, locks, services.ContainerOptions{
		Ledger:  []services.LedgerServiceOption{services.WithLedgerConfig(ledgerCfg)},
		Account: []services.AccountServiceOption{services.WithSupportedCurrencies(cfg.SupportedCurrencies)},
	})
	return app, nil
}

func (a *application) openStore(ctx context.Context) (portsrepo.RepositoryProvider, error) {
	switch a.cfg.StorageDriver {
	case config.StoragePostgres:
		pool, err := database.NewPgxPool(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return portsrepo.RepositoryProvider{}, fmt.Errorf("failed to initialize database pool: %w", err)
		}
		a.closers = append(a.closers, func() { database.ClosePgxPool(pool) })
		return pgsql.NewRepositoryProvider(pool), nil
	case config.StorageBolt:
		store, err := boltstore.Open(a.cfg.BoltPath)
		if err != nil {
			return portsrepo.RepositoryProvider{}, err
		}
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				a.logger.Error("Failed to close bolt store", slog.String("error", err.Error()))
			}
		})
		a.logger.Info("Opened bolt store", slog.String("path", a.cfg.BoltPath))
		return boltstore.NewRepositoryProvider(store), nil
	default:
		a.logger.Warn("Using in-memory store, ledger state is lost on exit")
		return memory.NewRepositoryProvider(memory.NewStore()), nil
	}
}

func (a *application) openLocks(ctx context.Context) (portslocking.AccountLockCoordinator, error) {
	if a.cfg.RedisURL == "" {
		return locking.NewLocalCoordinator(), nil
	}

	opts, err := goredislib.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := goredislib.NewClient(opts)
	a.closers = append(a.closers, func() { _ = client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	lockOpts := locking.DefaultRedisLockOptions()
	if a.cfg.LockExpiry > 0 {
		lockOpts.Expiry = a.cfg.LockExpiry
	}
	a.logger.Info("Using redis account locks", slog.String("addr", opts.Addr))
	return locking.NewRedisCoordinator(client, lockOpts, a.logger), nil
}

// storeHealth reports the store breaker state for /health.
func (a *application) storeHealth() string {
	return a.breaker.State()
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
