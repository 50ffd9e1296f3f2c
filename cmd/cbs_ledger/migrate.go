package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/cbs_ledger/pkg/database"
	"github.com/google/subcommands"
)

type migrateCmd struct {
	down bool
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply the postgres schema migrations" }
func (*migrateCmd) Usage() string {
	return `cbs_ledger migrate [-down]

  Applies every pending migration from MIGRATIONS_PATH to PGSQL_URL.
  With -down, rolls every migration back.
`
}

func (m *migrateCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&m.down, "down", false, "Roll back all migrations instead of applying them.")
}

func (m *migrateCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		return subcommands.ExitFailure
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "PGSQL_URL must be set to run migrations")
		return subcommands.ExitUsageError
	}

	direction := database.MigrateUp
	if m.down {
		direction = database.MigrateDown
	}

	changed, err := database.RunMigrations(logger, cfg.DatabaseURL, cfg.MigrationsPath, direction)
	if err != nil {
		logger.Error("Migration failed", slog.String("direction", string(direction)), slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	if !changed {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.", slog.String("direction", string(direction)))
	}
	return subcommands.ExitSuccess
}
