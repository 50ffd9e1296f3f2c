package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/SscSPs/cbs_ledger/internal/platform/seed"
	"github.com/google/subcommands"
)

type seedCmd struct {
	file string
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "create accounts from a YAML chart of accounts" }
func (*seedCmd) Usage() string {
	return `cbs_ledger seed -file chart.yaml

  Creates every account listed in the chart. Accounts that already exist are
  skipped, so the same chart can be applied more than once.
`
}

func (s *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.file, "file", "chart.yaml", "Path to the chart of accounts.")
}

func (s *seedCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		return subcommands.ExitFailure
	}

	chart, err := seed.LoadFile(s.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	defer app.Close()

	result, err := seed.Apply(ctx, app.services.Account, chart)
	if err != nil {
		logger.Error("Failed to seed chart of accounts", slog.String("file", s.file), slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}

	fmt.Printf("created %d, skipped %d\n", len(result.Created), len(result.Skipped))
	return subcommands.ExitSuccess
}
