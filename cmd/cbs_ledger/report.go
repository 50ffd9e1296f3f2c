package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/google/subcommands"
)

const (
	reportTrialBalance = "trial-balance"
	reportBalanceSheet = "balance-sheet"
	reportLoanAging    = "loan-aging"
)

type reportCmd struct {
	kind string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "print a financial report as JSON" }
func (*reportCmd) Usage() string {
	return `cbs_ledger report -kind trial-balance|balance-sheet|loan-aging

  Generates the report from current ledger state and writes it to stdout.
`
}

func (r *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.kind, "kind", reportTrialBalance, "Report to generate: trial-balance, balance-sheet or loan-aging.")
}

func (r *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch r.kind {
	case reportTrialBalance, reportBalanceSheet, reportLoanAging:
	default:
		fmt.Fprintf(os.Stderr, "unknown report kind %q\n", r.kind)
		return subcommands.ExitUsageError
	}

	cfg, logger, err := loadConfig(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		return subcommands.ExitFailure
	}

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	defer app.Close()

	if err := writeReport(ctx, os.Stdout, app.services.Reporting, r.kind); err != nil {
		logger.Error("Failed to generate report", slog.String("kind", r.kind), slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeReport renders the report named by kind as indented JSON.
func writeReport(ctx context.Context, w io.Writer, reports portssvc.ReportingService, kind string) error {
	var out any
	switch kind {
	case reportTrialBalance:
		report, err := reports.GetTrialBalance(ctx)
		if err != nil {
			return err
		}
		out = dto.ToTrialBalanceResponse(report)
	case reportBalanceSheet:
		report, err := reports.GetBalanceSheet(ctx)
		if err != nil {
			return err
		}
		out = dto.ToBalanceSheetResponse(report)
	case reportLoanAging:
		buckets, err := reports.GetLoanAgingReport(ctx)
		if err != nil {
			return err
		}
		out = dto.ToLoanAgingResponse(buckets)
	default:
		return fmt.Errorf("unknown report kind %q", kind)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
