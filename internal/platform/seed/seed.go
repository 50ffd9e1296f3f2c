// Package seed loads a chart of accounts from YAML and creates the accounts it names.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/SscSPs/cbs_ledger/internal/middleware"
	"gopkg.in/yaml.v3"
)

// Chart is the YAML document:
//
//	accounts:
//	  - id: LOANS
//	    name: Loans Receivable
//	    type: ASSET
//	    currency: KES
//	  - id: LOAN-001
//	    name: Loan 001
//	    type: ASSET
//	    currency: KES
//	    parent: LOANS
type Chart struct {
	Accounts []dto.CreateAccountRequest `yaml:"accounts"`
}

// Result lists what Apply did with each account id.
type Result struct {
	Created []string
	Skipped []string
}

// LoadFile reads a chart from path.
func LoadFile(path string) (*Chart, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chart: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load decodes a chart and orders it so every parent precedes its children.
func Load(r io.Reader) (*Chart, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var chart Chart
	if err := dec.Decode(&chart); err != nil {
		if errors.Is(err, io.EOF) {
			return &chart, nil
		}
		return nil, fmt.Errorf("decode chart: %w", err)
	}

	ordered, err := parentsFirst(chart.Accounts)
	if err != nil {
		return nil, err
	}
	chart.Accounts = ordered
	return &chart, nil
}

// parentsFirst sorts accounts topologically on their parent link, keeping file
// order otherwise. Parents outside the chart are assumed to exist already.
func parentsFirst(accounts []dto.CreateAccountRequest) ([]dto.CreateAccountRequest, error) {
	index := make(map[string]int, len(accounts))
	for i, a := range accounts {
		if _, dup := index[a.AccountID]; dup {
			return nil, fmt.Errorf("account %s is listed more than once", a.AccountID)
		}
		index[a.AccountID] = i
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make([]int, len(accounts))
	out := make([]dto.CreateAccountRequest, 0, len(accounts))

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("account %s is part of a parent cycle", accounts[i].AccountID)
		}
		state[i] = visiting
		if p := accounts[i].ParentAccountID; p != nil {
			if j, ok := index[*p]; ok {
				if err := visit(j); err != nil {
					return err
				}
			}
		}
		state[i] = done
		out = append(out, accounts[i])
		return nil
	}

	for i := range accounts {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Apply creates every account in chart. Accounts that already exist are skipped,
// so a chart can be applied repeatedly.
func Apply(ctx context.Context, accounts portssvc.AccountWriterSvc, chart *Chart) (*Result, error) {
	logger := middleware.GetLoggerFromCtx(ctx)
	result := &Result{}

	for _, req := range chart.Accounts {
		if _, err := accounts.CreateAccount(ctx, req); err != nil {
			var exists *apperrors.AccountAlreadyExistsError
			if errors.As(err, &exists) {
				result.Skipped = append(result.Skipped, req.AccountID)
				continue
			}
			return result, fmt.Errorf("create account %s: %w", req.AccountID, err)
		}
		result.Created = append(result.Created, req.AccountID)
	}

	logger.Info("Chart of accounts applied", slog.Int("created", len(result.Created)), slog.Int("skipped", len(result.Skipped)))
	return result, nil
}
