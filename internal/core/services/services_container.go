package services

import (
	"github.com/SscSPs/cbs_ledger/internal/core/ports/locking"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
)

// ContainerOptions carries per-service options into NewServiceContainer.
type ContainerOptions struct {
	Ledger    []LedgerServiceOption
	Account   []AccountServiceOption
	Reporting []ReportingServiceOption
	Loan      []LoanServiceOption
}

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(repos portsrepo.RepositoryProvider, locks locking.AccountLockCoordinator, opts ContainerOptions) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// The ledger goes first; loan postings are routed through it.
	container.Ledger = NewLedgerService(repos, locks, opts.Ledger...)
	container.Account = NewAccountService(repos.AccountRepo, repos.JournalRepo, opts.Account...)
	container.Reporting = NewReportingService(repos.AccountRepo, repos.LoanRepo, opts.Reporting...)
	container.Loan = NewLoanService(container.Ledger, repos.LoanRepo, opts.Loan...)

	return container
}
