package mapping

import (
	"database/sql"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/SscSPs/cbs_ledger/internal/models"
)

// ToModelAccount converts a domain Account to a model Account
func ToModelAccount(d domain.Account) models.Account {
	return models.Account{
		AccountID:       d.AccountID,
		Name:            d.Name,
		AccountType:     string(d.AccountType),
		CurrencyCode:    d.CurrencyCode,
		ParentAccountID: sql.NullString{String: d.ParentAccountID, Valid: d.ParentAccountID != ""},
		Balance:         d.Balance,
		Version:         d.Version,
		AuditFields: models.AuditFields{
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
	}
}

// ToDomainAccount converts a model Account to a domain Account
func ToDomainAccount(m models.Account) domain.Account {
	return domain.Account{
		AccountID:       m.AccountID,
		Name:            m.Name,
		AccountType:     domain.AccountType(m.AccountType),
		CurrencyCode:    m.CurrencyCode,
		ParentAccountID: m.ParentAccountID.String,
		Balance:         m.Balance,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// ToModelLoan converts a domain Loan to a model Loan
func ToModelLoan(d domain.Loan) models.Loan {
	m := models.Loan{
		AccountID:   d.AccountID,
		Reference:   d.Reference,
		Borrower:    d.Borrower,
		Principal:   d.Principal,
		DisbursedAt: d.DisbursedAt,
	}
	if d.DueDate != nil {
		m.DueDate = sql.NullTime{Time: *d.DueDate, Valid: true}
	}
	return m
}

// ToDomainLoan converts a model Loan to a domain Loan
func ToDomainLoan(m models.Loan) domain.Loan {
	d := domain.Loan{
		AccountID:   m.AccountID,
		Reference:   m.Reference,
		Borrower:    m.Borrower,
		Principal:   m.Principal,
		DisbursedAt: m.DisbursedAt,
	}
	if m.DueDate.Valid {
		due := m.DueDate.Time
		d.DueDate = &due
	}
	return d
}
