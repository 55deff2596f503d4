package services

import (
	"context"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/dto"
)

// AccountReaderSvc defines read operations on accounts.
type AccountReaderSvc interface {
	// GetAccountByID retrieves a single account.
	GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// GetAccountByIDs retrieves multiple accounts keyed by id. Every requested
	// id must resolve; a missing account is an error.
	GetAccountByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// ListAccounts retrieves a page of accounts.
	ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)
}

// AccountWriterSvc defines write operations on accounts.
type AccountWriterSvc interface {
	// CreateAccount validates and persists a new account.
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest, creator string) (*domain.Account, error)

	// DeactivateAccount marks an account inactive so it can no longer be posted to.
	DeactivateAccount(ctx context.Context, accountID string, actor string) error
}

// AccountSvcFacade combines all account service interfaces.
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}
