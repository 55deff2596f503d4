package services

import (
	portsrepo "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/repositories"
	portssvc "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/services"
)

// NewContainer creates a new service container with properly initialized dependencies.
func NewContainer(repos *portsrepo.RepositoryProvider, batchCfg BatchServiceConfig) *portssvc.ServiceContainer {
	accountSvc := NewAccountService(repos.AccountRepo)
	ledgerSvc := NewPostingService(repos.JournalRepo, accountSvc)
	compensator := NewCompensationHandler(ledgerSvc, repos.BatchRepo)
	batchSvc := NewBatchService(repos.BatchRepo, ledgerSvc, compensator, batchCfg)

	return &portssvc.ServiceContainer{
		Account: accountSvc,
		Ledger:  ledgerSvc,
		Batch:   batchSvc,
	}
}
