package services

import (
	"context"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
)

// LedgerPosterSvc is the only component permitted to mutate account balances.
// PostEntry atomically creates a durable journal record and applies each
// line's signed delta to the corresponding account balance.
type LedgerPosterSvc interface {
	// PostEntry posts one validated journal entry and returns the id of the
	// created journal record.
	PostEntry(ctx context.Context, entry domain.JournalEntry, actor string) (string, error)

	// ReverseJournal creates and posts a journal whose lines swap debit and
	// credit of the original, links the two records, and marks the original
	// REVERSED. It returns the reversing journal's id.
	ReverseJournal(ctx context.Context, journalID string, actor string) (string, error)
}

// JournalReaderSvc defines read access to posted journals.
type JournalReaderSvc interface {
	// GetJournalByID retrieves a journal with its transactions.
	GetJournalByID(ctx context.Context, journalID string) (*domain.Journal, error)
}

// LedgerSvcFacade combines posting and journal read operations.
type LedgerSvcFacade interface {
	LedgerPosterSvc
	JournalReaderSvc
}
