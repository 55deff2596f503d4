package services_test

import (
	"context"
	"time"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	portsrepo "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/repositories"
	portssvc "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/services"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// --- Mock JournalRepository ---

type MockJournalRepository struct {
	mock.Mock
}

var _ portsrepo.JournalRepositoryFacade = (*MockJournalRepository)(nil)

func (m *MockJournalRepository) SaveJournal(ctx context.Context, journal domain.Journal, transactions []domain.Transaction, balanceChanges map[string]decimal.Decimal) error {
	args := m.Called(ctx, journal, transactions, balanceChanges)
	return args.Error(0)
}

func (m *MockJournalRepository) FindJournalByID(ctx context.Context, journalID string) (*domain.Journal, error) {
	args := m.Called(ctx, journalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Journal), args.Error(1)
}

func (m *MockJournalRepository) FindTransactionsByJournalID(ctx context.Context, journalID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, journalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockJournalRepository) UpdateJournalStatusAndLinks(ctx context.Context, journalID string, status domain.JournalStatus, reversingJournalID *string, actor string, updatedAt time.Time) error {
	args := m.Called(ctx, journalID, status, reversingJournalID, actor, updatedAt)
	return args.Error(0)
}

// --- Mock AccountRepository ---

type MockAccountRepository struct {
	mock.Mock
}

var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) DeactivateAccount(ctx context.Context, accountID string, actor string, now time.Time) error {
	args := m.Called(ctx, accountID, actor, now)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountsByIDsForUpdate(ctx context.Context, tx pgx.Tx, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, tx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) UpdateAccountBalancesInTx(ctx context.Context, tx pgx.Tx, balanceChanges map[string]decimal.Decimal, actor string, now time.Time) error {
	args := m.Called(ctx, tx, balanceChanges, actor, now)
	return args.Error(0)
}

// --- Mock AccountReaderSvc (as used by the posting service) ---

type MockAccountReader struct {
	mock.Mock
}

var _ portssvc.AccountReaderSvc = (*MockAccountReader)(nil)

func (m *MockAccountReader) GetAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountReader) GetAccountByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountReader) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

// --- Mock BatchRepository ---

type MockBatchRepository struct {
	mock.Mock
}

var _ portsrepo.BatchRepositoryFacade = (*MockBatchRepository)(nil)

func (m *MockBatchRepository) SaveBatch(ctx context.Context, batch domain.Batch) error {
	args := m.Called(ctx, batch)
	return args.Error(0)
}

func (m *MockBatchRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Batch), args.Error(1)
}

func (m *MockBatchRepository) ListBatches(ctx context.Context, limit int, nextToken *string) ([]domain.Batch, *string, error) {
	args := m.Called(ctx, limit, nextToken)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	var returnedNextToken *string
	if args.Get(1) != nil {
		tokenVal := args.Get(1).(string)
		returnedNextToken = &tokenVal
	}
	return args.Get(0).([]domain.Batch), returnedNextToken, args.Error(2)
}

func (m *MockBatchRepository) MarkBatchProcessing(ctx context.Context, batchID string, actor string, now time.Time) error {
	args := m.Called(ctx, batchID, actor, now)
	return args.Error(0)
}

func (m *MockBatchRepository) CancelBatch(ctx context.Context, batchID string, actor string, now time.Time) error {
	args := m.Called(ctx, batchID, actor, now)
	return args.Error(0)
}

func (m *MockBatchRepository) FinalizeBatch(ctx context.Context, batchID string, status domain.BatchStatus, rejectionReason *string, compensationIncomplete bool, actor string, now time.Time) error {
	args := m.Called(ctx, batchID, status, rejectionReason, compensationIncomplete, actor, now)
	return args.Error(0)
}

func (m *MockBatchRepository) UpdateBatchItem(ctx context.Context, item domain.BatchItem) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockBatchRepository) NextBatchNumber(ctx context.Context, date time.Time) (string, error) {
	args := m.Called(ctx, date)
	return args.String(0), args.Error(1)
}

// --- Mock LedgerPosterSvc ---

type MockLedgerPoster struct {
	mock.Mock
}

var _ portssvc.LedgerPosterSvc = (*MockLedgerPoster)(nil)

func (m *MockLedgerPoster) PostEntry(ctx context.Context, entry domain.JournalEntry, actor string) (string, error) {
	args := m.Called(ctx, entry, actor)
	return args.String(0), args.Error(1)
}

func (m *MockLedgerPoster) ReverseJournal(ctx context.Context, journalID string, actor string) (string, error) {
	args := m.Called(ctx, journalID, actor)
	return args.String(0), args.Error(1)
}

// --- Mock BatchCompensator ---

type MockCompensator struct {
	mock.Mock
}

var _ portssvc.BatchCompensator = (*MockCompensator)(nil)

func (m *MockCompensator) CompensatePostedItems(ctx context.Context, posted []domain.BatchItem, actor string) bool {
	args := m.Called(ctx, posted, actor)
	return args.Bool(0)
}
