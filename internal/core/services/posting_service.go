package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/apperrors"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	portsrepo "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/repositories"
	portssvc "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/services"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/middleware"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/utils/accounting"
)

var (
	ErrEntryMinAccounts = errors.New("journal entry must affect at least two different accounts")
	ErrAccountNotFound  = errors.New("account not found")
	ErrAccountInactive  = errors.New("account is inactive")
	ErrCurrencyMismatch = errors.New("accounts in a journal entry must share one currency")
)

// postingService is the ledger poster: the only component that mutates
// account balances. One PostEntry call produces one durable journal record
// plus its balance deltas inside a single database transaction.
type postingService struct {
	journalRepo portsrepo.JournalRepositoryFacade
	accountSvc  portssvc.AccountReaderSvc
}

// NewPostingService creates a new ledger posting service.
func NewPostingService(journalRepo portsrepo.JournalRepositoryFacade, accountSvc portssvc.AccountReaderSvc) portssvc.LedgerSvcFacade {
	return &postingService{
		journalRepo: journalRepo,
		accountSvc:  accountSvc,
	}
}

var _ portssvc.LedgerSvcFacade = (*postingService)(nil)

// PostEntry posts one validated journal entry: it re-checks the balance
// invariant, resolves the affected accounts, computes the signed balance
// deltas per the account-type convention, and persists journal, transactions
// and balance updates atomically. Returns the created journal's id.
func (s *postingService) PostEntry(ctx context.Context, entry domain.JournalEntry, actor string) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	// Defensive re-check; entries are validated at admission but may sit in a
	// batch between admission and processing.
	if err := accounting.ValidateEntry(entry); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	accountIDs := make([]string, 0, len(entry.Lines))
	accountSet := make(map[string]bool)
	for _, line := range entry.Lines {
		if !accountSet[line.AccountID] {
			accountSet[line.AccountID] = true
			accountIDs = append(accountIDs, line.AccountID)
		}
	}
	if len(accountIDs) < 2 {
		return "", fmt.Errorf("%w: %v", apperrors.ErrValidation, ErrEntryMinAccounts)
	}

	accountsMap, err := s.accountSvc.GetAccountByIDs(ctx, accountIDs)
	if err != nil {
		logger.Error("Failed to fetch accounts for posting", slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to fetch accounts: %w", err)
	}

	// All affected accounts must be active and share one currency; that
	// currency becomes the journal's currency.
	currencyCode := ""
	for _, id := range accountIDs {
		acc := accountsMap[id]
		if !acc.IsActive {
			return "", fmt.Errorf("%w: %v: %s", apperrors.ErrValidation, ErrAccountInactive, id)
		}
		if currencyCode == "" {
			currencyCode = acc.CurrencyCode
		} else if acc.CurrencyCode != currencyCode {
			return "", fmt.Errorf("%w: %v: account %s has %s, expected %s", apperrors.ErrValidation, ErrCurrencyMismatch, id, acc.CurrencyCode, currencyCode)
		}
	}

	now := time.Now().UTC()
	journalID := uuid.NewString()

	transactions := make([]domain.Transaction, len(entry.Lines))
	debitTotal := decimal.Zero
	for i, line := range entry.Lines {
		amount := line.Debit
		txnType := domain.Debit
		if line.Credit.IsPositive() {
			amount = line.Credit
			txnType = domain.Credit
		} else {
			debitTotal = debitTotal.Add(line.Debit)
		}
		transactions[i] = domain.Transaction{
			TransactionID:   uuid.NewString(),
			JournalID:       journalID,
			AccountID:       line.AccountID,
			Amount:          amount,
			TransactionType: txnType,
			CurrencyCode:    currencyCode,
			Notes:           line.Description,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actor,
				LastUpdatedAt: now,
				LastUpdatedBy: actor,
			},
		}
	}

	balanceChanges, err := s.calculateBalanceChanges(transactions, accountsMap)
	if err != nil {
		logger.Error("Failed to calculate balance changes", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		return "", err
	}

	journal := domain.Journal{
		JournalID:    journalID,
		JournalDate:  entry.EntryDate,
		Description:  entry.Description,
		Reference:    entry.Reference,
		IsAdjustment: entry.IsAdjustment,
		CurrencyCode: currencyCode,
		Status:       domain.Posted,
		Amount:       debitTotal,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor,
			LastUpdatedAt: now,
			LastUpdatedBy: actor,
		},
	}

	if err := s.journalRepo.SaveJournal(ctx, journal, transactions, balanceChanges); err != nil {
		logger.Error("Failed to save journal", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		return "", fmt.Errorf("failed to save journal: %w", err)
	}

	logger.Info("Journal posted successfully", slog.String("journal_id", journalID))
	return journalID, nil
}

// ReverseJournal creates a new journal that reverses a previously posted one:
// amount-preserving, side-swapping, linked in both directions. The original
// journal ends REVERSED.
func (s *postingService) ReverseJournal(ctx context.Context, journalID string, actor string) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	originalJournal, err := s.journalRepo.FindJournalByID(ctx, journalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", apperrors.ErrNotFound
		}
		logger.Error("Failed to fetch original journal for reversal", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		return "", fmt.Errorf("failed to retrieve original journal: %w", err)
	}

	if originalJournal.Status != domain.Posted {
		return "", fmt.Errorf("%w: journal status is %s, expected POSTED", apperrors.ErrConflict, originalJournal.Status)
	}
	if originalJournal.IsReversal() {
		return "", fmt.Errorf("%w: cannot reverse a journal that is already a reversal", apperrors.ErrConflict)
	}

	originalTransactions, err := s.journalRepo.FindTransactionsByJournalID(ctx, journalID)
	if err != nil {
		logger.Error("Failed to fetch original transactions for reversal", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		return "", fmt.Errorf("failed to retrieve original transactions: %w", err)
	}

	now := time.Now().UTC()
	newJournalID := uuid.NewString()

	reversingTransactions := make([]domain.Transaction, len(originalTransactions))
	accountIDs := make([]string, 0, len(originalTransactions))
	for i, origTx := range originalTransactions {
		accountIDs = append(accountIDs, origTx.AccountID)
		reversingTransactions[i] = domain.Transaction{
			TransactionID:   uuid.NewString(),
			JournalID:       newJournalID,
			AccountID:       origTx.AccountID,
			Amount:          origTx.Amount,
			TransactionType: origTx.TransactionType.Opposite(),
			CurrencyCode:    origTx.CurrencyCode,
			Notes:           origTx.Notes,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actor,
				LastUpdatedAt: now,
				LastUpdatedBy: actor,
			},
		}
	}

	accountsMap, err := s.accountSvc.GetAccountByIDs(ctx, accountIDs)
	if err != nil {
		logger.Error("Failed to fetch accounts for reversal balance calculation", slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to get account details for reversal: %w", err)
	}

	balanceChanges, err := s.calculateBalanceChanges(reversingTransactions, accountsMap)
	if err != nil {
		logger.Error("Failed to calculate reversal balance changes", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		return "", err
	}

	reversingJournal := domain.Journal{
		JournalID:         newJournalID,
		JournalDate:       originalJournal.JournalDate,
		Description:       fmt.Sprintf("Reversal of Journal: %s", originalJournal.Description),
		Reference:         originalJournal.Reference,
		IsAdjustment:      originalJournal.IsAdjustment,
		CurrencyCode:      originalJournal.CurrencyCode,
		Status:            domain.Posted,
		Amount:            originalJournal.Amount,
		OriginalJournalID: &originalJournal.JournalID,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actor,
			LastUpdatedAt: now,
			LastUpdatedBy: actor,
		},
	}

	if err := s.journalRepo.SaveJournal(ctx, reversingJournal, reversingTransactions, balanceChanges); err != nil {
		logger.Error("Failed to save reversing journal entry", slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to save reversing journal: %w", err)
	}

	if err := s.journalRepo.UpdateJournalStatusAndLinks(ctx, originalJournal.JournalID, domain.Reversed, &newJournalID, actor, now); err != nil {
		logger.Error("Failed to update original journal status after reversal",
			slog.String("original_journal_id", originalJournal.JournalID),
			slog.String("reversing_journal_id", newJournalID),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("failed to update original journal status: %w", err)
	}

	logger.Info("Journal reversed successfully", slog.String("reversing_journal_id", newJournalID), slog.String("original_journal_id", journalID))
	return newJournalID, nil
}

// GetJournalByID retrieves a journal with its transactions.
func (s *postingService) GetJournalByID(ctx context.Context, journalID string) (*domain.Journal, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	journal, err := s.journalRepo.FindJournalByID(ctx, journalID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.Error("Failed to find journal by ID", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		}
		return nil, err
	}

	transactions, err := s.journalRepo.FindTransactionsByJournalID(ctx, journalID)
	if err != nil {
		logger.Error("Failed to fetch transactions for journal", slog.String("error", err.Error()), slog.String("journal_id", journalID))
		return nil, fmt.Errorf("failed to retrieve transactions for journal %s: %w", journalID, apperrors.ErrInternal)
	}
	journal.Transactions = transactions

	return journal, nil
}

// calculateBalanceChanges nets the signed effect of each transaction per account.
func (s *postingService) calculateBalanceChanges(transactions []domain.Transaction, accountsMap map[string]domain.Account) (map[string]decimal.Decimal, error) {
	balanceChanges := make(map[string]decimal.Decimal)
	for _, txn := range transactions {
		acc, ok := accountsMap[txn.AccountID]
		if !ok {
			return nil, fmt.Errorf("internal error: account %s not found during balance calculation", txn.AccountID)
		}
		signedAmount, err := accounting.CalculateSignedAmount(txn, acc.AccountType)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate signed amount for transaction %s: %w", txn.TransactionID, err)
		}
		balanceChanges[txn.AccountID] = balanceChanges[txn.AccountID].Add(signedAmount)
	}
	return balanceChanges, nil
}
