package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/apperrors"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	portsrepo "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/repositories"
	portssvc "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/services"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/dto"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/middleware"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/utils/accounting"
)

const (
	defaultMaxPostAttempts = 3
	defaultRetryBackoff    = 200 * time.Millisecond
)

// BatchServiceConfig tunes the saga's posting retry policy and, for tests,
// how the background run is dispatched.
type BatchServiceConfig struct {
	// MaxPostAttempts bounds retries of a single item's posting before the
	// failure/compensation path is taken. Defaults to 3.
	MaxPostAttempts int
	// RetryBackoff is the base delay between attempts; attempt n waits n times
	// this value. Defaults to 200ms.
	RetryBackoff time.Duration
	// Dispatch runs the background batch run. Defaults to a plain goroutine.
	Dispatch func(func())
}

// batchService orchestrates the journal-entry batch saga. It holds no batch
// state of its own: every run is parameterized by batch id and works entirely
// off persisted state, which makes the orchestrator restart-safe.
type batchService struct {
	batchRepo       portsrepo.BatchRepositoryFacade
	ledger          portssvc.LedgerPosterSvc
	compensator     portssvc.BatchCompensator
	maxPostAttempts int
	retryBackoff    time.Duration
	dispatch        func(func())
}

// NewBatchService creates a new batch processing service.
func NewBatchService(batchRepo portsrepo.BatchRepositoryFacade, ledger portssvc.LedgerPosterSvc, compensator portssvc.BatchCompensator, cfg BatchServiceConfig) portssvc.BatchSvcFacade {
	if cfg.MaxPostAttempts <= 0 {
		cfg.MaxPostAttempts = defaultMaxPostAttempts
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = func(f func()) { go f() }
	}
	return &batchService{
		batchRepo:       batchRepo,
		ledger:          ledger,
		compensator:     compensator,
		maxPostAttempts: cfg.MaxPostAttempts,
		retryBackoff:    cfg.RetryBackoff,
		dispatch:        cfg.Dispatch,
	}
}

var _ portssvc.BatchSvcFacade = (*batchService)(nil)

// CreateBatch validates every supplied entry and persists a new PENDING batch
// with one PENDING item per entry. Validation failure of any entry rejects the
// whole batch before anything is persisted, so there is nothing to compensate.
func (s *batchService) CreateBatch(ctx context.Context, req dto.CreateBatchRequest, creator string) (*domain.Batch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if len(req.Entries) == 0 {
		return nil, fmt.Errorf("%w: batch must contain at least one entry", apperrors.ErrValidation)
	}

	entries := make([]domain.JournalEntry, len(req.Entries))
	for i, entryReq := range req.Entries {
		entry := entryReq.ToJournalEntry()
		if err := accounting.ValidateEntry(entry); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", apperrors.ErrValidation, i, err)
		}
		entries[i] = entry
	}

	now := time.Now().UTC()
	batchID := uuid.NewString()

	batchNumber, err := s.batchRepo.NextBatchNumber(ctx, now)
	if err != nil {
		logger.Error("Failed to allocate batch number", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to allocate batch number: %w", err)
	}

	items := make([]domain.BatchItem, len(entries))
	for i, entry := range entries {
		items[i] = domain.BatchItem{
			ItemID:   uuid.NewString(),
			BatchID:  batchID,
			Position: i,
			Entry:    entry,
			Status:   domain.ItemPending,
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     creator,
				LastUpdatedAt: now,
				LastUpdatedBy: creator,
			},
		}
	}

	batch := domain.Batch{
		BatchID:     batchID,
		BatchNumber: batchNumber,
		Description: req.Description,
		Status:      domain.BatchPending,
		ItemCount:   len(items),
		Items:       items,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creator,
			LastUpdatedAt: now,
			LastUpdatedBy: creator,
		},
	}

	if err := s.batchRepo.SaveBatch(ctx, batch); err != nil {
		logger.Error("Failed to save batch", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		return nil, fmt.Errorf("failed to save batch: %w", err)
	}

	logger.Info("Batch created successfully",
		slog.String("batch_id", batchID),
		slog.String("batch_number", batchNumber),
		slog.Int("item_count", len(items)))
	return &batch, nil
}

// GetBatch retrieves a batch with its items.
func (s *batchService) GetBatch(ctx context.Context, batchID string) (*domain.Batch, error) {
	batch, err := s.batchRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			middleware.GetLoggerFromCtx(ctx).Error("Failed to find batch by ID", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		}
		return nil, err
	}
	return batch, nil
}

// ListBatches retrieves a page of batch summaries.
func (s *batchService) ListBatches(ctx context.Context, limit int, nextToken *string) ([]domain.Batch, *string, error) {
	if limit <= 0 {
		limit = 20 // Default limit
	}
	batches, token, err := s.batchRepo.ListBatches(ctx, limit, nextToken)
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to list batches", slog.String("error", err.Error()))
		return nil, nil, fmt.Errorf("failed to retrieve batches: %w", err)
	}
	return batches, token, nil
}

// ProcessBatch claims the batch for processing and kicks off the background
// run. The claim is a single conditional update, so calling process twice on
// the same batch yields a conflict for the second caller and exactly one run.
// The caller is not blocked on the multi-entry posting work.
func (s *batchService) ProcessBatch(ctx context.Context, batchID string, actor string) (*domain.Batch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.batchRepo.MarkBatchProcessing(ctx, batchID, actor, time.Now().UTC()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		logger.Error("Failed to claim batch for processing", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		return nil, fmt.Errorf("failed to claim batch for processing: %w", err)
	}

	batch, err := s.batchRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		logger.Error("Failed to load claimed batch", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		return nil, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}

	// The run outlives the request: detach cancellation but keep a logger
	// scoped to this batch.
	runLogger := logger.With(slog.String("batch_id", batchID), slog.String("batch_number", batch.BatchNumber))
	runCtx := middleware.ContextWithLogger(context.WithoutCancel(ctx), runLogger)
	s.dispatch(func() { s.runBatch(runCtx, batchID, actor) })

	logger.Info("Batch accepted for processing", slog.String("batch_id", batchID))
	return batch, nil
}

// CancelBatch cancels a batch that has not begun processing. A batch that is
// PROCESSING or terminal cannot be cancelled; a half-applied batch only has
// the failure/compensation path.
func (s *batchService) CancelBatch(ctx context.Context, batchID string, actor string) (*domain.Batch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if err := s.batchRepo.CancelBatch(ctx, batchID, actor, time.Now().UTC()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		logger.Error("Failed to cancel batch", slog.String("error", err.Error()), slog.String("batch_id", batchID))
		return nil, fmt.Errorf("failed to cancel batch: %w", err)
	}

	logger.Info("Batch cancelled", slog.String("batch_id", batchID))
	return s.batchRepo.FindBatchByID(ctx, batchID)
}

// runBatch is the background execution loop. Items are posted strictly in
// position order and no item after the first failure is ever posted, so
// compensation always targets a deterministic prefix of posted items.
func (s *batchService) runBatch(ctx context.Context, batchID string, actor string) {
	logger := middleware.GetLoggerFromCtx(ctx)

	batch, err := s.batchRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		logger.Error("Batch run aborted: failed to load batch", slog.String("error", err.Error()))
		return
	}
	if batch.Status != domain.BatchProcessing {
		// Another run (or a restart) already finished this batch.
		logger.Warn("Batch run skipped: batch is not PROCESSING", slog.String("status", string(batch.Status)))
		return
	}

	posted := make([]domain.BatchItem, 0, len(batch.Items))
	for i := range batch.Items {
		item := batch.Items[i]

		// Restart safety: resume past items a previous run already posted.
		if item.Status == domain.ItemPosted {
			posted = append(posted, item)
			continue
		}

		journalID, postErr := s.postItemWithRetry(ctx, item.Entry, actor)
		if postErr != nil {
			logger.Error("Item failed, starting compensation",
				slog.String("item_id", item.ItemID),
				slog.Int("position", item.Position),
				slog.String("error", postErr.Error()))
			s.rejectBatch(ctx, batch, item, posted, postErr, actor)
			return
		}

		item.Status = domain.ItemPosted
		item.JournalID = &journalID
		item.LastUpdatedAt = time.Now().UTC()
		item.LastUpdatedBy = actor
		if err := s.batchRepo.UpdateBatchItem(ctx, item); err != nil {
			// The journal committed but the item record did not; include the
			// item in the compensation prefix so the ledger effect is undone.
			logger.Error("Failed to record posted item", slog.String("item_id", item.ItemID), slog.String("error", err.Error()))
			posted = append(posted, item)
			s.rejectBatch(ctx, batch, item, posted, fmt.Errorf("failed to record posted item: %w", err), actor)
			return
		}

		posted = append(posted, item)
		logger.Info("Item posted",
			slog.String("item_id", item.ItemID),
			slog.Int("position", item.Position),
			slog.String("journal_id", journalID))
	}

	if err := s.batchRepo.FinalizeBatch(ctx, batchID, domain.BatchApproved, nil, false, actor, time.Now().UTC()); err != nil {
		logger.Error("Failed to approve batch", slog.String("error", err.Error()))
		return
	}
	logger.Info("Batch approved", slog.Int("item_count", len(batch.Items)))
}

// rejectBatch records the failed item, compensates the posted prefix, and
// moves the batch to REJECTED with the recorded reason.
func (s *batchService) rejectBatch(ctx context.Context, batch *domain.Batch, failed domain.BatchItem, posted []domain.BatchItem, cause error, actor string) {
	logger := middleware.GetLoggerFromCtx(ctx)

	if failed.Status == domain.ItemPending {
		failed.Status = domain.ItemFailed
		failed.FailureReason = cause.Error()
		failed.LastUpdatedAt = time.Now().UTC()
		failed.LastUpdatedBy = actor
		if err := s.batchRepo.UpdateBatchItem(ctx, failed); err != nil {
			logger.Error("Failed to record failed item", slog.String("item_id", failed.ItemID), slog.String("error", err.Error()))
		}
	}

	incomplete := s.compensator.CompensatePostedItems(ctx, posted, actor)
	if incomplete {
		logger.Error("Compensation incomplete, batch requires manual reconciliation")
	}

	reason := fmt.Sprintf("entry %d failed: %v", failed.Position, cause)
	if err := s.batchRepo.FinalizeBatch(ctx, batch.BatchID, domain.BatchRejected, &reason, incomplete, actor, time.Now().UTC()); err != nil {
		logger.Error("Failed to reject batch", slog.String("error", err.Error()))
		return
	}
	logger.Info("Batch rejected",
		slog.String("reason", reason),
		slog.Int("reversed_items", len(posted)),
		slog.Bool("compensation_incomplete", incomplete))
}

// postItemWithRetry posts one entry, retrying transient failures a bounded
// number of times. Validation failures are never retried. There is no infinite
// retry: a batch that cannot make progress must surface that fact.
func (s *batchService) postItemWithRetry(ctx context.Context, entry domain.JournalEntry, actor string) (string, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var lastErr error
	for attempt := 1; attempt <= s.maxPostAttempts; attempt++ {
		journalID, err := s.ledger.PostEntry(ctx, entry, actor)
		if err == nil {
			return journalID, nil
		}
		lastErr = err

		if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrNotFound) {
			return "", err
		}

		if attempt < s.maxPostAttempts {
			backoff := time.Duration(attempt) * s.retryBackoff
			logger.Warn("Posting attempt failed, retrying",
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.String("error", err.Error()))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	return "", fmt.Errorf("posting failed after %d attempts: %w", s.maxPostAttempts, lastErr)
}
