package repositories

import (
	"context"
	"time"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
)

// BatchReader defines read operations for batch data.
type BatchReader interface {
	// FindBatchByID retrieves a batch with its items and entry lines.
	FindBatchByID(ctx context.Context, batchID string) (*domain.Batch, error)

	// ListBatches retrieves a paginated list of batches (without items) using
	// token-based pagination. It returns the batches, a token for the next
	// page, and an error.
	ListBatches(ctx context.Context, limit int, nextToken *string) ([]domain.Batch, *string, error)
}

// BatchWriter defines write operations for batch data.
type BatchWriter interface {
	// SaveBatch persists a new batch together with its items and their entry
	// lines within a single database transaction.
	SaveBatch(ctx context.Context, batch domain.Batch) error

	// MarkBatchProcessing atomically claims a batch for processing: it moves
	// the batch from DRAFT or PENDING to PROCESSING. It returns
	// apperrors.ErrNotFound if the batch does not exist and
	// apperrors.ErrConflict if the batch is in any other state, so at most one
	// caller can ever win the claim.
	MarkBatchProcessing(ctx context.Context, batchID string, actor string, now time.Time) error

	// CancelBatch atomically moves a batch from DRAFT or PENDING to CANCELLED.
	// Same error contract as MarkBatchProcessing.
	CancelBatch(ctx context.Context, batchID string, actor string, now time.Time) error

	// FinalizeBatch moves a PROCESSING batch to its terminal status, recording
	// the rejection reason and the incomplete-compensation flag when relevant.
	FinalizeBatch(ctx context.Context, batchID string, status domain.BatchStatus, rejectionReason *string, compensationIncomplete bool, actor string, now time.Time) error

	// UpdateBatchItem persists an item's status, journal linkage and failure reason.
	UpdateBatchItem(ctx context.Context, item domain.BatchItem) error

	// NextBatchNumber allocates the next externally visible batch number for
	// the given day. Numbers are unique; daily ordering is informative only.
	NextBatchNumber(ctx context.Context, date time.Time) (string, error)
}

// BatchRepositoryFacade combines all batch-related repository interfaces.
type BatchRepositoryFacade interface {
	BatchReader
	BatchWriter
}
