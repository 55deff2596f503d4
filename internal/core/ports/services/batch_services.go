package services

import (
	"context"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/dto"
)

// BatchSvcFacade is the caller-facing command surface of the batch saga.
type BatchSvcFacade interface {
	// CreateBatch validates every supplied entry and, if all pass, persists a
	// new batch in PENDING with one PENDING item per entry. If any entry fails
	// the balance invariant the whole batch is rejected with no persisted side
	// effects.
	CreateBatch(ctx context.Context, req dto.CreateBatchRequest, creator string) (*domain.Batch, error)

	// GetBatch retrieves a batch with its items.
	GetBatch(ctx context.Context, batchID string) (*domain.Batch, error)

	// ListBatches retrieves a page of batch summaries.
	ListBatches(ctx context.Context, limit int, nextToken *string) ([]domain.Batch, *string, error)

	// ProcessBatch claims a DRAFT/PENDING batch for processing and starts the
	// item-by-item posting run in the background. The returned batch reflects
	// the accepted PROCESSING state, not the final outcome.
	ProcessBatch(ctx context.Context, batchID string, actor string) (*domain.Batch, error)

	// CancelBatch cancels a batch that has not begun processing.
	CancelBatch(ctx context.Context, batchID string, actor string) (*domain.Batch, error)
}

// BatchCompensator reverses the already-posted items of a failed batch.
type BatchCompensator interface {
	// CompensatePostedItems reverses each POSTED item, newest first, marking it
	// REVERSED with a link to the reversal journal. It returns true when any
	// reversal itself failed and the batch must be flagged for manual
	// reconciliation. Already-REVERSED items are skipped, so re-running
	// compensation is a no-op.
	CompensatePostedItems(ctx context.Context, posted []domain.BatchItem, actor string) (incomplete bool)
}
