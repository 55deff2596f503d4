package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	portsrepo "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/repositories"
	portssvc "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/services"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/middleware"
)

// compensationHandler reverses the already-posted items of a failed batch.
// Each reversal is an equal-and-opposite journal posted through the ledger
// poster, so the net balance effect of a reversed item is zero.
type compensationHandler struct {
	ledger    portssvc.LedgerPosterSvc
	batchRepo portsrepo.BatchWriter
}

// NewCompensationHandler creates a new batch compensator.
func NewCompensationHandler(ledger portssvc.LedgerPosterSvc, batchRepo portsrepo.BatchWriter) portssvc.BatchCompensator {
	return &compensationHandler{
		ledger:    ledger,
		batchRepo: batchRepo,
	}
}

var _ portssvc.BatchCompensator = (*compensationHandler)(nil)

// CompensatePostedItems reverses each POSTED item newest-first. Items already
// REVERSED are skipped, so re-running compensation is a no-op. A reversal
// failure is fatal: iteration stops and true is returned so the batch can be
// flagged for manual reconciliation rather than left silently inconsistent.
func (h *compensationHandler) CompensatePostedItems(ctx context.Context, posted []domain.BatchItem, actor string) bool {
	logger := middleware.GetLoggerFromCtx(ctx)

	// Newest-first: reverse of posting order. The accounting effect is
	// order-independent, but a deterministic order keeps reconciliation sane.
	for i := len(posted) - 1; i >= 0; i-- {
		item := posted[i]

		if item.Status == domain.ItemReversed {
			logger.Debug("Item already reversed, skipping", slog.String("item_id", item.ItemID))
			continue
		}
		if item.Status != domain.ItemPosted || item.JournalID == nil {
			logger.Error("Item is not reversible, flagging batch for reconciliation",
				slog.String("item_id", item.ItemID),
				slog.String("status", string(item.Status)))
			return true
		}

		reversalID, err := h.ledger.ReverseJournal(ctx, *item.JournalID, actor)
		if err != nil {
			logger.Error("Reversal failed, flagging batch for reconciliation",
				slog.String("item_id", item.ItemID),
				slog.String("journal_id", *item.JournalID),
				slog.String("error", err.Error()))
			item.FailureReason = fmt.Sprintf("compensation failed: %v", err)
			item.LastUpdatedAt = time.Now().UTC()
			item.LastUpdatedBy = actor
			if updateErr := h.batchRepo.UpdateBatchItem(ctx, item); updateErr != nil {
				logger.Error("Failed to record reversal failure on item", slog.String("item_id", item.ItemID), slog.String("error", updateErr.Error()))
			}
			return true
		}

		item.Status = domain.ItemReversed
		item.ReversalJournalID = &reversalID
		item.LastUpdatedAt = time.Now().UTC()
		item.LastUpdatedBy = actor
		if err := h.batchRepo.UpdateBatchItem(ctx, item); err != nil {
			// The ledger-side reversal committed but the item record did not.
			// Surface the discrepancy instead of retrying blindly.
			logger.Error("Failed to mark item reversed after successful reversal",
				slog.String("item_id", item.ItemID),
				slog.String("reversal_journal_id", reversalID),
				slog.String("error", err.Error()))
			return true
		}

		logger.Info("Item reversed",
			slog.String("item_id", item.ItemID),
			slog.String("journal_id", *item.JournalID),
			slog.String("reversal_journal_id", reversalID))
	}

	return false
}
