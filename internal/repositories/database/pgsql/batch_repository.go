package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/apperrors"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	portsrepo "github.com/Qbitdebuga/qbit-as-sub002/internal/core/ports/repositories"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/utils/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const batchColumns = `batch_id, batch_number, description, status, item_count, rejection_reason, compensation_incomplete, created_at, created_by, last_updated_at, last_updated_by`

type PgxBatchRepository struct {
	BaseRepository
}

// newPgxBatchRepository creates a new repository for batch data.
func newPgxBatchRepository(pool *pgxpool.Pool) portsrepo.BatchRepositoryFacade {
	return &PgxBatchRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BatchRepositoryFacade = (*PgxBatchRepository)(nil)

func scanBatch(row pgx.Row) (domain.Batch, error) {
	var b domain.Batch
	err := row.Scan(
		&b.BatchID,
		&b.BatchNumber,
		&b.Description,
		&b.Status,
		&b.ItemCount,
		&b.RejectionReason,
		&b.CompensationIncomplete,
		&b.CreatedAt,
		&b.CreatedBy,
		&b.LastUpdatedAt,
		&b.LastUpdatedBy,
	)
	return b, err
}

// SaveBatch persists a batch, its items and their entry lines within a single
// DB transaction.
func (r *PgxBatchRepository) SaveBatch(ctx context.Context, batch domain.Batch) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx) // Ignored once the transaction is committed

	batchQuery := `
		INSERT INTO batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
	`
	_, err = tx.Exec(ctx, batchQuery,
		batch.BatchID,
		batch.BatchNumber,
		batch.Description,
		batch.Status,
		batch.ItemCount,
		batch.RejectionReason,
		batch.CompensationIncomplete,
		batch.CreatedAt,
		batch.CreatedBy,
		batch.LastUpdatedAt,
		batch.LastUpdatedBy,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert batch "+batch.BatchID, err)
	}

	itemQuery := `
		INSERT INTO batch_items (
			item_id, batch_id, position, entry_date, entry_description,
			entry_reference, is_adjustment, status, journal_id, reversal_journal_id,
			failure_reason, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	lineQuery := `
		INSERT INTO batch_item_lines (item_id, line_position, account_id, description, debit, credit)
		VALUES ($1, $2, $3, $4, $5, $6);
	`

	pgBatch := &pgx.Batch{}
	for _, item := range batch.Items {
		pgBatch.Queue(itemQuery,
			item.ItemID,
			item.BatchID,
			item.Position,
			item.Entry.EntryDate,
			item.Entry.Description,
			item.Entry.Reference,
			item.Entry.IsAdjustment,
			item.Status,
			item.JournalID,
			item.ReversalJournalID,
			item.FailureReason,
			item.CreatedAt,
			item.CreatedBy,
			item.LastUpdatedAt,
			item.LastUpdatedBy,
		)
		for linePos, line := range item.Entry.Lines {
			pgBatch.Queue(lineQuery,
				item.ItemID,
				linePos,
				line.AccountID,
				line.Description,
				line.Debit,
				line.Credit,
			)
		}
	}

	br := tx.SendBatch(ctx, pgBatch)
	if err := br.Close(); err != nil {
		return apperrors.NewAppError(500, "failed to insert items for batch "+batch.BatchID, err)
	}

	return r.Commit(ctx, tx)
}

// FindBatchByID retrieves a batch with its items and entry lines.
func (r *PgxBatchRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE batch_id = $1;`
	batch, err := scanBatch(r.Pool.QueryRow(ctx, query, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find batch by ID %s: %w", batchID, err)
	}

	items, err := r.findItemsByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	batch.Items = items

	return &batch, nil
}

func (r *PgxBatchRepository) findItemsByBatchID(ctx context.Context, batchID string) ([]domain.BatchItem, error) {
	itemQuery := `
		SELECT item_id, batch_id, position, entry_date, entry_description,
		       entry_reference, is_adjustment, status, journal_id, reversal_journal_id,
		       failure_reason, created_at, created_by, last_updated_at, last_updated_by
		FROM batch_items
		WHERE batch_id = $1
		ORDER BY position;
	`
	rows, err := r.Pool.Query(ctx, itemQuery, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query items for batch %s: %w", batchID, err)
	}
	defer rows.Close()

	items := []domain.BatchItem{}
	itemIDs := []string{}
	for rows.Next() {
		var item domain.BatchItem
		if err := rows.Scan(
			&item.ItemID,
			&item.BatchID,
			&item.Position,
			&item.Entry.EntryDate,
			&item.Entry.Description,
			&item.Entry.Reference,
			&item.Entry.IsAdjustment,
			&item.Status,
			&item.JournalID,
			&item.ReversalJournalID,
			&item.FailureReason,
			&item.CreatedAt,
			&item.CreatedBy,
			&item.LastUpdatedAt,
			&item.LastUpdatedBy,
		); err != nil {
			return nil, fmt.Errorf("failed to scan item row for batch %s: %w", batchID, err)
		}
		items = append(items, item)
		itemIDs = append(itemIDs, item.ItemID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows for batch %s: %w", batchID, err)
	}

	if len(itemIDs) == 0 {
		return items, nil
	}

	lineQuery := `
		SELECT item_id, account_id, description, debit, credit
		FROM batch_item_lines
		WHERE item_id = ANY($1)
		ORDER BY item_id, line_position;
	`
	lineRows, err := r.Pool.Query(ctx, lineQuery, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query entry lines for batch %s: %w", batchID, err)
	}
	defer lineRows.Close()

	linesByItem := make(map[string][]domain.EntryLine)
	for lineRows.Next() {
		var itemID string
		var line domain.EntryLine
		if err := lineRows.Scan(&itemID, &line.AccountID, &line.Description, &line.Debit, &line.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan entry line row for batch %s: %w", batchID, err)
		}
		linesByItem[itemID] = append(linesByItem[itemID], line)
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry line rows for batch %s: %w", batchID, err)
	}

	for i := range items {
		items[i].Entry.Lines = linesByItem[items[i].ItemID]
	}

	return items, nil
}

// ListBatches retrieves a page of batches (without items), most recent first,
// using token-based keyset pagination.
func (r *PgxBatchRepository) ListBatches(ctx context.Context, limit int, nextToken *string) ([]domain.Batch, *string, error) {
	query := `SELECT ` + batchColumns + ` FROM batches`
	args := []any{}

	if nextToken != nil && *nextToken != "" {
		createdAt, batchID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		query += ` WHERE (created_at, batch_id) < ($1, $2)`
		args = append(args, createdAt, batchID)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, batch_id DESC LIMIT $%d;`, len(args)+1)
	args = append(args, limit)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	batches := []domain.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating batch rows: %w", err)
	}

	var token *string
	if len(batches) == limit {
		last := batches[len(batches)-1]
		t := pagination.EncodeToken(last.CreatedAt, last.BatchID)
		token = &t
	}

	return batches, token, nil
}

// MarkBatchProcessing atomically claims a DRAFT/PENDING batch for processing.
// The conditional update is the serialization point: at most one caller wins.
func (r *PgxBatchRepository) MarkBatchProcessing(ctx context.Context, batchID string, actor string, now time.Time) error {
	return r.conditionalStatusUpdate(ctx, batchID, domain.BatchProcessing, actor, now)
}

// CancelBatch atomically moves a DRAFT/PENDING batch to CANCELLED.
func (r *PgxBatchRepository) CancelBatch(ctx context.Context, batchID string, actor string, now time.Time) error {
	return r.conditionalStatusUpdate(ctx, batchID, domain.BatchCancelled, actor, now)
}

// conditionalStatusUpdate moves a batch out of DRAFT/PENDING, distinguishing
// a missing batch from one in the wrong state.
func (r *PgxBatchRepository) conditionalStatusUpdate(ctx context.Context, batchID string, status domain.BatchStatus, actor string, now time.Time) error {
	query := `
		UPDATE batches
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE batch_id = $1 AND status IN ('DRAFT', 'PENDING');
	`
	ct, err := r.Pool.Exec(ctx, query, batchID, status, now, actor)
	if err != nil {
		return fmt.Errorf("failed to update status for batch %s: %w", batchID, err)
	}
	if ct.RowsAffected() == 0 {
		return r.notFoundOrConflict(ctx, batchID)
	}
	return nil
}

// FinalizeBatch moves a PROCESSING batch to its terminal status.
func (r *PgxBatchRepository) FinalizeBatch(ctx context.Context, batchID string, status domain.BatchStatus, rejectionReason *string, compensationIncomplete bool, actor string, now time.Time) error {
	query := `
		UPDATE batches
		SET status = $2, rejection_reason = $3, compensation_incomplete = $4, last_updated_at = $5, last_updated_by = $6
		WHERE batch_id = $1 AND status = 'PROCESSING';
	`
	ct, err := r.Pool.Exec(ctx, query, batchID, status, rejectionReason, compensationIncomplete, now, actor)
	if err != nil {
		return fmt.Errorf("failed to finalize batch %s: %w", batchID, err)
	}
	if ct.RowsAffected() == 0 {
		return r.notFoundOrConflict(ctx, batchID)
	}
	return nil
}

func (r *PgxBatchRepository) notFoundOrConflict(ctx context.Context, batchID string) error {
	var currentStatus domain.BatchStatus
	err := r.Pool.QueryRow(ctx, `SELECT status FROM batches WHERE batch_id = $1;`, batchID).Scan(&currentStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to inspect batch %s: %w", batchID, err)
	}
	return fmt.Errorf("%w: batch is %s", apperrors.ErrConflict, currentStatus)
}

// UpdateBatchItem persists an item's status, journal linkage and failure reason.
func (r *PgxBatchRepository) UpdateBatchItem(ctx context.Context, item domain.BatchItem) error {
	query := `
		UPDATE batch_items
		SET status = $2, journal_id = $3, reversal_journal_id = $4, failure_reason = $5,
		    last_updated_at = $6, last_updated_by = $7
		WHERE item_id = $1;
	`
	ct, err := r.Pool.Exec(ctx, query,
		item.ItemID,
		item.Status,
		item.JournalID,
		item.ReversalJournalID,
		item.FailureReason,
		item.LastUpdatedAt,
		item.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update batch item %s: %w", item.ItemID, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// NextBatchNumber allocates the next batch number for the given day.
// Uniqueness is guaranteed by the per-day counter row; the date prefix only
// makes the number informative.
func (r *PgxBatchRepository) NextBatchNumber(ctx context.Context, date time.Time) (string, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	query := `
		INSERT INTO batch_number_counters (day, next_value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET next_value = batch_number_counters.next_value + 1
		RETURNING next_value;
	`
	var seq int
	if err := r.Pool.QueryRow(ctx, query, day).Scan(&seq); err != nil {
		return "", fmt.Errorf("failed to allocate batch number: %w", err)
	}

	return fmt.Sprintf("JB-%s-%04d", day.Format("20060102"), seq), nil
}
