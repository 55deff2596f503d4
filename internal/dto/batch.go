package dto

import (
	"time"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BatchEntryLineRequest is one debit or credit line of a submitted entry.
// Exactly one of Debit or Credit must carry a positive amount; the service
// enforces this since binding tags cannot express the either-or rule.
type BatchEntryLineRequest struct {
	AccountID   string          `json:"accountID" binding:"required"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// BatchEntryRequest is one unposted journal entry within a batch submission.
type BatchEntryRequest struct {
	Date         time.Time               `json:"date" binding:"required"`
	Description  string                  `json:"description"`
	Reference    string                  `json:"reference"`
	IsAdjustment bool                    `json:"isAdjustment"`
	Lines        []BatchEntryLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// CreateBatchRequest defines the payload for submitting a batch of entries.
type CreateBatchRequest struct {
	Description string              `json:"description"`
	Entries     []BatchEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// ToJournalEntry converts a submitted entry into its domain representation.
func (r BatchEntryRequest) ToJournalEntry() domain.JournalEntry {
	lines := make([]domain.EntryLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = domain.EntryLine{
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}
	return domain.JournalEntry{
		EntryDate:    r.Date,
		Description:  r.Description,
		Reference:    r.Reference,
		IsAdjustment: r.IsAdjustment,
		Lines:        lines,
	}
}

// BatchItemResponse defines the data returned for one batch item.
type BatchItemResponse struct {
	ItemID            string                 `json:"itemID"`
	Position          int                    `json:"position"`
	Status            domain.BatchItemStatus `json:"status"`
	JournalID         *string                `json:"journalID,omitempty"`
	ReversalJournalID *string                `json:"reversalJournalID,omitempty"`
	FailureReason     string                 `json:"failureReason,omitempty"`
}

// BatchResponse defines the batch summary exposed to callers.
type BatchResponse struct {
	BatchID                string              `json:"batchID"`
	BatchNumber            string              `json:"batchNumber"`
	Description            string              `json:"description,omitempty"`
	Status                 domain.BatchStatus  `json:"status"`
	ItemCount              int                 `json:"itemCount"`
	RejectionReason        *string             `json:"rejectionReason,omitempty"`
	CompensationIncomplete bool                `json:"compensationIncomplete"`
	Items                  []BatchItemResponse `json:"items,omitempty"`
	CreatedAt              time.Time           `json:"createdAt"`
}

// ListBatchesResponse wraps a page of batches plus the token for the next page.
type ListBatchesResponse struct {
	Batches   []BatchResponse `json:"batches"`
	NextToken *string         `json:"nextToken,omitempty"`
}

// ToBatchItemResponse converts a domain.BatchItem to BatchItemResponse.
func ToBatchItemResponse(item *domain.BatchItem) BatchItemResponse {
	return BatchItemResponse{
		ItemID:            item.ItemID,
		Position:          item.Position,
		Status:            item.Status,
		JournalID:         item.JournalID,
		ReversalJournalID: item.ReversalJournalID,
		FailureReason:     item.FailureReason,
	}
}

// ToBatchResponse converts a domain.Batch to BatchResponse.
func ToBatchResponse(b *domain.Batch) BatchResponse {
	resp := BatchResponse{
		BatchID:                b.BatchID,
		BatchNumber:            b.BatchNumber,
		Description:            b.Description,
		Status:                 b.Status,
		ItemCount:              b.ItemCount,
		RejectionReason:        b.RejectionReason,
		CompensationIncomplete: b.CompensationIncomplete,
		CreatedAt:              b.CreatedAt,
	}
	if len(b.Items) > 0 {
		resp.Items = make([]BatchItemResponse, len(b.Items))
		for i := range b.Items {
			resp.Items[i] = ToBatchItemResponse(&b.Items[i])
		}
	}
	return resp
}

// ToBatchResponses converts a slice of domain.Batch to []BatchResponse.
func ToBatchResponses(batches []domain.Batch) []BatchResponse {
	responses := make([]BatchResponse, len(batches))
	for i := range batches {
		responses[i] = ToBatchResponse(&batches[i])
	}
	return responses
}
