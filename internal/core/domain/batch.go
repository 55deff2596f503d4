package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus indicates the lifecycle state of a journal entry batch.
type BatchStatus string

const (
	BatchDraft      BatchStatus = "DRAFT"
	BatchPending    BatchStatus = "PENDING"
	BatchProcessing BatchStatus = "PROCESSING"
	BatchApproved   BatchStatus = "APPROVED"
	BatchRejected   BatchStatus = "REJECTED"
	BatchCancelled  BatchStatus = "CANCELLED"
)

// batchTransitions defines the legal batch status transitions.
// There is no transition out of a terminal state.
var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchDraft:      {BatchPending, BatchProcessing, BatchCancelled},
	BatchPending:    {BatchProcessing, BatchCancelled},
	BatchProcessing: {BatchApproved, BatchRejected},
}

// IsTerminal reports whether the status is one of APPROVED, REJECTED or CANCELLED.
func (s BatchStatus) IsTerminal() bool {
	switch s {
	case BatchApproved, BatchRejected, BatchCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BatchItemStatus indicates the lifecycle state of a single item within a batch.
type BatchItemStatus string

const (
	ItemPending  BatchItemStatus = "PENDING"
	ItemPosted   BatchItemStatus = "POSTED"
	ItemFailed   BatchItemStatus = "FAILED"
	ItemReversed BatchItemStatus = "REVERSED"
)

var batchItemTransitions = map[BatchItemStatus][]BatchItemStatus{
	ItemPending: {ItemPosted, ItemFailed},
	ItemPosted:  {ItemReversed},
}

// CanTransitionTo reports whether moving from s to next is a legal item transition.
func (s BatchItemStatus) CanTransitionTo(next BatchItemStatus) bool {
	for _, allowed := range batchItemTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// EntryLine is one debit or credit line of an unposted journal entry.
// Exactly one of Debit or Credit carries a positive amount.
type EntryLine struct {
	AccountID   string          `json:"accountID"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// JournalEntry is the unposted specification of a financial event, held inside
// a batch item until the batch is processed. Posting turns it into a Journal.
type JournalEntry struct {
	EntryDate    time.Time   `json:"entryDate"`
	Description  string      `json:"description"`
	Reference    string      `json:"reference"`
	IsAdjustment bool        `json:"isAdjustment"`
	Lines        []EntryLine `json:"lines"`
}

// BatchItem wraps one JournalEntry with its own lifecycle status and, once
// posted, the id of the resulting journal record. Items are owned exclusively
// by their parent batch and are processed strictly in Position order.
type BatchItem struct {
	ItemID            string          `json:"itemID"`  // Primary Key (UUID)
	BatchID           string          `json:"batchID"` // FK -> Batch.batchID (Not Null)
	Position          int             `json:"position"`
	Entry             JournalEntry    `json:"entry"`
	Status            BatchItemStatus `json:"status"`
	JournalID         *string         `json:"journalID"`         // Set once posted
	ReversalJournalID *string         `json:"reversalJournalID"` // Set once reversed
	FailureReason     string          `json:"failureReason"`     // Set when the item fails
	AuditFields
}

// Batch is a group of journal entries submitted and posted together as one
// atomic unit of work. Batches are retained permanently as an audit trail and
// only ever transition to terminal states, never get deleted.
type Batch struct {
	BatchID                string      `json:"batchID"`     // Primary Key (UUID)
	BatchNumber            string      `json:"batchNumber"` // Externally visible identifier, unique
	Description            string      `json:"description"`
	Status                 BatchStatus `json:"status"`
	ItemCount              int         `json:"itemCount"`
	RejectionReason        *string     `json:"rejectionReason"`        // Set when the batch is rejected
	CompensationIncomplete bool        `json:"compensationIncomplete"` // True when a reversal itself failed; requires manual reconciliation
	Items                  []BatchItem `json:"items,omitempty"`
	AuditFields
}
