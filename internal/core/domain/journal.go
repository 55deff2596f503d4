package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus indicates the state of a ledger-visible journal record.
type JournalStatus string

const (
	Posted   JournalStatus = "POSTED"
	Reversed JournalStatus = "REVERSED"
)

// Journal represents a single, balanced financial event composed of multiple transactions.
// It is the durable, ledger-visible record produced by posting a journal entry.
type Journal struct {
	JournalID          string          `json:"journalID"`          // Primary Key (UUID)
	JournalDate        time.Time       `json:"journalDate"`        // Date the event occurred
	Description        string          `json:"description"`        // Nullable user description
	Reference          string          `json:"reference"`          // Nullable external reference
	IsAdjustment       bool            `json:"isAdjustment"`       // Marks adjusting entries
	CurrencyCode       string          `json:"currencyCode"`       // Primary currency of the Journal (Not Null)
	Status             JournalStatus   `json:"status"`             // Default: POSTED
	Amount             decimal.Decimal `json:"amount"`             // Total debit side; the economic value of the journal
	OriginalJournalID  *string         `json:"originalJournalID"`  // Set on a reversal: the journal it reverses
	ReversingJournalID *string         `json:"reversingJournalID"` // Set on a reversed journal: its reversal
	Transactions       []Transaction   `json:"transactions,omitempty"`
	AuditFields
}

// IsReversal reports whether this journal was created to reverse another.
func (j *Journal) IsReversal() bool {
	return j.OriginalJournalID != nil
}
