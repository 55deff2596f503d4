package accounting_test

import (
	"testing"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	"github.com/Qbitdebuga/qbit-as-sub002/internal/utils/accounting"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCheckEntryBalance(t *testing.T) {
	tests := []struct {
		name     string
		lines    []domain.EntryLine
		balanced bool
	}{
		{
			name: "exactly balanced",
			lines: []domain.EntryLine{
				{AccountID: "a", Debit: d("100")},
				{AccountID: "b", Credit: d("100")},
			},
			balanced: true,
		},
		{
			name: "difference at tolerance",
			lines: []domain.EntryLine{
				{AccountID: "a", Debit: d("100.00")},
				{AccountID: "b", Credit: d("99.99")},
			},
			balanced: true,
		},
		{
			name: "difference beyond tolerance",
			lines: []domain.EntryLine{
				{AccountID: "a", Debit: d("100.00")},
				{AccountID: "b", Credit: d("99.98")},
			},
			balanced: false,
		},
		{
			name: "multi-line split",
			lines: []domain.EntryLine{
				{AccountID: "a", Debit: d("70")},
				{AccountID: "b", Debit: d("30")},
				{AccountID: "c", Credit: d("100")},
			},
			balanced: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := accounting.CheckEntryBalance(tt.lines)
			assert.Equal(t, tt.balanced, check.Balanced)
			assert.True(t, check.Difference.Equal(check.DebitTotal.Sub(check.CreditTotal)))
		})
	}
}

func TestValidateEntry(t *testing.T) {
	valid := domain.JournalEntry{
		Lines: []domain.EntryLine{
			{AccountID: "a", Debit: d("100")},
			{AccountID: "b", Credit: d("100")},
		},
	}
	assert.NoError(t, accounting.ValidateEntry(valid))

	single := domain.JournalEntry{
		Lines: []domain.EntryLine{{AccountID: "a", Debit: d("100")}},
	}
	assert.Error(t, accounting.ValidateEntry(single))

	missingAccount := domain.JournalEntry{
		Lines: []domain.EntryLine{
			{AccountID: "", Debit: d("100")},
			{AccountID: "b", Credit: d("100")},
		},
	}
	assert.Error(t, accounting.ValidateEntry(missingAccount))

	bothSides := domain.JournalEntry{
		Lines: []domain.EntryLine{
			{AccountID: "a", Debit: d("100"), Credit: d("100")},
			{AccountID: "b", Credit: d("100")},
		},
	}
	assert.Error(t, accounting.ValidateEntry(bothSides))

	neitherSide := domain.JournalEntry{
		Lines: []domain.EntryLine{
			{AccountID: "a"},
			{AccountID: "b", Credit: d("100")},
		},
	}
	assert.Error(t, accounting.ValidateEntry(neitherSide))

	negative := domain.JournalEntry{
		Lines: []domain.EntryLine{
			{AccountID: "a", Debit: d("-100")},
			{AccountID: "b", Credit: d("-100")},
		},
	}
	assert.Error(t, accounting.ValidateEntry(negative))

	unbalanced := domain.JournalEntry{
		Lines: []domain.EntryLine{
			{AccountID: "a", Debit: d("100")},
			{AccountID: "b", Credit: d("50")},
		},
	}
	assert.Error(t, accounting.ValidateEntry(unbalanced))
}

func TestCalculateSignedAmount(t *testing.T) {
	amount := d("100")

	tests := []struct {
		name        string
		txnType     domain.TransactionType
		accountType domain.AccountType
		expected    decimal.Decimal
	}{
		{"debit to asset", domain.Debit, domain.Asset, d("100")},
		{"credit to asset", domain.Credit, domain.Asset, d("-100")},
		{"debit to expense", domain.Debit, domain.Expense, d("100")},
		{"credit to expense", domain.Credit, domain.Expense, d("-100")},
		{"debit to liability", domain.Debit, domain.Liability, d("-100")},
		{"credit to liability", domain.Credit, domain.Liability, d("100")},
		{"debit to equity", domain.Debit, domain.Equity, d("-100")},
		{"credit to equity", domain.Credit, domain.Equity, d("100")},
		{"debit to revenue", domain.Debit, domain.Revenue, d("-100")},
		{"credit to revenue", domain.Credit, domain.Revenue, d("100")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := domain.Transaction{AccountID: "acc-1", Amount: amount, TransactionType: tt.txnType}
			signed, err := accounting.CalculateSignedAmount(txn, tt.accountType)
			require.NoError(t, err)
			assert.True(t, signed.Equal(tt.expected), "got %s, want %s", signed, tt.expected)
		})
	}

	t.Run("unknown account type", func(t *testing.T) {
		txn := domain.Transaction{AccountID: "acc-1", Amount: amount, TransactionType: domain.Debit}
		_, err := accounting.CalculateSignedAmount(txn, domain.AccountType("INCOME"))
		assert.Error(t, err)
	})
}
