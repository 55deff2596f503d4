package accounting

import (
	"fmt"

	"github.com/Qbitdebuga/qbit-as-sub002/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceTolerance is the fixed rounding tolerance for the debit=credit check.
// Differences at or below this amount are treated as balanced.
var BalanceTolerance = decimal.RequireFromString("0.01")

// BalanceCheck is the result of validating a journal entry's balance.
type BalanceCheck struct {
	DebitTotal  decimal.Decimal
	CreditTotal decimal.Decimal
	Difference  decimal.Decimal // DebitTotal - CreditTotal
	Balanced    bool
}

// CheckEntryBalance sums the debit and credit sides of an entry's lines and
// reports whether they balance within BalanceTolerance. Pure function.
func CheckEntryBalance(lines []domain.EntryLine) BalanceCheck {
	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range lines {
		debits = debits.Add(line.Debit)
		credits = credits.Add(line.Credit)
	}
	diff := debits.Sub(credits)
	return BalanceCheck{
		DebitTotal:  debits,
		CreditTotal: credits,
		Difference:  diff,
		Balanced:    diff.Abs().LessThanOrEqual(BalanceTolerance),
	}
}

// ValidateEntry checks the structural and balance invariants of a journal entry:
// at least two lines, each line carrying a positive amount on exactly one side,
// and debit and credit totals equal within BalanceTolerance.
func ValidateEntry(entry domain.JournalEntry) error {
	if len(entry.Lines) < 2 {
		return fmt.Errorf("journal entry must have at least two lines, got %d", len(entry.Lines))
	}

	for i, line := range entry.Lines {
		if line.AccountID == "" {
			return fmt.Errorf("line %d: account id is required", i)
		}
		hasDebit := line.Debit.IsPositive()
		hasCredit := line.Credit.IsPositive()
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("line %d: amounts must not be negative", i)
		}
		if hasDebit == hasCredit {
			return fmt.Errorf("line %d: exactly one of debit or credit must be a positive amount", i)
		}
	}

	if check := CheckEntryBalance(entry.Lines); !check.Balanced {
		return fmt.Errorf("entry is unbalanced: debits=%s credits=%s difference=%s",
			check.DebitTotal.String(), check.CreditTotal.String(), check.Difference.String())
	}

	return nil
}

// CalculateSignedAmount applies the correct sign to a transaction amount based
// on account type and transaction type. Used by both services and repositories
// to keep the accounting convention in one place.
//
// DEBIT to ASSET/EXPENSE -> Positive (+)
// CREDIT to ASSET/EXPENSE -> Negative (-)
// DEBIT to LIABILITY/EQUITY/REVENUE -> Negative (-)
// CREDIT to LIABILITY/EQUITY/REVENUE -> Positive (+)
func CalculateSignedAmount(txn domain.Transaction, accountType domain.AccountType) (decimal.Decimal, error) {
	signedAmount := txn.Amount
	isDebit := txn.TransactionType == domain.Debit

	switch accountType {
	case domain.Asset, domain.Expense:
		if !isDebit {
			signedAmount = signedAmount.Neg()
		}
	case domain.Liability, domain.Equity, domain.Revenue:
		if isDebit {
			signedAmount = signedAmount.Neg()
		}
	default:
		return decimal.Zero, fmt.Errorf("unknown account type '%s' encountered for account ID %s", accountType, txn.AccountID)
	}
	return signedAmount, nil
}
