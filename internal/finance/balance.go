package finance

import (
	"github.com/govalues/money"

	"github.com/sehyunkim/finbook/internal/errs"
)

// Apply computes the balance that results from applying a transaction of the
// given type and amount to balance. It is the single place the ledger rule
// lives; stores call it inside whatever serialization they provide.
//
// Deposits add, withdrawals subtract. A withdrawal larger than the current
// balance returns errs.ErrInsufficientFunds and leaves the caller's state
// untouched. Amounts must be strictly positive and share the balance currency.
func Apply(balance money.Amount, typ TransactionType, amount money.Amount) (money.Amount, error) {
	units, ok := amount.MinorUnits()
	if !ok || units <= 0 {
		return balance, errs.ErrInvalidAmount
	}
	if amount.Curr() != balance.Curr() {
		return balance, errs.ErrCurrencyMismatch
	}
	switch typ {
	case TransactionDeposit:
		next, err := balance.Add(amount)
		if err != nil {
			return balance, err
		}
		return next, nil
	case TransactionWithdraw:
		cmp, err := balance.Cmp(amount)
		if err != nil {
			return balance, err
		}
		if cmp < 0 {
			return balance, errs.ErrInsufficientFunds
		}
		next, err := balance.Sub(amount)
		if err != nil {
			return balance, err
		}
		return next, nil
	default:
		return balance, errs.ErrInvalid
	}
}

// ReportCategory returns the bucket a transaction falls into for
// category-bucketed reports: every deposit collapses into INCOME, withdrawals
// keep their stored category. Unmapped categories map to themselves so the
// reclassification is total.
func ReportCategory(t Transaction) Category {
	if t.Type == TransactionDeposit {
		return CategoryIncome
	}
	if t.Category == "" {
		return CategoryOther
	}
	return t.Category
}

// ZeroAmount returns a zero money amount in the given currency.
func ZeroAmount(c Currency) money.Amount {
	amt, _ := money.NewAmountFromMinorUnits(string(c), 0)
	return amt
}

// MajorUnits converts an amount to a float in major units (e.g. 30000 minor
// KRW -> 30000, 1500 minor USD -> 15.00) for JSON report payloads.
func MajorUnits(a money.Amount) float64 {
	f, _ := a.Float64()
	return f
}
