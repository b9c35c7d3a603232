package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// The ledger surfaces exactly four business errors. Anything else coming
// out of an engine operation is an infrastructure fault (storage I/O,
// serialization) and is wrapped rather than classified.

// AlreadyExistsError reports an attempt to create an account whose number
// is already registered.
type AlreadyExistsError struct {
	AccountNumber string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("account %s already exists", e.AccountNumber)
}

// NotFoundError reports an operation against an unknown account.
type NotFoundError struct {
	AccountNumber string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("account %s not found", e.AccountNumber)
}

// InvalidAmountError reports a request the caller must fix: non-positive
// amount, negative initial balance, amounts finer than two fractional
// digits, or missing identifiers.
type InvalidAmountError struct {
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return e.Reason
}

// InsufficientFundsError reports a debit that would drive the balance
// negative. The operation leaves all state unchanged.
type InsufficientFundsError struct {
	AccountNumber string
	Balance       decimal.Decimal
	Requested     decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on account %s: balance %s, requested %s",
		e.AccountNumber, e.Balance, e.Requested)
}
