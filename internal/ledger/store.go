package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger-service/internal/models"
)

// AccountStore owns account existence and balance state.
type AccountStore interface {
	// Create inserts a new account. Returns *AlreadyExistsError if the
	// account number is taken.
	Create(ctx context.Context, account models.Account) (models.Account, error)

	// Get returns the account or *NotFoundError.
	Get(ctx context.Context, accountNumber string) (models.Account, error)

	// ApplyDelta atomically adjusts the balance by a signed amount.
	// Returns *NotFoundError if the account is absent and
	// *InsufficientFundsError if the result would be negative.
	ApplyDelta(ctx context.Context, accountNumber string, delta decimal.Decimal) (models.Account, error)

	// ListAll returns every account sorted by account number ascending.
	ListAll(ctx context.Context) ([]models.Account, error)
}

// TransactionLog is the append-only history of ledger entries.
type TransactionLog interface {
	// Append records one entry, assigning a fresh monotonic transaction id
	// and the current timestamp. Amounts <= 0 are rejected with
	// *InvalidAmountError.
	Append(ctx context.Context, accountNumber string, txType models.TransactionType, amount decimal.Decimal, description string) (models.Transaction, error)

	// FindByAccount returns the account's entries in ascending transaction
	// id order. An account with no history yields an empty slice.
	FindByAccount(ctx context.Context, accountNumber string) ([]models.Transaction, error)
}

// UnitOfWork groups store and log writes so that everything an engine
// operation does becomes visible atomically, or not at all.
type UnitOfWork interface {
	Accounts() AccountStore
	Transactions() TransactionLog
	Commit() error
	Rollback() error
}

// Repository is the storage handle the engine is constructed with.
// The Accounts/Transactions views auto-commit and serve reads; Begin
// opens a unit of work for mutating operations.
type Repository interface {
	Accounts() AccountStore
	Transactions() TransactionLog
	Begin(ctx context.Context) (UnitOfWork, error)
}
