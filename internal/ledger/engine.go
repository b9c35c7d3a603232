// Package ledger implements the account ledger engine: it enforces the
// balance invariants, executes multi-account transfers atomically, and
// records the append-only audit trail. Transport, storage, and auth are
// collaborators injected at construction.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/corebank/ledger-service/internal/models"
)

// Notifier is invoked after a transaction at or above the configured
// threshold commits. Implementations must not block the caller's result;
// the engine already runs the hook on its own goroutine.
type Notifier interface {
	TransactionRecorded(tx models.Transaction, balance decimal.Decimal)
}

// Engine orchestrates all ledger operations. Every mutating operation
// acquires the per-account locks it touches (lexicographic order for
// multi-account operations), runs inside one storage unit of work, and
// either commits fully or leaves no trace.
type Engine struct {
	repo  Repository
	locks *accountLocks
	log   *logrus.Logger

	notifier        Notifier
	notifyThreshold decimal.Decimal
}

// NewEngine initializes an engine bound to its storage.
func NewEngine(repo Repository, log *logrus.Logger) *Engine {
	return &Engine{
		repo:  repo,
		locks: newAccountLocks(),
		log:   log,
	}
}

// WithNotifier enables large-transaction notifications for amounts at or
// above threshold.
func (e *Engine) WithNotifier(n Notifier, threshold decimal.Decimal) *Engine {
	e.notifier = n
	e.notifyThreshold = threshold
	return e
}

// validAmount rejects non-positive amounts and anything finer than two
// fractional digits. Rounding is never applied: a transfer must conserve
// total ledger value exactly.
func validAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return &InvalidAmountError{Reason: "amount must be positive"}
	}
	if !amount.Equal(amount.Truncate(2)) {
		return &InvalidAmountError{Reason: "amount precision is limited to two fractional digits"}
	}
	return nil
}

// CreateAccount registers a new account with the given opening balance.
// Initial funding is not a transaction in this model, so no log entry is
// written.
func (e *Engine) CreateAccount(ctx context.Context, accountNumber, ownerID string, initialBalance decimal.Decimal) (models.Account, error) {
	if accountNumber == "" {
		return models.Account{}, &InvalidAmountError{Reason: "account number must not be empty"}
	}
	if ownerID == "" {
		return models.Account{}, &InvalidAmountError{Reason: "owner id must not be empty"}
	}
	if initialBalance.Sign() < 0 {
		return models.Account{}, &InvalidAmountError{Reason: "initial balance must not be negative"}
	}
	if !initialBalance.Equal(initialBalance.Truncate(2)) {
		return models.Account{}, &InvalidAmountError{Reason: "amount precision is limited to two fractional digits"}
	}

	unlock := e.locks.lock(accountNumber)
	defer unlock()

	var account models.Account
	err := e.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		account, err = uow.Accounts().Create(ctx, models.Account{
			AccountNumber: accountNumber,
			OwnerID:       ownerID,
			Balance:       initialBalance,
		})
		return err
	})
	if err != nil {
		return models.Account{}, err
	}

	e.log.WithFields(logrus.Fields{
		"account": accountNumber,
		"owner":   ownerID,
		"balance": initialBalance.String(),
	}).Info("account created")
	return account, nil
}

// Deposit credits the account and appends one DEPOSIT entry.
func (e *Engine) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) (models.Account, error) {
	if err := validAmount(amount); err != nil {
		return models.Account{}, err
	}

	unlock := e.locks.lock(accountNumber)
	defer unlock()

	var (
		account models.Account
		entry   models.Transaction
	)
	err := e.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		account, err = uow.Accounts().ApplyDelta(ctx, accountNumber, amount)
		if err != nil {
			return err
		}
		entry, err = uow.Transactions().Append(ctx, accountNumber, models.TransactionDeposit, amount, "Deposit")
		return err
	})
	if err != nil {
		return models.Account{}, err
	}

	e.log.WithFields(logrus.Fields{
		"account":     accountNumber,
		"amount":      amount.String(),
		"transaction": entry.TransactionID,
	}).Info("deposit committed")
	e.maybeNotify(entry, account.Balance)
	return account, nil
}

// Withdraw debits the account and appends one WITHDRAW entry. A debit
// that would drive the balance negative is rejected with the balance
// untouched.
func (e *Engine) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal) (models.Account, error) {
	if err := validAmount(amount); err != nil {
		return models.Account{}, err
	}

	unlock := e.locks.lock(accountNumber)
	defer unlock()

	var (
		account models.Account
		entry   models.Transaction
	)
	err := e.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		account, err = uow.Accounts().ApplyDelta(ctx, accountNumber, amount.Neg())
		if err != nil {
			return err
		}
		entry, err = uow.Transactions().Append(ctx, accountNumber, models.TransactionWithdraw, amount, "Withdraw")
		return err
	})
	if err != nil {
		return models.Account{}, err
	}

	e.log.WithFields(logrus.Fields{
		"account":     accountNumber,
		"amount":      amount.String(),
		"transaction": entry.TransactionID,
	}).Info("withdrawal committed")
	e.maybeNotify(entry, account.Balance)
	return account, nil
}

// Transfer moves amount from the source account to the target account as
// one atomic unit: debit, TRANSFER_OUT entry, credit, TRANSFER_IN entry
// all commit together or not at all. The funds check happens before any
// write, so a rejected transfer leaves both accounts and both histories
// unchanged.
func (e *Engine) Transfer(ctx context.Context, sourceAccountNumber, targetAccountNumber string, amount decimal.Decimal) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	if sourceAccountNumber == targetAccountNumber {
		return &InvalidAmountError{Reason: "source and target accounts must differ"}
	}

	unlock := e.locks.lock(sourceAccountNumber, targetAccountNumber)
	defer unlock()

	var outEntry, inEntry models.Transaction
	var sourceBalance, targetBalance decimal.Decimal
	err := e.inUnitOfWork(ctx, func(uow UnitOfWork) error {
		source, err := uow.Accounts().Get(ctx, sourceAccountNumber)
		if err != nil {
			return err
		}
		if _, err := uow.Accounts().Get(ctx, targetAccountNumber); err != nil {
			return err
		}
		if source.Balance.LessThan(amount) {
			return &InsufficientFundsError{
				AccountNumber: sourceAccountNumber,
				Balance:       source.Balance,
				Requested:     amount,
			}
		}

		debited, err := uow.Accounts().ApplyDelta(ctx, sourceAccountNumber, amount.Neg())
		if err != nil {
			return err
		}
		outEntry, err = uow.Transactions().Append(ctx, sourceAccountNumber, models.TransactionTransferOut, amount,
			"Transfer to "+targetAccountNumber)
		if err != nil {
			return err
		}
		credited, err := uow.Accounts().ApplyDelta(ctx, targetAccountNumber, amount)
		if err != nil {
			return err
		}
		inEntry, err = uow.Transactions().Append(ctx, targetAccountNumber, models.TransactionTransferIn, amount,
			"Transfer from "+sourceAccountNumber)
		if err != nil {
			return err
		}
		sourceBalance, targetBalance = debited.Balance, credited.Balance
		return nil
	})
	if err != nil {
		return err
	}

	e.log.WithFields(logrus.Fields{
		"source": sourceAccountNumber,
		"target": targetAccountNumber,
		"amount": amount.String(),
	}).Info("transfer committed")
	e.maybeNotify(outEntry, sourceBalance)
	e.maybeNotify(inEntry, targetBalance)
	return nil
}

// GetBalance returns the committed balance.
func (e *Engine) GetBalance(ctx context.Context, accountNumber string) (decimal.Decimal, error) {
	account, err := e.repo.Accounts().Get(ctx, accountNumber)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return account.Balance, nil
}

// GetTransactions returns the account's history in append order. An
// unknown account is an error; an account with no history is an empty
// slice.
func (e *Engine) GetTransactions(ctx context.Context, accountNumber string) ([]models.Transaction, error) {
	if _, err := e.repo.Accounts().Get(ctx, accountNumber); err != nil {
		return nil, err
	}
	return e.repo.Transactions().FindByAccount(ctx, accountNumber)
}

// ListAccounts returns every account sorted by account number.
func (e *Engine) ListAccounts(ctx context.Context) ([]models.Account, error) {
	return e.repo.Accounts().ListAll(ctx)
}

// inUnitOfWork runs fn inside a fresh unit of work, rolling back on any
// error. Business errors pass through untouched; infrastructure faults
// keep their wrapped cause.
func (e *Engine) inUnitOfWork(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow, err := e.repo.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			e.log.WithError(rbErr).Error("rollback failed")
		}
		return err
	}
	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

func (e *Engine) maybeNotify(tx models.Transaction, balance decimal.Decimal) {
	if e.notifier == nil || tx.Amount.LessThan(e.notifyThreshold) {
		return
	}
	go e.notifier.TransactionRecorded(tx, balance)
}
