package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/corebank/ledger-service/internal/ledger"
	"github.com/corebank/ledger-service/internal/models"
)

// pq unique_violation
const uniqueViolation = "23505"

// querier is satisfied by both *sql.DB and *sql.Tx, letting the same
// queries serve the auto-commit views and units of work.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Postgres is a ledger.Repository backed by PostgreSQL. Units of work map
// to database transactions, so balance updates and log appends commit or
// roll back together. See migrations/001_init.sql for the schema.
type Postgres struct {
	db *sql.DB
}

// NewPostgres initializes a repository over an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Accounts() ledger.AccountStore {
	return &pgAccounts{q: p.db}
}

func (p *Postgres) Transactions() ledger.TransactionLog {
	return &pgLog{q: p.db}
}

func (p *Postgres) Begin(ctx context.Context) (ledger.UnitOfWork, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &pgUnitOfWork{tx: tx}, nil
}

type pgUnitOfWork struct {
	tx *sql.Tx
}

func (u *pgUnitOfWork) Accounts() ledger.AccountStore       { return &pgAccounts{q: u.tx} }
func (u *pgUnitOfWork) Transactions() ledger.TransactionLog { return &pgLog{q: u.tx} }
func (u *pgUnitOfWork) Commit() error                       { return u.tx.Commit() }
func (u *pgUnitOfWork) Rollback() error                     { return u.tx.Rollback() }

type pgAccounts struct {
	q querier
}

func (s *pgAccounts) Create(ctx context.Context, account models.Account) (models.Account, error) {
	query := `
		INSERT INTO bank.accounts (account_number, owner_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := s.q.QueryRowContext(ctx, query, account.AccountNumber, account.OwnerID, account.Balance).
		Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.Account{}, &ledger.AlreadyExistsError{AccountNumber: account.AccountNumber}
		}
		return models.Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (s *pgAccounts) Get(ctx context.Context, accountNumber string) (models.Account, error) {
	account := models.Account{}
	query := `
		SELECT account_number, owner_id, balance, created_at, updated_at
		FROM bank.accounts
		WHERE account_number = $1`
	err := s.q.QueryRowContext(ctx, query, accountNumber).
		Scan(&account.AccountNumber, &account.OwnerID, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Account{}, &ledger.NotFoundError{AccountNumber: accountNumber}
	}
	if err != nil {
		return models.Account{}, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// ApplyDelta adjusts the balance in one conditional UPDATE. The guard in
// the WHERE clause refuses a negative result, so the check and the write
// are a single atomic step even outside an explicit transaction.
func (s *pgAccounts) ApplyDelta(ctx context.Context, accountNumber string, delta decimal.Decimal) (models.Account, error) {
	account := models.Account{}
	query := `
		UPDATE bank.accounts
		SET balance = balance + $2, updated_at = CURRENT_TIMESTAMP
		WHERE account_number = $1 AND balance + $2 >= 0
		RETURNING account_number, owner_id, balance, created_at, updated_at`
	err := s.q.QueryRowContext(ctx, query, accountNumber, delta).
		Scan(&account.AccountNumber, &account.OwnerID, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if err == nil {
		return account, nil
	}
	if err != sql.ErrNoRows {
		return models.Account{}, fmt.Errorf("failed to adjust balance: %w", err)
	}

	// No row matched: either the account is missing or the guard refused
	// the debit. Re-read to report the right error.
	current, getErr := s.Get(ctx, accountNumber)
	if getErr != nil {
		return models.Account{}, getErr
	}
	return models.Account{}, &ledger.InsufficientFundsError{
		AccountNumber: accountNumber,
		Balance:       current.Balance,
		Requested:     delta.Neg(),
	}
}

func (s *pgAccounts) ListAll(ctx context.Context) ([]models.Account, error) {
	query := `
		SELECT account_number, owner_id, balance, created_at, updated_at
		FROM bank.accounts
		ORDER BY account_number ASC`
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		account := models.Account{}
		if err := rows.Scan(&account.AccountNumber, &account.OwnerID, &account.Balance, &account.CreatedAt, &account.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

type pgLog struct {
	q querier
}

func (l *pgLog) Append(ctx context.Context, accountNumber string, txType models.TransactionType, amount decimal.Decimal, description string) (models.Transaction, error) {
	if amount.Sign() <= 0 {
		return models.Transaction{}, &ledger.InvalidAmountError{Reason: "transaction amount must be positive"}
	}
	entry := models.Transaction{
		AccountNumber: accountNumber,
		Type:          txType,
		Amount:        amount,
		Description:   description,
	}
	query := `
		INSERT INTO bank.transactions (account_number, type, amount, description, created_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP)
		RETURNING transaction_id, created_at`
	err := l.q.QueryRowContext(ctx, query, accountNumber, string(txType), amount, description).
		Scan(&entry.TransactionID, &entry.Timestamp)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("failed to append transaction: %w", err)
	}
	return entry, nil
}

func (l *pgLog) FindByAccount(ctx context.Context, accountNumber string) ([]models.Transaction, error) {
	query := `
		SELECT transaction_id, account_number, type, amount, created_at, description
		FROM bank.transactions
		WHERE account_number = $1
		ORDER BY transaction_id ASC`
	rows, err := l.q.QueryContext(ctx, query, accountNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	entries := []models.Transaction{}
	for rows.Next() {
		entry := models.Transaction{}
		var txType string
		if err := rows.Scan(&entry.TransactionID, &entry.AccountNumber, &txType, &entry.Amount, &entry.Timestamp, &entry.Description); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		entry.Type = models.TransactionType(txType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return entries, nil
}

var _ ledger.Repository = (*Postgres)(nil)
