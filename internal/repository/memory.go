package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corebank/ledger-service/internal/ledger"
	"github.com/corebank/ledger-service/internal/models"
)

// Memory is an in-process ledger.Repository. A unit of work stages its
// writes and applies them under the store mutex on commit, so readers
// never observe a balance change without its transaction entry.
// Transaction ids come from a process-wide monotonic counter; ids taken
// by a rolled-back unit of work are discarded, never reused.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	history  map[string][]models.Transaction
	nextTxID atomic.Int64
}

// NewMemory initializes an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]models.Account),
		history:  make(map[string][]models.Transaction),
	}
}

func (m *Memory) Accounts() ledger.AccountStore { return &memoryAccounts{m: m} }

func (m *Memory) Transactions() ledger.TransactionLog { return &memoryLog{m: m} }

func (m *Memory) Begin(ctx context.Context) (ledger.UnitOfWork, error) {
	return &memoryUnitOfWork{
		m:      m,
		deltas: make(map[string]decimal.Decimal),
	}, nil
}

// memoryAccounts is the auto-commit account view: each call is its own
// atomic step against the store.
type memoryAccounts struct {
	m *Memory
}

func (s *memoryAccounts) Create(ctx context.Context, account models.Account) (models.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.insertLocked(account)
}

func (s *memoryAccounts) Get(ctx context.Context, accountNumber string) (models.Account, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	account, ok := s.m.accounts[accountNumber]
	if !ok {
		return models.Account{}, &ledger.NotFoundError{AccountNumber: accountNumber}
	}
	return account, nil
}

func (s *memoryAccounts) ApplyDelta(ctx context.Context, accountNumber string, delta decimal.Decimal) (models.Account, error) {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	return s.m.applyDeltaLocked(accountNumber, delta)
}

func (s *memoryAccounts) ListAll(ctx context.Context) ([]models.Account, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	out := make([]models.Account, 0, len(s.m.accounts))
	for _, a := range s.m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out, nil
}

// memoryLog is the auto-commit transaction view.
type memoryLog struct {
	m *Memory
}

func (l *memoryLog) Append(ctx context.Context, accountNumber string, txType models.TransactionType, amount decimal.Decimal, description string) (models.Transaction, error) {
	entry, err := l.m.newEntry(accountNumber, txType, amount, description)
	if err != nil {
		return models.Transaction{}, err
	}
	l.m.mu.Lock()
	defer l.m.mu.Unlock()
	l.m.history[accountNumber] = append(l.m.history[accountNumber], entry)
	return entry, nil
}

func (l *memoryLog) FindByAccount(ctx context.Context, accountNumber string) ([]models.Transaction, error) {
	l.m.mu.RLock()
	defer l.m.mu.RUnlock()
	entries := l.m.history[accountNumber]
	out := make([]models.Transaction, len(entries))
	copy(out, entries)
	return out, nil
}

func (m *Memory) insertLocked(account models.Account) (models.Account, error) {
	if _, ok := m.accounts[account.AccountNumber]; ok {
		return models.Account{}, &ledger.AlreadyExistsError{AccountNumber: account.AccountNumber}
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	m.accounts[account.AccountNumber] = account
	return account, nil
}

func (m *Memory) applyDeltaLocked(accountNumber string, delta decimal.Decimal) (models.Account, error) {
	account, ok := m.accounts[accountNumber]
	if !ok {
		return models.Account{}, &ledger.NotFoundError{AccountNumber: accountNumber}
	}
	next := account.Balance.Add(delta)
	if next.Sign() < 0 {
		return models.Account{}, &ledger.InsufficientFundsError{
			AccountNumber: accountNumber,
			Balance:       account.Balance,
			Requested:     delta.Neg(),
		}
	}
	account.Balance = next
	account.UpdatedAt = time.Now()
	m.accounts[accountNumber] = account
	return account, nil
}

func (m *Memory) newEntry(accountNumber string, txType models.TransactionType, amount decimal.Decimal, description string) (models.Transaction, error) {
	if amount.Sign() <= 0 {
		return models.Transaction{}, &ledger.InvalidAmountError{Reason: "transaction amount must be positive"}
	}
	return models.Transaction{
		TransactionID: m.nextTxID.Add(1),
		AccountNumber: accountNumber,
		Type:          txType,
		Amount:        amount,
		Timestamp:     time.Now(),
		Description:   description,
	}, nil
}

// memoryUnitOfWork stages creates, balance deltas, and log appends. The
// engine holds the per-account locks for every account the unit touches,
// so stage-time validation cannot be invalidated by a concurrent commit.
type memoryUnitOfWork struct {
	m        *Memory
	done     bool
	created  []models.Account
	deltas   map[string]decimal.Decimal
	appended []models.Transaction
}

func (u *memoryUnitOfWork) Accounts() ledger.AccountStore       { return &uowAccounts{u: u} }
func (u *memoryUnitOfWork) Transactions() ledger.TransactionLog { return &uowLog{u: u} }

func (u *memoryUnitOfWork) Commit() error {
	if u.done {
		return fmt.Errorf("unit of work already finished")
	}
	u.done = true

	u.m.mu.Lock()
	defer u.m.mu.Unlock()
	for _, account := range u.created {
		if _, err := u.m.insertLocked(account); err != nil {
			return err
		}
	}
	for accountNumber, delta := range u.deltas {
		if _, err := u.m.applyDeltaLocked(accountNumber, delta); err != nil {
			return err
		}
	}
	for _, entry := range u.appended {
		u.m.history[entry.AccountNumber] = append(u.m.history[entry.AccountNumber], entry)
	}
	return nil
}

func (u *memoryUnitOfWork) Rollback() error {
	u.done = true
	return nil
}

// uowAccounts resolves reads against the base store plus this unit's
// staged writes.
type uowAccounts struct {
	u *memoryUnitOfWork
}

func (s *uowAccounts) stagedGet(accountNumber string) (models.Account, bool) {
	s.u.m.mu.RLock()
	account, ok := s.u.m.accounts[accountNumber]
	s.u.m.mu.RUnlock()
	if !ok {
		for _, c := range s.u.created {
			if c.AccountNumber == accountNumber {
				account, ok = c, true
				break
			}
		}
	}
	if !ok {
		return models.Account{}, false
	}
	if delta, has := s.u.deltas[accountNumber]; has {
		account.Balance = account.Balance.Add(delta)
	}
	return account, true
}

func (s *uowAccounts) Create(ctx context.Context, account models.Account) (models.Account, error) {
	if _, exists := s.stagedGet(account.AccountNumber); exists {
		return models.Account{}, &ledger.AlreadyExistsError{AccountNumber: account.AccountNumber}
	}
	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now
	s.u.created = append(s.u.created, account)
	return account, nil
}

func (s *uowAccounts) Get(ctx context.Context, accountNumber string) (models.Account, error) {
	account, ok := s.stagedGet(accountNumber)
	if !ok {
		return models.Account{}, &ledger.NotFoundError{AccountNumber: accountNumber}
	}
	return account, nil
}

func (s *uowAccounts) ApplyDelta(ctx context.Context, accountNumber string, delta decimal.Decimal) (models.Account, error) {
	account, ok := s.stagedGet(accountNumber)
	if !ok {
		return models.Account{}, &ledger.NotFoundError{AccountNumber: accountNumber}
	}
	next := account.Balance.Add(delta)
	if next.Sign() < 0 {
		return models.Account{}, &ledger.InsufficientFundsError{
			AccountNumber: accountNumber,
			Balance:       account.Balance,
			Requested:     delta.Neg(),
		}
	}
	s.u.deltas[accountNumber] = s.u.deltas[accountNumber].Add(delta)
	account.Balance = next
	return account, nil
}

func (s *uowAccounts) ListAll(ctx context.Context) ([]models.Account, error) {
	base, err := (&memoryAccounts{m: s.u.m}).ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range base {
		if delta, has := s.u.deltas[base[i].AccountNumber]; has {
			base[i].Balance = base[i].Balance.Add(delta)
		}
	}
	for _, c := range s.u.created {
		if delta, has := s.u.deltas[c.AccountNumber]; has {
			c.Balance = c.Balance.Add(delta)
		}
		base = append(base, c)
	}
	sort.Slice(base, func(i, j int) bool { return base[i].AccountNumber < base[j].AccountNumber })
	return base, nil
}

// uowLog stages appends; ids and timestamps are assigned at append time
// so the returned entry is final if the unit commits.
type uowLog struct {
	u *memoryUnitOfWork
}

func (l *uowLog) Append(ctx context.Context, accountNumber string, txType models.TransactionType, amount decimal.Decimal, description string) (models.Transaction, error) {
	entry, err := l.u.m.newEntry(accountNumber, txType, amount, description)
	if err != nil {
		return models.Transaction{}, err
	}
	l.u.appended = append(l.u.appended, entry)
	return entry, nil
}

func (l *uowLog) FindByAccount(ctx context.Context, accountNumber string) ([]models.Transaction, error) {
	base, err := (&memoryLog{m: l.u.m}).FindByAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	for _, entry := range l.u.appended {
		if entry.AccountNumber == accountNumber {
			base = append(base, entry)
		}
	}
	return base, nil
}

var _ ledger.Repository = (*Memory)(nil)
