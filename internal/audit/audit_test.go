package audit

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corebank/ledger-service/internal/ledger"
	"github.com/corebank/ledger-service/internal/models"
	"github.com/corebank/ledger-service/internal/repository"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestAuditPassesOnConsistentLedger(t *testing.T) {
	repo := repository.NewMemory()
	engine := ledger.NewEngine(repo, testLogger())
	ctx := context.Background()

	_, err := engine.CreateAccount(ctx, "A1", "owner1", decimal.RequireFromString("100.00"))
	require.NoError(t, err)
	_, err = engine.CreateAccount(ctx, "A2", "owner2", decimal.RequireFromString("0.00"))
	require.NoError(t, err)
	_, err = engine.Deposit(ctx, "A1", decimal.RequireFromString("25.00"))
	require.NoError(t, err)
	require.NoError(t, engine.Transfer(ctx, "A1", "A2", decimal.RequireFromString("50.00")))

	assert.NoError(t, NewAuditor(repo, testLogger()).Run(ctx))
}

// corruptRepo serves hand-built state that violates the ledger invariants.
type corruptRepo struct {
	accounts []models.Account
	history  map[string][]models.Transaction
}

func (r *corruptRepo) Accounts() ledger.AccountStore       { return (*corruptAccounts)(r) }
func (r *corruptRepo) Transactions() ledger.TransactionLog { return (*corruptLog)(r) }
func (r *corruptRepo) Begin(ctx context.Context) (ledger.UnitOfWork, error) {
	panic("not used by the auditor")
}

type corruptAccounts corruptRepo

func (s *corruptAccounts) Create(ctx context.Context, a models.Account) (models.Account, error) {
	panic("not used by the auditor")
}

func (s *corruptAccounts) Get(ctx context.Context, n string) (models.Account, error) {
	panic("not used by the auditor")
}

func (s *corruptAccounts) ApplyDelta(ctx context.Context, n string, d decimal.Decimal) (models.Account, error) {
	panic("not used by the auditor")
}

func (s *corruptAccounts) ListAll(ctx context.Context) ([]models.Account, error) {
	return s.accounts, nil
}

type corruptLog corruptRepo

func (l *corruptLog) Append(ctx context.Context, n string, tt models.TransactionType, a decimal.Decimal, d string) (models.Transaction, error) {
	panic("not used by the auditor")
}

func (l *corruptLog) FindByAccount(ctx context.Context, n string) ([]models.Transaction, error) {
	return l.history[n], nil
}

func TestAuditDetectsNegativeBalance(t *testing.T) {
	repo := &corruptRepo{
		accounts: []models.Account{{AccountNumber: "A1", OwnerID: "o", Balance: decimal.RequireFromString("-1.00")}},
		history:  map[string][]models.Transaction{},
	}
	err := NewAuditor(repo, testLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative balance")
}

func TestAuditDetectsBrokenOrdering(t *testing.T) {
	now := time.Now()
	repo := &corruptRepo{
		accounts: []models.Account{{AccountNumber: "A1", OwnerID: "o", Balance: decimal.RequireFromString("1.00")}},
		history: map[string][]models.Transaction{
			"A1": {
				{TransactionID: 7, AccountNumber: "A1", Type: models.TransactionDeposit, Amount: decimal.RequireFromString("1.00"), Timestamp: now},
				{TransactionID: 3, AccountNumber: "A1", Type: models.TransactionDeposit, Amount: decimal.RequireFromString("1.00"), Timestamp: now},
			},
		},
	}
	err := NewAuditor(repo, testLogger()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not increasing")
}
