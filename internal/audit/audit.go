// Package audit runs the scheduled ledger consistency sweep: it walks
// every account and its history and reports anything that violates the
// ledger invariants.
package audit

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/corebank/ledger-service/internal/ledger"
	"github.com/corebank/ledger-service/internal/models"
)

// Auditor verifies the committed ledger state against the engine's
// invariants: non-negative balances, strictly increasing transaction ids
// per account, positive amounts, known entry types.
type Auditor struct {
	repo ledger.Repository
	log  *logrus.Logger
}

// NewAuditor initializes an auditor over the same storage the engine uses.
func NewAuditor(repo ledger.Repository, log *logrus.Logger) *Auditor {
	return &Auditor{repo: repo, log: log}
}

// Run performs one full sweep. Every violation is logged; the first kind
// of violation found is also returned so schedulers can alert on it.
func (a *Auditor) Run(ctx context.Context) error {
	accounts, err := a.repo.Accounts().ListAll(ctx)
	if err != nil {
		return fmt.Errorf("audit: list accounts: %w", err)
	}

	var firstViolation error
	violation := func(format string, args ...any) {
		err := fmt.Errorf(format, args...)
		a.log.WithField("check", "ledger_audit").Error(err.Error())
		if firstViolation == nil {
			firstViolation = err
		}
	}

	total := decimal.Zero
	entries := 0
	for _, account := range accounts {
		if account.Balance.Sign() < 0 {
			violation("account %s has negative balance %s", account.AccountNumber, account.Balance)
		}
		total = total.Add(account.Balance)

		history, err := a.repo.Transactions().FindByAccount(ctx, account.AccountNumber)
		if err != nil {
			return fmt.Errorf("audit: history of %s: %w", account.AccountNumber, err)
		}
		entries += len(history)

		lastID := int64(0)
		for _, entry := range history {
			if entry.TransactionID <= lastID {
				violation("account %s: transaction id %d not increasing after %d",
					account.AccountNumber, entry.TransactionID, lastID)
			}
			lastID = entry.TransactionID
			if entry.Amount.Sign() <= 0 {
				violation("account %s: transaction %d has non-positive amount %s",
					account.AccountNumber, entry.TransactionID, entry.Amount)
			}
			if !knownType(entry.Type) {
				violation("account %s: transaction %d has unknown type %q",
					account.AccountNumber, entry.TransactionID, entry.Type)
			}
		}
	}

	a.log.WithFields(logrus.Fields{
		"accounts":     len(accounts),
		"transactions": entries,
		"total_value":  total.StringFixed(2),
	}).Info("ledger audit completed")
	return firstViolation
}

func knownType(t models.TransactionType) bool {
	switch t {
	case models.TransactionDeposit, models.TransactionWithdraw,
		models.TransactionTransferIn, models.TransactionTransferOut:
		return true
	}
	return false
}

// Schedule registers the sweep on a cron schedule and starts the
// scheduler. The caller owns stopping it.
func (a *Auditor) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := a.Run(context.Background()); err != nil {
			a.log.Errorf("scheduled ledger audit failed: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid audit schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
