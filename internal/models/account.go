package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a ledger account. AccountNumber and OwnerID are
// immutable after creation; Balance is only mutated through the ledger
// engine and never goes negative.
type Account struct {
	AccountNumber string          `json:"account_number"`
	OwnerID       string          `json:"owner_id"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
