// Package ledgerbook holds the double-entry ledger model: accounts, journals
// and entries. Entries are append-only; within a journal total DEBIT equals
// total CREDIT, so the whole book stays self-balancing.
package ledgerbook

import (
	"time"

	"github.com/google/uuid"
)

// AccountType tags each ledger account. System accounts are pre-seeded at
// startup; user wallet accounts are created lazily, one per (wallet, currency).
type AccountType string

const (
	AccountTypeUserWallet     AccountType = "USER_WALLET"
	AccountTypeSystemBank     AccountType = "SYSTEM_BANK"
	AccountTypeSystemFees     AccountType = "SYSTEM_FEES"
	AccountTypeSystemSuspense AccountType = "SYSTEM_SUSPENSE"
)

// Account is one side of ledger postings. Never deleted.
type Account struct {
	ID            uuid.UUID   `json:"id"`
	AccountType   AccountType `json:"account_type"`
	AccountNumber string      `json:"account_number"`
	ExternalID    *uuid.UUID  `json:"external_id,omitempty"` // wallet id for user accounts
	Currency      string      `json:"currency"`
	CreatedAt     time.Time   `json:"created_at"`
}

// NewUserAccount creates a lazily provisioned wallet account.
func NewUserAccount(walletID uuid.UUID, currency string) *Account {
	id := walletID
	return &Account{
		ID:            uuid.New(),
		AccountType:   AccountTypeUserWallet,
		AccountNumber: "WALLET-" + walletID.String(),
		ExternalID:    &id,
		Currency:      currency,
		CreatedAt:     time.Now().UTC(),
	}
}

// NewSystemAccount creates a pre-seeded institutional account, numbered
// "<TYPE>-<CURRENCY>".
func NewSystemAccount(accountType AccountType, currency string) *Account {
	return &Account{
		ID:            uuid.New(),
		AccountType:   accountType,
		AccountNumber: string(accountType) + "-" + currency,
		Currency:      currency,
		CreatedAt:     time.Now().UTC(),
	}
}
