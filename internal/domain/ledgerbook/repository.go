package ledgerbook

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AccountRepository manages ledger account persistence
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByExternalIDAndCurrency(ctx context.Context, externalID uuid.UUID, currency string) (*Account, error)
	GetByTypeAndCurrency(ctx context.Context, accountType AccountType, currency string) (*Account, error)
	ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error)
	WithTx(tx pgx.Tx) AccountRepository
}

// JournalRepository manages ledger journal persistence
type JournalRepository interface {
	Create(ctx context.Context, journal *Journal) error
	ExistsByTransactionID(ctx context.Context, transactionID uuid.UUID) (bool, error)
	WithTx(tx pgx.Tx) JournalRepository
}

// EntryRepository manages append-only ledger entries
type EntryRepository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByJournalID(ctx context.Context, journalID uuid.UUID) ([]*Entry, error)

	// SumBySide totals entry amounts for one side across the whole book;
	// DEBIT and CREDIT sums must always be equal.
	SumBySide(ctx context.Context, side Side) (decimal.Decimal, error)
	WithTx(tx pgx.Tx) EntryRepository
}

// ErrAccountNotFound indicates missing ledger account
type ErrAccountNotFound struct {
	AccountNumber string
}

func (e ErrAccountNotFound) Error() string {
	return "ledger account not found: " + e.AccountNumber
}

func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountNumber == "" {
		return true
	}
	return e.AccountNumber == t.AccountNumber
}

// ErrDuplicateAccount indicates the account number is already taken. Lazy
// wallet-account provisioning treats it as losing a harmless race.
type ErrDuplicateAccount struct {
	AccountNumber string
}

func (e ErrDuplicateAccount) Error() string {
	return "ledger account already exists: " + e.AccountNumber
}

func (e ErrDuplicateAccount) Is(target error) bool {
	_, ok := target.(ErrDuplicateAccount)
	return ok
}

// ErrSystemAccountMissing indicates ledger seeding did not run for the
// currency. Fatal configuration error, never retried.
type ErrSystemAccountMissing struct {
	AccountType AccountType
	Currency    string
}

func (e ErrSystemAccountMissing) Error() string {
	return "system account missing: " + string(e.AccountType) + " " + e.Currency
}

func (e ErrSystemAccountMissing) Is(target error) bool {
	_, ok := target.(ErrSystemAccountMissing)
	return ok
}

// ErrDuplicateJournal indicates the transaction was already posted
type ErrDuplicateJournal struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateJournal) Error() string {
	return "journal already exists for transaction: " + e.TransactionID.String()
}

func (e ErrDuplicateJournal) Is(target error) bool {
	_, ok := target.(ErrDuplicateJournal)
	return ok
}
