package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository defines wallet balance persistence operations
type Repository interface {
	Create(ctx context.Context, balance *Balance) error
	GetByWalletID(ctx context.Context, walletID uuid.UUID) (*Balance, error)
	ExistsByWalletID(ctx context.Context, walletID uuid.UUID) (bool, error)

	// UpdateBalance writes the new balance conditionally on the version the
	// caller read. A stale version returns ErrConcurrentModification.
	UpdateBalance(ctx context.Context, walletID uuid.UUID, newBalance decimal.Decimal, version int64) error
	WithTx(tx pgx.Tx) Repository
}

// ErrWalletNotFound indicates no balance record exists for the wallet
type ErrWalletNotFound struct {
	WalletID uuid.UUID
}

func (e ErrWalletNotFound) Error() string {
	return "wallet balance not found: " + e.WalletID.String()
}

// Is matches any ErrWalletNotFound when the target carries a nil wallet id
func (e ErrWalletNotFound) Is(target error) bool {
	t, ok := target.(ErrWalletNotFound)
	if !ok {
		return false
	}
	if t.WalletID == uuid.Nil {
		return true
	}
	return e.WalletID == t.WalletID
}

// ErrInsufficientBalance indicates a debit larger than the current balance
type ErrInsufficientBalance struct {
	WalletID  uuid.UUID
	Balance   decimal.Decimal
	Requested decimal.Decimal
}

func (e ErrInsufficientBalance) Error() string {
	return "insufficient balance for wallet " + e.WalletID.String() +
		": balance " + e.Balance.String() + ", requested " + e.Requested.String()
}

func (e ErrInsufficientBalance) Is(target error) bool {
	_, ok := target.(ErrInsufficientBalance)
	return ok
}

// ErrConcurrentModification indicates optimistic lock failure
type ErrConcurrentModification struct {
	WalletID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for wallet: " + e.WalletID.String()
}

func (e ErrConcurrentModification) Is(target error) bool {
	_, ok := target.(ErrConcurrentModification)
	return ok
}

// ErrDuplicateWallet indicates a balance already exists for the wallet
type ErrDuplicateWallet struct {
	WalletID uuid.UUID
}

func (e ErrDuplicateWallet) Error() string {
	return "wallet balance already exists: " + e.WalletID.String()
}
