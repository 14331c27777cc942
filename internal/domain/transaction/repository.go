package transaction

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transaction persistence operations. Create relies on
// the unique index over idempotency_key as the authoritative dedup guard:
// a uniqueness violation surfaces as ErrDuplicateTransaction regardless of
// any pre-check the caller ran.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	Update(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error)
	GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrDuplicateTransaction indicates idempotency key reuse
type ErrDuplicateTransaction struct {
	IdempotencyKey string
}

func (e ErrDuplicateTransaction) Error() string {
	return "duplicate transaction for idempotency key: " + e.IdempotencyKey
}

func (e ErrDuplicateTransaction) Is(target error) bool {
	t, ok := target.(ErrDuplicateTransaction)
	if !ok {
		return false
	}
	if t.IdempotencyKey == "" {
		return true
	}
	return e.IdempotencyKey == t.IdempotencyKey
}

// ErrTransactionNotFound indicates missing transaction
type ErrTransactionNotFound struct {
	ID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.ID.String()
}

func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}
