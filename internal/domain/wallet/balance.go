package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is the single mutable balance of a wallet. It is only ever
// mutated by the transaction service; the version field drives optimistic
// concurrency on updates.
type Balance struct {
	ID        uuid.UUID       `json:"id"`
	WalletID  uuid.UUID       `json:"wallet_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewBalance creates a zero-balance record for a freshly created wallet.
func NewBalance(walletID, userID uuid.UUID, currency string) *Balance {
	now := time.Now().UTC()
	return &Balance{
		ID:        uuid.New(),
		WalletID:  walletID,
		UserID:    userID,
		Currency:  currency,
		Balance:   decimal.Zero,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Credit adds amount to the balance.
func (b *Balance) Credit(amount decimal.Decimal) {
	b.Balance = b.Balance.Add(amount)
	b.UpdatedAt = time.Now().UTC()
}

// Debit subtracts amount from the balance. The balance never goes negative;
// a debit larger than the balance fails with ErrInsufficientBalance and
// leaves the balance untouched.
func (b *Balance) Debit(amount decimal.Decimal) error {
	if b.Balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance{WalletID: b.WalletID, Balance: b.Balance, Requested: amount}
	}
	b.Balance = b.Balance.Sub(amount)
	b.UpdatedAt = time.Now().UTC()
	return nil
}
