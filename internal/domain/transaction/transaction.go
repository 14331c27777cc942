package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrMissingIdemKey  = errors.New("idempotency key is required")
	ErrSameWallet      = errors.New("source and destination wallets must differ")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
)

// Type defines the money-movement operations
type Type string

const (
	TypeDeposit     Type = "DEPOSIT"
	TypeWithdrawal  Type = "WITHDRAWAL"
	TypeTransferIn  Type = "TRANSFER_IN"
	TypeTransferOut Type = "TRANSFER_OUT"
)

// Status defines the transaction lifecycle. PENDING transitions exactly once
// to COMPLETED or FAILED; both are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Transaction is the system of record for a single money movement leg.
// FAILED transactions are persisted even when the enclosing balance mutation
// rolls back, so duplicate submissions of a failed key are still detected.
type Transaction struct {
	ID                   uuid.UUID       `json:"id"`
	IdempotencyKey       string          `json:"idempotency_key"`
	Type                 Type            `json:"type"`
	Status               Status          `json:"status"`
	WalletID             uuid.UUID       `json:"wallet_id"`
	UserID               uuid.UUID       `json:"user_id"`
	RelatedWalletID      *uuid.UUID      `json:"related_wallet_id,omitempty"`
	RelatedTransactionID *uuid.UUID      `json:"related_transaction_id,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	BalanceAfter         *decimal.Decimal `json:"balance_after,omitempty"`
	Description          string          `json:"description,omitempty"`
	ErrorMessage         string          `json:"error_message,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
}

// New creates a PENDING transaction leg.
func New(typ Type, walletID, userID uuid.UUID, amount decimal.Decimal, currency, idempotencyKey, description string) *Transaction {
	return &Transaction{
		ID:             uuid.New(),
		IdempotencyKey: idempotencyKey,
		Type:           typ,
		Status:         StatusPending,
		WalletID:       walletID,
		UserID:         userID,
		Amount:         amount,
		Currency:       currency,
		Description:    description,
		CreatedAt:      time.Now().UTC(),
	}
}

// Complete marks the transaction COMPLETED and records the balance after the
// mutation. Terminal.
func (t *Transaction) Complete(balanceAfter decimal.Decimal) {
	now := time.Now().UTC()
	t.Status = StatusCompleted
	t.BalanceAfter = &balanceAfter
	t.CompletedAt = &now
}

// Fail marks the transaction FAILED with the business error. Terminal.
func (t *Transaction) Fail(errorMessage string) {
	now := time.Now().UTC()
	t.Status = StatusFailed
	t.ErrorMessage = errorMessage
	t.CompletedAt = &now
}

// Link cross-references the paired leg of a transfer.
func (t *Transaction) Link(other *Transaction) {
	walletID := other.WalletID
	txID := other.ID
	t.RelatedWalletID = &walletID
	t.RelatedTransactionID = &txID
}
