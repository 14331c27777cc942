package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/event-driven-wallet/internal/domain/blocklist"
	"github.com/event-driven-wallet/internal/domain/transaction"
	"github.com/event-driven-wallet/internal/domain/wallet"
)

// DepositRequest credits a wallet.
type DepositRequest struct {
	WalletID       uuid.UUID
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// WithdrawalRequest debits a wallet.
type WithdrawalRequest struct {
	WalletID       uuid.UUID
	Amount         decimal.Decimal
	Description    string
	IdempotencyKey string
}

// TransferRequest moves money between two wallets.
type TransferRequest struct {
	SourceWalletID      uuid.UUID
	DestinationWalletID uuid.UUID
	Amount              decimal.Decimal
	Description         string
	IdempotencyKey      string
}

// TransferResult carries both legs of a completed transfer.
type TransferResult struct {
	Outgoing *transaction.Transaction
	Incoming *transaction.Transaction
}

// TransactionService is the single writer of wallet balances. All money
// movement flows through it.
type TransactionService interface {
	Deposit(ctx context.Context, req *DepositRequest) (*transaction.Transaction, error)
	Withdraw(ctx context.Context, req *WithdrawalRequest) (*transaction.Transaction, error)
	Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error)

	GetBalance(ctx context.Context, walletID uuid.UUID) (*wallet.Balance, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*transaction.Transaction, int64, error)

	// ProvisionWallet creates a balance record for a freshly created wallet.
	// Redelivered wallet-created events are no-ops.
	ProvisionWallet(ctx context.Context, walletID, userID uuid.UUID, currency string, initialBalance decimal.Decimal) error

	// ApplyBlock records a fraud BLOCK decision in the local block registry.
	// Redelivered user-blocked events are no-ops.
	ApplyBlock(ctx context.Context, blocked *blocklist.BlockedUser) error
}
