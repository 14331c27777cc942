package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/event-driven-wallet/internal/domain/transaction"
	"github.com/event-driven-wallet/internal/domain/wallet"
)

// DepositRequest credits a wallet.
type DepositRequest struct {
	WalletID       string          `json:"wallet_id" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Description    string          `json:"description,omitempty"`
	IdempotencyKey string          `json:"idempotency_key" binding:"required"`
}

// WithdrawalRequest debits a wallet.
type WithdrawalRequest struct {
	WalletID       string          `json:"wallet_id" binding:"required,uuid"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Description    string          `json:"description,omitempty"`
	IdempotencyKey string          `json:"idempotency_key" binding:"required"`
}

// TransferRequest moves money between two wallets.
type TransferRequest struct {
	SourceWalletID      string          `json:"source_wallet_id" binding:"required,uuid"`
	DestinationWalletID string          `json:"destination_wallet_id" binding:"required,uuid"`
	Amount              decimal.Decimal `json:"amount" binding:"required"`
	Description         string          `json:"description,omitempty"`
	IdempotencyKey      string          `json:"idempotency_key" binding:"required"`
}

// TransactionResponse represents one transaction leg in API responses.
type TransactionResponse struct {
	ID                   string  `json:"id"`
	IdempotencyKey       string  `json:"idempotency_key"`
	Type                 string  `json:"type"`
	Status               string  `json:"status"`
	WalletID             string  `json:"wallet_id"`
	UserID               string  `json:"user_id"`
	RelatedWalletID      *string `json:"related_wallet_id,omitempty"`
	RelatedTransactionID *string `json:"related_transaction_id,omitempty"`
	Amount               string  `json:"amount"`
	Currency             string  `json:"currency"`
	BalanceAfter         *string `json:"balance_after,omitempty"`
	Description          string  `json:"description,omitempty"`
	ErrorMessage         string  `json:"error_message,omitempty"`
	CreatedAt            string  `json:"created_at"`
	CompletedAt          *string `json:"completed_at,omitempty"`
}

// TransferResponse carries both legs of a completed transfer.
type TransferResponse struct {
	Outgoing TransactionResponse `json:"outgoing"`
	Incoming TransactionResponse `json:"incoming"`
}

// BalanceResponse represents a wallet balance in API responses.
type BalanceResponse struct {
	WalletID  string `json:"wallet_id"`
	UserID    string `json:"user_id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	Version   int64  `json:"version"`
	UpdatedAt string `json:"updated_at"`
}

// TransactionListResponse represents a page of transactions.
type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// PaginationParams represents pagination parameters for list endpoints.
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

func mapTransactionToResponse(txn *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:             txn.ID.String(),
		IdempotencyKey: txn.IdempotencyKey,
		Type:           string(txn.Type),
		Status:         string(txn.Status),
		WalletID:       txn.WalletID.String(),
		UserID:         txn.UserID.String(),
		Amount:         txn.Amount.String(),
		Currency:       txn.Currency,
		Description:    txn.Description,
		ErrorMessage:   txn.ErrorMessage,
		CreatedAt:      txn.CreatedAt.Format(time.RFC3339),
	}
	if txn.RelatedWalletID != nil {
		s := txn.RelatedWalletID.String()
		resp.RelatedWalletID = &s
	}
	if txn.RelatedTransactionID != nil {
		s := txn.RelatedTransactionID.String()
		resp.RelatedTransactionID = &s
	}
	if txn.BalanceAfter != nil {
		s := txn.BalanceAfter.String()
		resp.BalanceAfter = &s
	}
	if txn.CompletedAt != nil {
		s := txn.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}

func mapBalanceToResponse(balance *wallet.Balance) BalanceResponse {
	return BalanceResponse{
		WalletID:  balance.WalletID.String(),
		UserID:    balance.UserID.String(),
		Currency:  balance.Currency,
		Balance:   balance.Balance.String(),
		Version:   balance.Version,
		UpdatedAt: balance.UpdatedAt.Format(time.RFC3339),
	}
}
