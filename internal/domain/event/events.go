// Package event defines the cross-service event contracts carried over Kafka.
// Every event is published at-least-once; consumers must be idempotent.
package event

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Topic names shared by all services.
const (
	TopicTransactionCompleted = "transaction-completed"
	TopicTransactionFailed    = "transaction-failed"
	TopicWalletCreated        = "wallet-created"
	TopicUserBlocked          = "user-blocked"
	TopicFraudAlert           = "fraud-alert"
)

// TransactionCompleted is emitted after a money movement durably commits.
// Keyed by wallet id for per-wallet ordering.
type TransactionCompleted struct {
	EventID              uuid.UUID       `json:"event_id"`
	TransactionID        uuid.UUID       `json:"transaction_id"`
	Type                 string          `json:"type"`
	WalletID             uuid.UUID       `json:"wallet_id"`
	UserID               uuid.UUID       `json:"user_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	BalanceAfter         decimal.Decimal `json:"balance_after"`
	RelatedWalletID      *uuid.UUID      `json:"related_wallet_id,omitempty"`
	RelatedTransactionID *uuid.UUID      `json:"related_transaction_id,omitempty"`
	Description          string          `json:"description,omitempty"`
	CompletedAt          time.Time       `json:"completed_at"`
}

// TransactionFailed is emitted for auditable failures (insufficient balance).
// The FAILED transaction record commits independently of the rolled-back
// mutation before this event is published.
type TransactionFailed struct {
	EventID              uuid.UUID       `json:"event_id"`
	TransactionID        uuid.UUID       `json:"transaction_id"`
	Type                 string          `json:"type"`
	WalletID             uuid.UUID       `json:"wallet_id"`
	UserID               uuid.UUID       `json:"user_id"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	RelatedTransactionID *uuid.UUID      `json:"related_transaction_id,omitempty"`
	Description          string          `json:"description,omitempty"`
	FailedAt             time.Time       `json:"failed_at"`
	ErrorReason          string          `json:"error_reason"`
}

// WalletCreated provisions a zero-balance WalletBalance in the transaction
// service when consumed.
type WalletCreated struct {
	EventID        uuid.UUID       `json:"event_id"`
	WalletID       uuid.UUID       `json:"wallet_id"`
	UserID         uuid.UUID       `json:"user_id"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CreatedAt      time.Time       `json:"created_at"`
}

// UserBlocked carries a fraud BLOCK decision back to the transaction service.
// Keyed by user id.
type UserBlocked struct {
	UserID                   uuid.UUID `json:"user_id"`
	TriggeredByTransactionID uuid.UUID `json:"triggered_by_transaction_id"`
	Reason                   string    `json:"reason"`
	RiskScore                int       `json:"risk_score"`
	BlockedAt                time.Time `json:"blocked_at"`
}

// FraudAlert notifies downstream listeners of a FLAG or BLOCK decision.
type FraudAlert struct {
	AnalysisID    uuid.UUID `json:"analysis_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	RiskScore     int       `json:"risk_score"`
	Decision      string    `json:"decision"`
}
