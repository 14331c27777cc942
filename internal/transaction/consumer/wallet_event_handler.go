// Package consumer adapts the transaction service to its inbound Kafka
// topics: wallet-created for balance provisioning and user-blocked for the
// block registry projection.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/event-driven-wallet/internal/domain/blocklist"
	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/transaction/service"
)

// WalletCreatedHandler provisions a zero-balance record for each new wallet.
type WalletCreatedHandler struct {
	service service.TransactionService
	logger  *slog.Logger
}

func NewWalletCreatedHandler(logger *slog.Logger, svc service.TransactionService) *WalletCreatedHandler {
	return &WalletCreatedHandler{
		service: svc,
		logger:  logger,
	}
}

// HandleMessage processes one wallet-created event. Malformed payloads are
// returned as errors so the consumer's retry/DLQ flow takes over.
func (h *WalletCreatedHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var evt event.WalletCreated
	if err := json.Unmarshal(value, &evt); err != nil {
		h.logger.Error("Failed to unmarshal wallet-created event",
			"error", err,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	h.logger.Info("Received wallet-created event",
		"wallet_id", evt.WalletID,
		"user_id", evt.UserID,
		"currency", evt.Currency,
	)

	if err := h.service.ProvisionWallet(ctx, evt.WalletID, evt.UserID, evt.Currency, evt.InitialBalance); err != nil {
		h.logger.Error("Failed to provision wallet balance",
			"wallet_id", evt.WalletID,
			"error", err,
		)
		return fmt.Errorf("provisioning wallet %s failed: %w", evt.WalletID, err)
	}
	return nil
}

// UserBlockedHandler applies fraud BLOCK decisions to the local registry.
type UserBlockedHandler struct {
	service service.TransactionService
	logger  *slog.Logger
}

func NewUserBlockedHandler(logger *slog.Logger, svc service.TransactionService) *UserBlockedHandler {
	return &UserBlockedHandler{
		service: svc,
		logger:  logger,
	}
}

func (h *UserBlockedHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var evt event.UserBlocked
	if err := json.Unmarshal(value, &evt); err != nil {
		h.logger.Error("Failed to unmarshal user-blocked event",
			"error", err,
			"message_key", string(key),
		)
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	blocked := &blocklist.BlockedUser{
		UserID:                   evt.UserID,
		TriggeredByTransactionID: evt.TriggeredByTransactionID,
		Reason:                   evt.Reason,
		RiskScore:                evt.RiskScore,
		BlockedAt:                evt.BlockedAt,
	}
	if err := h.service.ApplyBlock(ctx, blocked); err != nil {
		h.logger.Error("Failed to apply user block",
			"user_id", evt.UserID,
			"error", err,
		)
		return fmt.Errorf("applying block for user %s failed: %w", evt.UserID, err)
	}
	return nil
}
