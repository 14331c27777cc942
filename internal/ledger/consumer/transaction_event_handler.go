// Package consumer adapts the ledger poster to the transaction-completed
// topic.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/domain/ledgerbook"
	"github.com/event-driven-wallet/internal/ledger/service"
	"github.com/event-driven-wallet/internal/platform/messaging/producers"
)

// TransactionEventHandler posts each completed transaction to the ledger.
type TransactionEventHandler struct {
	postingService service.PostingService
	producer       producers.DeadLetterPublisher
	logger         *slog.Logger
}

func NewTransactionEventHandler(
	logger *slog.Logger,
	postingService service.PostingService,
	producer producers.DeadLetterPublisher,
) *TransactionEventHandler {
	return &TransactionEventHandler{
		postingService: postingService,
		producer:       producer,
		logger:         logger,
	}
}

// HandleMessage processes one transaction-completed event. Unmarshalable
// payloads and missing system accounts go straight to the DLQ: neither gets
// better with redelivery.
func (h *TransactionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var evt event.TransactionCompleted
	if err := json.Unmarshal(value, &evt); err != nil {
		h.logger.Error("Failed to unmarshal transaction-completed event",
			"error", err,
			"message_key", string(key),
		)
		return h.sendToDLQ(ctx, key, value, fmt.Sprintf("unmarshal failed: %s", err), err)
	}

	h.logger.Info("Received transaction-completed event",
		"transaction_id", evt.TransactionID,
		"wallet_id", evt.WalletID,
		"type", evt.Type,
		"amount", evt.Amount,
	)

	if err := h.postingService.PostTransaction(ctx, &evt); err != nil {
		if errors.Is(err, ledgerbook.ErrSystemAccountMissing{}) {
			h.logger.Error("System account missing, posting cannot succeed",
				"transaction_id", evt.TransactionID,
				"error", err,
			)
			return h.sendToDLQ(ctx, key, value, fmt.Sprintf("system account missing: %s", err), err)
		}
		h.logger.Error("Failed to post transaction",
			"transaction_id", evt.TransactionID,
			"error", err,
		)
		return fmt.Errorf("posting transaction %s failed: %w", evt.TransactionID, err)
	}
	return nil
}

// sendToDLQ parks an unprocessable message. A successful DLQ write returns
// nil so the offset commits; a failed one re-raises the original error for
// redelivery.
func (h *TransactionEventHandler) sendToDLQ(ctx context.Context, key, value []byte, reason string, original error) error {
	if h.producer == nil {
		return original
	}
	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"original_error", original,
			"message_key", string(key),
		)
		return original
	}
	h.logger.Info("Published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
