// Package consumer adapts the fraud rule engine to the transaction-completed
// topic.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/fraud/service"
	"github.com/event-driven-wallet/internal/platform/messaging/producers"
)

// TransactionEventHandler runs fraud analysis for each completed
// transaction.
type TransactionEventHandler struct {
	analysisService service.AnalysisService
	producer        producers.DeadLetterPublisher
	logger          *slog.Logger
}

func NewTransactionEventHandler(
	logger *slog.Logger,
	analysisService service.AnalysisService,
	producer producers.DeadLetterPublisher,
) *TransactionEventHandler {
	return &TransactionEventHandler{
		analysisService: analysisService,
		producer:        producer,
		logger:          logger,
	}
}

// HandleMessage processes one transaction-completed event. Unmarshalable
// payloads go to the DLQ; analysis failures are returned for redelivery.
func (h *TransactionEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var evt event.TransactionCompleted
	if err := json.Unmarshal(value, &evt); err != nil {
		h.logger.Error("Failed to unmarshal transaction-completed event",
			"error", err,
			"message_key", string(key),
		)
		if h.producer != nil {
			reason := fmt.Sprintf("unmarshal failed: %s", err)
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr == nil {
				return nil
			}
		}
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	h.logger.Info("Received transaction-completed event for analysis",
		"transaction_id", evt.TransactionID,
		"wallet_id", evt.WalletID,
		"type", evt.Type,
	)

	if err := h.analysisService.AnalyzeTransaction(ctx, &evt); err != nil {
		h.logger.Error("Failed to analyze transaction",
			"transaction_id", evt.TransactionID,
			"error", err,
		)
		return fmt.Errorf("analyzing transaction %s failed: %w", evt.TransactionID, err)
	}
	return nil
}
