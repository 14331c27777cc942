package service

import (
	"context"

	"github.com/event-driven-wallet/internal/domain/event"
)

// PostingService turns completed transaction events into balanced journal
// postings. Redelivered events are no-ops.
type PostingService interface {
	PostTransaction(ctx context.Context, evt *event.TransactionCompleted) error
}
