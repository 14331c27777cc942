package ledgerbook

import (
	"time"

	"github.com/google/uuid"
)

// Journal groups the balanced entry pair of one business transaction.
// Exactly one journal exists per business transaction id; its uniqueness is
// the poster's idempotency guard against event redelivery.
type Journal struct {
	ID            uuid.UUID `json:"id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewJournal creates a journal for a business transaction.
func NewJournal(transactionID uuid.UUID, description string) *Journal {
	return &Journal{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Description:   description,
		CreatedAt:     time.Now().UTC(),
	}
}
