package fraud

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// HistoryEntry is the append-only per-wallet record that velocity, newness
// and average-amount rules query. One entry per transaction id.
type HistoryEntry struct {
	TransactionID   uuid.UUID       `json:"transaction_id"`
	WalletID        uuid.UUID       `json:"wallet_id"`
	UserID          uuid.UUID       `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	Currency        string          `json:"currency"`
	OccurredAt      time.Time       `json:"occurred_at"`
}
