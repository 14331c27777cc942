// Package blocklist is the transaction service's local projection of fraud
// BLOCK decisions. It is eventually consistent with the fraud service: a
// user may move money between the BLOCK decision and the projection applying.
package blocklist

import (
	"time"

	"github.com/google/uuid"
)

// BlockedUser records one active block per user, keyed by the transaction
// that triggered the BLOCK decision so duplicate events are no-ops.
type BlockedUser struct {
	UserID                   uuid.UUID `json:"user_id"`
	TriggeredByTransactionID uuid.UUID `json:"triggered_by_transaction_id"`
	Reason                   string    `json:"reason"`
	RiskScore                int       `json:"risk_score"`
	BlockedAt                time.Time `json:"blocked_at"`
	CreatedAt                time.Time `json:"created_at"`
}
