package fraud

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Decision thresholds on the summed risk score.
const (
	FlagThreshold  = 50
	BlockThreshold = 80
)

// Decision is the verdict of one analysis.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionFlag    Decision = "FLAG"
	DecisionBlock   Decision = "BLOCK"
)

// DecideFor maps a summed risk score to a decision.
func DecideFor(riskScore int) Decision {
	switch {
	case riskScore >= BlockThreshold:
		return DecisionBlock
	case riskScore >= FlagThreshold:
		return DecisionFlag
	default:
		return DecisionApprove
	}
}

// Analysis is the terminal verdict for one transaction; at most one exists
// per transaction id.
type Analysis struct {
	ID              uuid.UUID       `json:"id"`
	TransactionID   uuid.UUID       `json:"transaction_id"`
	WalletID        uuid.UUID       `json:"wallet_id"`
	UserID          uuid.UUID       `json:"user_id"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType string          `json:"transaction_type"`
	RiskScore       int             `json:"risk_score"`
	TriggeredRules  []string        `json:"triggered_rules"`
	Decision        Decision        `json:"decision"`
	AnalyzedAt      time.Time       `json:"analyzed_at"`
}
