// Package fraud models risk scoring of completed transactions: static rules,
// per-wallet transaction history, and the analysis verdicts derived from them.
package fraud

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleType selects the trigger condition a rule evaluates.
type RuleType string

const (
	RuleTypeAmountThreshold RuleType = "AMOUNT_THRESHOLD"
	RuleTypeVelocity        RuleType = "VELOCITY"
	RuleTypeNewAccount      RuleType = "NEW_ACCOUNT"
	RuleTypeUnusualPattern  RuleType = "UNUSUAL_PATTERN"
)

// Rule is a static, linearly scored fraud rule. Rules are seeded at startup
// and mutated only by configuration, never by traffic.
type Rule struct {
	RuleCode          string          `json:"rule_code"`
	RuleType          RuleType        `json:"rule_type"`
	Description       string          `json:"description"`
	Threshold         decimal.Decimal `json:"threshold"`
	ScoreImpact       int             `json:"score_impact"`
	TimeWindowMinutes int             `json:"time_window_minutes,omitempty"`
	Active            bool            `json:"active"`
	CreatedAt         time.Time       `json:"created_at"`
}
