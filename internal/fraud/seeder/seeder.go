// Package seeder provisions the default fraud rules at startup.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/event-driven-wallet/internal/domain/fraud"
)

func defaultRules() []*fraud.Rule {
	now := time.Now().UTC()
	return []*fraud.Rule{
		{
			RuleCode:    "LARGE_AMOUNT",
			RuleType:    fraud.RuleTypeAmountThreshold,
			Description: "Transaction amount exceeds 10,000",
			Threshold:   decimal.NewFromInt(10000),
			ScoreImpact: 30,
			Active:      true,
			CreatedAt:   now,
		},
		{
			RuleCode:    "VERY_LARGE_AMOUNT",
			RuleType:    fraud.RuleTypeAmountThreshold,
			Description: "Transaction amount exceeds 50,000",
			Threshold:   decimal.NewFromInt(50000),
			ScoreImpact: 50,
			Active:      true,
			CreatedAt:   now,
		},
		{
			RuleCode:          "HIGH_VELOCITY",
			RuleType:          fraud.RuleTypeVelocity,
			Description:       "More than 10 transactions within an hour",
			Threshold:         decimal.NewFromInt(10),
			ScoreImpact:       25,
			TimeWindowMinutes: 60,
			Active:            true,
			CreatedAt:         now,
		},
		{
			RuleCode:          "EXTREME_VELOCITY",
			RuleType:          fraud.RuleTypeVelocity,
			Description:       "More than 20 transactions within an hour",
			Threshold:         decimal.NewFromInt(20),
			ScoreImpact:       40,
			TimeWindowMinutes: 60,
			Active:            true,
			CreatedAt:         now,
		},
		{
			RuleCode:          "NEW_WALLET",
			RuleType:          fraud.RuleTypeNewAccount,
			Description:       "Wallet is less than a day old",
			ScoreImpact:       15,
			TimeWindowMinutes: 1440,
			Active:            true,
			CreatedAt:         now,
		},
		{
			RuleCode:    "UNUSUAL_AMOUNT",
			RuleType:    fraud.RuleTypeUnusualPattern,
			Description: "Transaction amount exceeds three times the wallet average",
			Threshold:   decimal.NewFromInt(3),
			ScoreImpact: 20,
			Active:      true,
			CreatedAt:   now,
		},
	}
}

// RuleSeeder installs the default rule set. Seeding is idempotent and never
// overwrites rules an operator has tuned.
type RuleSeeder struct {
	rules  fraud.RuleRepository
	logger *slog.Logger
}

func NewRuleSeeder(logger *slog.Logger, rules fraud.RuleRepository) *RuleSeeder {
	return &RuleSeeder{
		rules:  rules,
		logger: logger,
	}
}

// Seed creates any default rule that does not exist yet.
func (s *RuleSeeder) Seed(ctx context.Context) error {
	for _, rule := range defaultRules() {
		exists, err := s.rules.ExistsByRuleCode(ctx, rule.RuleCode)
		if err != nil {
			return fmt.Errorf("failed to check rule %s: %w", rule.RuleCode, err)
		}
		if exists {
			continue
		}

		if err := s.rules.Create(ctx, rule); err != nil {
			return fmt.Errorf("failed to seed rule %s: %w", rule.RuleCode, err)
		}
		s.logger.Info("Seeded fraud rule",
			"rule_code", rule.RuleCode,
			"rule_type", rule.RuleType,
			"score_impact", rule.ScoreImpact,
		)
	}
	return nil
}
