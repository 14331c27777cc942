// Package service implements the fraud rule engine: every completed
// transaction is scored against the active rules and the verdict is
// published back to the rest of the platform.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/domain/fraud"
	"github.com/event-driven-wallet/internal/platform/messaging/producers"
)

// AnalysisService scores completed transactions. Redelivered events are
// no-ops: at most one analysis exists per transaction.
type AnalysisService interface {
	AnalyzeTransaction(ctx context.Context, evt *event.TransactionCompleted) error
}

type analysisService struct {
	logger          *slog.Logger
	rules           fraud.RuleRepository
	analyses        fraud.AnalysisRepository
	history         fraud.HistoryRepository
	userBlockedProd producers.MessagePublisher
	fraudAlertProd  producers.MessagePublisher
	now             func() time.Time
}

// NewAnalysisService wires the rule engine.
func NewAnalysisService(
	logger *slog.Logger,
	rules fraud.RuleRepository,
	analyses fraud.AnalysisRepository,
	history fraud.HistoryRepository,
	userBlockedProd producers.MessagePublisher,
	fraudAlertProd producers.MessagePublisher,
) AnalysisService {
	return &analysisService{
		logger:          logger,
		rules:           rules,
		analyses:        analyses,
		history:         history,
		userBlockedProd: userBlockedProd,
		fraudAlertProd:  fraudAlertProd,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// AnalyzeTransaction appends the transaction to the wallet history, runs the
// active rules over it and persists the verdict. The history write happens
// first so velocity and average-amount rules see the transaction itself.
func (s *analysisService) AnalyzeTransaction(ctx context.Context, evt *event.TransactionCompleted) error {
	analyzed, err := s.analyses.ExistsByTransactionID(ctx, evt.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to check existing analysis for %s: %w", evt.TransactionID, err)
	}
	if analyzed {
		s.logger.Info("Transaction already analyzed, skipping", "transaction_id", evt.TransactionID)
		return nil
	}

	if err := s.appendHistory(ctx, evt); err != nil {
		return err
	}

	activeRules, err := s.rules.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to load active rules: %w", err)
	}

	riskScore := 0
	triggered := make([]string, 0, len(activeRules))
	for _, rule := range activeRules {
		hit, evalErr := s.evaluate(ctx, rule, evt)
		if evalErr != nil {
			return fmt.Errorf("failed to evaluate rule %s for %s: %w", rule.RuleCode, evt.TransactionID, evalErr)
		}
		if hit {
			riskScore += rule.ScoreImpact
			triggered = append(triggered, rule.RuleCode)
		}
	}

	analysis := &fraud.Analysis{
		ID:              uuid.New(),
		TransactionID:   evt.TransactionID,
		WalletID:        evt.WalletID,
		UserID:          evt.UserID,
		Amount:          evt.Amount,
		TransactionType: evt.Type,
		RiskScore:       riskScore,
		TriggeredRules:  triggered,
		Decision:        fraud.DecideFor(riskScore),
		AnalyzedAt:      s.now(),
	}

	if err := s.analyses.Create(ctx, analysis); err != nil {
		if errors.Is(err, fraud.ErrDuplicateAnalysis{}) {
			s.logger.Info("Lost analysis race, transaction already analyzed", "transaction_id", evt.TransactionID)
			return nil
		}
		return fmt.Errorf("failed to persist analysis for %s: %w", evt.TransactionID, err)
	}

	s.logger.Info("Analyzed transaction",
		"transaction_id", evt.TransactionID,
		"wallet_id", evt.WalletID,
		"risk_score", riskScore,
		"decision", analysis.Decision,
		"triggered_rules", triggered,
	)

	return s.publishVerdict(ctx, analysis)
}

// appendHistory records the transaction in the per-wallet history exactly
// once.
func (s *analysisService) appendHistory(ctx context.Context, evt *event.TransactionCompleted) error {
	recorded, err := s.history.ExistsByTransactionID(ctx, evt.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to check history for %s: %w", evt.TransactionID, err)
	}
	if recorded {
		return nil
	}

	entry := &fraud.HistoryEntry{
		TransactionID:   evt.TransactionID,
		WalletID:        evt.WalletID,
		UserID:          evt.UserID,
		Amount:          evt.Amount,
		TransactionType: evt.Type,
		Currency:        evt.Currency,
		OccurredAt:      evt.CompletedAt,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to append history for %s: %w", evt.TransactionID, err)
	}
	return nil
}

func (s *analysisService) evaluate(ctx context.Context, rule *fraud.Rule, evt *event.TransactionCompleted) (bool, error) {
	switch rule.RuleType {
	case fraud.RuleTypeAmountThreshold:
		return evt.Amount.GreaterThan(rule.Threshold), nil

	case fraud.RuleTypeVelocity:
		since := s.now().Add(-time.Duration(rule.TimeWindowMinutes) * time.Minute)
		count, err := s.history.CountByWalletSince(ctx, evt.WalletID, since)
		if err != nil {
			return false, err
		}
		return count > rule.Threshold.IntPart(), nil

	case fraud.RuleTypeNewAccount:
		first, err := s.history.FirstOccurredAt(ctx, evt.WalletID)
		if err != nil {
			return false, err
		}
		if first == nil {
			return true, nil
		}
		cutoff := s.now().Add(-time.Duration(rule.TimeWindowMinutes) * time.Minute)
		return first.After(cutoff), nil

	case fraud.RuleTypeUnusualPattern:
		avg, err := s.history.AverageAmount(ctx, evt.WalletID)
		if err != nil {
			return false, err
		}
		if avg.IsZero() {
			return false, nil
		}
		return evt.Amount.GreaterThan(avg.Mul(rule.Threshold)), nil

	default:
		s.logger.Warn("Skipping rule with unknown type", "rule_code", rule.RuleCode, "rule_type", rule.RuleType)
		return false, nil
	}
}

// publishVerdict emits a fraud-alert for any non-APPROVE decision and a
// user-blocked event when the verdict is BLOCK.
func (s *analysisService) publishVerdict(ctx context.Context, analysis *fraud.Analysis) error {
	if analysis.Decision == fraud.DecisionApprove {
		return nil
	}

	alert := event.FraudAlert{
		AnalysisID:    analysis.ID,
		TransactionID: analysis.TransactionID,
		RiskScore:     analysis.RiskScore,
		Decision:      string(analysis.Decision),
	}
	if err := s.fraudAlertProd.Publish(ctx, analysis.ID.String(), alert); err != nil {
		return fmt.Errorf("failed to publish fraud alert for %s: %w", analysis.TransactionID, err)
	}

	if analysis.Decision != fraud.DecisionBlock {
		return nil
	}

	blocked := event.UserBlocked{
		UserID:                   analysis.UserID,
		TriggeredByTransactionID: analysis.TransactionID,
		Reason:                   "Fraudulent activity detected: " + strings.Join(analysis.TriggeredRules, ", "),
		RiskScore:                analysis.RiskScore,
		BlockedAt:                analysis.AnalyzedAt,
	}
	if err := s.userBlockedProd.Publish(ctx, analysis.UserID.String(), blocked); err != nil {
		return fmt.Errorf("failed to publish user block for %s: %w", analysis.UserID, err)
	}

	s.logger.Warn("Blocked user for fraudulent activity",
		"user_id", analysis.UserID,
		"transaction_id", analysis.TransactionID,
		"risk_score", analysis.RiskScore,
	)
	return nil
}
