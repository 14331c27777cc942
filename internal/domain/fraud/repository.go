package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleRepository manages fraud rule persistence
type RuleRepository interface {
	Create(ctx context.Context, rule *Rule) error
	GetActive(ctx context.Context) ([]*Rule, error)
	ExistsByRuleCode(ctx context.Context, ruleCode string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// AnalysisRepository manages fraud analysis persistence
type AnalysisRepository interface {
	Create(ctx context.Context, analysis *Analysis) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Analysis, error)
	ExistsByTransactionID(ctx context.Context, transactionID uuid.UUID) (bool, error)
}

// HistoryRepository manages the append-only transaction history and the
// aggregate queries the rules need
type HistoryRepository interface {
	Create(ctx context.Context, entry *HistoryEntry) error
	ExistsByTransactionID(ctx context.Context, transactionID uuid.UUID) (bool, error)
	CountByWalletSince(ctx context.Context, walletID uuid.UUID, since time.Time) (int64, error)
	FirstOccurredAt(ctx context.Context, walletID uuid.UUID) (*time.Time, error)
	AverageAmount(ctx context.Context, walletID uuid.UUID) (decimal.Decimal, error)
}

// ErrAnalysisNotFound indicates missing fraud analysis
type ErrAnalysisNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrAnalysisNotFound) Error() string {
	return "fraud analysis not found for transaction: " + e.TransactionID.String()
}

func (e ErrAnalysisNotFound) Is(target error) bool {
	t, ok := target.(ErrAnalysisNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateAnalysis indicates the transaction was already analyzed
type ErrDuplicateAnalysis struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateAnalysis) Error() string {
	return "fraud analysis already exists for transaction: " + e.TransactionID.String()
}

func (e ErrDuplicateAnalysis) Is(target error) bool {
	_, ok := target.(ErrDuplicateAnalysis)
	return ok
}
