package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/event-driven-wallet/internal/domain/blocklist"
	"github.com/event-driven-wallet/internal/platform/persistence"
)

// BlocklistRepository implements the blocklist.Repository interface for PostgreSQL
type BlocklistRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewBlocklistRepository creates a new PostgreSQL blocked-user repository
func NewBlocklistRepository(logger *slog.Logger, db *persistence.PostgresDB) blocklist.Repository {
	return &BlocklistRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// Create stores a blocked-user record. A user can only be blocked once;
// re-applying a block for an already blocked user is a no-op so redelivered
// user-blocked events stay idempotent.
func (r *BlocklistRepository) Create(ctx context.Context, blocked *blocklist.BlockedUser) error {
	query := `
		INSERT INTO blocked_users (user_id, triggered_by_transaction_id, reason, risk_score, blocked_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		blocked.UserID,
		blocked.TriggeredByTransactionID,
		blocked.Reason,
		blocked.RiskScore,
		blocked.BlockedAt,
		blocked.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			r.logger.Debug("User already blocked, ignoring duplicate", "user_id", blocked.UserID.String())
			return nil
		}
		r.logger.Error("Failed to create blocked user", "user_id", blocked.UserID.String(), "error", err)
		return fmt.Errorf("failed to create blocked user: %w", err)
	}

	return nil
}

// GetByUserID retrieves the active block for a user, or nil when the user is
// not blocked
func (r *BlocklistRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*blocklist.BlockedUser, error) {
	query := `
		SELECT user_id, triggered_by_transaction_id, reason, risk_score, blocked_at, created_at
		FROM blocked_users
		WHERE user_id = $1
	`

	var blocked blocklist.BlockedUser
	err := r.querier.QueryRow(ctx, query, userID).Scan(
		&blocked.UserID,
		&blocked.TriggeredByTransactionID,
		&blocked.Reason,
		&blocked.RiskScore,
		&blocked.BlockedAt,
		&blocked.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not blocked
		}
		r.logger.Error("Failed to get blocked user", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to get blocked user: %w", err)
	}

	return &blocked, nil
}

// ExistsByTriggeringTransactionID reports whether a block was already applied
// for the triggering transaction
func (r *BlocklistRepository) ExistsByTriggeringTransactionID(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM blocked_users WHERE triggered_by_transaction_id = $1)
	`

	var exists bool
	err := r.querier.QueryRow(ctx, query, transactionID).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check block by triggering transaction", "transaction_id", transactionID.String(), "error", err)
		return false, fmt.Errorf("failed to check block by triggering transaction: %w", err)
	}

	return exists, nil
}
