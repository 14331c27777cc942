// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the wallet platform.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/event-driven-wallet/internal/domain/wallet"
	"github.com/event-driven-wallet/internal/platform/persistence"
)

// uniqueViolation is the PostgreSQL error code for unique constraint violations
const uniqueViolation = "23505"

// WalletRepository implements the wallet.Repository interface for PostgreSQL
type WalletRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewWalletRepository creates a new PostgreSQL wallet balance repository.
// It expects db.Pool() to satisfy persistence.Querier.
func NewWalletRepository(logger *slog.Logger, db *persistence.PostgresDB) wallet.Repository {
	return &WalletRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *WalletRepository) WithTx(tx pgx.Tx) wallet.Repository {
	return &WalletRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new wallet balance. A second balance for the same wallet
// violates the unique index and surfaces as ErrDuplicateWallet.
func (r *WalletRepository) Create(ctx context.Context, balance *wallet.Balance) error {
	query := `
		INSERT INTO wallet_balances (id, wallet_id, user_id, currency, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		balance.ID,
		balance.WalletID,
		balance.UserID,
		balance.Currency,
		balance.Balance,
		balance.Version,
		balance.CreatedAt,
		balance.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return wallet.ErrDuplicateWallet{WalletID: balance.WalletID}
		}
		r.logger.Error("Failed to create wallet balance", "wallet_id", balance.WalletID.String(), "error", err)
		return fmt.Errorf("failed to create wallet balance: %w", err)
	}

	return nil
}

// GetByWalletID retrieves the balance record for a wallet
func (r *WalletRepository) GetByWalletID(ctx context.Context, walletID uuid.UUID) (*wallet.Balance, error) {
	query := `
		SELECT id, wallet_id, user_id, currency, balance, version, created_at, updated_at
		FROM wallet_balances
		WHERE wallet_id = $1
	`

	var b wallet.Balance
	err := r.querier.QueryRow(ctx, query, walletID).Scan(
		&b.ID,
		&b.WalletID,
		&b.UserID,
		&b.Currency,
		&b.Balance,
		&b.Version,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, wallet.ErrWalletNotFound{WalletID: walletID}
		}
		r.logger.Error("Failed to get wallet balance", "wallet_id", walletID.String(), "error", err)
		return nil, fmt.Errorf("failed to get wallet balance: %w", err)
	}

	return &b, nil
}

// ExistsByWalletID reports whether a balance record exists for the wallet
func (r *WalletRepository) ExistsByWalletID(ctx context.Context, walletID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM wallet_balances WHERE wallet_id = $1)
	`

	var exists bool
	err := r.querier.QueryRow(ctx, query, walletID).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check wallet balance existence", "wallet_id", walletID.String(), "error", err)
		return false, fmt.Errorf("failed to check wallet balance existence: %w", err)
	}

	return exists, nil
}

// UpdateBalance writes the new balance conditionally on the version the
// caller read. Returns ErrConcurrentModification if the balance was modified
// between read and update.
func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID uuid.UUID, newBalance decimal.Decimal, version int64) error {
	query := `
		UPDATE wallet_balances
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE wallet_id = $2 AND version = $3
	`

	result, err := r.querier.Exec(ctx, query, newBalance, walletID, version)
	if err != nil {
		r.logger.Error("Failed to update wallet balance", "wallet_id", walletID.String(), "error", err)
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return wallet.ErrConcurrentModification{WalletID: walletID}
	}

	return nil
}
