package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/event-driven-wallet/internal/domain/transaction"
	"github.com/event-driven-wallet/internal/platform/persistence"
)

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransactionRepository creates a new PostgreSQL transaction repository
func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new transaction. The unique index over idempotency_key is
// the authoritative dedup guard: a violation surfaces as
// ErrDuplicateTransaction regardless of any pre-check the caller ran.
func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, idempotency_key, type, status, wallet_id, user_id,
			related_wallet_id, related_transaction_id, amount, currency, balance_after,
			description, error_message, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		tx.ID,
		tx.IdempotencyKey,
		tx.Type,
		tx.Status,
		tx.WalletID,
		tx.UserID,
		tx.RelatedWalletID,
		tx.RelatedTransactionID,
		tx.Amount,
		tx.Currency,
		tx.BalanceAfter,
		tx.Description,
		tx.ErrorMessage,
		tx.CreatedAt,
		tx.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return transaction.ErrDuplicateTransaction{IdempotencyKey: tx.IdempotencyKey}
		}
		r.logger.Error("Failed to create transaction", "id", tx.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// Update persists the terminal state of a transaction
func (r *TransactionRepository) Update(ctx context.Context, tx *transaction.Transaction) error {
	query := `
		UPDATE transactions
		SET status = $1, balance_after = $2, error_message = $3,
			related_wallet_id = $4, related_transaction_id = $5, completed_at = $6
		WHERE id = $7
	`

	result, err := r.querier.Exec(ctx, query,
		tx.Status,
		tx.BalanceAfter,
		tx.ErrorMessage,
		tx.RelatedWalletID,
		tx.RelatedTransactionID,
		tx.CompletedAt,
		tx.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "id", tx.ID.String(), "error", err)
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transaction.ErrTransactionNotFound{ID: tx.ID}
	}

	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT id, idempotency_key, type, status, wallet_id, user_id,
			related_wallet_id, related_transaction_id, amount, currency, balance_after,
			description, error_message, created_at, completed_at
		FROM transactions
		WHERE id = $1
	`

	tx, err := r.scanTransaction(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{ID: id}
		}
		r.logger.Error("Failed to get transaction", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return tx, nil
}

// ExistsByIdempotencyKey reports whether a transaction was already recorded
// for the key, in any terminal or pending state
func (r *TransactionRepository) ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM transactions WHERE idempotency_key = $1)
	`

	var exists bool
	err := r.querier.QueryRow(ctx, query, key).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check idempotency key", "key", key, "error", err)
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}

	return exists, nil
}

// GetByWalletID retrieves transactions for a wallet, newest first
func (r *TransactionRepository) GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT id, idempotency_key, type, status, wallet_id, user_id,
			related_wallet_id, related_transaction_id, amount, currency, balance_after,
			description, error_message, created_at, completed_at
		FROM transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get transactions for wallet", "wallet_id", walletID.String(), "error", err)
		return nil, fmt.Errorf("failed to get transactions for wallet: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		tx, err := r.scanTransaction(rows)
		if err != nil {
			r.logger.Error("Failed to scan transaction", "error", err)
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over transactions", "error", err)
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return transactions, nil
}

// CountByWalletID returns the total number of transactions for a wallet
func (r *TransactionRepository) CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*) FROM transactions WHERE wallet_id = $1
	`

	var count int64
	err := r.querier.QueryRow(ctx, query, walletID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count transactions for wallet", "wallet_id", walletID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transactions for wallet: %w", err)
	}

	return count, nil
}

func (r *TransactionRepository) scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.IdempotencyKey,
		&tx.Type,
		&tx.Status,
		&tx.WalletID,
		&tx.UserID,
		&tx.RelatedWalletID,
		&tx.RelatedTransactionID,
		&tx.Amount,
		&tx.Currency,
		&tx.BalanceAfter,
		&tx.Description,
		&tx.ErrorMessage,
		&tx.CreatedAt,
		&tx.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
