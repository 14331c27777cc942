package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/event-driven-wallet/internal/domain/ledgerbook"
	"github.com/event-driven-wallet/internal/platform/persistence"
)

// LedgerAccountRepository implements the ledgerbook.AccountRepository
// interface for PostgreSQL
type LedgerAccountRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerAccountRepository creates a new PostgreSQL ledger account repository
func NewLedgerAccountRepository(logger *slog.Logger, db *persistence.PostgresDB) ledgerbook.AccountRepository {
	return &LedgerAccountRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *LedgerAccountRepository) WithTx(tx pgx.Tx) ledgerbook.AccountRepository {
	return &LedgerAccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new ledger account. Account numbers are unique; concurrent
// lazy provisioning of the same wallet account loses the race harmlessly and
// the caller re-reads.
func (r *LedgerAccountRepository) Create(ctx context.Context, account *ledgerbook.Account) error {
	query := `
		INSERT INTO ledger_accounts (id, account_type, account_number, external_id, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		account.ID,
		account.AccountType,
		account.AccountNumber,
		account.ExternalID,
		account.Currency,
		account.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ledgerbook.ErrDuplicateAccount{AccountNumber: account.AccountNumber}
		}
		r.logger.Error("Failed to create ledger account", "account_number", account.AccountNumber, "error", err)
		return fmt.Errorf("failed to create ledger account: %w", err)
	}

	return nil
}

// GetByExternalIDAndCurrency retrieves a user wallet account by wallet id
func (r *LedgerAccountRepository) GetByExternalIDAndCurrency(ctx context.Context, externalID uuid.UUID, currency string) (*ledgerbook.Account, error) {
	query := `
		SELECT id, account_type, account_number, external_id, currency, created_at
		FROM ledger_accounts
		WHERE external_id = $1 AND currency = $2
	`

	var acc ledgerbook.Account
	err := r.querier.QueryRow(ctx, query, externalID, currency).Scan(
		&acc.ID,
		&acc.AccountType,
		&acc.AccountNumber,
		&acc.ExternalID,
		&acc.Currency,
		&acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledgerbook.ErrAccountNotFound{AccountNumber: "WALLET-" + externalID.String()}
		}
		r.logger.Error("Failed to get ledger account by external id", "external_id", externalID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger account by external id: %w", err)
	}

	return &acc, nil
}

// GetByTypeAndCurrency retrieves a system account. A missing system account
// means seeding never ran for the currency; callers treat that as fatal.
func (r *LedgerAccountRepository) GetByTypeAndCurrency(ctx context.Context, accountType ledgerbook.AccountType, currency string) (*ledgerbook.Account, error) {
	query := `
		SELECT id, account_type, account_number, external_id, currency, created_at
		FROM ledger_accounts
		WHERE account_type = $1 AND currency = $2
	`

	var acc ledgerbook.Account
	err := r.querier.QueryRow(ctx, query, accountType, currency).Scan(
		&acc.ID,
		&acc.AccountType,
		&acc.AccountNumber,
		&acc.ExternalID,
		&acc.Currency,
		&acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledgerbook.ErrSystemAccountMissing{AccountType: accountType, Currency: currency}
		}
		r.logger.Error("Failed to get system ledger account", "account_type", string(accountType), "currency", currency, "error", err)
		return nil, fmt.Errorf("failed to get system ledger account: %w", err)
	}

	return &acc, nil
}

// ExistsByAccountNumber reports whether an account with the number exists
func (r *LedgerAccountRepository) ExistsByAccountNumber(ctx context.Context, accountNumber string) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM ledger_accounts WHERE account_number = $1)
	`

	var exists bool
	err := r.querier.QueryRow(ctx, query, accountNumber).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check ledger account existence", "account_number", accountNumber, "error", err)
		return false, fmt.Errorf("failed to check ledger account existence: %w", err)
	}

	return exists, nil
}
