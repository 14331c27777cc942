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

// LedgerJournalRepository implements the ledgerbook.JournalRepository
// interface for PostgreSQL
type LedgerJournalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerJournalRepository creates a new PostgreSQL ledger journal repository
func NewLedgerJournalRepository(logger *slog.Logger, db *persistence.PostgresDB) ledgerbook.JournalRepository {
	return &LedgerJournalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *LedgerJournalRepository) WithTx(tx pgx.Tx) ledgerbook.JournalRepository {
	return &LedgerJournalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new journal. The unique index over transaction_id is the
// poster's idempotency guard against event redelivery: a violation surfaces
// as ErrDuplicateJournal.
func (r *LedgerJournalRepository) Create(ctx context.Context, journal *ledgerbook.Journal) error {
	query := `
		INSERT INTO ledger_journals (id, transaction_id, description, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.querier.Exec(ctx, query,
		journal.ID,
		journal.TransactionID,
		journal.Description,
		journal.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ledgerbook.ErrDuplicateJournal{TransactionID: journal.TransactionID}
		}
		r.logger.Error("Failed to create ledger journal", "transaction_id", journal.TransactionID.String(), "error", err)
		return fmt.Errorf("failed to create ledger journal: %w", err)
	}

	return nil
}

// ExistsByTransactionID reports whether the transaction was already posted
func (r *LedgerJournalRepository) ExistsByTransactionID(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM ledger_journals WHERE transaction_id = $1)
	`

	var exists bool
	err := r.querier.QueryRow(ctx, query, transactionID).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check journal existence", "transaction_id", transactionID.String(), "error", err)
		return false, fmt.Errorf("failed to check journal existence: %w", err)
	}

	return exists, nil
}
