package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/event-driven-wallet/internal/domain/ledgerbook"
	"github.com/event-driven-wallet/internal/platform/persistence"
)

// LedgerEntryRepository implements the ledgerbook.EntryRepository interface
// for PostgreSQL. Entries are append-only; there is no update or delete.
type LedgerEntryRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerEntryRepository creates a new PostgreSQL ledger entry repository
func NewLedgerEntryRepository(logger *slog.Logger, db *persistence.PostgresDB) ledgerbook.EntryRepository {
	return &LedgerEntryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction for atomic operations
func (r *LedgerEntryRepository) WithTx(tx pgx.Tx) ledgerbook.EntryRepository {
	return &LedgerEntryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create appends a ledger entry
func (r *LedgerEntryRepository) Create(ctx context.Context, entry *ledgerbook.Entry) error {
	query := `
		INSERT INTO ledger_entries (id, transaction_id, journal_id, account_id, amount, side,
			currency, description, reported_balance_after, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.TransactionID,
		entry.JournalID,
		entry.AccountID,
		entry.Amount,
		entry.Side,
		entry.Currency,
		entry.Description,
		entry.ReportedBalanceAfter,
		entry.RecordedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger entry", "journal_id", entry.JournalID.String(), "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// GetByJournalID retrieves the entries of one journal
func (r *LedgerEntryRepository) GetByJournalID(ctx context.Context, journalID uuid.UUID) ([]*ledgerbook.Entry, error) {
	query := `
		SELECT id, transaction_id, journal_id, account_id, amount, side,
			currency, description, reported_balance_after, recorded_at
		FROM ledger_entries
		WHERE journal_id = $1
		ORDER BY recorded_at ASC
	`

	rows, err := r.querier.Query(ctx, query, journalID)
	if err != nil {
		r.logger.Error("Failed to get ledger entries", "journal_id", journalID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledgerbook.Entry
	for rows.Next() {
		var entry ledgerbook.Entry
		err := rows.Scan(
			&entry.ID,
			&entry.TransactionID,
			&entry.JournalID,
			&entry.AccountID,
			&entry.Amount,
			&entry.Side,
			&entry.Currency,
			&entry.Description,
			&entry.ReportedBalanceAfter,
			&entry.RecordedAt,
		)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over ledger entries", "error", err)
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}

	return entries, nil
}

// SumBySide totals entry amounts for one side across the whole book.
// DEBIT and CREDIT sums must always be equal.
func (r *LedgerEntryRepository) SumBySide(ctx context.Context, side ledgerbook.Side) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE side = $1
	`

	var sum decimal.Decimal
	err := r.querier.QueryRow(ctx, query, side).Scan(&sum)
	if err != nil {
		r.logger.Error("Failed to sum ledger entries", "side", string(side), "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum ledger entries: %w", err)
	}

	return sum, nil
}
