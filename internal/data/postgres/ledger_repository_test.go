package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/event-driven-wallet/internal/domain/ledgerbook"
)

func TestLedgerAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerAccountRepository{querier: mock, logger: logger}
	account := ledgerbook.NewUserAccount(uuid.New(), "USD")

	query := `
		INSERT INTO ledger_accounts \(id, account_type, account_number, external_id, currency, created_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(account.ID, account.AccountType, account.AccountNumber, account.ExternalID, account.Currency, account.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, account)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost provisioning race", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(account.ID, account.AccountType, account.AccountNumber, account.ExternalID, account.Currency, account.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation})

		err := repo.Create(ctx, account)
		assert.Error(t, err)
		var dupErr ledgerbook.ErrDuplicateAccount
		assert.ErrorAs(t, err, &dupErr)
		assert.Equal(t, account.AccountNumber, dupErr.AccountNumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerAccountRepository_GetByExternalIDAndCurrency(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerAccountRepository{querier: mock, logger: logger}
	walletID := uuid.New()
	expected := ledgerbook.NewUserAccount(walletID, "USD")

	query := `
		SELECT id, account_type, account_number, external_id, currency, created_at
		FROM ledger_accounts
		WHERE external_id = \$1 AND currency = \$2
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "account_type", "account_number", "external_id", "currency", "created_at"}).
			AddRow(expected.ID, expected.AccountType, expected.AccountNumber, expected.ExternalID, expected.Currency, expected.CreatedAt)
		mock.ExpectQuery(query).WithArgs(walletID, "USD").WillReturnRows(rows)

		acc, err := repo.GetByExternalIDAndCurrency(ctx, walletID, "USD")
		assert.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(walletID, "USD").WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByExternalIDAndCurrency(ctx, walletID, "USD")
		assert.Error(t, err)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, ledgerbook.ErrAccountNotFound{})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerAccountRepository_GetByTypeAndCurrency(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerAccountRepository{querier: mock, logger: logger}
	expected := ledgerbook.NewSystemAccount(ledgerbook.AccountTypeSystemBank, "USD")

	query := `
		SELECT id, account_type, account_number, external_id, currency, created_at
		FROM ledger_accounts
		WHERE account_type = \$1 AND currency = \$2
	`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"id", "account_type", "account_number", "external_id", "currency", "created_at"}).
			AddRow(expected.ID, expected.AccountType, expected.AccountNumber, expected.ExternalID, expected.Currency, expected.CreatedAt)
		mock.ExpectQuery(query).WithArgs(ledgerbook.AccountTypeSystemBank, "USD").WillReturnRows(rows)

		acc, err := repo.GetByTypeAndCurrency(ctx, ledgerbook.AccountTypeSystemBank, "USD")
		assert.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing system account is fatal", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(ledgerbook.AccountTypeSystemBank, "EUR").WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByTypeAndCurrency(ctx, ledgerbook.AccountTypeSystemBank, "EUR")
		assert.Error(t, err)
		assert.Nil(t, acc)
		var missingErr ledgerbook.ErrSystemAccountMissing
		assert.ErrorAs(t, err, &missingErr)
		assert.Equal(t, ledgerbook.AccountTypeSystemBank, missingErr.AccountType)
		assert.Equal(t, "EUR", missingErr.Currency)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerJournalRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerJournalRepository{querier: mock, logger: logger}
	journal := ledgerbook.NewJournal(uuid.New(), "DEPOSIT 100 USD")

	query := `
		INSERT INTO ledger_journals \(id, transaction_id, description, created_at\)
		VALUES \(\$1, \$2, \$3, \$4\)
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(journal.ID, journal.TransactionID, journal.Description, journal.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, journal)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redelivered transaction", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(journal.ID, journal.TransactionID, journal.Description, journal.CreatedAt).
			WillReturnError(&pgconn.PgError{Code: uniqueViolation})

		err := repo.Create(ctx, journal)
		assert.Error(t, err)
		var dupErr ledgerbook.ErrDuplicateJournal
		assert.ErrorAs(t, err, &dupErr)
		assert.Equal(t, journal.TransactionID, dupErr.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLedgerJournalRepository_ExistsByTransactionID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerJournalRepository{querier: mock, logger: logger}
	transactionID := uuid.New()

	query := `
		SELECT EXISTS \(SELECT 1 FROM ledger_journals WHERE transaction_id = \$1\)
	`

	mock.ExpectQuery(query).WithArgs(transactionID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsByTransactionID(ctx, transactionID)
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerEntryRepository_Create(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerEntryRepository{querier: mock, logger: logger}
	entry := ledgerbook.NewEntry(uuid.New(), uuid.New(), uuid.New(), decimal.NewFromInt(100), ledgerbook.SideDebit, "USD", "DEPOSIT").
		WithReportedBalance(decimal.NewFromInt(100))

	query := `
		INSERT INTO ledger_entries \(id, transaction_id, journal_id, account_id, amount, side,
			currency, description, reported_balance_after, recorded_at\)
		VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10\)
	`

	mock.ExpectExec(query).
		WithArgs(entry.ID, entry.TransactionID, entry.JournalID, entry.AccountID, entry.Amount, entry.Side,
			entry.Currency, entry.Description, entry.ReportedBalanceAfter, entry.RecordedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(ctx, entry)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerEntryRepository_SumBySide(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &LedgerEntryRepository{querier: mock, logger: logger}

	query := `
		SELECT COALESCE\(SUM\(amount\), 0\)
		FROM ledger_entries
		WHERE side = \$1
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(ledgerbook.SideDebit).
			WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(decimal.NewFromInt(12345)))

		sum, err := repo.SumBySide(ctx, ledgerbook.SideDebit)
		assert.NoError(t, err)
		assert.True(t, decimal.NewFromInt(12345).Equal(sum))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("sum db error")
		mock.ExpectQuery(query).WithArgs(ledgerbook.SideCredit).WillReturnError(dbErr)

		sum, err := repo.SumBySide(ctx, ledgerbook.SideCredit)
		assert.Error(t, err)
		assert.True(t, sum.IsZero())
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
