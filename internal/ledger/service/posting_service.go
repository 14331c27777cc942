// Package service implements the double-entry poster of the ledger service.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/domain/ledgerbook"
	"github.com/event-driven-wallet/internal/domain/transaction"
)

// TxRunner runs a function inside a single database transaction.
// persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type postingService struct {
	logger   *slog.Logger
	db       TxRunner
	accounts ledgerbook.AccountRepository
	journals ledgerbook.JournalRepository
	entries  ledgerbook.EntryRepository
}

// NewPostingService wires the double-entry poster.
func NewPostingService(
	logger *slog.Logger,
	db TxRunner,
	accounts ledgerbook.AccountRepository,
	journals ledgerbook.JournalRepository,
	entries ledgerbook.EntryRepository,
) PostingService {
	return &postingService{
		logger:   logger,
		db:       db,
		accounts: accounts,
		journals: journals,
		entries:  entries,
	}
}

// PostTransaction posts the balanced entry pair for one completed
// transaction. The unique journal per transaction id makes redelivery a
// no-op; TRANSFER_OUT legs carry no posting because the paired TRANSFER_IN
// leg records the full movement.
func (s *postingService) PostTransaction(ctx context.Context, evt *event.TransactionCompleted) error {
	if transaction.Type(evt.Type) == transaction.TypeTransferOut {
		s.logger.Debug("Skipping TRANSFER_OUT leg, posted via its TRANSFER_IN pair",
			"transaction_id", evt.TransactionID,
		)
		return nil
	}

	posted, err := s.journals.ExistsByTransactionID(ctx, evt.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to check journal for transaction %s: %w", evt.TransactionID, err)
	}
	if posted {
		s.logger.Info("Transaction already posted, skipping",
			"transaction_id", evt.TransactionID,
		)
		return nil
	}

	debitAccount, creditAccount, err := s.resolveAccounts(ctx, evt)
	if err != nil {
		return err
	}

	journal := ledgerbook.NewJournal(evt.TransactionID, postingDescription(evt))

	debitEntry := ledgerbook.NewEntry(evt.TransactionID, journal.ID, debitAccount.ID, evt.Amount, ledgerbook.SideDebit, evt.Currency, journal.Description)
	creditEntry := ledgerbook.NewEntry(evt.TransactionID, journal.ID, creditAccount.ID, evt.Amount, ledgerbook.SideCredit, evt.Currency, journal.Description)

	// The wallet that the event belongs to carries the reported balance.
	switch {
	case debitAccount.ExternalID != nil && *debitAccount.ExternalID == evt.WalletID:
		debitEntry.WithReportedBalance(evt.BalanceAfter)
	case creditAccount.ExternalID != nil && *creditAccount.ExternalID == evt.WalletID:
		creditEntry.WithReportedBalance(evt.BalanceAfter)
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if txErr := s.journals.WithTx(tx).Create(ctx, journal); txErr != nil {
			return txErr
		}
		entryRepo := s.entries.WithTx(tx)
		if txErr := entryRepo.Create(ctx, debitEntry); txErr != nil {
			return txErr
		}
		return entryRepo.Create(ctx, creditEntry)
	})
	if err != nil {
		if errors.Is(err, ledgerbook.ErrDuplicateJournal{}) {
			s.logger.Info("Lost posting race, transaction already journaled",
				"transaction_id", evt.TransactionID,
			)
			return nil
		}
		return fmt.Errorf("failed to post transaction %s: %w", evt.TransactionID, err)
	}

	s.logger.Info("Posted transaction to ledger",
		"transaction_id", evt.TransactionID,
		"journal_id", journal.ID,
		"type", evt.Type,
		"amount", evt.Amount,
		"currency", evt.Currency,
	)
	return nil
}

// resolveAccounts maps the event type onto its debit/credit account pair.
func (s *postingService) resolveAccounts(ctx context.Context, evt *event.TransactionCompleted) (debit, credit *ledgerbook.Account, err error) {
	switch transaction.Type(evt.Type) {
	case transaction.TypeDeposit:
		debit, err = s.getOrCreateWalletAccount(ctx, evt.WalletID, evt.Currency)
		if err != nil {
			return nil, nil, err
		}
		credit, err = s.accounts.GetByTypeAndCurrency(ctx, ledgerbook.AccountTypeSystemBank, evt.Currency)
		if err != nil {
			return nil, nil, err
		}
	case transaction.TypeWithdrawal:
		debit, err = s.accounts.GetByTypeAndCurrency(ctx, ledgerbook.AccountTypeSystemBank, evt.Currency)
		if err != nil {
			return nil, nil, err
		}
		credit, err = s.getOrCreateWalletAccount(ctx, evt.WalletID, evt.Currency)
		if err != nil {
			return nil, nil, err
		}
	case transaction.TypeTransferIn:
		if evt.RelatedWalletID == nil {
			return nil, nil, fmt.Errorf("TRANSFER_IN event %s has no related wallet", evt.TransactionID)
		}
		debit, err = s.getOrCreateWalletAccount(ctx, evt.WalletID, evt.Currency)
		if err != nil {
			return nil, nil, err
		}
		credit, err = s.getOrCreateWalletAccount(ctx, *evt.RelatedWalletID, evt.Currency)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown transaction type %q for transaction %s", evt.Type, evt.TransactionID)
	}
	return debit, credit, nil
}

// getOrCreateWalletAccount lazily provisions the per-wallet ledger account.
// Losing the creation race re-reads the winner's row.
func (s *postingService) getOrCreateWalletAccount(ctx context.Context, walletID uuid.UUID, currency string) (*ledgerbook.Account, error) {
	account, err := s.accounts.GetByExternalIDAndCurrency(ctx, walletID, currency)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ledgerbook.ErrAccountNotFound{}) {
		return nil, fmt.Errorf("failed to look up wallet account %s: %w", walletID, err)
	}

	account = ledgerbook.NewUserAccount(walletID, currency)
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ledgerbook.ErrDuplicateAccount{}) {
			return s.accounts.GetByExternalIDAndCurrency(ctx, walletID, currency)
		}
		return nil, fmt.Errorf("failed to create wallet account %s: %w", walletID, err)
	}
	s.logger.Info("Provisioned wallet ledger account",
		"wallet_id", walletID,
		"account_number", account.AccountNumber,
		"currency", currency,
	)
	return account, nil
}

func postingDescription(evt *event.TransactionCompleted) string {
	if evt.Description != "" {
		return evt.Description
	}
	return evt.Type + " " + evt.Amount.String() + " " + evt.Currency
}
