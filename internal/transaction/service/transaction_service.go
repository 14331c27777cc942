// Package service implements the money-movement core of the transaction
// service: validation, idempotency, block enforcement and the optimistic
// balance mutation, with events staged through the transactional outbox.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/event-driven-wallet/internal/domain/blocklist"
	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/domain/outbox"
	"github.com/event-driven-wallet/internal/domain/transaction"
	"github.com/event-driven-wallet/internal/domain/wallet"
)

// TxRunner runs a function inside a single database transaction.
// persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

type transactionService struct {
	logger        *slog.Logger
	db            TxRunner
	walletRepo    wallet.Repository
	txRepo        transaction.Repository
	blocklistRepo blocklist.Repository
	outboxRepo    outbox.Repository
	// Attempts for the optimistic balance update before giving up.
	balanceRetryAttempts int
}

// NewTransactionService wires the money-movement core.
func NewTransactionService(
	logger *slog.Logger,
	db TxRunner,
	walletRepo wallet.Repository,
	txRepo transaction.Repository,
	blocklistRepo blocklist.Repository,
	outboxRepo outbox.Repository,
	balanceRetryAttempts int,
) TransactionService {
	if balanceRetryAttempts < 1 {
		balanceRetryAttempts = 1
	}
	return &transactionService{
		logger:               logger,
		db:                   db,
		walletRepo:           walletRepo,
		txRepo:               txRepo,
		blocklistRepo:        blocklistRepo,
		outboxRepo:           outboxRepo,
		balanceRetryAttempts: balanceRetryAttempts,
	}
}

func (s *transactionService) Deposit(ctx context.Context, req *DepositRequest) (*transaction.Transaction, error) {
	if err := validateAmountAndKey(req.Amount, req.IdempotencyKey); err != nil {
		return nil, err
	}
	return s.processSingleLeg(ctx, transaction.TypeDeposit, req.WalletID, req.Amount, req.Description, req.IdempotencyKey)
}

func (s *transactionService) Withdraw(ctx context.Context, req *WithdrawalRequest) (*transaction.Transaction, error) {
	if err := validateAmountAndKey(req.Amount, req.IdempotencyKey); err != nil {
		return nil, err
	}
	return s.processSingleLeg(ctx, transaction.TypeWithdrawal, req.WalletID, req.Amount, req.Description, req.IdempotencyKey)
}

// processSingleLeg handles deposits and withdrawals: one wallet, one
// transaction record, one completed event.
func (s *transactionService) processSingleLeg(ctx context.Context, typ transaction.Type, walletID uuid.UUID, amount decimal.Decimal, description, idempotencyKey string) (*transaction.Transaction, error) {
	exists, err := s.txRepo.ExistsByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if exists {
		return nil, transaction.ErrDuplicateTransaction{IdempotencyKey: idempotencyKey}
	}

	balance, err := s.walletRepo.GetByWalletID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	txn := transaction.New(typ, walletID, balance.UserID, amount, balance.Currency, idempotencyKey, description)

	// A blocked user is rejected without persisting anything: the
	// idempotency key stays unused, so the same request succeeds once the
	// block is lifted. Only insufficient balance leaves a FAILED record.
	if blockErr := s.ensureNotBlocked(ctx, balance.UserID); blockErr != nil {
		return nil, blockErr
	}

	for attempt := 1; ; attempt++ {
		working := *balance
		switch typ {
		case transaction.TypeDeposit:
			working.Credit(amount)
		case transaction.TypeWithdrawal:
			if debitErr := working.Debit(amount); debitErr != nil {
				s.recordFailure(ctx, txn, debitErr.Error())
				return nil, debitErr
			}
		}

		txn.Complete(working.Balance)

		err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if txErr := s.txRepo.WithTx(tx).Create(ctx, txn); txErr != nil {
				return txErr
			}
			if txErr := s.walletRepo.WithTx(tx).UpdateBalance(ctx, walletID, working.Balance, balance.Version); txErr != nil {
				return txErr
			}
			msg, msgErr := completedMessage(txn)
			if msgErr != nil {
				return msgErr
			}
			return s.outboxRepo.WithTx(tx).Create(ctx, msg)
		})
		if err == nil {
			s.logger.Info("Transaction completed",
				"transaction_id", txn.ID,
				"type", typ,
				"wallet_id", walletID,
				"attempt", attempt,
			)
			return txn, nil
		}

		balance, err = s.retryAfterConflict(ctx, err, walletID, attempt)
		if err != nil {
			return nil, err
		}
	}
}

func (s *transactionService) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	if err := validateAmountAndKey(req.Amount, req.IdempotencyKey); err != nil {
		return nil, err
	}
	if req.SourceWalletID == req.DestinationWalletID {
		return nil, transaction.ErrSameWallet
	}

	outKey := req.IdempotencyKey + ":out"
	inKey := req.IdempotencyKey + ":in"

	exists, err := s.txRepo.ExistsByIdempotencyKey(ctx, outKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if exists {
		return nil, transaction.ErrDuplicateTransaction{IdempotencyKey: req.IdempotencyKey}
	}

	source, err := s.walletRepo.GetByWalletID(ctx, req.SourceWalletID)
	if err != nil {
		return nil, err
	}
	dest, err := s.walletRepo.GetByWalletID(ctx, req.DestinationWalletID)
	if err != nil {
		return nil, err
	}
	if source.Currency != dest.Currency {
		return nil, transaction.ErrInvalidCurrency
	}

	outLeg := transaction.New(transaction.TypeTransferOut, source.WalletID, source.UserID, req.Amount, source.Currency, outKey, req.Description)
	inLeg := transaction.New(transaction.TypeTransferIn, dest.WalletID, dest.UserID, req.Amount, dest.Currency, inKey, req.Description)
	outLeg.Link(inLeg)
	inLeg.Link(outLeg)

	// Both parties are checked before any money moves. The rejection
	// persists nothing, so the caller can reuse the idempotency key after
	// the block is lifted.
	for _, userID := range []uuid.UUID{source.UserID, dest.UserID} {
		if blockErr := s.ensureNotBlocked(ctx, userID); blockErr != nil {
			return nil, blockErr
		}
	}

	for attempt := 1; ; attempt++ {
		workingSrc := *source
		workingDst := *dest
		if debitErr := workingSrc.Debit(req.Amount); debitErr != nil {
			s.recordFailure(ctx, outLeg, debitErr.Error())
			return nil, debitErr
		}
		workingDst.Credit(req.Amount)

		outLeg.Complete(workingSrc.Balance)
		inLeg.Complete(workingDst.Balance)

		err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			txRepo := s.txRepo.WithTx(tx)
			walletRepo := s.walletRepo.WithTx(tx)
			outboxRepo := s.outboxRepo.WithTx(tx)

			if txErr := txRepo.Create(ctx, outLeg); txErr != nil {
				return txErr
			}
			if txErr := txRepo.Create(ctx, inLeg); txErr != nil {
				return txErr
			}
			if txErr := walletRepo.UpdateBalance(ctx, source.WalletID, workingSrc.Balance, source.Version); txErr != nil {
				return txErr
			}
			if txErr := walletRepo.UpdateBalance(ctx, dest.WalletID, workingDst.Balance, dest.Version); txErr != nil {
				return txErr
			}
			for _, leg := range []*transaction.Transaction{outLeg, inLeg} {
				msg, msgErr := completedMessage(leg)
				if msgErr != nil {
					return msgErr
				}
				if txErr := outboxRepo.Create(ctx, msg); txErr != nil {
					return txErr
				}
			}
			return nil
		})
		if err == nil {
			s.logger.Info("Transfer completed",
				"out_transaction_id", outLeg.ID,
				"in_transaction_id", inLeg.ID,
				"source_wallet_id", source.WalletID,
				"destination_wallet_id", dest.WalletID,
				"attempt", attempt,
			)
			return &TransferResult{Outgoing: outLeg, Incoming: inLeg}, nil
		}

		var conflicted wallet.ErrConcurrentModification
		if !errors.As(err, &conflicted) || attempt >= s.balanceRetryAttempts {
			if errors.As(err, &conflicted) {
				return nil, fmt.Errorf("balance update contention after %d attempts: %w", attempt, err)
			}
			return nil, err
		}
		s.logger.Debug("Retrying transfer after version conflict",
			"wallet_id", conflicted.WalletID,
			"attempt", attempt,
		)
		source, err = s.walletRepo.GetByWalletID(ctx, req.SourceWalletID)
		if err != nil {
			return nil, err
		}
		dest, err = s.walletRepo.GetByWalletID(ctx, req.DestinationWalletID)
		if err != nil {
			return nil, err
		}
	}
}

func (s *transactionService) GetBalance(ctx context.Context, walletID uuid.UUID) (*wallet.Balance, error) {
	return s.walletRepo.GetByWalletID(ctx, walletID)
}

func (s *transactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return s.txRepo.GetByID(ctx, id)
}

func (s *transactionService) ListTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*transaction.Transaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	txns, err := s.txRepo.GetByWalletID(ctx, walletID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.txRepo.CountByWalletID(ctx, walletID)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

func (s *transactionService) ProvisionWallet(ctx context.Context, walletID, userID uuid.UUID, currency string, initialBalance decimal.Decimal) error {
	balance := wallet.NewBalance(walletID, userID, currency)
	if initialBalance.IsPositive() {
		balance.Credit(initialBalance)
	}

	err := s.walletRepo.Create(ctx, balance)
	if err != nil {
		var dup wallet.ErrDuplicateWallet
		if errors.As(err, &dup) {
			s.logger.Debug("Wallet balance already provisioned", "wallet_id", walletID)
			return nil
		}
		return err
	}
	s.logger.Info("Wallet balance provisioned", "wallet_id", walletID, "user_id", userID, "currency", currency)
	return nil
}

func (s *transactionService) ApplyBlock(ctx context.Context, blocked *blocklist.BlockedUser) error {
	exists, err := s.blocklistRepo.ExistsByTriggeringTransactionID(ctx, blocked.TriggeredByTransactionID)
	if err != nil {
		return fmt.Errorf("failed to check block registry: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.blocklistRepo.Create(ctx, blocked); err != nil {
		return err
	}
	s.logger.Warn("User blocked",
		"user_id", blocked.UserID,
		"triggered_by_transaction_id", blocked.TriggeredByTransactionID,
		"risk_score", blocked.RiskScore,
	)
	return nil
}

// ensureNotBlocked returns ErrUserBlocked when the user has an active block.
func (s *transactionService) ensureNotBlocked(ctx context.Context, userID uuid.UUID) error {
	blocked, err := s.blocklistRepo.GetByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check block registry: %w", err)
	}
	if blocked != nil {
		return blocklist.ErrUserBlocked{UserID: userID, Reason: blocked.Reason}
	}
	return nil
}

// retryAfterConflict decides whether a failed single-leg commit is worth
// retrying. It re-reads the wallet after a version conflict and returns the
// fresh balance, or the terminal error.
func (s *transactionService) retryAfterConflict(ctx context.Context, commitErr error, walletID uuid.UUID, attempt int) (*wallet.Balance, error) {
	var conflicted wallet.ErrConcurrentModification
	if !errors.As(commitErr, &conflicted) {
		return nil, commitErr
	}
	if attempt >= s.balanceRetryAttempts {
		return nil, fmt.Errorf("balance update contention after %d attempts: %w", attempt, commitErr)
	}
	s.logger.Debug("Retrying after version conflict", "wallet_id", walletID, "attempt", attempt)
	return s.walletRepo.GetByWalletID(ctx, walletID)
}

// recordFailure persists the FAILED transaction and its failure event in a
// transaction of their own, independent of any rolled-back mutation. Errors
// here are logged, not returned: the business error already decided the
// outcome.
func (s *transactionService) recordFailure(ctx context.Context, txn *transaction.Transaction, reason string) {
	txn.Fail(reason)

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		if txErr := s.txRepo.WithTx(tx).Create(ctx, txn); txErr != nil {
			return txErr
		}
		msg, msgErr := failedMessage(txn)
		if msgErr != nil {
			return msgErr
		}
		return s.outboxRepo.WithTx(tx).Create(ctx, msg)
	})
	if err != nil {
		s.logger.Error("Failed to record failed transaction",
			"transaction_id", txn.ID,
			"reason", reason,
			"error", err,
		)
		return
	}
	s.logger.Info("Transaction failed",
		"transaction_id", txn.ID,
		"type", txn.Type,
		"wallet_id", txn.WalletID,
		"reason", reason,
	)
}

func completedMessage(txn *transaction.Transaction) (*outbox.Message, error) {
	evt := event.TransactionCompleted{
		EventID:              uuid.New(),
		TransactionID:        txn.ID,
		Type:                 string(txn.Type),
		WalletID:             txn.WalletID,
		UserID:               txn.UserID,
		Amount:               txn.Amount,
		Currency:             txn.Currency,
		BalanceAfter:         *txn.BalanceAfter,
		RelatedWalletID:      txn.RelatedWalletID,
		RelatedTransactionID: txn.RelatedTransactionID,
		Description:          txn.Description,
		CompletedAt:          *txn.CompletedAt,
	}
	return outbox.NewMessage(txn.ID, event.TopicTransactionCompleted, txn.WalletID.String(), evt)
}

func failedMessage(txn *transaction.Transaction) (*outbox.Message, error) {
	evt := event.TransactionFailed{
		EventID:              uuid.New(),
		TransactionID:        txn.ID,
		Type:                 string(txn.Type),
		WalletID:             txn.WalletID,
		UserID:               txn.UserID,
		Amount:               txn.Amount,
		Currency:             txn.Currency,
		RelatedTransactionID: txn.RelatedTransactionID,
		Description:          txn.Description,
		FailedAt:             *txn.CompletedAt,
		ErrorReason:          txn.ErrorMessage,
	}
	return outbox.NewMessage(txn.ID, event.TopicTransactionFailed, txn.WalletID.String(), evt)
}

func validateAmountAndKey(amount decimal.Decimal, idempotencyKey string) error {
	if !amount.IsPositive() {
		return transaction.ErrInvalidAmount
	}
	if strings.TrimSpace(idempotencyKey) == "" {
		return transaction.ErrMissingIdemKey
	}
	return nil
}
