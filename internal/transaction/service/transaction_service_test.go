package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/event-driven-wallet/internal/domain/blocklist"
	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/domain/outbox"
	"github.com/event-driven-wallet/internal/domain/transaction"
	"github.com/event-driven-wallet/internal/domain/wallet"
)

// MockTxRunner runs the transaction function directly against the repository
// mocks, or short-circuits with a preset error.
type MockTxRunner struct {
	mock.Mock
}

func (m *MockTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(nil)
}

type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) Create(ctx context.Context, balance *wallet.Balance) error {
	return m.Called(ctx, balance).Error(0)
}

func (m *MockWalletRepository) GetByWalletID(ctx context.Context, walletID uuid.UUID) (*wallet.Balance, error) {
	args := m.Called(ctx, walletID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*wallet.Balance), args.Error(1)
}

func (m *MockWalletRepository) ExistsByWalletID(ctx context.Context, walletID uuid.UUID) (bool, error) {
	args := m.Called(ctx, walletID)
	return args.Bool(0), args.Error(1)
}

func (m *MockWalletRepository) UpdateBalance(ctx context.Context, walletID uuid.UUID, newBalance decimal.Decimal, version int64) error {
	return m.Called(ctx, walletID, newBalance, version).Error(0)
}

func (m *MockWalletRepository) WithTx(tx pgx.Tx) wallet.Repository { return m }

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	return m.Called(ctx, txn).Error(0)
}

func (m *MockTransactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	return m.Called(ctx, txn).Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ExistsByIdempotencyKey(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) GetByWalletID(ctx context.Context, walletID uuid.UUID, limit, offset int) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, walletID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByWalletID(ctx context.Context, walletID uuid.UUID) (int64, error) {
	args := m.Called(ctx, walletID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) WithTx(tx pgx.Tx) transaction.Repository { return m }

type MockBlocklistRepository struct {
	mock.Mock
}

func (m *MockBlocklistRepository) Create(ctx context.Context, blocked *blocklist.BlockedUser) error {
	return m.Called(ctx, blocked).Error(0)
}

func (m *MockBlocklistRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*blocklist.BlockedUser, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blocklist.BlockedUser), args.Error(1)
}

func (m *MockBlocklistRepository) ExistsByTriggeringTransactionID(ctx context.Context, transactionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, transactionID)
	return args.Bool(0), args.Error(1)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepository) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository { return m }

type serviceMocks struct {
	db        *MockTxRunner
	wallets   *MockWalletRepository
	txns      *MockTransactionRepository
	blocklist *MockBlocklistRepository
	outbox    *MockOutboxRepository
}

func newTestService(t *testing.T, retryAttempts int) (TransactionService, *serviceMocks) {
	t.Helper()
	m := &serviceMocks{
		db:        new(MockTxRunner),
		wallets:   new(MockWalletRepository),
		txns:      new(MockTransactionRepository),
		blocklist: new(MockBlocklistRepository),
		outbox:    new(MockOutboxRepository),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewTransactionService(logger, m.db, m.wallets, m.txns, m.blocklist, m.outbox, retryAttempts)
	return svc, m
}

func (m *serviceMocks) assertExpectations(t *testing.T) {
	m.db.AssertExpectations(t)
	m.wallets.AssertExpectations(t)
	m.txns.AssertExpectations(t)
	m.blocklist.AssertExpectations(t)
	m.outbox.AssertExpectations(t)
}

func testBalance(amount int64, version int64) *wallet.Balance {
	b := wallet.NewBalance(uuid.New(), uuid.New(), "USD")
	b.Balance = decimal.NewFromInt(amount)
	b.Version = version
	return b
}

func decimalEq(expected decimal.Decimal) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(expected) })
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("credits the wallet and stages a completed event", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		balance := testBalance(100, 3)

		m.txns.On("ExistsByIdempotencyKey", ctx, "dep-1").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, balance.WalletID).Return(balance, nil)
		m.blocklist.On("GetByUserID", ctx, balance.UserID).Return(nil, nil)
		m.db.On("ExecuteTx", ctx, mock.Anything).Return(nil)
		m.txns.On("Create", ctx, mock.MatchedBy(func(txn *transaction.Transaction) bool {
			return txn.Type == transaction.TypeDeposit &&
				txn.Status == transaction.StatusCompleted &&
				txn.BalanceAfter != nil &&
				txn.BalanceAfter.Equal(decimal.NewFromInt(150))
		})).Return(nil)
		m.wallets.On("UpdateBalance", ctx, balance.WalletID, decimalEq(decimal.NewFromInt(150)), int64(3)).Return(nil)
		m.outbox.On("Create", ctx, mock.MatchedBy(func(msg *outbox.Message) bool {
			return msg.Topic == event.TopicTransactionCompleted && msg.Key == balance.WalletID.String()
		})).Return(nil)

		txn, err := svc.Deposit(ctx, &DepositRequest{
			WalletID:       balance.WalletID,
			Amount:         decimal.NewFromInt(50),
			IdempotencyKey: "dep-1",
		})

		require.NoError(t, err)
		assert.Equal(t, transaction.StatusCompleted, txn.Status)
		assert.Equal(t, "USD", txn.Currency)
		m.assertExpectations(t)
	})

	t.Run("rejects a non-positive amount", func(t *testing.T) {
		svc, _ := newTestService(t, 3)

		_, err := svc.Deposit(ctx, &DepositRequest{
			WalletID:       uuid.New(),
			Amount:         decimal.Zero,
			IdempotencyKey: "dep-2",
		})

		assert.ErrorIs(t, err, transaction.ErrInvalidAmount)
	})

	t.Run("rejects a missing idempotency key", func(t *testing.T) {
		svc, _ := newTestService(t, 3)

		_, err := svc.Deposit(ctx, &DepositRequest{
			WalletID: uuid.New(),
			Amount:   decimal.NewFromInt(10),
		})

		assert.ErrorIs(t, err, transaction.ErrMissingIdemKey)
	})

	t.Run("rejects a reused idempotency key", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		walletID := uuid.New()

		m.txns.On("ExistsByIdempotencyKey", ctx, "dep-dup").Return(true, nil)

		_, err := svc.Deposit(ctx, &DepositRequest{
			WalletID:       walletID,
			Amount:         decimal.NewFromInt(10),
			IdempotencyKey: "dep-dup",
		})

		assert.ErrorIs(t, err, transaction.ErrDuplicateTransaction{})
		m.assertExpectations(t)
	})

	t.Run("rejects an unknown wallet", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		walletID := uuid.New()

		m.txns.On("ExistsByIdempotencyKey", ctx, "dep-3").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, walletID).Return(nil, wallet.ErrWalletNotFound{WalletID: walletID})

		_, err := svc.Deposit(ctx, &DepositRequest{
			WalletID:       walletID,
			Amount:         decimal.NewFromInt(10),
			IdempotencyKey: "dep-3",
		})

		assert.ErrorIs(t, err, wallet.ErrWalletNotFound{})
		m.assertExpectations(t)
	})

	t.Run("rejects a blocked user without persisting anything", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		balance := testBalance(100, 1)

		m.txns.On("ExistsByIdempotencyKey", ctx, "dep-4").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, balance.WalletID).Return(balance, nil)
		m.blocklist.On("GetByUserID", ctx, balance.UserID).Return(&blocklist.BlockedUser{
			UserID: balance.UserID,
			Reason: "Fraudulent activity detected: LARGE_AMOUNT",
		}, nil)

		_, err := svc.Deposit(ctx, &DepositRequest{
			WalletID:       balance.WalletID,
			Amount:         decimal.NewFromInt(10),
			IdempotencyKey: "dep-4",
		})

		assert.ErrorIs(t, err, blocklist.ErrUserBlocked{})
		// The idempotency key stays unused so the request can be retried
		// once the block is lifted.
		m.txns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.db.AssertNotCalled(t, "ExecuteTx", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()

	t.Run("debits the wallet", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		balance := testBalance(100, 2)

		m.txns.On("ExistsByIdempotencyKey", ctx, "wd-1").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, balance.WalletID).Return(balance, nil)
		m.blocklist.On("GetByUserID", ctx, balance.UserID).Return(nil, nil)
		m.db.On("ExecuteTx", ctx, mock.Anything).Return(nil)
		m.txns.On("Create", ctx, mock.MatchedBy(func(txn *transaction.Transaction) bool {
			return txn.Type == transaction.TypeWithdrawal && txn.Status == transaction.StatusCompleted
		})).Return(nil)
		m.wallets.On("UpdateBalance", ctx, balance.WalletID, decimalEq(decimal.NewFromInt(60)), int64(2)).Return(nil)
		m.outbox.On("Create", ctx, mock.Anything).Return(nil)

		txn, err := svc.Withdraw(ctx, &WithdrawalRequest{
			WalletID:       balance.WalletID,
			Amount:         decimal.NewFromInt(40),
			IdempotencyKey: "wd-1",
		})

		require.NoError(t, err)
		require.NotNil(t, txn.BalanceAfter)
		assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(60)))
		m.assertExpectations(t)
	})

	t.Run("records a failed transaction when the balance is insufficient", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		balance := testBalance(30, 1)

		m.txns.On("ExistsByIdempotencyKey", ctx, "wd-2").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, balance.WalletID).Return(balance, nil)
		m.blocklist.On("GetByUserID", ctx, balance.UserID).Return(nil, nil)
		m.db.On("ExecuteTx", ctx, mock.Anything).Return(nil)
		m.txns.On("Create", ctx, mock.MatchedBy(func(txn *transaction.Transaction) bool {
			return txn.Status == transaction.StatusFailed && txn.IdempotencyKey == "wd-2"
		})).Return(nil)
		m.outbox.On("Create", ctx, mock.MatchedBy(func(msg *outbox.Message) bool {
			return msg.Topic == event.TopicTransactionFailed && msg.Key == balance.WalletID.String()
		})).Return(nil)

		_, err := svc.Withdraw(ctx, &WithdrawalRequest{
			WalletID:       balance.WalletID,
			Amount:         decimal.NewFromInt(100),
			IdempotencyKey: "wd-2",
		})

		assert.ErrorIs(t, err, wallet.ErrInsufficientBalance{})
		m.assertExpectations(t)
	})

	t.Run("retries the balance update after a version conflict", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		balance := testBalance(100, 5)
		refreshed := *balance
		refreshed.Balance = decimal.NewFromInt(90)
		refreshed.Version = 6

		m.txns.On("ExistsByIdempotencyKey", ctx, "wd-3").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, balance.WalletID).Return(balance, nil).Once()
		m.blocklist.On("GetByUserID", ctx, balance.UserID).Return(nil, nil)
		m.db.On("ExecuteTx", ctx, mock.Anything).Return(nil)
		m.txns.On("Create", ctx, mock.Anything).Return(nil)
		m.wallets.On("UpdateBalance", ctx, balance.WalletID, decimalEq(decimal.NewFromInt(80)), int64(5)).
			Return(wallet.ErrConcurrentModification{WalletID: balance.WalletID}).Once()
		m.wallets.On("GetByWalletID", ctx, balance.WalletID).Return(&refreshed, nil).Once()
		m.wallets.On("UpdateBalance", ctx, balance.WalletID, decimalEq(decimal.NewFromInt(70)), int64(6)).
			Return(nil).Once()
		m.outbox.On("Create", ctx, mock.Anything).Return(nil)

		txn, err := svc.Withdraw(ctx, &WithdrawalRequest{
			WalletID:       balance.WalletID,
			Amount:         decimal.NewFromInt(20),
			IdempotencyKey: "wd-3",
		})

		require.NoError(t, err)
		assert.True(t, txn.BalanceAfter.Equal(decimal.NewFromInt(70)))
		m.assertExpectations(t)
	})

	t.Run("gives up after exhausting retry attempts", func(t *testing.T) {
		svc, m := newTestService(t, 2)
		balance := testBalance(100, 1)

		m.txns.On("ExistsByIdempotencyKey", ctx, "wd-4").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, balance.WalletID).Return(balance, nil)
		m.blocklist.On("GetByUserID", ctx, balance.UserID).Return(nil, nil)
		m.db.On("ExecuteTx", ctx, mock.Anything).Return(nil)
		m.txns.On("Create", ctx, mock.Anything).Return(nil)
		m.wallets.On("UpdateBalance", ctx, balance.WalletID, mock.Anything, mock.Anything).
			Return(wallet.ErrConcurrentModification{WalletID: balance.WalletID})

		_, err := svc.Withdraw(ctx, &WithdrawalRequest{
			WalletID:       balance.WalletID,
			Amount:         decimal.NewFromInt(20),
			IdempotencyKey: "wd-4",
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, wallet.ErrConcurrentModification{})
		m.assertExpectations(t)
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()

	t.Run("moves money between wallets with linked legs", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		source := testBalance(200, 4)
		dest := testBalance(10, 9)

		m.txns.On("ExistsByIdempotencyKey", ctx, "tr-1:out").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, source.WalletID).Return(source, nil)
		m.wallets.On("GetByWalletID", ctx, dest.WalletID).Return(dest, nil)
		m.blocklist.On("GetByUserID", ctx, source.UserID).Return(nil, nil)
		m.blocklist.On("GetByUserID", ctx, dest.UserID).Return(nil, nil)
		m.db.On("ExecuteTx", ctx, mock.Anything).Return(nil)
		m.txns.On("Create", ctx, mock.MatchedBy(func(txn *transaction.Transaction) bool {
			return txn.Type == transaction.TypeTransferOut && txn.IdempotencyKey == "tr-1:out"
		})).Return(nil).Once()
		m.txns.On("Create", ctx, mock.MatchedBy(func(txn *transaction.Transaction) bool {
			return txn.Type == transaction.TypeTransferIn && txn.IdempotencyKey == "tr-1:in"
		})).Return(nil).Once()
		m.wallets.On("UpdateBalance", ctx, source.WalletID, decimalEq(decimal.NewFromInt(150)), int64(4)).Return(nil)
		m.wallets.On("UpdateBalance", ctx, dest.WalletID, decimalEq(decimal.NewFromInt(60)), int64(9)).Return(nil)
		m.outbox.On("Create", ctx, mock.MatchedBy(func(msg *outbox.Message) bool {
			return msg.Topic == event.TopicTransactionCompleted
		})).Return(nil).Twice()

		result, err := svc.Transfer(ctx, &TransferRequest{
			SourceWalletID:      source.WalletID,
			DestinationWalletID: dest.WalletID,
			Amount:              decimal.NewFromInt(50),
			IdempotencyKey:      "tr-1",
		})

		require.NoError(t, err)
		require.NotNil(t, result.Outgoing.RelatedTransactionID)
		require.NotNil(t, result.Incoming.RelatedTransactionID)
		assert.Equal(t, result.Incoming.ID, *result.Outgoing.RelatedTransactionID)
		assert.Equal(t, result.Outgoing.ID, *result.Incoming.RelatedTransactionID)
		assert.Equal(t, dest.WalletID, *result.Outgoing.RelatedWalletID)
		m.assertExpectations(t)
	})

	t.Run("rejects a transfer to the same wallet", func(t *testing.T) {
		svc, _ := newTestService(t, 3)
		walletID := uuid.New()

		_, err := svc.Transfer(ctx, &TransferRequest{
			SourceWalletID:      walletID,
			DestinationWalletID: walletID,
			Amount:              decimal.NewFromInt(5),
			IdempotencyKey:      "tr-2",
		})

		assert.ErrorIs(t, err, transaction.ErrSameWallet)
	})

	t.Run("rejects a currency mismatch", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		source := testBalance(200, 1)
		dest := testBalance(10, 1)
		dest.Currency = "EUR"

		m.txns.On("ExistsByIdempotencyKey", ctx, "tr-3:out").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, source.WalletID).Return(source, nil)
		m.wallets.On("GetByWalletID", ctx, dest.WalletID).Return(dest, nil)

		_, err := svc.Transfer(ctx, &TransferRequest{
			SourceWalletID:      source.WalletID,
			DestinationWalletID: dest.WalletID,
			Amount:              decimal.NewFromInt(5),
			IdempotencyKey:      "tr-3",
		})

		assert.ErrorIs(t, err, transaction.ErrInvalidCurrency)
		m.assertExpectations(t)
	})

	t.Run("rejects the transfer without persisting when the receiver is blocked", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		source := testBalance(200, 1)
		dest := testBalance(10, 1)

		m.txns.On("ExistsByIdempotencyKey", ctx, "tr-4:out").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, source.WalletID).Return(source, nil)
		m.wallets.On("GetByWalletID", ctx, dest.WalletID).Return(dest, nil)
		m.blocklist.On("GetByUserID", ctx, source.UserID).Return(nil, nil)
		m.blocklist.On("GetByUserID", ctx, dest.UserID).Return(&blocklist.BlockedUser{
			UserID: dest.UserID,
			Reason: "Fraudulent activity detected: HIGH_VELOCITY",
		}, nil)

		_, err := svc.Transfer(ctx, &TransferRequest{
			SourceWalletID:      source.WalletID,
			DestinationWalletID: dest.WalletID,
			Amount:              decimal.NewFromInt(5),
			IdempotencyKey:      "tr-4",
		})

		assert.ErrorIs(t, err, blocklist.ErrUserBlocked{UserID: dest.UserID})
		m.txns.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.outbox.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		m.db.AssertNotCalled(t, "ExecuteTx", mock.Anything, mock.Anything)
		m.assertExpectations(t)
	})

	t.Run("records the failed outgoing leg on insufficient balance", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		source := testBalance(3, 1)
		dest := testBalance(10, 1)

		m.txns.On("ExistsByIdempotencyKey", ctx, "tr-5:out").Return(false, nil)
		m.wallets.On("GetByWalletID", ctx, source.WalletID).Return(source, nil)
		m.wallets.On("GetByWalletID", ctx, dest.WalletID).Return(dest, nil)
		m.blocklist.On("GetByUserID", ctx, source.UserID).Return(nil, nil)
		m.blocklist.On("GetByUserID", ctx, dest.UserID).Return(nil, nil)
		m.db.On("ExecuteTx", ctx, mock.Anything).Return(nil)
		m.txns.On("Create", ctx, mock.MatchedBy(func(txn *transaction.Transaction) bool {
			return txn.Type == transaction.TypeTransferOut && txn.Status == transaction.StatusFailed
		})).Return(nil).Once()
		m.outbox.On("Create", ctx, mock.Anything).Return(nil).Once()

		_, err := svc.Transfer(ctx, &TransferRequest{
			SourceWalletID:      source.WalletID,
			DestinationWalletID: dest.WalletID,
			Amount:              decimal.NewFromInt(50),
			IdempotencyKey:      "tr-5",
		})

		assert.ErrorIs(t, err, wallet.ErrInsufficientBalance{})
		m.assertExpectations(t)
	})
}

func TestProvisionWallet(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the balance with the initial amount", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		walletID := uuid.New()
		userID := uuid.New()

		m.wallets.On("Create", ctx, mock.MatchedBy(func(b *wallet.Balance) bool {
			return b.WalletID == walletID && b.UserID == userID &&
				b.Currency == "USD" && b.Balance.Equal(decimal.NewFromInt(25))
		})).Return(nil)

		err := svc.ProvisionWallet(ctx, walletID, userID, "USD", decimal.NewFromInt(25))

		require.NoError(t, err)
		m.assertExpectations(t)
	})

	t.Run("treats a duplicate wallet as a no-op", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		walletID := uuid.New()

		m.wallets.On("Create", ctx, mock.Anything).Return(wallet.ErrDuplicateWallet{WalletID: walletID})

		err := svc.ProvisionWallet(ctx, walletID, uuid.New(), "USD", decimal.Zero)

		assert.NoError(t, err)
		m.assertExpectations(t)
	})
}

func TestApplyBlock(t *testing.T) {
	ctx := context.Background()

	t.Run("records a new block", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		blocked := &blocklist.BlockedUser{
			UserID:                   uuid.New(),
			TriggeredByTransactionID: uuid.New(),
			Reason:                   "Fraudulent activity detected: VERY_LARGE_AMOUNT",
			RiskScore:                80,
		}

		m.blocklist.On("ExistsByTriggeringTransactionID", ctx, blocked.TriggeredByTransactionID).Return(false, nil)
		m.blocklist.On("Create", ctx, blocked).Return(nil)

		require.NoError(t, svc.ApplyBlock(ctx, blocked))
		m.assertExpectations(t)
	})

	t.Run("ignores a redelivered block event", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		blocked := &blocklist.BlockedUser{
			UserID:                   uuid.New(),
			TriggeredByTransactionID: uuid.New(),
		}

		m.blocklist.On("ExistsByTriggeringTransactionID", ctx, blocked.TriggeredByTransactionID).Return(true, nil)

		require.NoError(t, svc.ApplyBlock(ctx, blocked))
		m.blocklist.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("clamps the page size", func(t *testing.T) {
		svc, m := newTestService(t, 3)
		walletID := uuid.New()

		m.txns.On("GetByWalletID", ctx, walletID, 20, 0).Return([]*transaction.Transaction{}, nil)
		m.txns.On("CountByWalletID", ctx, walletID).Return(int64(0), nil)

		_, total, err := svc.ListTransactions(ctx, walletID, 500, -3)

		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
		m.assertExpectations(t)
	})
}

