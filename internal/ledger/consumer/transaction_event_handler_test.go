package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/domain/ledgerbook"
)

type MockPostingService struct {
	mock.Mock
}

func (m *MockPostingService) PostTransaction(ctx context.Context, evt *event.TransactionCompleted) error {
	return m.Called(ctx, evt).Error(0)
}

type MockDLQPublisher struct {
	mock.Mock
}

func (m *MockDLQPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	return m.Called(ctx, key, originalMessageValue, reason).Error(0)
}

func (m *MockDLQPublisher) Close() error {
	return m.Called().Error(0)
}

func newTestHandler() (*TransactionEventHandler, *MockPostingService, *MockDLQPublisher) {
	svc := new(MockPostingService)
	dlq := new(MockDLQPublisher)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTransactionEventHandler(logger, svc, dlq), svc, dlq
}

func eventPayload(t *testing.T) (event.TransactionCompleted, []byte) {
	t.Helper()
	evt := event.TransactionCompleted{
		EventID:       uuid.New(),
		TransactionID: uuid.New(),
		Type:          "DEPOSIT",
		WalletID:      uuid.New(),
		UserID:        uuid.New(),
		Amount:        decimal.NewFromInt(100),
		Currency:      "USD",
		BalanceAfter:  decimal.NewFromInt(250),
		CompletedAt:   time.Now().UTC(),
	}
	payload, err := json.Marshal(evt)
	require.NoError(t, err)
	return evt, payload
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the event and commits", func(t *testing.T) {
		handler, svc, _ := newTestHandler()
		evt, payload := eventPayload(t)

		svc.On("PostTransaction", ctx, mock.MatchedBy(func(e *event.TransactionCompleted) bool {
			return e.TransactionID == evt.TransactionID
		})).Return(nil)

		require.NoError(t, handler.HandleMessage(ctx, []byte(evt.WalletID.String()), payload))
		svc.AssertExpectations(t)
	})

	t.Run("routes an unmarshalable payload to the DLQ", func(t *testing.T) {
		handler, svc, dlq := newTestHandler()

		dlq.On("PublishToDLQ", ctx, "key", []byte("not json"), mock.Anything).Return(nil)

		require.NoError(t, handler.HandleMessage(ctx, []byte("key"), []byte("not json")))
		svc.AssertNotCalled(t, "PostTransaction", mock.Anything, mock.Anything)
		dlq.AssertExpectations(t)
	})

	t.Run("routes a missing system account straight to the DLQ", func(t *testing.T) {
		handler, svc, dlq := newTestHandler()
		_, payload := eventPayload(t)

		svc.On("PostTransaction", ctx, mock.Anything).
			Return(ledgerbook.ErrSystemAccountMissing{AccountType: ledgerbook.AccountTypeSystemBank, Currency: "USD"})
		dlq.On("PublishToDLQ", ctx, mock.Anything, payload, mock.Anything).Return(nil)

		require.NoError(t, handler.HandleMessage(ctx, []byte("key"), payload))
		dlq.AssertExpectations(t)
	})

	t.Run("returns transient posting failures for redelivery", func(t *testing.T) {
		handler, svc, dlq := newTestHandler()
		_, payload := eventPayload(t)

		svc.On("PostTransaction", ctx, mock.Anything).Return(errors.New("connection reset"))

		err := handler.HandleMessage(ctx, []byte("key"), payload)
		assert.Error(t, err)
		dlq.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("re-raises the original error when the DLQ write fails", func(t *testing.T) {
		handler, _, dlq := newTestHandler()

		dlq.On("PublishToDLQ", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("broker unavailable"))

		err := handler.HandleMessage(ctx, []byte("key"), []byte("not json"))
		assert.Error(t, err)
	})
}
