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
)

type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) AnalyzeTransaction(ctx context.Context, evt *event.TransactionCompleted) error {
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

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func completedEvent() *event.TransactionCompleted {
	return &event.TransactionCompleted{
		EventID:       uuid.New(),
		TransactionID: uuid.New(),
		Type:          "DEPOSIT",
		WalletID:      uuid.New(),
		UserID:        uuid.New(),
		Amount:        decimal.NewFromInt(250),
		Currency:      "USD",
		BalanceAfter:  decimal.NewFromInt(500),
		CompletedAt:   time.Now().UTC(),
	}
}

func TestTransactionEventHandlerHandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("analyzes a well-formed event", func(t *testing.T) {
		analysisService := new(MockAnalysisService)
		producer := new(MockDLQPublisher)
		handler := NewTransactionEventHandler(testLogger(), analysisService, producer)

		evt := completedEvent()
		payload, err := json.Marshal(evt)
		require.NoError(t, err)

		analysisService.On("AnalyzeTransaction", ctx, mock.MatchedBy(func(e *event.TransactionCompleted) bool {
			return e.TransactionID == evt.TransactionID
		})).Return(nil)

		require.NoError(t, handler.HandleMessage(ctx, []byte(evt.WalletID.String()), payload))
		producer.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("routes an unmarshalable payload to the DLQ", func(t *testing.T) {
		analysisService := new(MockAnalysisService)
		producer := new(MockDLQPublisher)
		handler := NewTransactionEventHandler(testLogger(), analysisService, producer)

		payload := []byte("not json")
		producer.On("PublishToDLQ", ctx, "some-key", payload, mock.Anything).Return(nil)

		require.NoError(t, handler.HandleMessage(ctx, []byte("some-key"), payload))
		analysisService.AssertNotCalled(t, "AnalyzeTransaction", mock.Anything, mock.Anything)
	})

	t.Run("returns the unmarshal error when the DLQ is down", func(t *testing.T) {
		analysisService := new(MockAnalysisService)
		producer := new(MockDLQPublisher)
		handler := NewTransactionEventHandler(testLogger(), analysisService, producer)

		producer.On("PublishToDLQ", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(errors.New("broker unavailable"))

		err := handler.HandleMessage(ctx, []byte("some-key"), []byte("not json"))
		assert.ErrorContains(t, err, "failed to unmarshal")
	})

	t.Run("returns analysis failures for redelivery", func(t *testing.T) {
		analysisService := new(MockAnalysisService)
		producer := new(MockDLQPublisher)
		handler := NewTransactionEventHandler(testLogger(), analysisService, producer)

		evt := completedEvent()
		payload, err := json.Marshal(evt)
		require.NoError(t, err)

		analysisService.On("AnalyzeTransaction", ctx, mock.Anything).
			Return(errors.New("mongo timeout"))

		handleErr := handler.HandleMessage(ctx, []byte(evt.WalletID.String()), payload)
		assert.ErrorContains(t, handleErr, evt.TransactionID.String())
		producer.AssertNotCalled(t, "PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
