package outbox_poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/event-driven-wallet/internal/config"
	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/domain/outbox"
)

type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	return m.Called(ctx, message).Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOutboxRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) ([]*outbox.Message, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository { return m }

type MockTopicPublisher struct {
	mock.Mock
}

func (m *MockTopicPublisher) PublishTo(ctx context.Context, topic, key string, payload []byte) error {
	return m.Called(ctx, topic, key, payload).Error(0)
}

func (m *MockTopicPublisher) Close() error {
	return m.Called().Error(0)
}

func newTestPoller(repo *MockOutboxRepo, publisher *MockTopicPublisher, maxAttempts int) *Poller {
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: maxAttempts,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPoller(cfg, repo, publisher, logger)
}

func pendingMessage(t *testing.T, id int64, attempts int) *outbox.Message {
	t.Helper()
	msg, err := outbox.NewMessage(uuid.New(), event.TopicTransactionCompleted, uuid.New().String(), map[string]string{"k": "v"})
	require.NoError(t, err)
	msg.ID = id
	msg.Attempts = attempts
	return msg
}

func TestProcessPendingMessages(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes each pending message and marks it processed", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockTopicPublisher)
		poller := newTestPoller(repo, publisher, 3)

		msg := pendingMessage(t, 7, 0)
		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil)
		publisher.On("PublishTo", ctx, msg.Topic, msg.Key, []byte(msg.Payload)).Return(nil)
		repo.On("UpdateStatus", ctx, int64(7), outbox.StatusProcessed).Return(nil)

		require.NoError(t, poller.processPendingMessages(ctx))
		repo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("does nothing when no messages are pending", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockTopicPublisher)
		poller := newTestPoller(repo, publisher, 3)

		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{}, nil)

		require.NoError(t, poller.processPendingMessages(ctx))
		publisher.AssertNotCalled(t, "PublishTo", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("increments attempts when publishing fails", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockTopicPublisher)
		poller := newTestPoller(repo, publisher, 3)

		msg := pendingMessage(t, 8, 0)
		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil)
		publisher.On("PublishTo", ctx, msg.Topic, msg.Key, mock.Anything).Return(errors.New("broker unavailable"))
		repo.On("IncrementAttempts", ctx, int64(8)).Return(nil)

		require.NoError(t, poller.processPendingMessages(ctx))
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("marks the message failed after exhausting retries", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockTopicPublisher)
		poller := newTestPoller(repo, publisher, 3)

		msg := pendingMessage(t, 9, 2)
		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{msg}, nil)
		publisher.On("PublishTo", ctx, msg.Topic, msg.Key, mock.Anything).Return(errors.New("broker unavailable"))
		repo.On("IncrementAttempts", ctx, int64(9)).Return(nil)
		repo.On("UpdateStatus", ctx, int64(9), outbox.StatusFailedToPublish).Return(nil)

		require.NoError(t, poller.processPendingMessages(ctx))
		repo.AssertExpectations(t)
	})

	t.Run("continues past a message that fails to publish", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockTopicPublisher)
		poller := newTestPoller(repo, publisher, 3)

		failing := pendingMessage(t, 1, 0)
		healthy := pendingMessage(t, 2, 0)
		repo.On("GetPending", ctx, 10).Return([]*outbox.Message{failing, healthy}, nil)
		publisher.On("PublishTo", ctx, failing.Topic, failing.Key, mock.Anything).Return(errors.New("broker unavailable")).Once()
		repo.On("IncrementAttempts", ctx, int64(1)).Return(nil)
		publisher.On("PublishTo", ctx, healthy.Topic, healthy.Key, mock.Anything).Return(nil).Once()
		repo.On("UpdateStatus", ctx, int64(2), outbox.StatusProcessed).Return(nil)

		require.NoError(t, poller.processPendingMessages(ctx))
		repo.AssertExpectations(t)
	})

	t.Run("propagates repository read failures", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		publisher := new(MockTopicPublisher)
		poller := newTestPoller(repo, publisher, 3)

		repo.On("GetPending", ctx, 10).Return(nil, errors.New("connection refused"))

		err := poller.processPendingMessages(ctx)
		assert.Error(t, err)
	})
}
