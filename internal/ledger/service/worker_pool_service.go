package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/event-driven-wallet/internal/domain/event"
)

// WorkerPoolPostingService fans posting work out to a bounded goroutine
// pool. The caller still blocks until its own posting finishes, so the
// consumer's offset commit keeps its at-least-once meaning.
type WorkerPoolPostingService struct {
	baseService PostingService
	pool        *ants.Pool
	logger      *slog.Logger
	mu          sync.Mutex
	results     map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolPostingService(
	baseService PostingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolPostingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolPostingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// PostTransaction submits the event to the worker pool and waits for the
// posting result.
func (s *WorkerPoolPostingService) PostTransaction(ctx context.Context, evt *event.TransactionCompleted) error {
	resultChan := make(chan error, 1)

	transactionID := evt.TransactionID.String()
	s.mu.Lock()
	s.results[transactionID] = resultChan
	s.mu.Unlock()

	evtCopy := *evt

	err := s.pool.Submit(func() {
		err := s.baseService.PostTransaction(ctx, &evtCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, transactionID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, transactionID)
		close(resultChan)
		s.mu.Unlock()

		s.logger.Error("Failed to submit posting to worker pool",
			"transaction_id", transactionID,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolPostingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolPostingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolPostingService) Capacity() int {
	return s.pool.Cap()
}
