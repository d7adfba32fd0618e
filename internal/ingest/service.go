package ingest

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/client"
)

// DecisionRecorder is the slice of the ledger client the ingest path uses
type DecisionRecorder interface {
	RecordPaymentDecision(ctx context.Context, in decision.RecordPaymentInput) (*client.RecordResult, error)
	RecordVoiceAuthorization(ctx context.Context, in decision.RecordVoiceInput) (*client.RecordResult, error)
}

// RecordingService defines the interface for recording decision events
type RecordingService interface {
	RecordEvent(ctx context.Context, event *DecisionEvent) error
}

// LedgerRecordingService records events straight through the ledger client
type LedgerRecordingService struct {
	recorder DecisionRecorder
	logger   *slog.Logger
}

func NewLedgerRecordingService(logger *slog.Logger, recorder DecisionRecorder) *LedgerRecordingService {
	return &LedgerRecordingService{
		recorder: recorder,
		logger:   logger,
	}
}

// RecordEvent validates the envelope and records the embedded input. The
// event id backs the idempotency nonce when the producer supplied none.
func (s *LedgerRecordingService) RecordEvent(ctx context.Context, event *DecisionEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	switch event.Kind {
	case decision.KindPaymentDecision:
		in := *event.Payment
		if in.Nonce == "" {
			in.Nonce = event.EventID
		}
		res, err := s.recorder.RecordPaymentDecision(ctx, in)
		if err != nil {
			return err
		}
		s.logger.Info("Recorded payment decision from event",
			"event_id", event.EventID,
			"decision_id", res.ID,
		)
	case decision.KindVoiceAuthorization:
		in := *event.Voice
		if in.Nonce == "" {
			in.Nonce = event.EventID
		}
		res, err := s.recorder.RecordVoiceAuthorization(ctx, in)
		if err != nil {
			return err
		}
		s.logger.Info("Recorded voice authorization from event",
			"event_id", event.EventID,
			"auth_id", res.ID,
		)
	}
	return nil
}

// WorkerPoolRecordingService implements the RecordingService interface over a
// bounded pool so slow ledger confirmations don't serialize the consumer.
type WorkerPoolRecordingService struct {
	baseService RecordingService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolRecordingService(
	baseService RecordingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolRecordingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolRecordingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// RecordEvent submits an event to the worker pool and waits for its result
func (s *WorkerPoolRecordingService) RecordEvent(ctx context.Context, event *DecisionEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Submitting decision event to worker pool",
		"event_id", event.EventID,
		"kind", string(event.Kind),
	)

	resultChan := make(chan error, 1)

	eventID := event.EventID
	s.mu.Lock()
	s.results[eventID] = resultChan
	s.mu.Unlock()

	// Copy the event to avoid data races with the caller
	eventCopy := *event

	err := s.pool.Submit(func() {
		err := s.baseService.RecordEvent(ctx, &eventCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, eventID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		s.mu.Lock()
		delete(s.results, eventID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit decision event to worker pool",
			"event_id", event.EventID,
			"error", err,
		)
		return err
	}

	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolRecordingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolRecordingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolRecordingService) Capacity() int {
	return s.pool.Cap()
}
