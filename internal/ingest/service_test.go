package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/client"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type MockDecisionRecorder struct {
	mock.Mock
}

func (m *MockDecisionRecorder) RecordPaymentDecision(ctx context.Context, in decision.RecordPaymentInput) (*client.RecordResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RecordResult), args.Error(1)
}

func (m *MockDecisionRecorder) RecordVoiceAuthorization(ctx context.Context, in decision.RecordVoiceInput) (*client.RecordResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.RecordResult), args.Error(1)
}

func paymentEvent() *DecisionEvent {
	return &DecisionEvent{
		EventID:       "evt-1",
		Kind:          decision.KindPaymentDecision,
		CorrelationID: "corr-1",
		Payment: &decision.RecordPaymentInput{
			Tenant:          "tenant-wallet",
			Landlord:        "landlord-wallet",
			Amount:          "1500.00",
			Approved:        true,
			ConfidenceScore: 92,
			Reasoning:       "income verified",
		},
	}
}

func TestLedgerRecordingService_RecordEvent_Payment(t *testing.T) {
	recorder := new(MockDecisionRecorder)
	recorder.On("RecordPaymentDecision", mock.Anything, mock.MatchedBy(func(in decision.RecordPaymentInput) bool {
		// The event id backs the nonce when the producer supplied none
		return in.Nonce == "evt-1" && in.Tenant == "tenant-wallet"
	})).Return(&client.RecordResult{ID: "dec-1"}, nil)

	svc := NewLedgerRecordingService(testLogger(), recorder)
	err := svc.RecordEvent(context.Background(), paymentEvent())

	require.NoError(t, err)
	recorder.AssertExpectations(t)
}

func TestLedgerRecordingService_RecordEvent_PaymentKeepsExplicitNonce(t *testing.T) {
	recorder := new(MockDecisionRecorder)
	recorder.On("RecordPaymentDecision", mock.Anything, mock.MatchedBy(func(in decision.RecordPaymentInput) bool {
		return in.Nonce == "custom-nonce"
	})).Return(&client.RecordResult{ID: "dec-1"}, nil)

	svc := NewLedgerRecordingService(testLogger(), recorder)
	event := paymentEvent()
	event.Payment.Nonce = "custom-nonce"

	require.NoError(t, svc.RecordEvent(context.Background(), event))
	recorder.AssertExpectations(t)
}

func TestLedgerRecordingService_RecordEvent_Voice(t *testing.T) {
	recorder := new(MockDecisionRecorder)
	recorder.On("RecordVoiceAuthorization", mock.Anything, mock.MatchedBy(func(in decision.RecordVoiceInput) bool {
		return in.Nonce == "evt-2" && in.CommandType == "unlock_door"
	})).Return(&client.RecordResult{ID: "va-1"}, nil)

	svc := NewLedgerRecordingService(testLogger(), recorder)
	err := svc.RecordEvent(context.Background(), &DecisionEvent{
		EventID: "evt-2",
		Kind:    decision.KindVoiceAuthorization,
		Voice: &decision.RecordVoiceInput{
			User:        "user-wallet",
			CommandType: "unlock_door",
			Command:     "open the front door",
			Authorized:  true,
		},
	})

	require.NoError(t, err)
	recorder.AssertExpectations(t)
}

func TestLedgerRecordingService_RecordEvent_EnvelopeValidation(t *testing.T) {
	recorder := new(MockDecisionRecorder)
	svc := NewLedgerRecordingService(testLogger(), recorder)

	tests := []struct {
		name  string
		event *DecisionEvent
		field string
	}{
		{
			name:  "missing event id",
			event: &DecisionEvent{Kind: decision.KindPaymentDecision, Payment: &decision.RecordPaymentInput{}},
			field: "event_id",
		},
		{
			name:  "payment event without payment input",
			event: &DecisionEvent{EventID: "evt-1", Kind: decision.KindPaymentDecision},
			field: "payment",
		},
		{
			name:  "voice event without voice input",
			event: &DecisionEvent{EventID: "evt-1", Kind: decision.KindVoiceAuthorization},
			field: "voice",
		},
		{
			name:  "unsupported kind",
			event: &DecisionEvent{EventID: "evt-1", Kind: decision.KindLeaseAgreement},
			field: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RecordEvent(context.Background(), tt.event)
			assert.ErrorIs(t, err, decision.ErrValidation{Field: tt.field})
		})
	}
	recorder.AssertNotCalled(t, "RecordPaymentDecision")
	recorder.AssertNotCalled(t, "RecordVoiceAuthorization")
}

func TestLedgerRecordingService_RecordEvent_PropagatesRecorderError(t *testing.T) {
	recorder := new(MockDecisionRecorder)
	expectedErr := decision.ErrSubmissionFailed{Operation: "record_payment_decision", Attempts: 4, Cause: errors.New("gateway unavailable")}
	recorder.On("RecordPaymentDecision", mock.Anything, mock.Anything).Return(nil, expectedErr)

	svc := NewLedgerRecordingService(testLogger(), recorder)
	err := svc.RecordEvent(context.Background(), paymentEvent())

	assert.ErrorIs(t, err, decision.ErrSubmissionFailed{})
}

type MockRecordingService struct {
	mock.Mock
}

func (m *MockRecordingService) RecordEvent(ctx context.Context, event *DecisionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestWorkerPoolRecordingService_RecordEvent(t *testing.T) {
	base := new(MockRecordingService)
	base.On("RecordEvent", mock.Anything, mock.MatchedBy(func(e *DecisionEvent) bool {
		return e.EventID == "evt-1"
	})).Return(nil)

	svc, err := NewWorkerPoolRecordingService(base, WorkerPoolConfig{Size: 2}, testLogger())
	require.NoError(t, err)
	defer svc.Shutdown()

	require.NoError(t, svc.RecordEvent(context.Background(), paymentEvent()))
	base.AssertExpectations(t)
}

func TestWorkerPoolRecordingService_PropagatesBaseError(t *testing.T) {
	base := new(MockRecordingService)
	expectedErr := errors.New("recording failed")
	base.On("RecordEvent", mock.Anything, mock.Anything).Return(expectedErr)

	svc, err := NewWorkerPoolRecordingService(base, WorkerPoolConfig{Size: 2}, testLogger())
	require.NoError(t, err)
	defer svc.Shutdown()

	err = svc.RecordEvent(context.Background(), paymentEvent())
	assert.ErrorIs(t, err, expectedErr)
}

func TestWorkerPoolRecordingService_ConcurrentEvents(t *testing.T) {
	base := new(MockRecordingService)
	base.On("RecordEvent", mock.Anything, mock.Anything).Return(nil)

	svc, err := NewWorkerPoolRecordingService(base, WorkerPoolConfig{Size: 4}, testLogger())
	require.NoError(t, err)
	defer svc.Shutdown()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			event := paymentEvent()
			event.EventID = event.EventID + string(rune('a'+n))
			assert.NoError(t, svc.RecordEvent(context.Background(), event))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, svc.Capacity())
}
