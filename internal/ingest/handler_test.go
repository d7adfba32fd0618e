package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/transport"
)

type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error {
	args := m.Called(ctx, key, originalMessageValue, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func marshalEvent(t *testing.T, event *DecisionEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestHandleMessage_Success(t *testing.T) {
	svc := new(MockRecordingService)
	svc.On("RecordEvent", mock.Anything, mock.MatchedBy(func(e *DecisionEvent) bool {
		return e.EventID == "evt-1" && e.Kind == decision.KindPaymentDecision
	})).Return(nil)
	dlq := new(MockDeadLetterPublisher)

	h := NewDecisionEventHandler(testLogger(), svc, dlq)
	err := h.HandleMessage(context.Background(), []byte("evt-1"), marshalEvent(t, paymentEvent()))

	require.NoError(t, err)
	svc.AssertExpectations(t)
	dlq.AssertNotCalled(t, "PublishToDLQ")
}

func TestHandleMessage_MalformedJSONGoesToDLQ(t *testing.T) {
	svc := new(MockRecordingService)
	dlq := new(MockDeadLetterPublisher)
	dlq.On("PublishToDLQ", mock.Anything, "bad-key", []byte("{not json"), mock.Anything).Return(nil)

	h := NewDecisionEventHandler(testLogger(), svc, dlq)
	err := h.HandleMessage(context.Background(), []byte("bad-key"), []byte("{not json"))

	assert.NoError(t, err, "a dead-lettered message commits its offset")
	dlq.AssertExpectations(t)
	svc.AssertNotCalled(t, "RecordEvent")
}

func TestHandleMessage_MalformedJSONWithDLQFailureIsRetried(t *testing.T) {
	svc := new(MockRecordingService)
	dlq := new(MockDeadLetterPublisher)
	dlq.On("PublishToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("dlq down"))

	h := NewDecisionEventHandler(testLogger(), svc, dlq)
	err := h.HandleMessage(context.Background(), []byte("bad-key"), []byte("{not json"))

	assert.Error(t, err, "the offset must stay uncommitted when the DLQ is unavailable")
}

func TestHandleMessage_ValidationFailureGoesToDLQ(t *testing.T) {
	svc := new(MockRecordingService)
	svc.On("RecordEvent", mock.Anything, mock.Anything).
		Return(decision.ErrValidation{Field: "amount", Reason: "malformed decimal"})
	dlq := new(MockDeadLetterPublisher)
	dlq.On("PublishToDLQ", mock.Anything, "evt-1", mock.Anything, mock.Anything).Return(nil)

	h := NewDecisionEventHandler(testLogger(), svc, dlq)
	err := h.HandleMessage(context.Background(), []byte("evt-1"), marshalEvent(t, paymentEvent()))

	assert.NoError(t, err)
	dlq.AssertExpectations(t)
}

func TestHandleMessage_PermanentLedgerRejectionGoesToDLQ(t *testing.T) {
	svc := new(MockRecordingService)
	svc.On("RecordEvent", mock.Anything, mock.Anything).
		Return(transport.PermanentError{Op: "submit", Code: transport.CodeUnauthorized, Err: errors.New("unknown public key")})
	dlq := new(MockDeadLetterPublisher)
	dlq.On("PublishToDLQ", mock.Anything, "evt-1", mock.Anything, mock.Anything).Return(nil)

	h := NewDecisionEventHandler(testLogger(), svc, dlq)
	err := h.HandleMessage(context.Background(), []byte("evt-1"), marshalEvent(t, paymentEvent()))

	assert.NoError(t, err)
	dlq.AssertExpectations(t)
}

func TestHandleMessage_TransientFailureIsRetried(t *testing.T) {
	svc := new(MockRecordingService)
	svc.On("RecordEvent", mock.Anything, mock.Anything).
		Return(decision.ErrSubmissionFailed{Operation: "record_payment_decision", Attempts: 4, Cause: errors.New("gateway unavailable")})
	dlq := new(MockDeadLetterPublisher)

	h := NewDecisionEventHandler(testLogger(), svc, dlq)
	err := h.HandleMessage(context.Background(), []byte("evt-1"), marshalEvent(t, paymentEvent()))

	assert.Error(t, err, "exhausted submissions are redelivered, not dead-lettered")
	dlq.AssertNotCalled(t, "PublishToDLQ")
}
