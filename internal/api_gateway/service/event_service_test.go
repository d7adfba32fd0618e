package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ingest"
)

type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paymentEvent() *ingest.DecisionEvent {
	return &ingest.DecisionEvent{
		EventID: "evt-1",
		Kind:    decision.KindPaymentDecision,
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

func TestEnqueueDecisionEvent_Success(t *testing.T) {
	producer := new(MockMessagePublisher)
	producer.On("Publish", mock.Anything, "evt-1", mock.MatchedBy(func(v interface{}) bool {
		event, ok := v.(*ingest.DecisionEvent)
		return ok && event.EventID == "evt-1" && event.Kind == decision.KindPaymentDecision
	})).Return(nil)

	svc := NewEventService(testLogger(), producer)
	eventID, err := svc.EnqueueDecisionEvent(context.Background(), paymentEvent())

	require.NoError(t, err)
	assert.Equal(t, "evt-1", eventID)
	producer.AssertExpectations(t)
}

func TestEnqueueDecisionEvent_AssignsMissingEventID(t *testing.T) {
	producer := new(MockMessagePublisher)
	producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewEventService(testLogger(), producer)
	event := paymentEvent()
	event.EventID = ""

	eventID, err := svc.EnqueueDecisionEvent(context.Background(), event)

	require.NoError(t, err)
	_, parseErr := uuid.Parse(eventID)
	assert.NoError(t, parseErr, "assigned event id should be a UUID")
	producer.AssertExpectations(t)
}

func TestEnqueueDecisionEvent_InvalidEnvelopeNotPublished(t *testing.T) {
	producer := new(MockMessagePublisher)
	svc := NewEventService(testLogger(), producer)

	_, err := svc.EnqueueDecisionEvent(context.Background(), &ingest.DecisionEvent{
		EventID: "evt-1",
		Kind:    decision.KindPaymentDecision,
	})

	assert.ErrorIs(t, err, decision.ErrValidation{Field: "payment"})
	producer.AssertNotCalled(t, "Publish")
}

func TestEnqueueDecisionEvent_PublishFailure(t *testing.T) {
	producer := new(MockMessagePublisher)
	expectedErr := errors.New("broker unavailable")
	producer.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(expectedErr)

	svc := NewEventService(testLogger(), producer)
	_, err := svc.EnqueueDecisionEvent(context.Background(), paymentEvent())

	assert.ErrorIs(t, err, expectedErr)
}

var _ EventService = (*EventServiceImpl)(nil)
