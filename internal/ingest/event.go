// Package ingest consumes decision events from Kafka and records them on the
// ledger through the client, fanning work out over a bounded worker pool.
// Events that can never be recorded (malformed, failing validation) go to the
// dead letter topic; transient ledger failures leave the offset uncommitted
// so Kafka redelivers.
package ingest

import (
	"github.com/rentflow-decision-ledger/internal/domain/decision"
)

// DecisionEvent is the wire shape the decision engine publishes. Exactly one
// of Payment or Voice is set, matching Kind. EventID doubles as the
// idempotency nonce when the embedded input carries none, so a redelivered
// event collapses onto its first recording.
type DecisionEvent struct {
	EventID       string                       `json:"event_id"`
	Kind          decision.RecordKind          `json:"kind"`
	CorrelationID string                       `json:"correlation_id,omitempty"`
	Payment       *decision.RecordPaymentInput `json:"payment,omitempty"`
	Voice         *decision.RecordVoiceInput   `json:"voice,omitempty"`
}

// Validate checks the envelope, not the embedded input; input validation
// belongs to the client.
func (e *DecisionEvent) Validate() error {
	if e.EventID == "" {
		return decision.ErrValidation{Field: "event_id", Reason: "must not be empty"}
	}
	switch e.Kind {
	case decision.KindPaymentDecision:
		if e.Payment == nil {
			return decision.ErrValidation{Field: "payment", Reason: "must be set for payment_decision events"}
		}
	case decision.KindVoiceAuthorization:
		if e.Voice == nil {
			return decision.ErrValidation{Field: "voice", Reason: "must be set for voice_authorization events"}
		}
	default:
		return decision.ErrValidation{Field: "kind", Reason: "unsupported event kind"}
	}
	return nil
}
