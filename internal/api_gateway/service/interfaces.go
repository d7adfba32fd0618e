package service

import (
	"context"
	"time"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ingest"
	"github.com/rentflow-decision-ledger/internal/ledger/client"
)

// DecisionService defines the interface for payment decision and voice
// authorization operations. The ledger client implements it; handlers only
// see this slice.
type DecisionService interface {
	// RecordPaymentDecision writes a decision to the ledger and waits for
	// confirmed inclusion. Returns ErrSubmissionFailed once retries exhaust
	RecordPaymentDecision(ctx context.Context, in decision.RecordPaymentInput) (*client.RecordResult, error)

	// GetPaymentDecision retrieves a confirmed decision by its ledger id
	// Returns ErrDecisionNotFound if the id does not resolve
	GetPaymentDecision(ctx context.Context, decisionID string) (*decision.PaymentDecision, error)

	// MarkPaymentExecuted attaches settlement evidence to a decision.
	// Idempotent for the same reference; ErrExecutionConflict otherwise
	MarkPaymentExecuted(ctx context.Context, decisionID, executionTxRef string) error

	// GetTotalPaymentDecisions returns the running decision count
	GetTotalPaymentDecisions(ctx context.Context) (int64, error)

	// RecordVoiceAuthorization writes a voice authorization to the ledger
	RecordVoiceAuthorization(ctx context.Context, in decision.RecordVoiceInput) (*client.RecordResult, error)

	// GetVoiceAuthorization retrieves a confirmed authorization by its id
	GetVoiceAuthorization(ctx context.Context, authID string) (*decision.VoiceAuthorization, error)

	// ListRecentDecisions reads the reporting mirror, newest first
	ListRecentDecisions(ctx context.Context, limit, offset int) ([]*decision.PaymentDecision, error)

	// ListDecisionsByTimeRange reads the reporting mirror for a window
	ListDecisionsByTimeRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*decision.PaymentDecision, error)
}

// LeaseService defines the interface for lease agreement operations
type LeaseService interface {
	// RecordLeaseAgreement writes a lease to the ledger in PENDING state
	RecordLeaseAgreement(ctx context.Context, in decision.RecordLeaseInput) (*client.RecordResult, error)

	// GetLeaseAgreement retrieves a lease by its caller-chosen id
	// Returns ErrLeaseNotFound if the id does not resolve
	GetLeaseAgreement(ctx context.Context, leaseID string) (*decision.LeaseAgreement, error)

	// SignLease records a party signature. Re-signing with the same hash is
	// a no-op; a different hash returns ErrSignatureConflict
	SignLease(ctx context.Context, leaseID string, party decision.LeaseParty, signatureHash string) error

	// UpdateLeaseStatus moves an active lease to a terminal state.
	// Illegal transitions return ErrStatusConflict
	UpdateLeaseStatus(ctx context.Context, leaseID string, to decision.LeaseStatus) error

	// VerifyLease reports whether both parties have signed and the lease
	// is ACTIVE
	VerifyLease(ctx context.Context, leaseID string) (bool, error)
}

// EventService defines the interface for queuing decision events for
// asynchronous recording through the ingest consumer
type EventService interface {
	// EnqueueDecisionEvent validates the envelope and publishes it to the
	// decision topic. Returns the event id, which doubles as the
	// idempotency nonce when the embedded input carries none
	EnqueueDecisionEvent(ctx context.Context, event *ingest.DecisionEvent) (string, error)
}

// The ledger client is the service implementation for both record families
var (
	_ DecisionService = (*client.Client)(nil)
	_ LeaseService    = (*client.Client)(nil)
)
