// Package transport wraps the external ledger's submission and query
// surface. It resolves submissions into receipts once provisionally accepted
// for ordering, and classifies every failure as Transient (safe to retry) or
// Permanent (never retried) so the client's retry policy stays mechanical.
package transport

import (
	"context"
	"time"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/codec"
)

// Receipt identifies a submission that the ledger has provisionally accepted
// for ordering. The signature doubles as the inclusion transaction reference
// once the submission confirms.
type Receipt struct {
	Signature   string
	SubmittedAt time.Time
}

// ConfirmationStatus is the outcome of a confirmation poll
type ConfirmationStatus string

const (
	StatusPending   ConfirmationStatus = "PENDING"
	StatusConfirmed ConfirmationStatus = "CONFIRMED"
	StatusRejected  ConfirmationStatus = "REJECTED"
)

// Confirmation is the resolved state of a submission. RecordID and Timestamp
// are set only when Status is CONFIRMED; RejectReason only when REJECTED.
type Confirmation struct {
	Status          ConfirmationStatus
	RecordID        string
	TxHash          string
	Timestamp       time.Time
	RejectReason    string
	RejectPermanent bool
}

// Transport is the ledger boundary. Implementations authenticate with
// caller-held key material and never hold record state themselves.
type Transport interface {
	// Submit sends a signed operation and returns once the ledger has
	// provisionally accepted it for ordering.
	Submit(ctx context.Context, op codec.Operation) (*Receipt, error)

	// AwaitConfirmation resolves a receipt into its current state. A PENDING
	// result is not an error; callers poll until confirmed, rejected, or
	// their deadline passes.
	AwaitConfirmation(ctx context.Context, receipt *Receipt) (*Confirmation, error)

	// Query fetches a confirmed record by its ledger-assigned identifier.
	// Returns ErrRecordNotFound if the id does not resolve.
	Query(ctx context.Context, recordID string) (*codec.Record, error)

	// QueryByIdempotencyKey fetches the confirmed record a prior submission
	// with this key produced, or (nil, nil) when none exists. Used to
	// recognize retries whose earlier attempt actually landed.
	QueryByIdempotencyKey(ctx context.Context, key string) (*codec.Record, error)

	// Count returns the number of confirmed records of the given kind
	Count(ctx context.Context, kind decision.RecordKind) (int64, error)
}

// ErrRecordNotFound indicates an identifier with no confirmed ledger record
type ErrRecordNotFound struct {
	RecordID string
}

func (e ErrRecordNotFound) Error() string {
	return "ledger record not found: " + e.RecordID
}

// Is implements the errors.Is interface for ErrRecordNotFound
func (e ErrRecordNotFound) Is(target error) bool {
	t, ok := target.(ErrRecordNotFound)
	if !ok {
		return false
	}
	if t.RecordID == "" {
		return true
	}
	return e.RecordID == t.RecordID
}
