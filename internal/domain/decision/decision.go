// Package decision defines the domain records kept on the external ledger:
// rent-payment decisions, voice-command authorizations, and lease agreements.
// The ledger is the sole source of truth for these records; this package only
// describes their shape, input validation, and the typed errors callers
// branch on.
package decision

import "time"

// RecordKind identifies the on-ledger record types
type RecordKind string

const (
	KindPaymentDecision    RecordKind = "payment_decision"
	KindVoiceAuthorization RecordKind = "voice_authorization"
	KindLeaseAgreement     RecordKind = "lease_agreement"
)

// Byte limits for free-text fields, matching the ledger's on-chain account
// storage. Inputs exceeding them are rejected up front, never truncated.
const (
	MaxReasoningBytes = 512
	MaxCommandBytes   = 512
	MaxLeaseIDBytes   = 64
)

// Bounds for the decision engine's confidence score
const (
	MinConfidenceScore = 0
	MaxConfidenceScore = 100
)

// PaymentDecision is a recorded rent-payment decision. DecisionID and
// Timestamp are assigned by the ledger at inclusion and immutable afterwards;
// Executed/ExecutionTxRef are the only fields that change, and only once.
type PaymentDecision struct {
	DecisionID      string    `json:"decision_id" bson:"decision_id"`
	Tenant          string    `json:"tenant" bson:"tenant"`
	Landlord        string    `json:"landlord" bson:"landlord"`
	AmountUnits     uint64    `json:"amount_units" bson:"amount_units"` // Fixed-point base units (6 decimals)
	Approved        bool      `json:"approved" bson:"approved"`
	ConfidenceScore uint8     `json:"confidence_score" bson:"confidence_score"`
	Reasoning       string    `json:"reasoning" bson:"reasoning"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
	Executed        bool      `json:"executed" bson:"executed"`
	ExecutionTxRef  string    `json:"execution_tx_ref,omitempty" bson:"execution_tx_ref,omitempty"`
	TransactionHash string    `json:"transaction_hash" bson:"transaction_hash"` // Inclusion transaction reference
}

// RecordPaymentInput is the caller-supplied shape for recording a payment
// decision. Amount is a positive decimal string; the codec converts it to
// base units. Nonce feeds the idempotency key so a re-invoked submission
// collapses onto the first one.
type RecordPaymentInput struct {
	Tenant          string `json:"tenant"`
	Landlord        string `json:"landlord"`
	Amount          string `json:"amount"`
	Approved        bool   `json:"approved"`
	ConfidenceScore int    `json:"confidence_score"`
	Reasoning       string `json:"reasoning"`
	Nonce           string `json:"nonce"`
}

// Validate checks ranges and lengths before any ledger interaction
func (in RecordPaymentInput) Validate() error {
	if in.Tenant == "" {
		return ErrValidation{Field: "tenant", Reason: "must not be empty"}
	}
	if in.Landlord == "" {
		return ErrValidation{Field: "landlord", Reason: "must not be empty"}
	}
	if err := validateDecimalAmount(in.Amount); err != nil {
		return err
	}
	if in.ConfidenceScore < MinConfidenceScore || in.ConfidenceScore > MaxConfidenceScore {
		return ErrValidation{Field: "confidence_score", Reason: "must be between 0 and 100"}
	}
	if in.Reasoning == "" {
		return ErrValidation{Field: "reasoning", Reason: "must not be empty"}
	}
	if len(in.Reasoning) > MaxReasoningBytes {
		return ErrValidation{Field: "reasoning", Reason: "exceeds ledger storage limit"}
	}
	if in.Nonce == "" {
		return ErrValidation{Field: "nonce", Reason: "must not be empty"}
	}
	return nil
}

// validateDecimalAmount checks that s is a syntactically valid, strictly
// positive decimal. Precision and magnitude against the ledger's fixed-point
// range are the codec's concern.
func validateDecimalAmount(s string) error {
	if s == "" {
		return ErrValidation{Field: "amount", Reason: "must not be empty"}
	}
	intPart, fracPart, seenDot, positive := "", "", false, false
	for _, r := range s {
		switch {
		case r == '.':
			if seenDot {
				return ErrValidation{Field: "amount", Reason: "malformed decimal"}
			}
			seenDot = true
		case r >= '0' && r <= '9':
			if r != '0' {
				positive = true
			}
			if seenDot {
				fracPart += string(r)
			} else {
				intPart += string(r)
			}
		default:
			return ErrValidation{Field: "amount", Reason: "malformed decimal"}
		}
	}
	if intPart == "" && fracPart == "" {
		return ErrValidation{Field: "amount", Reason: "malformed decimal"}
	}
	if !positive {
		return ErrValidation{Field: "amount", Reason: "must be positive"}
	}
	return nil
}
