// Package codec converts domain records to and from the ledger's wire
// representation. The transform is pure and stateless: encoding validates the
// ledger's representable ranges (fixed-point magnitude, byte-bounded
// strings), decoding is its exact inverse plus the ledger-assigned
// identifier, timestamp, and inclusion transaction hash.
package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
)

// OpKind identifies the submitted operation types
type OpKind string

const (
	OpRecordPayment     OpKind = "record_payment_decision"
	OpMarkExecuted      OpKind = "mark_payment_executed"
	OpRecordVoice       OpKind = "record_voice_authorization"
	OpRecordLease       OpKind = "record_lease_agreement"
	OpSignLease         OpKind = "sign_lease"
	OpUpdateLeaseStatus OpKind = "update_lease_status"
)

// Operation is an encoded submission: the operation kind, the idempotency
// key the ledger uses to collapse duplicate retries, and the canonical JSON
// payload the transport signs and submits.
type Operation struct {
	Kind           OpKind
	IdempotencyKey string
	Payload        json.RawMessage
}

// Record is an encoded ledger record as returned by queries: the record kind
// and payload, plus the ledger-assigned fields only decoding produces.
type Record struct {
	Kind      decision.RecordKind
	ID        string
	TxHash    string
	Timestamp time.Time
	Payload   json.RawMessage
}

// EncodingError indicates a field that violates the ledger's representable
// range. Like validation failures it has no side effect and is never retried.
type EncodingError struct {
	Field  string
	Reason string
}

func (e EncodingError) Error() string {
	return "cannot encode " + e.Field + ": " + e.Reason
}

// Is implements the errors.Is interface for EncodingError
func (e EncodingError) Is(target error) bool {
	t, ok := target.(EncodingError)
	if !ok {
		return false
	}
	if t.Field == "" {
		return true
	}
	return e.Field == t.Field
}

type paymentPayload struct {
	Tenant          string `json:"tenant"`
	Landlord        string `json:"landlord"`
	AmountUnits     uint64 `json:"amount_units"`
	Approved        bool   `json:"approved"`
	ConfidenceScore uint8  `json:"confidence_score"`
	Reasoning       string `json:"reasoning"`
	Executed        bool   `json:"executed"`
	ExecutionTxRef  string `json:"execution_tx_ref,omitempty"`
}

type executionPayload struct {
	DecisionID     string `json:"decision_id"`
	ExecutionTxRef string `json:"execution_tx_ref"`
}

type voicePayload struct {
	User        string `json:"user"`
	CommandType string `json:"command_type"`
	Command     string `json:"command"`
	Authorized  bool   `json:"authorized"`
}

type leasePayload struct {
	LeaseID          string `json:"lease_id"`
	LeaseHash        string `json:"lease_hash"`
	Manager          string `json:"manager"`
	Tenant           string `json:"tenant"`
	MonthlyRentUnits uint64 `json:"monthly_rent_units"`
	DepositUnits     uint64 `json:"deposit_units"`
	StartDate        int64  `json:"start_date"`
	EndDate          int64  `json:"end_date"`
	ManagerSigned    bool   `json:"manager_signed"`
	TenantSigned     bool   `json:"tenant_signed"`
	ManagerSignature string `json:"manager_signature,omitempty"`
	TenantSignature  string `json:"tenant_signature,omitempty"`
	Status           string `json:"status"`
	ActivatedAt      int64  `json:"activated_at,omitempty"`
}

type leaseSignaturePayload struct {
	LeaseID       string `json:"lease_id"`
	Party         string `json:"party"`
	SignatureHash string `json:"signature_hash"`
}

type leaseStatusPayload struct {
	LeaseID string `json:"lease_id"`
	Status  string `json:"status"`
}

// EncodePaymentDecision builds the record operation for a payment decision
func EncodePaymentDecision(in decision.RecordPaymentInput, idempotencyKey string) (Operation, error) {
	units, err := ParseAmount(in.Amount)
	if err != nil {
		return Operation{}, err
	}
	if len(in.Reasoning) > decision.MaxReasoningBytes {
		return Operation{}, EncodingError{Field: "reasoning", Reason: "exceeds byte-length limit"}
	}
	if in.ConfidenceScore < decision.MinConfidenceScore || in.ConfidenceScore > decision.MaxConfidenceScore {
		return Operation{}, EncodingError{Field: "confidence_score", Reason: "outside representable range"}
	}
	return marshalOp(OpRecordPayment, idempotencyKey, paymentPayload{
		Tenant:          in.Tenant,
		Landlord:        in.Landlord,
		AmountUnits:     units,
		Approved:        in.Approved,
		ConfidenceScore: uint8(in.ConfidenceScore),
		Reasoning:       in.Reasoning,
	})
}

// EncodeMarkExecuted builds the execution-update operation for a decision
func EncodeMarkExecuted(decisionID, executionTxRef, idempotencyKey string) (Operation, error) {
	if decisionID == "" {
		return Operation{}, EncodingError{Field: "decision_id", Reason: "empty"}
	}
	if executionTxRef == "" {
		return Operation{}, EncodingError{Field: "execution_tx_ref", Reason: "empty"}
	}
	return marshalOp(OpMarkExecuted, idempotencyKey, executionPayload{
		DecisionID:     decisionID,
		ExecutionTxRef: executionTxRef,
	})
}

// EncodeVoiceAuthorization builds the record operation for a voice authorization
func EncodeVoiceAuthorization(in decision.RecordVoiceInput, idempotencyKey string) (Operation, error) {
	if len(in.Command) > decision.MaxCommandBytes {
		return Operation{}, EncodingError{Field: "command", Reason: "exceeds byte-length limit"}
	}
	return marshalOp(OpRecordVoice, idempotencyKey, voicePayload{
		User:        in.User,
		CommandType: in.CommandType,
		Command:     in.Command,
		Authorized:  in.Authorized,
	})
}

// EncodeLeaseAgreement builds the record operation for a lease agreement
func EncodeLeaseAgreement(in decision.RecordLeaseInput, idempotencyKey string) (Operation, error) {
	if len(in.LeaseID) > decision.MaxLeaseIDBytes {
		return Operation{}, EncodingError{Field: "lease_id", Reason: "exceeds byte-length limit"}
	}
	rent, err := ParseAmount(in.MonthlyRent)
	if err != nil {
		return Operation{}, EncodingError{Field: "monthly_rent", Reason: "not representable"}
	}
	var deposit uint64
	if in.Deposit != "" {
		deposit, err = ParseAmount(in.Deposit)
		if err != nil {
			return Operation{}, EncodingError{Field: "deposit", Reason: "not representable"}
		}
	}
	if in.EndDate <= in.StartDate {
		return Operation{}, EncodingError{Field: "end_date", Reason: "must be after start_date"}
	}
	return marshalOp(OpRecordLease, idempotencyKey, leasePayload{
		LeaseID:          in.LeaseID,
		LeaseHash:        in.LeaseHash,
		Manager:          in.Manager,
		Tenant:           in.Tenant,
		MonthlyRentUnits: rent,
		DepositUnits:     deposit,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		Status:           string(decision.LeaseStatusPending),
	})
}

// EncodeSignLease builds the per-party signature operation for a lease
func EncodeSignLease(leaseID string, party decision.LeaseParty, signatureHash, idempotencyKey string) (Operation, error) {
	if leaseID == "" {
		return Operation{}, EncodingError{Field: "lease_id", Reason: "empty"}
	}
	if signatureHash == "" {
		return Operation{}, EncodingError{Field: "signature_hash", Reason: "empty"}
	}
	return marshalOp(OpSignLease, idempotencyKey, leaseSignaturePayload{
		LeaseID:       leaseID,
		Party:         string(party),
		SignatureHash: signatureHash,
	})
}

// EncodeLeaseStatusUpdate builds the status-transition operation for a lease
func EncodeLeaseStatusUpdate(leaseID string, status decision.LeaseStatus, idempotencyKey string) (Operation, error) {
	if leaseID == "" {
		return Operation{}, EncodingError{Field: "lease_id", Reason: "empty"}
	}
	return marshalOp(OpUpdateLeaseStatus, idempotencyKey, leaseStatusPayload{
		LeaseID: leaseID,
		Status:  string(status),
	})
}

// DecodePaymentDecision decodes a queried payment decision record
func DecodePaymentDecision(rec *Record) (*decision.PaymentDecision, error) {
	if rec.Kind != decision.KindPaymentDecision {
		return nil, fmt.Errorf("record %s is not a payment decision (kind %s)", rec.ID, rec.Kind)
	}
	var p paymentPayload
	if err := json.Unmarshal(rec.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to decode payment decision %s: %w", rec.ID, err)
	}
	return &decision.PaymentDecision{
		DecisionID:      rec.ID,
		Tenant:          p.Tenant,
		Landlord:        p.Landlord,
		AmountUnits:     p.AmountUnits,
		Approved:        p.Approved,
		ConfidenceScore: p.ConfidenceScore,
		Reasoning:       p.Reasoning,
		Timestamp:       rec.Timestamp,
		Executed:        p.Executed,
		ExecutionTxRef:  p.ExecutionTxRef,
		TransactionHash: rec.TxHash,
	}, nil
}

// DecodeVoiceAuthorization decodes a queried voice authorization record
func DecodeVoiceAuthorization(rec *Record) (*decision.VoiceAuthorization, error) {
	if rec.Kind != decision.KindVoiceAuthorization {
		return nil, fmt.Errorf("record %s is not a voice authorization (kind %s)", rec.ID, rec.Kind)
	}
	var v voicePayload
	if err := json.Unmarshal(rec.Payload, &v); err != nil {
		return nil, fmt.Errorf("failed to decode voice authorization %s: %w", rec.ID, err)
	}
	return &decision.VoiceAuthorization{
		AuthID:          rec.ID,
		User:            v.User,
		CommandType:     v.CommandType,
		Command:         v.Command,
		Authorized:      v.Authorized,
		Timestamp:       rec.Timestamp,
		TransactionHash: rec.TxHash,
	}, nil
}

// DecodeLeaseAgreement decodes a queried lease agreement record
func DecodeLeaseAgreement(rec *Record) (*decision.LeaseAgreement, error) {
	if rec.Kind != decision.KindLeaseAgreement {
		return nil, fmt.Errorf("record %s is not a lease agreement (kind %s)", rec.ID, rec.Kind)
	}
	var l leasePayload
	if err := json.Unmarshal(rec.Payload, &l); err != nil {
		return nil, fmt.Errorf("failed to decode lease agreement %s: %w", rec.ID, err)
	}
	lease := &decision.LeaseAgreement{
		LeaseID:          l.LeaseID,
		LeaseHash:        l.LeaseHash,
		Manager:          l.Manager,
		Tenant:           l.Tenant,
		MonthlyRentUnits: l.MonthlyRentUnits,
		DepositUnits:     l.DepositUnits,
		StartDate:        time.Unix(l.StartDate, 0).UTC(),
		EndDate:          time.Unix(l.EndDate, 0).UTC(),
		ManagerSigned:    l.ManagerSigned,
		TenantSigned:     l.TenantSigned,
		ManagerSignature: l.ManagerSignature,
		TenantSignature:  l.TenantSignature,
		Status:           decision.LeaseStatus(l.Status),
		Timestamp:        rec.Timestamp,
		TransactionHash:  rec.TxHash,
	}
	if l.ActivatedAt > 0 {
		activated := time.Unix(l.ActivatedAt, 0).UTC()
		lease.ActivatedAt = &activated
	}
	return lease, nil
}

func marshalOp(kind OpKind, idempotencyKey string, payload interface{}) (Operation, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Operation{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	return Operation{
		Kind:           kind,
		IdempotencyKey: idempotencyKey,
		Payload:        raw,
	}, nil
}
