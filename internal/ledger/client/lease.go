package client

import (
	"context"
	"errors"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/codec"
	"github.com/rentflow-decision-ledger/internal/ledger/transport"
)

// RecordLeaseAgreement validates, encodes, and durably records a lease
// agreement in PENDING state. The caller-chosen lease id becomes the record
// identifier.
func (c *Client) RecordLeaseAgreement(ctx context.Context, in decision.RecordLeaseInput) (*RecordResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	op, err := codec.EncodeLeaseAgreement(in, "")
	if err != nil {
		return nil, err
	}
	op.IdempotencyKey = submissionKey(op.Kind, op.Payload, in.Nonce)

	landed, err := c.submitWithRetry(ctx, "record_lease_agreement", op)
	if err != nil {
		return nil, err
	}

	c.logger.Info("lease agreement recorded",
		"lease_id", landed.ID,
		"manager", in.Manager,
		"tenant", in.Tenant,
	)
	return landed, nil
}

// GetLeaseAgreement fetches a lease agreement from the ledger by id
func (c *Client) GetLeaseAgreement(ctx context.Context, leaseID string) (*decision.LeaseAgreement, error) {
	if leaseID == "" {
		return nil, decision.ErrValidation{Field: "lease_id", Reason: "must not be empty"}
	}
	rec, err := c.transport.Query(ctx, leaseID)
	if err != nil {
		if errors.Is(err, transport.ErrRecordNotFound{}) {
			return nil, decision.ErrLeaseNotFound{LeaseID: leaseID}
		}
		return nil, err
	}
	if rec.Kind != decision.KindLeaseAgreement {
		return nil, decision.ErrLeaseNotFound{LeaseID: leaseID}
	}
	return codec.DecodeLeaseAgreement(rec)
}

// VerifyLease reports whether a lease is fully executed: both parties have
// signed and the lease is ACTIVE. A missing lease is ErrLeaseNotFound, not
// false.
func (c *Client) VerifyLease(ctx context.Context, leaseID string) (bool, error) {
	lease, err := c.GetLeaseAgreement(ctx, leaseID)
	if err != nil {
		return false, err
	}
	return lease.ManagerSigned && lease.TenantSigned && lease.Status == decision.LeaseStatusActive, nil
}

// SignLease records one party's signature on a pending lease. Re-signing with
// the same signature hash succeeds without a second write; a different hash
// is a conflict. The ledger activates the lease once both parties have signed.
func (c *Client) SignLease(ctx context.Context, leaseID string, party decision.LeaseParty, signatureHash string) error {
	if leaseID == "" {
		return decision.ErrValidation{Field: "lease_id", Reason: "must not be empty"}
	}
	if party != decision.LeasePartyManager && party != decision.LeasePartyTenant {
		return decision.ErrValidation{Field: "party", Reason: "must be MANAGER or TENANT"}
	}
	if signatureHash == "" {
		return decision.ErrValidation{Field: "signature_hash", Reason: "must not be empty"}
	}

	lease, err := c.GetLeaseAgreement(ctx, leaseID)
	if err != nil {
		return err
	}
	if signed, recorded := partySignature(lease, party); signed {
		if recorded == signatureHash {
			return nil
		}
		return decision.ErrSignatureConflict{LeaseID: leaseID, Party: party, Recorded: recorded, Supplied: signatureHash}
	}

	op, err := codec.EncodeSignLease(leaseID, party, signatureHash, "")
	if err != nil {
		return err
	}
	op.IdempotencyKey = submissionKey(op.Kind, op.Payload, "")

	if _, err := c.submitWithRetry(ctx, "sign_lease", op); err != nil {
		if errors.Is(err, transport.PermanentError{Code: transport.CodeConflict}) {
			return c.resolveSignatureConflict(ctx, leaseID, party, signatureHash)
		}
		return err
	}

	c.logger.Info("lease signature recorded",
		"lease_id", leaseID,
		"party", string(party),
	)
	return nil
}

func (c *Client) resolveSignatureConflict(ctx context.Context, leaseID string, party decision.LeaseParty, signatureHash string) error {
	lease, err := c.GetLeaseAgreement(ctx, leaseID)
	if err != nil {
		return err
	}
	if signed, recorded := partySignature(lease, party); signed && recorded == signatureHash {
		return nil
	}
	_, recorded := partySignature(lease, party)
	return decision.ErrSignatureConflict{LeaseID: leaseID, Party: party, Recorded: recorded, Supplied: signatureHash}
}

// UpdateLeaseStatus transitions an active lease to TERMINATED or COMPLETED.
// Requesting the status the lease already holds succeeds without a write.
func (c *Client) UpdateLeaseStatus(ctx context.Context, leaseID string, to decision.LeaseStatus) error {
	if leaseID == "" {
		return decision.ErrValidation{Field: "lease_id", Reason: "must not be empty"}
	}
	if to != decision.LeaseStatusTerminated && to != decision.LeaseStatusCompleted {
		return decision.ErrValidation{Field: "status", Reason: "must be TERMINATED or COMPLETED"}
	}

	lease, err := c.GetLeaseAgreement(ctx, leaseID)
	if err != nil {
		return err
	}
	if lease.Status == to {
		return nil
	}
	if !decision.ValidLeaseTransition(lease.Status, to) {
		return decision.ErrStatusConflict{LeaseID: leaseID, From: lease.Status, To: to}
	}

	op, err := codec.EncodeLeaseStatusUpdate(leaseID, to, "")
	if err != nil {
		return err
	}
	op.IdempotencyKey = submissionKey(op.Kind, op.Payload, "")

	if _, err := c.submitWithRetry(ctx, "update_lease_status", op); err != nil {
		if errors.Is(err, transport.PermanentError{Code: transport.CodeConflict}) {
			return c.resolveStatusConflict(ctx, leaseID, to)
		}
		return err
	}

	c.logger.Info("lease status updated",
		"lease_id", leaseID,
		"status", string(to),
	)
	return nil
}

func (c *Client) resolveStatusConflict(ctx context.Context, leaseID string, to decision.LeaseStatus) error {
	lease, err := c.GetLeaseAgreement(ctx, leaseID)
	if err != nil {
		return err
	}
	if lease.Status == to {
		return nil
	}
	return decision.ErrStatusConflict{LeaseID: leaseID, From: lease.Status, To: to}
}

func partySignature(lease *decision.LeaseAgreement, party decision.LeaseParty) (bool, string) {
	if party == decision.LeasePartyManager {
		return lease.ManagerSigned, lease.ManagerSignature
	}
	return lease.TenantSigned, lease.TenantSignature
}
