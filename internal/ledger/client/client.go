// Package client implements the decision ledger client: it validates and
// encodes domain records, submits them through the transport with bounded
// retries and idempotency keys, waits for confirmation, and serves queries.
// The ledger holds the authoritative state; the client keeps none beyond the
// optional counter cache and reporting mirror it is wired with.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentflow-decision-ledger/internal/config"
	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/codec"
	"github.com/rentflow-decision-ledger/internal/ledger/transport"
)

// DecisionCounter serves the cached total of confirmed payment decisions.
// Invalidate is called after the client confirms a new record so the next
// read refreshes.
type DecisionCounter interface {
	Total(ctx context.Context) (int64, error)
	Invalidate()
}

// RecordResult reports a confirmed inclusion: the ledger-assigned record
// identifier, the inclusion transaction hash, and the ledger timestamp.
type RecordResult struct {
	ID              string    `json:"id"`
	TransactionHash string    `json:"transaction_hash"`
	Timestamp       time.Time `json:"timestamp"`
}

// Client is the ledger client. Mirror and counter are optional; a nil mirror
// disables reporting reads and a nil counter falls through to a live count.
type Client struct {
	logger    *slog.Logger
	transport transport.Transport
	mirror    decision.MirrorRepository
	counter   DecisionCounter

	maxAttempts         int
	retryBaseDelay      time.Duration
	retryMaxDelay       time.Duration
	confirmTimeout      time.Duration
	confirmPollInterval time.Duration
}

// New creates a client around the given transport. mirror and counter may be
// nil.
func New(logger *slog.Logger, cfg *config.LedgerConfig, tr transport.Transport, mirror decision.MirrorRepository, counter DecisionCounter) *Client {
	return &Client{
		logger:              logger,
		transport:           tr,
		mirror:              mirror,
		counter:             counter,
		maxAttempts:         cfg.MaxAttempts,
		retryBaseDelay:      cfg.RetryBaseDelay,
		retryMaxDelay:       cfg.RetryMaxDelay,
		confirmTimeout:      cfg.ConfirmTimeout,
		confirmPollInterval: cfg.ConfirmPollInterval,
	}
}

// RecordPaymentDecision validates, encodes, and durably records a payment
// decision. Validation failures return before any ledger interaction.
func (c *Client) RecordPaymentDecision(ctx context.Context, in decision.RecordPaymentInput) (*RecordResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	op, err := codec.EncodePaymentDecision(in, "")
	if err != nil {
		return nil, err
	}
	op.IdempotencyKey = submissionKey(op.Kind, op.Payload, in.Nonce)

	landed, err := c.submitWithRetry(ctx, "record_payment_decision", op)
	if err != nil {
		return nil, err
	}

	c.logger.Info("payment decision recorded",
		"decision_id", landed.ID,
		"tenant", in.Tenant,
		"approved", in.Approved,
	)
	c.afterPaymentConfirmed(ctx, &decision.PaymentDecision{
		DecisionID:      landed.ID,
		Tenant:          in.Tenant,
		Landlord:        in.Landlord,
		AmountUnits:     mustAmountUnits(in.Amount),
		Approved:        in.Approved,
		ConfidenceScore: uint8(in.ConfidenceScore),
		Reasoning:       in.Reasoning,
		Timestamp:       landed.Timestamp,
		TransactionHash: landed.TransactionHash,
	})
	return landed, nil
}

// GetPaymentDecision fetches a payment decision from the ledger by id. An id
// that resolves to a record of another kind does not resolve to a payment
// decision, so it reads as not found.
func (c *Client) GetPaymentDecision(ctx context.Context, decisionID string) (*decision.PaymentDecision, error) {
	if decisionID == "" {
		return nil, decision.ErrValidation{Field: "decision_id", Reason: "must not be empty"}
	}
	rec, err := c.transport.Query(ctx, decisionID)
	if err != nil {
		if errors.Is(err, transport.ErrRecordNotFound{}) {
			return nil, decision.ErrDecisionNotFound{DecisionID: decisionID}
		}
		return nil, err
	}
	if rec.Kind != decision.KindPaymentDecision {
		return nil, decision.ErrDecisionNotFound{DecisionID: decisionID}
	}
	return codec.DecodePaymentDecision(rec)
}

// MarkPaymentExecuted sets the one-shot execution evidence on a decision.
// Re-marking with the same reference succeeds without a second write; a
// different reference is a conflict.
func (c *Client) MarkPaymentExecuted(ctx context.Context, decisionID, executionTxRef string) error {
	if decisionID == "" {
		return decision.ErrValidation{Field: "decision_id", Reason: "must not be empty"}
	}
	if executionTxRef == "" {
		return decision.ErrValidation{Field: "execution_tx_ref", Reason: "must not be empty"}
	}

	d, err := c.GetPaymentDecision(ctx, decisionID)
	if err != nil {
		return err
	}
	if d.Executed {
		if d.ExecutionTxRef == executionTxRef {
			return nil
		}
		return decision.ErrExecutionConflict{DecisionID: decisionID, Recorded: d.ExecutionTxRef, Supplied: executionTxRef}
	}

	op, err := codec.EncodeMarkExecuted(decisionID, executionTxRef, "")
	if err != nil {
		return err
	}
	op.IdempotencyKey = submissionKey(op.Kind, op.Payload, "")

	if _, err := c.submitWithRetry(ctx, "mark_payment_executed", op); err != nil {
		// A conflict from the ledger means another writer got there first;
		// re-read to find out whether it was with the same reference.
		if errors.Is(err, transport.PermanentError{Code: transport.CodeConflict}) {
			return c.resolveExecutionConflict(ctx, decisionID, executionTxRef)
		}
		return err
	}

	c.logger.Info("payment decision marked executed",
		"decision_id", decisionID,
		"execution_tx_ref", executionTxRef,
	)
	d.Executed = true
	d.ExecutionTxRef = executionTxRef
	c.mirrorSave(ctx, d)
	return nil
}

func (c *Client) resolveExecutionConflict(ctx context.Context, decisionID, executionTxRef string) error {
	d, err := c.GetPaymentDecision(ctx, decisionID)
	if err != nil {
		return err
	}
	if d.Executed && d.ExecutionTxRef == executionTxRef {
		c.mirrorSave(ctx, d)
		return nil
	}
	return decision.ErrExecutionConflict{DecisionID: decisionID, Recorded: d.ExecutionTxRef, Supplied: executionTxRef}
}

// GetTotalPaymentDecisions returns the count of confirmed payment decisions,
// served from the counter cache when one is wired.
func (c *Client) GetTotalPaymentDecisions(ctx context.Context) (int64, error) {
	if c.counter != nil {
		return c.counter.Total(ctx)
	}
	return c.transport.Count(ctx, decision.KindPaymentDecision)
}

// RecordVoiceAuthorization validates, encodes, and durably records a voice
// command authorization.
func (c *Client) RecordVoiceAuthorization(ctx context.Context, in decision.RecordVoiceInput) (*RecordResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	op, err := codec.EncodeVoiceAuthorization(in, "")
	if err != nil {
		return nil, err
	}
	op.IdempotencyKey = submissionKey(op.Kind, op.Payload, in.Nonce)

	landed, err := c.submitWithRetry(ctx, "record_voice_authorization", op)
	if err != nil {
		return nil, err
	}

	c.logger.Info("voice authorization recorded",
		"auth_id", landed.ID,
		"command_type", in.CommandType,
		"authorized", in.Authorized,
	)
	return landed, nil
}

// GetVoiceAuthorization fetches a voice authorization from the ledger by id
func (c *Client) GetVoiceAuthorization(ctx context.Context, authID string) (*decision.VoiceAuthorization, error) {
	if authID == "" {
		return nil, decision.ErrValidation{Field: "auth_id", Reason: "must not be empty"}
	}
	rec, err := c.transport.Query(ctx, authID)
	if err != nil {
		if errors.Is(err, transport.ErrRecordNotFound{}) {
			return nil, decision.ErrDecisionNotFound{DecisionID: authID}
		}
		return nil, err
	}
	if rec.Kind != decision.KindVoiceAuthorization {
		return nil, decision.ErrDecisionNotFound{DecisionID: authID}
	}
	return codec.DecodeVoiceAuthorization(rec)
}

// ListRecentDecisions serves reporting reads from the mirror. Individual
// record lookups never use it; only listings do.
func (c *Client) ListRecentDecisions(ctx context.Context, limit, offset int) ([]*decision.PaymentDecision, error) {
	if c.mirror == nil {
		return nil, errors.New("reporting mirror not configured")
	}
	return c.mirror.GetRecent(ctx, limit, offset)
}

// ListDecisionsByTimeRange serves time-bounded reporting reads from the mirror
func (c *Client) ListDecisionsByTimeRange(ctx context.Context, start, end time.Time, limit, offset int) ([]*decision.PaymentDecision, error) {
	if c.mirror == nil {
		return nil, errors.New("reporting mirror not configured")
	}
	return c.mirror.GetByTimeRange(ctx, start, end, limit, offset)
}

// submitWithRetry drives one operation to a confirmed inclusion. From the
// second attempt on, it first checks whether a prior attempt landed under the
// idempotency key; transient failures back off and retry, permanent failures
// surface immediately, and exhaustion returns ErrSubmissionFailed.
func (c *Client) submitWithRetry(ctx context.Context, opName string, op codec.Operation) (*RecordResult, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if rec, err := c.transport.QueryByIdempotencyKey(ctx, op.IdempotencyKey); err == nil && rec != nil {
				c.logger.Info("prior submission attempt already confirmed",
					"operation", opName,
					"record_id", rec.ID,
					"attempt", attempt,
				)
				return &RecordResult{ID: rec.ID, TransactionHash: rec.TxHash, Timestamp: rec.Timestamp}, nil
			}
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		receipt, err := c.transport.Submit(ctx, op)
		if err != nil {
			if transport.IsTransient(err) {
				c.logger.Warn("submission attempt failed",
					"operation", opName,
					"attempt", attempt,
					"error", err.Error(),
				)
				lastErr = err
				continue
			}
			return nil, err
		}

		landed, err := c.awaitConfirmation(ctx, receipt)
		if err != nil {
			if transport.IsTransient(err) {
				c.logger.Warn("confirmation did not resolve",
					"operation", opName,
					"attempt", attempt,
					"error", err.Error(),
				)
				lastErr = err
				continue
			}
			return nil, err
		}
		return landed, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no attempt completed")
	}
	return nil, decision.ErrSubmissionFailed{Operation: opName, Attempts: c.maxAttempts, Cause: lastErr}
}

// awaitConfirmation polls a receipt until it confirms, is rejected, or the
// confirmation window closes. A closed window is reported as transient: the
// next attempt's idempotency-key check recognizes a late inclusion.
func (c *Client) awaitConfirmation(ctx context.Context, receipt *transport.Receipt) (*RecordResult, error) {
	deadline := time.Now().Add(c.confirmTimeout)
	for {
		conf, err := c.transport.AwaitConfirmation(ctx, receipt)
		if err != nil && !transport.IsTransient(err) {
			return nil, err
		}
		if err == nil {
			switch conf.Status {
			case transport.StatusConfirmed:
				return &RecordResult{ID: conf.RecordID, TransactionHash: conf.TxHash, Timestamp: conf.Timestamp}, nil
			case transport.StatusRejected:
				rejErr := fmt.Errorf("submission rejected: %s", conf.RejectReason)
				if conf.RejectPermanent {
					return nil, transport.PermanentError{Op: "confirm", Code: "rejected", Err: rejErr}
				}
				return nil, transport.TransientError{Op: "confirm", Err: rejErr}
			}
		}

		if time.Now().After(deadline) {
			return nil, transport.TransientError{Op: "confirm", Err: errors.New("confirmation window elapsed")}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.confirmPollInterval):
		}
	}
}

// backoff sleeps the exponential delay before retry attempt n (n >= 2)
func (c *Client) backoff(ctx context.Context, attempt int) error {
	delay := c.retryBaseDelay << uint(attempt-2)
	if delay > c.retryMaxDelay || delay <= 0 {
		delay = c.retryMaxDelay
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// afterPaymentConfirmed refreshes the derived stores. Both are best effort;
// the ledger write already succeeded.
func (c *Client) afterPaymentConfirmed(ctx context.Context, d *decision.PaymentDecision) {
	if c.counter != nil {
		c.counter.Invalidate()
	}
	c.mirrorSave(ctx, d)
}

func (c *Client) mirrorSave(ctx context.Context, d *decision.PaymentDecision) {
	if c.mirror == nil {
		return
	}
	if err := c.mirror.Save(ctx, d); err != nil {
		c.logger.Warn("failed to update reporting mirror",
			"decision_id", d.DecisionID,
			"error", err.Error(),
		)
	}
}

// mustAmountUnits converts an amount the codec already accepted; Validate and
// Encode ran first, so a failure here cannot happen.
func mustAmountUnits(amount string) uint64 {
	units, _ := codec.ParseAmount(amount)
	return units
}
