package transport

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rentflow-decision-ledger/internal/config"
	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/codec"
)

// JSON-RPC error codes returned by the ledger gateway
const (
	rpcCodeUnauthorized = -32001
	rpcCodeMalformedOp  = -32002
	rpcCodeConflict     = -32003
	rpcCodeNotFound     = -32004
	rpcCodeUnavailable  = -32005
	rpcCodeRateLimited  = -32006
)

// RPCTransport talks JSON-RPC 2.0 to the ledger gateway over HTTP and signs
// every submission with the caller-held ed25519 key.
type RPCTransport struct {
	endpoint   string
	httpClient *http.Client
	signingKey ed25519.PrivateKey
	publicKey  string // hex, sent with every submission
	timeout    time.Duration
	logger     *slog.Logger
	nextID     atomic.Uint64
}

// NewRPCTransport creates a transport from the ledger configuration. The
// signing key is the hex-encoded 32-byte ed25519 seed.
func NewRPCTransport(logger *slog.Logger, cfg *config.LedgerConfig) (*RPCTransport, error) {
	seed, err := hex.DecodeString(cfg.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger signing key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid ledger signing key: expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	key := ed25519.NewKeyFromSeed(seed)

	return &RPCTransport{
		endpoint:   cfg.RPCURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		signingKey: key,
		publicKey:  hex.EncodeToString(key.Public().(ed25519.PublicKey)),
		timeout:    cfg.RequestTimeout,
		logger:     logger,
	}, nil
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type submitParams struct {
	Kind           codec.OpKind    `json:"kind"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
	PublicKey      string          `json:"public_key"`
	Signature      string          `json:"signature"`
}

type submitResult struct {
	Signature   string `json:"signature"`
	SubmittedAt int64  `json:"submitted_at"`
}

type confirmResult struct {
	Status          string `json:"status"`
	RecordID        string `json:"record_id,omitempty"`
	TxHash          string `json:"tx_hash,omitempty"`
	Timestamp       int64  `json:"timestamp,omitempty"`
	RejectReason    string `json:"reject_reason,omitempty"`
	RejectPermanent bool   `json:"reject_permanent,omitempty"`
}

type recordResult struct {
	Kind      string          `json:"kind"`
	ID        string          `json:"id"`
	TxHash    string          `json:"tx_hash"`
	Timestamp int64           `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type countResult struct {
	Total int64 `json:"total"`
}

// Submit signs the operation payload and sends it for ordering
func (t *RPCTransport) Submit(ctx context.Context, op codec.Operation) (*Receipt, error) {
	// The signature covers the payload and the idempotency key so the
	// gateway can verify the key was not swapped between retries.
	signed := append(append([]byte{}, op.Payload...), []byte(op.IdempotencyKey)...)
	params := submitParams{
		Kind:           op.Kind,
		IdempotencyKey: op.IdempotencyKey,
		Payload:        op.Payload,
		PublicKey:      t.publicKey,
		Signature:      hex.EncodeToString(ed25519.Sign(t.signingKey, signed)),
	}

	var res submitResult
	if err := t.call(ctx, "submit", "ledger.submit", params, &res); err != nil {
		return nil, err
	}

	t.logger.Debug("submission accepted for ordering",
		"kind", string(op.Kind),
		"signature", res.Signature,
	)

	return &Receipt{
		Signature:   res.Signature,
		SubmittedAt: time.Unix(res.SubmittedAt, 0).UTC(),
	}, nil
}

// AwaitConfirmation resolves the receipt's current state
func (t *RPCTransport) AwaitConfirmation(ctx context.Context, receipt *Receipt) (*Confirmation, error) {
	params := map[string]string{"signature": receipt.Signature}

	var res confirmResult
	if err := t.call(ctx, "confirm", "ledger.confirm", params, &res); err != nil {
		return nil, err
	}

	conf := &Confirmation{
		Status:          ConfirmationStatus(res.Status),
		RecordID:        res.RecordID,
		TxHash:          res.TxHash,
		RejectReason:    res.RejectReason,
		RejectPermanent: res.RejectPermanent,
	}
	if res.Timestamp > 0 {
		conf.Timestamp = time.Unix(res.Timestamp, 0).UTC()
	}
	if conf.TxHash == "" {
		conf.TxHash = receipt.Signature
	}
	return conf, nil
}

// Query fetches a confirmed record by id
func (t *RPCTransport) Query(ctx context.Context, recordID string) (*codec.Record, error) {
	params := map[string]string{"id": recordID}

	var res recordResult
	if err := t.call(ctx, "query", "ledger.record", params, &res); err != nil {
		var perm PermanentError
		if errors.As(err, &perm) && perm.Code == "not_found" {
			return nil, ErrRecordNotFound{RecordID: recordID}
		}
		return nil, err
	}
	return res.toRecord(), nil
}

// QueryByIdempotencyKey fetches the record a prior submission with this key
// produced; (nil, nil) when the key has never landed.
func (t *RPCTransport) QueryByIdempotencyKey(ctx context.Context, key string) (*codec.Record, error) {
	params := map[string]string{"idempotency_key": key}

	var res recordResult
	if err := t.call(ctx, "query_by_key", "ledger.recordByKey", params, &res); err != nil {
		var perm PermanentError
		if errors.As(err, &perm) && perm.Code == "not_found" {
			return nil, nil
		}
		return nil, err
	}
	return res.toRecord(), nil
}

// Count returns the number of confirmed records of a kind
func (t *RPCTransport) Count(ctx context.Context, kind decision.RecordKind) (int64, error) {
	params := map[string]string{"kind": string(kind)}

	var res countResult
	if err := t.call(ctx, "count", "ledger.count", params, &res); err != nil {
		return 0, err
	}
	return res.Total, nil
}

func (r recordResult) toRecord() *codec.Record {
	return &codec.Record{
		Kind:      decision.RecordKind(r.Kind),
		ID:        r.ID,
		TxHash:    r.TxHash,
		Timestamp: time.Unix(r.Timestamp, 0).UTC(),
		Payload:   r.Payload,
	}
}

// call performs one JSON-RPC round trip and classifies every failure
func (t *RPCTransport) call(ctx context.Context, op, method string, params, result interface{}) error {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      t.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return PermanentError{Op: op, Code: CodeMalformedOp, Err: err}
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return PermanentError{Op: op, Code: CodeMalformedOp, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// Network failures and timeouts are retryable
		return TransientError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return TransientError{Op: op, Err: fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return PermanentError{Op: op, Code: CodeMalformedOp, Err: fmt.Errorf("gateway returned HTTP %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return TransientError{Op: op, Err: fmt.Errorf("failed to read gateway response: %w", err)}
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return TransientError{Op: op, Err: fmt.Errorf("malformed gateway response: %w", err)}
	}
	if rpcResp.Error != nil {
		return classifyRPCError(op, rpcResp.Error)
	}
	if result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return TransientError{Op: op, Err: fmt.Errorf("malformed gateway result: %w", err)}
		}
	}
	return nil
}

func classifyRPCError(op string, rpcErr *rpcError) error {
	err := fmt.Errorf("rpc error %d: %s", rpcErr.Code, rpcErr.Message)
	switch rpcErr.Code {
	case rpcCodeUnavailable, rpcCodeRateLimited:
		return TransientError{Op: op, Err: err}
	case rpcCodeUnauthorized:
		return PermanentError{Op: op, Code: CodeUnauthorized, Err: err}
	case rpcCodeConflict:
		return PermanentError{Op: op, Code: CodeConflict, Err: err}
	case rpcCodeNotFound:
		return PermanentError{Op: op, Code: "not_found", Err: err}
	case rpcCodeMalformedOp:
		return PermanentError{Op: op, Code: CodeMalformedOp, Err: err}
	default:
		// Unknown gateway errors are treated as permanent so a buggy
		// operation is not resubmitted forever.
		return PermanentError{Op: op, Code: "unknown", Err: err}
	}
}
