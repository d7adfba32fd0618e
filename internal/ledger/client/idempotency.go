package client

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/rentflow-decision-ledger/internal/ledger/codec"
)

// submissionKey derives the idempotency key the ledger uses to collapse
// duplicate submissions. It hashes the operation kind, the canonical payload,
// and the caller's nonce, so a re-invoked call with the same nonce produces
// the same key while a fresh nonce never collides. Operations that are
// naturally idempotent (execution marks, signatures, status updates) pass an
// empty nonce; their payload already pins the key.
func submissionKey(kind codec.OpKind, payload []byte, nonce string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(payload)
	h.Write([]byte{0})
	h.Write([]byte(nonce))
	return hex.EncodeToString(h.Sum(nil))
}
