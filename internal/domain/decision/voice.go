package decision

import "time"

// VoiceAuthorization is a recorded voice-command authorization. AuthID and
// Timestamp are ledger-assigned; the record never changes after inclusion.
type VoiceAuthorization struct {
	AuthID          string    `json:"auth_id" bson:"auth_id"`
	User            string    `json:"user" bson:"user"`
	CommandType     string    `json:"command_type" bson:"command_type"`
	Command         string    `json:"command" bson:"command"`
	Authorized      bool      `json:"authorized" bson:"authorized"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
	TransactionHash string    `json:"transaction_hash" bson:"transaction_hash"`
}

// RecordVoiceInput is the caller-supplied shape for recording a voice
// authorization. Same validation and idempotency contract as payments.
type RecordVoiceInput struct {
	User        string `json:"user"`
	CommandType string `json:"command_type"`
	Command     string `json:"command"`
	Authorized  bool   `json:"authorized"`
	Nonce       string `json:"nonce"`
}

// Validate checks ranges and lengths before any ledger interaction
func (in RecordVoiceInput) Validate() error {
	if in.User == "" {
		return ErrValidation{Field: "user", Reason: "must not be empty"}
	}
	if in.CommandType == "" {
		return ErrValidation{Field: "command_type", Reason: "must not be empty"}
	}
	if in.Command == "" {
		return ErrValidation{Field: "command", Reason: "must not be empty"}
	}
	if len(in.Command) > MaxCommandBytes {
		return ErrValidation{Field: "command", Reason: "exceeds ledger storage limit"}
	}
	if in.Nonce == "" {
		return ErrValidation{Field: "nonce", Reason: "must not be empty"}
	}
	return nil
}
