package transport

import "errors"

// TransientError marks a failure that is safe to retry: timeouts, temporary
// unavailability, an overloaded gateway. The submission may or may not have
// landed; idempotency keys make the retry safe either way.
type TransientError struct {
	Op  string
	Err error
}

func (e TransientError) Error() string {
	return "transient ledger failure during " + e.Op + ": " + e.Err.Error()
}

func (e TransientError) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface for TransientError
func (e TransientError) Is(target error) bool {
	_, ok := target.(TransientError)
	return ok
}

// PermanentError marks a failure that retrying cannot fix: malformed
// operations, bad credentials, conflicting updates. It is surfaced
// immediately, never retried.
type PermanentError struct {
	Op   string
	Code string
	Err  error
}

func (e PermanentError) Error() string {
	return "permanent ledger failure during " + e.Op + " (" + e.Code + "): " + e.Err.Error()
}

func (e PermanentError) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface for PermanentError
func (e PermanentError) Is(target error) bool {
	t, ok := target.(PermanentError)
	if !ok {
		return false
	}
	if t.Code == "" {
		return true
	}
	return e.Code == t.Code
}

// Well-known permanent failure codes surfaced by the ledger gateway
const (
	CodeUnauthorized = "unauthorized"
	CodeMalformedOp  = "malformed_operation"
	CodeConflict     = "conflict"
)

// IsTransient reports whether err may be retried
func IsTransient(err error) bool {
	return errors.Is(err, TransientError{})
}
