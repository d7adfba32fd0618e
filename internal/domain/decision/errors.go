package decision

import (
	"fmt"
	"strconv"
)

// ErrValidation indicates bad caller input. No ledger interaction has
// happened when it is returned, and retrying without fixing the input will
// fail the same way.
type ErrValidation struct {
	Field  string
	Reason string
}

func (e ErrValidation) Error() string {
	return "invalid " + e.Field + ": " + e.Reason
}

// Is implements the errors.Is interface for ErrValidation
func (e ErrValidation) Is(target error) bool {
	t, ok := target.(ErrValidation)
	if !ok {
		return false
	}
	// An empty target Field matches any validation failure
	if t.Field == "" {
		return true
	}
	return e.Field == t.Field
}

// ErrDecisionNotFound indicates the decision id does not resolve to a
// confirmed ledger record. A submission still awaiting confirmation also
// reports this; callers retry after confirmation rather than blocking.
type ErrDecisionNotFound struct {
	DecisionID string
}

func (e ErrDecisionNotFound) Error() string {
	return "payment decision not found: " + e.DecisionID
}

// Is implements the errors.Is interface for ErrDecisionNotFound
func (e ErrDecisionNotFound) Is(target error) bool {
	t, ok := target.(ErrDecisionNotFound)
	if !ok {
		return false
	}
	if t.DecisionID == "" {
		return true
	}
	return e.DecisionID == t.DecisionID
}

// ErrLeaseNotFound indicates a missing lease agreement record
type ErrLeaseNotFound struct {
	LeaseID string
}

func (e ErrLeaseNotFound) Error() string {
	return "lease agreement not found: " + e.LeaseID
}

// Is implements the errors.Is interface for ErrLeaseNotFound
func (e ErrLeaseNotFound) Is(target error) bool {
	t, ok := target.(ErrLeaseNotFound)
	if !ok {
		return false
	}
	if t.LeaseID == "" {
		return true
	}
	return e.LeaseID == t.LeaseID
}

// ErrExecutionConflict indicates a mark-executed call against an already
// executed decision with different settlement evidence. The recorded
// reference never changes once set.
type ErrExecutionConflict struct {
	DecisionID string
	Recorded   string
	Supplied   string
}

func (e ErrExecutionConflict) Error() string {
	return fmt.Sprintf("decision %s already executed with tx ref %s (got %s)", e.DecisionID, e.Recorded, e.Supplied)
}

// Is implements the errors.Is interface for ErrExecutionConflict
func (e ErrExecutionConflict) Is(target error) bool {
	t, ok := target.(ErrExecutionConflict)
	if !ok {
		return false
	}
	if t.DecisionID == "" {
		return true
	}
	return e.DecisionID == t.DecisionID
}

// ErrSignatureConflict indicates a lease re-sign with a signature hash that
// differs from the one already recorded for that party.
type ErrSignatureConflict struct {
	LeaseID  string
	Party    LeaseParty
	Recorded string
	Supplied string
}

func (e ErrSignatureConflict) Error() string {
	return fmt.Sprintf("lease %s already signed by %s with a different signature", e.LeaseID, e.Party)
}

// Is implements the errors.Is interface for ErrSignatureConflict
func (e ErrSignatureConflict) Is(target error) bool {
	t, ok := target.(ErrSignatureConflict)
	if !ok {
		return false
	}
	if t.LeaseID == "" {
		return true
	}
	return e.LeaseID == t.LeaseID
}

// ErrStatusConflict indicates an illegal lease status transition
type ErrStatusConflict struct {
	LeaseID string
	From    LeaseStatus
	To      LeaseStatus
}

func (e ErrStatusConflict) Error() string {
	return fmt.Sprintf("lease %s: illegal transition %s -> %s", e.LeaseID, e.From, e.To)
}

// Is implements the errors.Is interface for ErrStatusConflict
func (e ErrStatusConflict) Is(target error) bool {
	t, ok := target.(ErrStatusConflict)
	if !ok {
		return false
	}
	if t.LeaseID == "" {
		return true
	}
	return e.LeaseID == t.LeaseID
}

// ErrSubmissionFailed indicates the retry ceiling was exhausted without a
// confirmed inclusion. The caller must treat the record as not written; a
// re-invocation with the same nonce is safe and will collapse onto any
// attempt that did land.
type ErrSubmissionFailed struct {
	Operation string
	Attempts  int
	Cause     error
}

func (e ErrSubmissionFailed) Error() string {
	return e.Operation + " failed after " + strconv.Itoa(e.Attempts) + " attempts: " + e.Cause.Error()
}

func (e ErrSubmissionFailed) Unwrap() error {
	return e.Cause
}

// Is implements the errors.Is interface for ErrSubmissionFailed
func (e ErrSubmissionFailed) Is(target error) bool {
	t, ok := target.(ErrSubmissionFailed)
	if !ok {
		return false
	}
	if t.Operation == "" {
		return true
	}
	return e.Operation == t.Operation
}
