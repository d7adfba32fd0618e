package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/codec"
)

// respondLedgerError maps the client's typed errors onto HTTP statuses.
// Validation and encoding failures never touched the ledger, conflicts mean
// the record exists with different content, and an exhausted retry budget
// surfaces as a gateway failure the caller may safely re-invoke.
func respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, decision.ErrValidation{}) || errors.Is(err, codec.EncodingError{}):
		RespondBadRequest(c, err.Error())
	case errors.Is(err, decision.ErrDecisionNotFound{}) || errors.Is(err, decision.ErrLeaseNotFound{}):
		RespondNotFound(c, err.Error())
	case errors.Is(err, decision.ErrExecutionConflict{}) ||
		errors.Is(err, decision.ErrSignatureConflict{}) ||
		errors.Is(err, decision.ErrStatusConflict{}):
		RespondConflict(c, err.Error())
	case errors.Is(err, decision.ErrSubmissionFailed{}):
		RespondBadGateway(c, err.Error())
	default:
		RespondInternalError(c)
	}
}
