package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentflow-decision-ledger/internal/api_gateway/middleware"
	"github.com/rentflow-decision-ledger/internal/api_gateway/service"
	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ingest"
	"github.com/rentflow-decision-ledger/internal/ledger/client"
	"github.com/rentflow-decision-ledger/internal/ledger/codec"
)

// DecisionHandler handles HTTP requests for payment decisions and voice
// authorizations
type DecisionHandler struct {
	decisionService service.DecisionService
	eventService    service.EventService
	logger          *slog.Logger
}

// NewDecisionHandler creates a new decision handler
func NewDecisionHandler(logger *slog.Logger, decisionService service.DecisionService, eventService service.EventService) *DecisionHandler {
	return &DecisionHandler{
		decisionService: decisionService,
		eventService:    eventService,
		logger:          logger,
	}
}

// Record writes a payment decision to the ledger and waits for confirmed
// inclusion. A missing nonce gets a generated one, so only deliberate reuse
// collapses submissions.
func (h *DecisionHandler) Record(c *gin.Context) {
	var req RecordDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if req.Nonce == "" {
		req.Nonce = uuid.New().String()
	}

	res, err := h.decisionService.RecordPaymentDecision(c.Request.Context(), decision.RecordPaymentInput{
		Tenant:          req.Tenant,
		Landlord:        req.Landlord,
		Amount:          req.Amount,
		Approved:        req.Approved,
		ConfidenceScore: req.ConfidenceScore,
		Reasoning:       req.Reasoning,
		Nonce:           req.Nonce,
	})
	if err != nil {
		h.logger.Error("Failed to record payment decision", "error", err)
		respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapRecordResult(res))
}

// GetByID retrieves a confirmed payment decision, returns 404 if the id does
// not resolve on the ledger
func (h *DecisionHandler) GetByID(c *gin.Context) {
	decisionID := c.Param("id")

	d, err := h.decisionService.GetPaymentDecision(c.Request.Context(), decisionID)
	if err != nil {
		h.logger.Error("Failed to get payment decision", "decision_id", decisionID, "error", err)
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, mapDecisionToResponse(d))
}

// MarkExecuted attaches settlement evidence to a recorded decision.
// Re-marking with the same reference succeeds; a different one conflicts.
func (h *DecisionHandler) MarkExecuted(c *gin.Context) {
	decisionID := c.Param("id")

	var req MarkExecutedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.decisionService.MarkPaymentExecuted(c.Request.Context(), decisionID, req.ExecutionTxRef); err != nil {
		h.logger.Error("Failed to mark decision executed",
			"decision_id", decisionID,
			"execution_tx_ref", req.ExecutionTxRef,
			"error", err,
		)
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"decision_id":      decisionID,
		"executed":         true,
		"execution_tx_ref": req.ExecutionTxRef,
	})
}

// Count returns the running total of recorded payment decisions
func (h *DecisionHandler) Count(c *gin.Context) {
	total, err := h.decisionService.GetTotalPaymentDecisions(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to count payment decisions", "error", err)
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, CountResponse{Total: total})
}

// ListRecent retrieves paginated recent decisions from the reporting mirror
func (h *DecisionHandler) ListRecent(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	offset := (pagination.Page - 1) * pagination.PerPage
	entries, err := h.decisionService.ListRecentDecisions(c.Request.Context(), pagination.PerPage, offset)
	if err != nil {
		h.logger.Error("Failed to list recent decisions", "error", err)
		respondLedgerError(c, err)
		return
	}

	total, err := h.decisionService.GetTotalPaymentDecisions(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to count payment decisions", "error", err)
		respondLedgerError(c, err)
		return
	}

	var decisions []DecisionResponse
	for _, d := range entries {
		decisions = append(decisions, mapDecisionToResponse(d))
	}

	RespondWithPaginatedData(c, http.StatusOK, decisions, pagination.Page, pagination.PerPage, int(total))
}

// ListByTimeRange retrieves decisions whose ledger timestamp falls inside
// [from, to), newest first
func (h *DecisionHandler) ListByTimeRange(c *gin.Context) {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		h.logger.Error("Invalid from parameter", "from", c.Query("from"), "error", err)
		RespondBadRequest(c, "Invalid 'from' parameter, expected RFC 3339 timestamp")
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		h.logger.Error("Invalid to parameter", "to", c.Query("to"), "error", err)
		RespondBadRequest(c, "Invalid 'to' parameter, expected RFC 3339 timestamp")
		return
	}
	if !to.After(from) {
		RespondBadRequest(c, "'to' must be after 'from'")
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	offset := (pagination.Page - 1) * pagination.PerPage
	entries, err := h.decisionService.ListDecisionsByTimeRange(c.Request.Context(), from, to, pagination.PerPage, offset)
	if err != nil {
		h.logger.Error("Failed to list decisions by time range", "error", err)
		respondLedgerError(c, err)
		return
	}

	var decisions []DecisionResponse
	for _, d := range entries {
		decisions = append(decisions, mapDecisionToResponse(d))
	}

	RespondOK(c, decisions)
}

// Enqueue queues a decision event for asynchronous recording through the
// ingest consumer and responds 202 with the event id
func (h *DecisionHandler) Enqueue(c *gin.Context) {
	var req EnqueueDecisionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	eventID, err := h.eventService.EnqueueDecisionEvent(c.Request.Context(), &ingest.DecisionEvent{
		EventID:       req.EventID,
		Kind:          decision.RecordKind(req.Kind),
		CorrelationID: middleware.GetCorrelationID(c),
		Payment:       req.Payment,
		Voice:         req.Voice,
	})
	if err != nil {
		h.logger.Error("Failed to enqueue decision event", "error", err)
		respondLedgerError(c, err)
		return
	}

	RespondAccepted(c, gin.H{
		"event_id": eventID,
		"status":   "QUEUED",
	})
}

// RecordVoice writes a voice authorization to the ledger and waits for
// confirmed inclusion
func (h *DecisionHandler) RecordVoice(c *gin.Context) {
	var req RecordVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if req.Nonce == "" {
		req.Nonce = uuid.New().String()
	}

	res, err := h.decisionService.RecordVoiceAuthorization(c.Request.Context(), decision.RecordVoiceInput{
		User:        req.User,
		CommandType: req.CommandType,
		Command:     req.Command,
		Authorized:  req.Authorized,
		Nonce:       req.Nonce,
	})
	if err != nil {
		h.logger.Error("Failed to record voice authorization", "error", err)
		respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapRecordResult(res))
}

// GetVoiceByID retrieves a confirmed voice authorization by its ledger id
func (h *DecisionHandler) GetVoiceByID(c *gin.Context) {
	authID := c.Param("id")

	auth, err := h.decisionService.GetVoiceAuthorization(c.Request.Context(), authID)
	if err != nil {
		h.logger.Error("Failed to get voice authorization", "auth_id", authID, "error", err)
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, VoiceAuthorizationResponse{
		AuthID:          auth.AuthID,
		User:            auth.User,
		CommandType:     auth.CommandType,
		Command:         auth.Command,
		Authorized:      auth.Authorized,
		Timestamp:       auth.Timestamp.Format(time.RFC3339),
		TransactionHash: auth.TransactionHash,
	})
}

// mapRecordResult maps a confirmed ledger write to a response DTO
func mapRecordResult(res *client.RecordResult) RecordResultResponse {
	return RecordResultResponse{
		ID:              res.ID,
		TransactionHash: res.TransactionHash,
		Timestamp:       res.Timestamp.Format(time.RFC3339),
	}
}

// mapDecisionToResponse maps a payment decision to a response DTO
func mapDecisionToResponse(d *decision.PaymentDecision) DecisionResponse {
	return DecisionResponse{
		DecisionID:      d.DecisionID,
		Tenant:          d.Tenant,
		Landlord:        d.Landlord,
		Amount:          codec.FormatAmount(d.AmountUnits),
		Approved:        d.Approved,
		ConfidenceScore: int(d.ConfidenceScore),
		Reasoning:       d.Reasoning,
		Timestamp:       d.Timestamp.Format(time.RFC3339),
		Executed:        d.Executed,
		ExecutionTxRef:  d.ExecutionTxRef,
		TransactionHash: d.TransactionHash,
	}
}
