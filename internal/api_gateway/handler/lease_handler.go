package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rentflow-decision-ledger/internal/api_gateway/service"
	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/codec"
)

// LeaseHandler handles HTTP requests for lease agreement operations
type LeaseHandler struct {
	leaseService service.LeaseService
	logger       *slog.Logger
}

// NewLeaseHandler creates a new lease handler
func NewLeaseHandler(logger *slog.Logger, leaseService service.LeaseService) *LeaseHandler {
	return &LeaseHandler{
		leaseService: leaseService,
		logger:       logger,
	}
}

// Record writes a lease agreement to the ledger in PENDING state
func (h *LeaseHandler) Record(c *gin.Context) {
	var req RecordLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if req.Nonce == "" {
		req.Nonce = uuid.New().String()
	}

	res, err := h.leaseService.RecordLeaseAgreement(c.Request.Context(), decision.RecordLeaseInput{
		LeaseID:     req.LeaseID,
		LeaseHash:   req.LeaseHash,
		Manager:     req.Manager,
		Tenant:      req.Tenant,
		MonthlyRent: req.MonthlyRent,
		Deposit:     req.Deposit,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Nonce:       req.Nonce,
	})
	if err != nil {
		h.logger.Error("Failed to record lease agreement", "lease_id", req.LeaseID, "error", err)
		respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapRecordResult(res))
}

// GetByID retrieves a lease agreement, returns 404 if the id does not
// resolve on the ledger
func (h *LeaseHandler) GetByID(c *gin.Context) {
	leaseID := c.Param("id")

	lease, err := h.leaseService.GetLeaseAgreement(c.Request.Context(), leaseID)
	if err != nil {
		h.logger.Error("Failed to get lease agreement", "lease_id", leaseID, "error", err)
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, mapLeaseToResponse(lease))
}

// Sign records a party's signature on a lease. The ledger activates the
// lease once both parties have signed.
func (h *LeaseHandler) Sign(c *gin.Context) {
	leaseID := c.Param("id")

	var req SignLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.leaseService.SignLease(c.Request.Context(), leaseID, decision.LeaseParty(req.Party), req.SignatureHash); err != nil {
		h.logger.Error("Failed to sign lease",
			"lease_id", leaseID,
			"party", req.Party,
			"error", err,
		)
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"lease_id": leaseID,
		"party":    req.Party,
		"signed":   true,
	})
}

// UpdateStatus moves an active lease into a terminal state
func (h *LeaseHandler) UpdateStatus(c *gin.Context) {
	leaseID := c.Param("id")

	var req UpdateLeaseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	if err := h.leaseService.UpdateLeaseStatus(c.Request.Context(), leaseID, decision.LeaseStatus(req.Status)); err != nil {
		h.logger.Error("Failed to update lease status",
			"lease_id", leaseID,
			"status", req.Status,
			"error", err,
		)
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"lease_id": leaseID,
		"status":   req.Status,
	})
}

// Verify reports whether a lease is fully executed: both parties signed and
// the lease ACTIVE
func (h *LeaseHandler) Verify(c *gin.Context) {
	leaseID := c.Param("id")

	verified, err := h.leaseService.VerifyLease(c.Request.Context(), leaseID)
	if err != nil {
		h.logger.Error("Failed to verify lease", "lease_id", leaseID, "error", err)
		respondLedgerError(c, err)
		return
	}

	RespondOK(c, gin.H{
		"lease_id": leaseID,
		"verified": verified,
	})
}

// mapLeaseToResponse maps a lease agreement to a response DTO
func mapLeaseToResponse(lease *decision.LeaseAgreement) LeaseResponse {
	response := LeaseResponse{
		LeaseID:          lease.LeaseID,
		LeaseHash:        lease.LeaseHash,
		Manager:          lease.Manager,
		Tenant:           lease.Tenant,
		MonthlyRent:      codec.FormatAmount(lease.MonthlyRentUnits),
		Deposit:          codec.FormatAmount(lease.DepositUnits),
		StartDate:        lease.StartDate.Format(time.RFC3339),
		EndDate:          lease.EndDate.Format(time.RFC3339),
		ManagerSigned:    lease.ManagerSigned,
		TenantSigned:     lease.TenantSigned,
		Status:           string(lease.Status),
		Timestamp:        lease.Timestamp.Format(time.RFC3339),
		TransactionHash:  lease.TransactionHash,
		ManagerSignature: lease.ManagerSignature,
		TenantSignature:  lease.TenantSignature,
	}

	if lease.ActivatedAt != nil {
		response.ActivatedAt = lease.ActivatedAt.Format(time.RFC3339)
	}

	return response
}
