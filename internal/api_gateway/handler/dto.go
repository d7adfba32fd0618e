package handler

import "github.com/rentflow-decision-ledger/internal/domain/decision"

// RecordDecisionRequest represents a request to record a payment decision
type RecordDecisionRequest struct {
	Tenant          string `json:"tenant" binding:"required"`
	Landlord        string `json:"landlord" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	Approved        bool   `json:"approved"`
	ConfidenceScore int    `json:"confidence_score" binding:"min=0,max=100"`
	Reasoning       string `json:"reasoning" binding:"required,max=512"`
	Nonce           string `json:"nonce,omitempty"`
}

// MarkExecutedRequest represents a request to attach settlement evidence to a
// recorded payment decision
type MarkExecutedRequest struct {
	ExecutionTxRef string `json:"execution_tx_ref" binding:"required"`
}

// RecordVoiceRequest represents a request to record a voice authorization
type RecordVoiceRequest struct {
	User        string `json:"user" binding:"required"`
	CommandType string `json:"command_type" binding:"required"`
	Command     string `json:"command" binding:"required,max=512"`
	Authorized  bool   `json:"authorized"`
	Nonce       string `json:"nonce,omitempty"`
}

// RecordLeaseRequest represents a request to record a lease agreement
type RecordLeaseRequest struct {
	LeaseID     string `json:"lease_id" binding:"required,max=64"`
	LeaseHash   string `json:"lease_hash" binding:"required"`
	Manager     string `json:"manager" binding:"required"`
	Tenant      string `json:"tenant" binding:"required"`
	MonthlyRent string `json:"monthly_rent" binding:"required"`
	Deposit     string `json:"deposit,omitempty"`
	StartDate   int64  `json:"start_date" binding:"required"`
	EndDate     int64  `json:"end_date" binding:"required"`
	Nonce       string `json:"nonce,omitempty"`
}

// SignLeaseRequest represents a request to record a party's signature
type SignLeaseRequest struct {
	Party         string `json:"party" binding:"required,oneof=MANAGER TENANT"`
	SignatureHash string `json:"signature_hash" binding:"required"`
}

// UpdateLeaseStatusRequest represents a request to move an active lease into
// a terminal state
type UpdateLeaseStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=TERMINATED COMPLETED"`
}

// EnqueueDecisionEventRequest represents a request to queue a decision for
// asynchronous recording
type EnqueueDecisionEventRequest struct {
	EventID string                       `json:"event_id,omitempty"`
	Kind    string                       `json:"kind" binding:"required,oneof=payment_decision voice_authorization"`
	Payment *decision.RecordPaymentInput `json:"payment,omitempty"`
	Voice   *decision.RecordVoiceInput   `json:"voice,omitempty"`
}

// RecordResultResponse represents a confirmed ledger write in API responses
type RecordResultResponse struct {
	ID              string `json:"id"`
	TransactionHash string `json:"transaction_hash"`
	Timestamp       string `json:"timestamp"`
}

// DecisionResponse represents a payment decision in API responses
type DecisionResponse struct {
	DecisionID      string `json:"decision_id"`
	Tenant          string `json:"tenant"`
	Landlord        string `json:"landlord"`
	Amount          string `json:"amount"`
	Approved        bool   `json:"approved"`
	ConfidenceScore int    `json:"confidence_score"`
	Reasoning       string `json:"reasoning"`
	Timestamp       string `json:"timestamp"`
	Executed        bool   `json:"executed"`
	ExecutionTxRef  string `json:"execution_tx_ref,omitempty"`
	TransactionHash string `json:"transaction_hash"`
}

// VoiceAuthorizationResponse represents a voice authorization in API responses
type VoiceAuthorizationResponse struct {
	AuthID          string `json:"auth_id"`
	User            string `json:"user"`
	CommandType     string `json:"command_type"`
	Command         string `json:"command"`
	Authorized      bool   `json:"authorized"`
	Timestamp       string `json:"timestamp"`
	TransactionHash string `json:"transaction_hash"`
}

// LeaseResponse represents a lease agreement in API responses
type LeaseResponse struct {
	LeaseID          string `json:"lease_id"`
	LeaseHash        string `json:"lease_hash"`
	Manager          string `json:"manager"`
	Tenant           string `json:"tenant"`
	MonthlyRent      string `json:"monthly_rent"`
	Deposit          string `json:"deposit"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	ManagerSigned    bool   `json:"manager_signed"`
	TenantSigned     bool   `json:"tenant_signed"`
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	ActivatedAt      string `json:"activated_at,omitempty"`
	TransactionHash  string `json:"transaction_hash"`
	ManagerSignature string `json:"manager_signature,omitempty"`
	TenantSignature  string `json:"tenant_signature,omitempty"`
}

// CountResponse represents the running decision total in API responses
type CountResponse struct {
	Total int64 `json:"total"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
