package decision

import "time"

// LeaseStatus defines the lease agreement lifecycle states
type LeaseStatus string

const (
	LeaseStatusPending    LeaseStatus = "PENDING"
	LeaseStatusActive     LeaseStatus = "ACTIVE"
	LeaseStatusTerminated LeaseStatus = "TERMINATED"
	LeaseStatusCompleted  LeaseStatus = "COMPLETED"
)

// LeaseParty identifies which side of the agreement is signing
type LeaseParty string

const (
	LeasePartyManager LeaseParty = "MANAGER"
	LeasePartyTenant  LeaseParty = "TENANT"
)

// LeaseAgreement is a recorded lease. LeaseID is caller-chosen (it seeds the
// on-ledger account address) and immutable; signature flags are monotonic per
// party, and the ledger activates the lease once both parties have signed.
type LeaseAgreement struct {
	LeaseID          string      `json:"lease_id" bson:"lease_id"`
	LeaseHash        string      `json:"lease_hash" bson:"lease_hash"` // Hex SHA-256 of the lease terms
	Manager          string      `json:"manager" bson:"manager"`
	Tenant           string      `json:"tenant" bson:"tenant"`
	MonthlyRentUnits uint64      `json:"monthly_rent_units" bson:"monthly_rent_units"`
	DepositUnits     uint64      `json:"deposit_units" bson:"deposit_units"`
	StartDate        time.Time   `json:"start_date" bson:"start_date"`
	EndDate          time.Time   `json:"end_date" bson:"end_date"`
	ManagerSigned    bool        `json:"manager_signed" bson:"manager_signed"`
	TenantSigned     bool        `json:"tenant_signed" bson:"tenant_signed"`
	ManagerSignature string      `json:"manager_signature,omitempty" bson:"manager_signature,omitempty"`
	TenantSignature  string      `json:"tenant_signature,omitempty" bson:"tenant_signature,omitempty"`
	Status           LeaseStatus `json:"status" bson:"status"`
	Timestamp        time.Time   `json:"timestamp" bson:"timestamp"` // Ledger inclusion time
	ActivatedAt      *time.Time  `json:"activated_at,omitempty" bson:"activated_at,omitempty"`
	TransactionHash  string      `json:"transaction_hash" bson:"transaction_hash"`
}

// RecordLeaseInput is the caller-supplied shape for recording a lease
// agreement. MonthlyRent and Deposit are decimal strings like payment
// amounts; StartDate/EndDate are unix seconds.
type RecordLeaseInput struct {
	LeaseID     string `json:"lease_id"`
	LeaseHash   string `json:"lease_hash"`
	Manager     string `json:"manager"`
	Tenant      string `json:"tenant"`
	MonthlyRent string `json:"monthly_rent"`
	Deposit     string `json:"deposit,omitempty"`
	StartDate   int64  `json:"start_date"`
	EndDate     int64  `json:"end_date"`
	Nonce       string `json:"nonce"`
}

// Validate checks ranges and lengths before any ledger interaction
func (in RecordLeaseInput) Validate() error {
	if in.LeaseID == "" {
		return ErrValidation{Field: "lease_id", Reason: "must not be empty"}
	}
	if len(in.LeaseID) > MaxLeaseIDBytes {
		return ErrValidation{Field: "lease_id", Reason: "exceeds ledger storage limit"}
	}
	if in.LeaseHash == "" {
		return ErrValidation{Field: "lease_hash", Reason: "must not be empty"}
	}
	if in.Manager == "" {
		return ErrValidation{Field: "manager", Reason: "must not be empty"}
	}
	if in.Tenant == "" {
		return ErrValidation{Field: "tenant", Reason: "must not be empty"}
	}
	if err := validateDecimalAmount(in.MonthlyRent); err != nil {
		return ErrValidation{Field: "monthly_rent", Reason: "must be a positive decimal"}
	}
	// A zero deposit is legal; only the syntax is checked
	if in.Deposit != "" {
		if err := validateDecimalSyntax(in.Deposit); err != nil {
			return ErrValidation{Field: "deposit", Reason: "malformed decimal"}
		}
	}
	if in.EndDate <= in.StartDate {
		return ErrValidation{Field: "end_date", Reason: "must be after start_date"}
	}
	if in.Nonce == "" {
		return ErrValidation{Field: "nonce", Reason: "must not be empty"}
	}
	return nil
}

// ValidLeaseTransition reports whether a status update is legal. Only
// ACTIVE -> TERMINATED and ACTIVE -> COMPLETED are.
func ValidLeaseTransition(from, to LeaseStatus) bool {
	if from != LeaseStatusActive {
		return false
	}
	return to == LeaseStatusTerminated || to == LeaseStatusCompleted
}

func validateDecimalSyntax(s string) error {
	seenDot, seenDigit := false, false
	for _, r := range s {
		switch {
		case r == '.':
			if seenDot {
				return ErrValidation{Field: "amount", Reason: "malformed decimal"}
			}
			seenDot = true
		case r >= '0' && r <= '9':
			seenDigit = true
		default:
			return ErrValidation{Field: "amount", Reason: "malformed decimal"}
		}
	}
	if !seenDigit {
		return ErrValidation{Field: "amount", Reason: "malformed decimal"}
	}
	return nil
}
