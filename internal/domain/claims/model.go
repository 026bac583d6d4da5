package claims

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	StatusSubmitted       ClaimStatus = "submitted"
	StatusHospitalReview  ClaimStatus = "hospital_review"
	StatusSentToInsurance ClaimStatus = "sent_to_insurance"
	StatusInsuranceReview ClaimStatus = "insurance_review"
	StatusApproved        ClaimStatus = "approved"
	StatusDenied          ClaimStatus = "denied"
	StatusFlagged         ClaimStatus = "flagged"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusDenied
}

// RiskLevel buckets a fraud score for reviewers.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// flagThreshold is the fraud score above which a claim is routed straight
// to the flagged queue instead of the regular review worklist.
const flagThreshold = 70

// RiskLevelForScore maps a fraud score to its risk bucket.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score > 70:
		return RiskHigh
	case score > 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ClampScore bounds a fraud score to [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Patient holds the insured party's identity as submitted by the hospital.
type Patient struct {
	FirstName   string     `db:"patient_first_name" json:"first_name"`
	LastName    string     `db:"patient_last_name" json:"last_name"`
	DateOfBirth *time.Time `db:"patient_dob" json:"date_of_birth,omitempty"`
	InsuranceID string     `db:"patient_insurance_id" json:"insurance_id"`
	PhoneNumber string     `db:"patient_phone" json:"phone_number,omitempty"`
	Address     string     `db:"patient_address" json:"address,omitempty"`
}

// Treatment describes the billed medical event.
type Treatment struct {
	Description   string     `db:"treatment_description" json:"description"`
	DiagnosisCode string     `db:"diagnosis_code" json:"diagnosis_code"`
	ProcedureCode string     `db:"procedure_code" json:"procedure_code"`
	TreatmentDate *time.Time `db:"treatment_date" json:"treatment_date,omitempty"`
	ProviderID    string     `db:"provider_id" json:"provider_id"`
}

// Document is a supporting attachment reference (the file itself lives in
// external storage; only the pointer is kept here).
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"` // bill, prescription, discharge, other
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Claim is the aggregate routed through the lifecycle. Submission facts
// (hospital, patient, treatment, amount, documents) are immutable after
// SubmitClaim; everything else is adjudication state.
type Claim struct {
	ID           string      `db:"id" json:"id"`
	HospitalID   string      `db:"hospital_id" json:"hospital_id"`
	HospitalName string      `db:"hospital_name" json:"hospital_name"`
	Patient      Patient     `json:"patient"`
	Treatment    Treatment   `json:"treatment"`
	ClaimAmount  float64     `db:"claim_amount" json:"claim_amount"`
	Documents    []Document  `db:"documents" json:"documents"`
	Status       ClaimStatus `db:"status" json:"status"`

	FraudScore   *int      `db:"fraud_score" json:"fraud_score,omitempty"`
	FraudFlags   []string  `db:"fraud_flags" json:"fraud_flags,omitempty"`
	FraudReasons []string  `db:"fraud_reasons" json:"fraud_reasons,omitempty"`
	RiskLevel    RiskLevel `db:"risk_level" json:"risk_level,omitempty"`

	ReviewNotes *string    `db:"review_notes" json:"review_notes,omitempty"`
	ReviewedBy  *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`

	HospitalReviewNotes *string    `db:"hospital_review_notes" json:"hospital_review_notes,omitempty"`
	HospitalReviewedBy  *string    `db:"hospital_reviewed_by" json:"hospital_reviewed_by,omitempty"`
	HospitalReviewedAt  *time.Time `db:"hospital_reviewed_at" json:"hospital_reviewed_at,omitempty"`

	SubmissionDate    time.Time  `db:"submission_date" json:"submission_date"`
	SentToInsuranceAt *time.Time `db:"sent_to_insurance_at" json:"sent_to_insurance_at,omitempty"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// FormatClaimID renders the public claim identifier, e.g. CLM-2026-007.
func FormatClaimID(year, seq int) string {
	return fmt.Sprintf("CLM-%d-%03d", year, seq)
}

// AnalysisResult is the outcome of a fraud analysis run against one claim.
type AnalysisResult struct {
	Score        int       `json:"score"`
	RiskLevel    RiskLevel `json:"risk_level"`
	Flags        []string  `json:"flags"`
	Explanations []string  `json:"explanations"`
}

// AuditLogEntry records one successful mutation. Seq is assigned by storage
// and defines the total order of the log; Timestamp is informational only.
type AuditLogEntry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Seq       int64     `db:"seq" json:"seq"`
	ClaimID   string    `db:"claim_id" json:"claim_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	UserName  string    `db:"user_name" json:"user_name"`
	Action    string    `db:"action" json:"action"`
	Details   string    `db:"details" json:"details"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// Audit actions.
const (
	ActionClaimSubmitted  = "CLAIM_SUBMITTED"
	ActionStatusUpdated   = "CLAIM_STATUS_UPDATED"
	ActionAnalysisApplied = "FRAUD_ANALYSIS_APPLIED"
	ActionAnalysisUpdated = "FRAUD_SCORE_UPDATED"
)

// Stats is the dashboard projection over all claims.
type Stats struct {
	Total           int                 `json:"total"`
	ByStatus        map[ClaimStatus]int `json:"by_status"`
	FlaggedCount    int                 `json:"flagged_count"`
	AverageScore    float64             `json:"average_fraud_score"`
	ScoredClaims    int                 `json:"scored_claims"`
	TotalClaimValue float64             `json:"total_claim_value"`
}
