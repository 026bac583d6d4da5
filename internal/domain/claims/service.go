package claims

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gurugsv7/frauddetection/internal/platform/auth"
)

// validTransitions is the lifecycle table. Approve and deny are allowed from
// every reviewable state; flagging (escalation) from any non-terminal state;
// a flagged claim can be sent back to the regular review queue or returned
// to the hospital for correction.
var validTransitions = map[ClaimStatus][]ClaimStatus{
	StatusSubmitted:       {StatusSentToInsurance, StatusFlagged},
	StatusHospitalReview:  {StatusSentToInsurance, StatusFlagged},
	StatusSentToInsurance: {StatusInsuranceReview, StatusApproved, StatusDenied, StatusFlagged},
	StatusInsuranceReview: {StatusApproved, StatusDenied, StatusFlagged},
	StatusFlagged:         {StatusApproved, StatusDenied, StatusInsuranceReview, StatusHospitalReview},
}

func transitionAllowed(from, to ClaimStatus) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Service is the claim lifecycle manager. All read-modify-write operations
// on a single claim are serialized through a per-claim lock; operations on
// different claims proceed independently.
type Service struct {
	repo   ClaimRepository
	audit  AuditRepository
	queue  AnalysisQueue
	logger zerolog.Logger

	locks sync.Map // claim id -> *sync.Mutex
}

func NewService(repo ClaimRepository, audit AuditRepository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// SetAnalysisQueue attaches the background analysis queue. Wired after
// construction because the scheduler needs the service first.
func (s *Service) SetAnalysisQueue(q AnalysisQueue) {
	s.queue = q
}

func (s *Service) lock(id string) func() {
	m, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// ClaimDraft carries the hospital's submission. Identity, status, and
// timestamps are assigned by the service.
type ClaimDraft struct {
	HospitalID   string     `json:"hospital_id"`
	HospitalName string     `json:"hospital_name"`
	Patient      Patient    `json:"patient"`
	Treatment    Treatment  `json:"treatment"`
	ClaimAmount  float64    `json:"claim_amount"`
	Documents    []Document `json:"documents"`
}

func (d *ClaimDraft) validate() error {
	switch {
	case strings.TrimSpace(d.HospitalID) == "":
		return &ValidationError{Field: "hospital_id", Msg: "required"}
	case strings.TrimSpace(d.Patient.FirstName) == "":
		return &ValidationError{Field: "patient.first_name", Msg: "required"}
	case strings.TrimSpace(d.Patient.LastName) == "":
		return &ValidationError{Field: "patient.last_name", Msg: "required"}
	case strings.TrimSpace(d.Patient.InsuranceID) == "":
		return &ValidationError{Field: "patient.insurance_id", Msg: "required"}
	case strings.TrimSpace(d.Treatment.Description) == "":
		return &ValidationError{Field: "treatment.description", Msg: "required"}
	case strings.TrimSpace(d.Treatment.DiagnosisCode) == "":
		return &ValidationError{Field: "treatment.diagnosis_code", Msg: "required"}
	case strings.TrimSpace(d.Treatment.ProcedureCode) == "":
		return &ValidationError{Field: "treatment.procedure_code", Msg: "required"}
	case d.ClaimAmount <= 0:
		return &ValidationError{Field: "claim_amount", Msg: "must be positive"}
	}
	return nil
}

// SubmitClaim validates and persists a new claim, forwards it to insurance
// immediately, and enqueues it for fraud analysis. Nothing is persisted when
// validation fails.
func (s *Service) SubmitClaim(ctx context.Context, draft *ClaimDraft, actor auth.Actor) (*Claim, error) {
	if err := draft.validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	seq, err := s.repo.NextSequence(ctx, now.Year())
	if err != nil {
		return nil, fmt.Errorf("allocating claim number: %w", err)
	}

	c := &Claim{
		ID:                FormatClaimID(now.Year(), seq),
		HospitalID:        draft.HospitalID,
		HospitalName:      draft.HospitalName,
		Patient:           draft.Patient,
		Treatment:         draft.Treatment,
		ClaimAmount:       draft.ClaimAmount,
		Documents:         draft.Documents,
		Status:            StatusSentToInsurance,
		SubmissionDate:    now,
		SentToInsuranceAt: &now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("persisting claim %s: %w", c.ID, err)
	}

	s.appendAudit(ctx, actor, ActionClaimSubmitted, c.ID,
		fmt.Sprintf("Submitted claim %s for patient %s %s", c.ID, c.Patient.FirstName, c.Patient.LastName))

	if s.queue != nil {
		if !s.queue.Enqueue(c.ID) {
			s.logger.Warn().Str("claim_id", c.ID).Msg("analysis queue full, claim left unscored")
		}
	}
	return c, nil
}

// ApplyAnalysis folds a fraud analysis result into a claim. Human decisions
// always win: the result only routes the claim out of sent_to_insurance; in
// insurance_review it refreshes the score without moving the claim; in every
// other state it is discarded without a write. Applying the same result
// twice is a no-op the second time.
func (s *Service) ApplyAnalysis(ctx context.Context, id string, result AnalysisResult) error {
	unlock := s.lock(id)
	defer unlock()

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	score := ClampScore(result.Score)

	switch c.Status {
	case StatusSentToInsurance:
		c.FraudScore = &score
		c.FraudFlags = result.Flags
		c.FraudReasons = result.Explanations
		c.RiskLevel = RiskLevelForScore(score)
		if score > flagThreshold {
			c.Status = StatusFlagged
		} else {
			c.Status = StatusInsuranceReview
		}
		if err := s.repo.Update(ctx, c); err != nil {
			return fmt.Errorf("applying analysis to claim %s: %w", id, err)
		}
		s.appendAudit(ctx, auth.Actor{ID: "fraud-engine", Name: "Fraud Analysis Engine"}, ActionAnalysisApplied, id,
			fmt.Sprintf("Scored claim %s at %d (%s risk), routed to %s", id, score, c.RiskLevel, c.Status))
		return nil

	case StatusInsuranceReview:
		// Re-score while under review: refresh the numbers, keep the state.
		// An identical result changes nothing and leaves no audit entry.
		if sameAnalysis(c, score, result) {
			return nil
		}
		c.FraudScore = &score
		c.FraudFlags = result.Flags
		c.FraudReasons = result.Explanations
		c.RiskLevel = RiskLevelForScore(score)
		if err := s.repo.Update(ctx, c); err != nil {
			return fmt.Errorf("updating score for claim %s: %w", id, err)
		}
		s.appendAudit(ctx, auth.Actor{ID: "fraud-engine", Name: "Fraud Analysis Engine"}, ActionAnalysisUpdated, id,
			fmt.Sprintf("Updated fraud score for claim %s to %d (%s risk)", id, score, c.RiskLevel))
		return nil

	default:
		// A human already moved the claim on (or it is flagged); the stale
		// result is dropped without touching the record.
		s.logger.Debug().Str("claim_id", id).Str("status", string(c.Status)).
			Msg("discarding analysis result for adjudicated claim")
		return nil
	}
}

// sameAnalysis reports whether the claim already carries this exact result.
func sameAnalysis(c *Claim, score int, result AnalysisResult) bool {
	if c.FraudScore == nil || *c.FraudScore != score {
		return false
	}
	return equalStrings(c.FraudFlags, result.Flags) && equalStrings(c.FraudReasons, result.Explanations)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// UpdateStatus performs a human adjudication move. Illegal transitions leave
// the claim untouched and return InvalidTransitionError.
func (s *Service) UpdateStatus(ctx context.Context, id string, newStatus ClaimStatus, notes string, actor auth.Actor, hospitalReview bool) (*Claim, error) {
	unlock := s.lock(id)
	defer unlock()

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(c.Status, newStatus) {
		return nil, &InvalidTransitionError{ClaimID: id, From: c.Status, To: newStatus}
	}

	now := time.Now().UTC()
	from := c.Status
	c.Status = newStatus
	if hospitalReview {
		c.HospitalReviewNotes = &notes
		c.HospitalReviewedBy = &actor.Name
		c.HospitalReviewedAt = &now
		if newStatus == StatusSentToInsurance {
			c.SentToInsuranceAt = &now
		}
	} else {
		c.ReviewNotes = &notes
		c.ReviewedBy = &actor.Name
		c.ReviewedAt = &now
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("updating claim %s: %w", id, err)
	}

	s.appendAudit(ctx, actor, ActionStatusUpdated, id,
		fmt.Sprintf("Updated claim %s status from %s to %s", id, from, newStatus))

	// A claim re-sent by the hospital goes back through fraud analysis.
	if newStatus == StatusSentToInsurance && s.queue != nil {
		if !s.queue.Enqueue(id) {
			s.logger.Warn().Str("claim_id", id).Msg("analysis queue full, re-sent claim left unscored")
		}
	}
	return c, nil
}

// Rescore requeues a non-terminal claim for fraud analysis.
func (s *Service) Rescore(ctx context.Context, id string) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Status.IsTerminal() {
		return &InvalidTransitionError{ClaimID: id, From: c.Status, To: c.Status}
	}
	if s.queue == nil || !s.queue.Enqueue(id) {
		return fmt.Errorf("claim %s: analysis queue unavailable", id)
	}
	return nil
}

// GetClaim fetches the current state of one claim.
func (s *Service) GetClaim(ctx context.Context, id string) (*Claim, error) {
	return s.repo.GetByID(ctx, id)
}

// AuditTrail returns the audit entries for one claim, newest first.
func (s *Service) AuditTrail(ctx context.Context, claimID string) ([]*AuditLogEntry, error) {
	if _, err := s.repo.GetByID(ctx, claimID); err != nil {
		return nil, err
	}
	return s.audit.ListByClaim(ctx, claimID)
}

// AuditLog returns the full audit log, newest first.
func (s *Service) AuditLog(ctx context.Context) ([]*AuditLogEntry, error) {
	return s.audit.List(ctx)
}

func (s *Service) appendAudit(ctx context.Context, actor auth.Actor, action, claimID, details string) {
	entry := &AuditLogEntry{
		ClaimID:  claimID,
		UserID:   actor.ID,
		UserName: actor.Name,
		Action:   action,
		Details:  details,
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("claim_id", claimID).Str("action", action).
			Msg("failed to append audit entry")
	}
}
