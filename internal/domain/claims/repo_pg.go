package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// claimRepoPG stores claims in a flattened claims table. Documents are kept
// as a jsonb column since they are only ever read back whole.
type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

const claimCols = `id, hospital_id, hospital_name,
	patient_first_name, patient_last_name, patient_dob, patient_insurance_id, patient_phone, patient_address,
	treatment_description, diagnosis_code, procedure_code, treatment_date, provider_id,
	claim_amount, documents, status,
	fraud_score, fraud_flags, fraud_reasons, risk_level,
	review_notes, reviewed_by, reviewed_at,
	hospital_review_notes, hospital_reviewed_by, hospital_reviewed_at,
	submission_date, sent_to_insurance_at, updated_at`

func scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	var docs []byte
	var riskLevel *string
	err := row.Scan(&c.ID, &c.HospitalID, &c.HospitalName,
		&c.Patient.FirstName, &c.Patient.LastName, &c.Patient.DateOfBirth, &c.Patient.InsuranceID, &c.Patient.PhoneNumber, &c.Patient.Address,
		&c.Treatment.Description, &c.Treatment.DiagnosisCode, &c.Treatment.ProcedureCode, &c.Treatment.TreatmentDate, &c.Treatment.ProviderID,
		&c.ClaimAmount, &docs, &c.Status,
		&c.FraudScore, &c.FraudFlags, &c.FraudReasons, &riskLevel,
		&c.ReviewNotes, &c.ReviewedBy, &c.ReviewedAt,
		&c.HospitalReviewNotes, &c.HospitalReviewedBy, &c.HospitalReviewedAt,
		&c.SubmissionDate, &c.SentToInsuranceAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if riskLevel != nil {
		c.RiskLevel = RiskLevel(*riskLevel)
	}
	if len(docs) > 0 {
		if err := json.Unmarshal(docs, &c.Documents); err != nil {
			return nil, fmt.Errorf("decoding documents for claim %s: %w", c.ID, err)
		}
	}
	return &c, nil
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	docs, err := json.Marshal(c.Documents)
	if err != nil {
		return fmt.Errorf("encoding documents: %w", err)
	}
	var riskLevel *string
	if c.RiskLevel != "" {
		s := string(c.RiskLevel)
		riskLevel = &s
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO claims (id, hospital_id, hospital_name,
			patient_first_name, patient_last_name, patient_dob, patient_insurance_id, patient_phone, patient_address,
			treatment_description, diagnosis_code, procedure_code, treatment_date, provider_id,
			claim_amount, documents, status,
			fraud_score, fraud_flags, fraud_reasons, risk_level,
			review_notes, reviewed_by, reviewed_at,
			hospital_review_notes, hospital_reviewed_by, hospital_reviewed_at,
			submission_date, sent_to_insurance_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29)`,
		c.ID, c.HospitalID, c.HospitalName,
		c.Patient.FirstName, c.Patient.LastName, c.Patient.DateOfBirth, c.Patient.InsuranceID, c.Patient.PhoneNumber, c.Patient.Address,
		c.Treatment.Description, c.Treatment.DiagnosisCode, c.Treatment.ProcedureCode, c.Treatment.TreatmentDate, c.Treatment.ProviderID,
		c.ClaimAmount, docs, c.Status,
		c.FraudScore, c.FraudFlags, c.FraudReasons, riskLevel,
		c.ReviewNotes, c.ReviewedBy, c.ReviewedAt,
		c.HospitalReviewNotes, c.HospitalReviewedBy, c.HospitalReviewedAt,
		c.SubmissionDate, c.SentToInsuranceAt)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id string) (*Claim, error) {
	return scanClaim(r.pool.QueryRow(ctx, `SELECT `+claimCols+` FROM claims WHERE id = $1`, id))
}

func (r *claimRepoPG) Update(ctx context.Context, c *Claim) error {
	var riskLevel *string
	if c.RiskLevel != "" {
		s := string(c.RiskLevel)
		riskLevel = &s
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE claims SET status=$2,
			fraud_score=$3, fraud_flags=$4, fraud_reasons=$5, risk_level=$6,
			review_notes=$7, reviewed_by=$8, reviewed_at=$9,
			hospital_review_notes=$10, hospital_reviewed_by=$11, hospital_reviewed_at=$12,
			sent_to_insurance_at=$13, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.Status,
		c.FraudScore, c.FraudFlags, c.FraudReasons, riskLevel,
		c.ReviewNotes, c.ReviewedBy, c.ReviewedAt,
		c.HospitalReviewNotes, c.HospitalReviewedBy, c.HospitalReviewedAt,
		c.SentToInsuranceAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *claimRepoPG) List(ctx context.Context) ([]*Claim, error) {
	return r.queryClaims(ctx, `SELECT `+claimCols+` FROM claims ORDER BY submission_date DESC`)
}

func (r *claimRepoPG) ListByHospital(ctx context.Context, hospitalID string) ([]*Claim, error) {
	return r.queryClaims(ctx, `SELECT `+claimCols+` FROM claims WHERE hospital_id = $1 ORDER BY submission_date DESC`, hospitalID)
}

func (r *claimRepoPG) ListByStatus(ctx context.Context, statuses ...ClaimStatus) ([]*Claim, error) {
	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}
	return r.queryClaims(ctx, `SELECT `+claimCols+` FROM claims WHERE status = ANY($1) ORDER BY submission_date DESC`, vals)
}

func (r *claimRepoPG) queryClaims(ctx context.Context, sql string, args ...interface{}) ([]*Claim, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// NextSequence allocates the next per-year claim number via an upsert, so
// concurrent submitters never receive the same number.
func (r *claimRepoPG) NextSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := r.pool.QueryRow(ctx, `
		INSERT INTO claim_sequences (year, seq) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET seq = claim_sequences.seq + 1
		RETURNING seq`, year).Scan(&seq)
	return seq, err
}

// auditRepoPG stores audit entries in an append-only table. The BIGSERIAL
// seq column is the total order of the log.
type auditRepoPG struct{ pool *pgxpool.Pool }

func NewAuditRepoPG(pool *pgxpool.Pool) AuditRepository { return &auditRepoPG{pool: pool} }

const auditCols = `id, seq, claim_id, user_id, user_name, action, details, timestamp`

func scanAudit(row pgx.Row) (*AuditLogEntry, error) {
	var e AuditLogEntry
	err := row.Scan(&e.ID, &e.Seq, &e.ClaimID, &e.UserID, &e.UserName, &e.Action, &e.Details, &e.Timestamp)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *auditRepoPG) Append(ctx context.Context, e *AuditLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO audit_log (id, claim_id, user_id, user_name, action, details)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING seq, timestamp`,
		e.ID, e.ClaimID, e.UserID, e.UserName, e.Action, e.Details).Scan(&e.Seq, &e.Timestamp)
}

func (r *auditRepoPG) ListByClaim(ctx context.Context, claimID string) ([]*AuditLogEntry, error) {
	return r.queryAudit(ctx, `SELECT `+auditCols+` FROM audit_log WHERE claim_id = $1 ORDER BY seq DESC`, claimID)
}

func (r *auditRepoPG) List(ctx context.Context) ([]*AuditLogEntry, error) {
	return r.queryAudit(ctx, `SELECT `+auditCols+` FROM audit_log ORDER BY seq DESC`)
}

func (r *auditRepoPG) queryAudit(ctx context.Context, sql string, args ...interface{}) ([]*AuditLogEntry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*AuditLogEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
