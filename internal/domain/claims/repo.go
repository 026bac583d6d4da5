package claims

import "context"

// ClaimRepository is the durable claim store. Every read returns the current
// persisted state; callers must not cache claims across mutations.
type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id string) (*Claim, error)
	Update(ctx context.Context, c *Claim) error
	List(ctx context.Context) ([]*Claim, error)
	ListByHospital(ctx context.Context, hospitalID string) ([]*Claim, error)
	ListByStatus(ctx context.Context, statuses ...ClaimStatus) ([]*Claim, error)
	// NextSequence hands out the next claim number for the given year.
	NextSequence(ctx context.Context, year int) (int, error)
}

// AuditRepository is the append-only audit log. Append assigns the entry's
// Seq; existing entries are never modified or deleted.
type AuditRepository interface {
	Append(ctx context.Context, e *AuditLogEntry) error
	ListByClaim(ctx context.Context, claimID string) ([]*AuditLogEntry, error)
	List(ctx context.Context) ([]*AuditLogEntry, error)
}

// AnalysisQueue accepts claim ids for background fraud analysis. Enqueue
// must not block; it reports whether the claim was accepted.
type AnalysisQueue interface {
	Enqueue(claimID string) bool
}
