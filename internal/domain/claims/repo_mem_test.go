package claims

import (
	"context"
	"errors"
	"testing"
	"time"
)

func storedClaim(id, hospitalID string, status ClaimStatus, submitted time.Time) *Claim {
	return &Claim{
		ID:             id,
		HospitalID:     hospitalID,
		Status:         status,
		SubmissionDate: submitted,
	}
}

func TestInMemoryClaimRepo_NewestFirst(t *testing.T) {
	repo := NewInMemoryClaimRepo()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = repo.Create(ctx, storedClaim("CLM-2026-001", "H1", StatusSentToInsurance, now.Add(-2*time.Hour)))
	_ = repo.Create(ctx, storedClaim("CLM-2026-002", "H1", StatusApproved, now.Add(-time.Hour)))
	_ = repo.Create(ctx, storedClaim("CLM-2026-003", "H2", StatusFlagged, now))

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "CLM-2026-003" || all[2].ID != "CLM-2026-001" {
		t.Errorf("expected newest-first order, got %v", []string{all[0].ID, all[1].ID, all[2].ID})
	}

	byHospital, _ := repo.ListByHospital(ctx, "H1")
	if len(byHospital) != 2 {
		t.Errorf("expected 2 claims for H1, got %d", len(byHospital))
	}

	byStatus, _ := repo.ListByStatus(ctx, StatusApproved, StatusFlagged)
	if len(byStatus) != 2 {
		t.Errorf("expected 2 adjudicated/flagged claims, got %d", len(byStatus))
	}
}

func TestInMemoryClaimRepo_GetReturnsCopy(t *testing.T) {
	repo := NewInMemoryClaimRepo()
	ctx := context.Background()
	_ = repo.Create(ctx, storedClaim("CLM-2026-001", "H1", StatusSentToInsurance, time.Now()))

	a, _ := repo.GetByID(ctx, "CLM-2026-001")
	a.Status = StatusApproved

	b, _ := repo.GetByID(ctx, "CLM-2026-001")
	if b.Status != StatusSentToInsurance {
		t.Error("mutating a fetched claim must not affect the store")
	}
}

func TestInMemoryClaimRepo_NotFound(t *testing.T) {
	repo := NewInMemoryClaimRepo()
	ctx := context.Background()

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from Get, got %v", err)
	}
	if err := repo.Update(ctx, storedClaim("missing", "H1", StatusApproved, time.Now())); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound from Update, got %v", err)
	}
}

func TestInMemoryClaimRepo_NextSequence(t *testing.T) {
	repo := NewInMemoryClaimRepo()
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		got, err := repo.NextSequence(ctx, 2026)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected seq %d, got %d", want, got)
		}
	}
	// each year counts independently
	got, _ := repo.NextSequence(ctx, 2027)
	if got != 1 {
		t.Errorf("expected new year to start at 1, got %d", got)
	}
}

func TestInMemoryAuditRepo_AppendOnlyOrder(t *testing.T) {
	repo := NewInMemoryAuditRepo()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		e := &AuditLogEntry{ClaimID: "CLM-2026-001", UserID: "u", UserName: "User", Action: ActionStatusUpdated, Details: "d"}
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if e.Seq != int64(i+1) {
			t.Errorf("expected seq %d assigned, got %d", i+1, e.Seq)
		}
		if e.ID.String() == "00000000-0000-0000-0000-000000000000" {
			t.Error("expected an id assigned")
		}
	}

	entries, err := repo.ListByClaim(ctx, "CLM-2026-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 || entries[0].Seq != 3 || entries[2].Seq != 1 {
		t.Errorf("expected newest-first by seq, got %+v", entries)
	}
}
