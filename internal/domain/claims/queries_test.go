package claims

import (
	"context"
	"testing"
)

func TestInsuranceWorklist(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	b, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	c, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	forceStatus(t, svc, b.ID, StatusApproved)
	forceStatus(t, svc, c.ID, StatusHospitalReview)

	items, err := svc.InsuranceWorklist(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := make(map[string]bool)
	for _, item := range items {
		ids[item.ID] = true
	}
	if !ids[a.ID] || !ids[b.ID] {
		t.Errorf("worklist should include pending and adjudicated claims, got %v", ids)
	}
	if ids[c.ID] {
		t.Error("worklist must not include claims back at the hospital")
	}
}

func TestFlaggedClaims(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	flagged, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	_ = svc.ApplyAnalysis(ctx, flagged.ID, AnalysisResult{Score: 85})

	review, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	_ = svc.ApplyAnalysis(ctx, review.ID, AnalysisResult{Score: 30})

	clean, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	forceStatus(t, svc, clean.ID, StatusApproved)

	// an approved claim whose stored score is above the threshold still shows up
	highApproved, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	stored, _ := repo.GetByID(ctx, highApproved.ID)
	score := 90
	stored.FraudScore = &score
	stored.Status = StatusApproved
	if err := repo.Update(ctx, stored); err != nil {
		t.Fatalf("seeding high-score approved claim: %v", err)
	}

	items, err := svc.FlaggedClaims(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := make(map[string]bool)
	for _, item := range items {
		ids[item.ID] = true
	}
	if !ids[flagged.ID] {
		t.Error("flagged claim missing")
	}
	if !ids[review.ID] {
		t.Error("claim under review missing")
	}
	if !ids[highApproved.ID] {
		t.Error("high-score claim missing despite approval")
	}
	if ids[clean.ID] {
		t.Error("clean approved claim must not be listed")
	}
}

func TestClaimsByHospital(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	mine, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	other := validDraft()
	other.HospitalID = "HOSP-002"
	theirs, _ := svc.SubmitClaim(ctx, other, hospitalUser)

	items, err := svc.ClaimsByHospital(ctx, "HOSP-001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != mine.ID {
		t.Errorf("expected only HOSP-001 claims, got %v", items)
	}
	_ = theirs
}

func TestStats(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	_ = svc.ApplyAnalysis(ctx, a.ID, AnalysisResult{Score: 80})

	b, _ := svc.SubmitClaim(ctx, validDraft(), hospitalUser)
	_ = svc.ApplyAnalysis(ctx, b.ID, AnalysisResult{Score: 20})

	_, _ = svc.SubmitClaim(ctx, validDraft(), hospitalUser) // unscored

	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Total != 3 {
		t.Errorf("expected 3 claims, got %d", st.Total)
	}
	if st.FlaggedCount != 1 {
		t.Errorf("expected 1 flagged, got %d", st.FlaggedCount)
	}
	if st.ScoredClaims != 2 {
		t.Errorf("expected 2 scored claims, got %d", st.ScoredClaims)
	}
	if st.AverageScore != 50 {
		t.Errorf("expected mean score 50, got %f", st.AverageScore)
	}
	if st.ByStatus[StatusSentToInsurance] != 1 || st.ByStatus[StatusFlagged] != 1 || st.ByStatus[StatusInsuranceReview] != 1 {
		t.Errorf("unexpected status breakdown: %v", st.ByStatus)
	}
	if st.TotalClaimValue != 1350 {
		t.Errorf("expected total claim value 1350, got %f", st.TotalClaimValue)
	}
}
