package claims

import "context"

// Query projections over the claim store. Everything here is recomputed per
// call from the repository, never cached.

// ClaimsByHospital returns all claims submitted by one hospital, newest first.
func (s *Service) ClaimsByHospital(ctx context.Context, hospitalID string) ([]*Claim, error) {
	return s.repo.ListByHospital(ctx, hospitalID)
}

// InsuranceWorklist returns every claim visible to insurance reviewers.
func (s *Service) InsuranceWorklist(ctx context.Context) ([]*Claim, error) {
	return s.repo.ListByStatus(ctx,
		StatusSentToInsurance, StatusInsuranceReview, StatusApproved, StatusDenied, StatusFlagged)
}

// FlaggedClaims returns claims needing fraud attention: flagged or in
// review, plus anything whose score crossed the flag threshold regardless
// of state.
func (s *Service) FlaggedClaims(ctx context.Context) ([]*Claim, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*Claim
	for _, c := range all {
		if c.Status == StatusFlagged || c.Status == StatusInsuranceReview ||
			(c.FraudScore != nil && *c.FraudScore > flagThreshold) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Stats computes the dashboard aggregates over all claims.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{ByStatus: make(map[ClaimStatus]int)}
	var scoreSum int
	for _, c := range all {
		st.Total++
		st.ByStatus[c.Status]++
		st.TotalClaimValue += c.ClaimAmount
		if c.Status == StatusFlagged {
			st.FlaggedCount++
		}
		if c.FraudScore != nil {
			st.ScoredClaims++
			scoreSum += *c.FraudScore
		}
	}
	if st.ScoredClaims > 0 {
		st.AverageScore = float64(scoreSum) / float64(st.ScoredClaims)
	}
	return st, nil
}
