package fraud

import (
	"context"
	"strings"
	"time"

	"github.com/gurugsv7/frauddetection/internal/domain/claims"
)

// Analyzer scores a claim for fraud risk. Implementations never return an
// error; any failure is absorbed into the safe default result so analysis
// can never block or fail a submission.
type Analyzer interface {
	Analyze(ctx context.Context, c *claims.Claim) claims.AnalysisResult
}

// DefaultResult is the score recorded when analysis is unavailable. The
// claim still enters the review queue; it is just unscored.
func DefaultResult() claims.AnalysisResult {
	return claims.AnalysisResult{
		Score:        0,
		RiskLevel:    claims.RiskLow,
		Flags:        []string{},
		Explanations: []string{"analysis unavailable"},
	}
}

// RecentClaimFinder checks the store for a similar claim filed recently.
// Optional; a nil finder disables the proximity signal.
type RecentClaimFinder interface {
	HasRecentSimilar(ctx context.Context, c *claims.Claim, window time.Duration) (bool, error)
}

const (
	highAmountThreshold = 20000
	recentClaimWindow   = 30 * 24 * time.Hour
)

// diagnosisRisk lists high-risk diagnosis code prefixes and their weights,
// in evaluation order.
var diagnosisRisk = []struct {
	prefix string
	weight int
}{
	{"K35", 25}, // appendectomy: elevated fraud rate in recent data
}

// identityWatchlist holds name patterns seen repeatedly in fraudulent
// submissions.
var identityWatchlist = map[string]bool{
	"john smith": true,
}

// providerWatchlist holds provider ids with elevated risk scores.
var providerWatchlist = map[string]bool{
	"PRV-9931": true,
	"PRV-4417": true,
}

// RuleEngine is the deterministic analyzer: a fixed set of weighted signals
// evaluated in a fixed order. Same claim in, same result out.
type RuleEngine struct {
	recent RecentClaimFinder
}

func NewRuleEngine(recent RecentClaimFinder) *RuleEngine {
	return &RuleEngine{recent: recent}
}

func (e *RuleEngine) Analyze(ctx context.Context, c *claims.Claim) claims.AnalysisResult {
	score := 0
	flags := []string{}
	explanations := []string{}

	add := func(weight int, flag, explanation string) {
		score += weight
		flags = append(flags, flag)
		explanations = append(explanations, explanation)
	}

	if c.ClaimAmount > highAmountThreshold {
		add(30, "High claim amount", "Claim amount exceeds typical range for this procedure type")
	}

	for _, d := range diagnosisRisk {
		if strings.HasPrefix(c.Treatment.DiagnosisCode, d.prefix) {
			add(d.weight, "High-risk procedure category", "Procedures in this diagnosis category have higher fraud rates in recent data")
			break
		}
	}

	name := strings.ToLower(strings.TrimSpace(c.Patient.FirstName + " " + c.Patient.LastName))
	if identityWatchlist[name] {
		add(40, "Common identity pattern", "Patient name matches frequently flagged identity patterns")
	}

	if providerWatchlist[c.Treatment.ProviderID] {
		add(10, "Provider risk indicator", "Provider has elevated risk score")
	}

	if e.recent != nil {
		found, err := e.recent.HasRecentSimilar(ctx, c, recentClaimWindow)
		if err == nil && found {
			add(20, "Recent similar claim", "Similar claim submitted within 30 days")
		}
	}

	score = claims.ClampScore(score)
	return claims.AnalysisResult{
		Score:        score,
		RiskLevel:    claims.RiskLevelForScore(score),
		Flags:        flags,
		Explanations: explanations,
	}
}

// StoreRecentClaimFinder implements RecentClaimFinder over the claim store:
// a similar claim is one with the same insurance id and procedure code
// submitted inside the window.
type StoreRecentClaimFinder struct {
	repo claims.ClaimRepository
}

func NewStoreRecentClaimFinder(repo claims.ClaimRepository) *StoreRecentClaimFinder {
	return &StoreRecentClaimFinder{repo: repo}
}

func (f *StoreRecentClaimFinder) HasRecentSimilar(ctx context.Context, c *claims.Claim, window time.Duration) (bool, error) {
	cutoff := c.SubmissionDate.Add(-window)
	all, err := f.repo.List(ctx)
	if err != nil {
		return false, err
	}
	for _, other := range all {
		if other.ID == c.ID {
			continue
		}
		if other.Patient.InsuranceID == c.Patient.InsuranceID &&
			other.Treatment.ProcedureCode == c.Treatment.ProcedureCode &&
			other.SubmissionDate.After(cutoff) {
			return true, nil
		}
	}
	return false, nil
}
