package score

import (
	"fmt"
	"testing"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

func failed(severity domain.Severity, pillar string) domain.Finding {
	return domain.Finding{
		RuleID:      "r-" + string(severity),
		FrameworkID: "baseline",
		PillarID:    pillar,
		Severity:    severity,
		Status:      domain.FindingFailed,
		Remediation: domain.Remediation{Description: "fix " + string(severity)},
		Confidence:  1,
	}
}

func repeat(n int, severity domain.Severity, pillar string) []domain.Finding {
	out := make([]domain.Finding, 0, n)
	for i := 0; i < n; i++ {
		f := failed(severity, pillar)
		f.Remediation.Description = fmt.Sprintf("fix %s #%d", severity, i)
		out = append(out, f)
	}
	return out
}

func TestAggregate_EmptyFindings(t *testing.T) {
	summary := NewAggregator(nil).Aggregate(nil)

	assert.Equal(t, 0, summary.TotalFindings)
	assert.Equal(t, 100, summary.OverallScore)
	assert.Equal(t, domain.RiskLow, summary.RiskLevel)
	assert.Empty(t, summary.Recommendations.Immediate)
	assert.Empty(t, summary.PillarScores)
}

func TestAggregate_RiskLadder(t *testing.T) {
	tests := []struct {
		name     string
		findings []domain.Finding
		want     domain.RiskLevel
	}{
		{"one critical", repeat(1, domain.SeverityCritical, "security"), domain.RiskCritical},
		{"five highs", repeat(5, domain.SeverityHigh, "security"), domain.RiskHigh},
		{"four highs", repeat(4, domain.SeverityHigh, "security"), domain.RiskMedium},
		{"one high", repeat(1, domain.SeverityHigh, "security"), domain.RiskMedium},
		{"ten mediums", repeat(10, domain.SeverityMedium, "cost"), domain.RiskMedium},
		{"nine mediums", repeat(9, domain.SeverityMedium, "cost"), domain.RiskLow},
		{"three lows", repeat(3, domain.SeverityLow, "ops"), domain.RiskLow},
		{"critical beats volume of highs", append(repeat(7, domain.SeverityHigh, "a"), failed(domain.SeverityCritical, "b")), domain.RiskCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := NewAggregator(nil).Aggregate(tt.findings)
			assert.Equal(t, tt.want, summary.RiskLevel)
		})
	}
}

func TestAggregate_PillarPenalties(t *testing.T) {
	findings := []domain.Finding{
		failed(domain.SeverityCritical, "security"), // -25
		failed(domain.SeverityHigh, "security"),     // -10
		failed(domain.SeverityMedium, "cost"),       // -5
		failed(domain.SeverityInfo, "cost"),         // -1
	}

	summary := NewAggregator(nil).Aggregate(findings)

	assert.Equal(t, float64(65), summary.PillarScores["security"])
	assert.Equal(t, float64(94), summary.PillarScores["cost"])
	// mean(65, 94) = 79.5 rounds up
	assert.Equal(t, 80, summary.OverallScore)
	assert.Equal(t, 4, summary.TotalFindings)
	assert.Equal(t, 2, summary.FindingsByPillar["security"])
	assert.Equal(t, 4, summary.FindingsByFramework["baseline"])
}

func TestAggregate_ScoreFloorsAtZero(t *testing.T) {
	summary := NewAggregator(nil).Aggregate(repeat(6, domain.SeverityCritical, "security"))

	assert.Equal(t, float64(0), summary.PillarScores["security"])
	assert.Equal(t, 0, summary.OverallScore)
}

func TestAggregate_ScoreBounds(t *testing.T) {
	mixed := append(repeat(13, domain.SeverityHigh, "security"), repeat(4, domain.SeverityLow, "ops")...)
	mixed = append(mixed, repeat(2, domain.SeverityCritical, "cost")...)

	summary := NewAggregator(nil).Aggregate(mixed)

	for pillar, score := range summary.PillarScores {
		assert.GreaterOrEqual(t, score, float64(0), pillar)
		assert.LessOrEqual(t, score, float64(100), pillar)
	}
	assert.GreaterOrEqual(t, summary.OverallScore, 0)
	assert.LessOrEqual(t, summary.OverallScore, 100)
}

func TestAggregate_RecommendationBuckets(t *testing.T) {
	findings := repeat(5, domain.SeverityCritical, "security")
	findings = append(findings, repeat(7, domain.SeverityHigh, "security")...)
	findings = append(findings, repeat(6, domain.SeverityMedium, "cost")...)
	findings = append(findings, repeat(2, domain.SeverityLow, "ops")...)

	recs := NewAggregator(nil).Aggregate(findings).Recommendations

	assert.Equal(t, []string{"fix CRITICAL #0", "fix CRITICAL #1", "fix CRITICAL #2"}, recs.Immediate)
	assert.Len(t, recs.ShortTerm, 5)
	assert.Equal(t, "fix HIGH #0", recs.ShortTerm[0])
	assert.Len(t, recs.LongTerm, 5)
	assert.Equal(t, "fix MEDIUM #4", recs.LongTerm[4])
}

func TestAggregate_WarningsCountButDoNotPenalize(t *testing.T) {
	warning := failed(domain.SeverityHigh, "security")
	warning.Status = domain.FindingWarning

	summary := NewAggregator(nil).Aggregate([]domain.Finding{warning})

	assert.Equal(t, 1, summary.TotalFindings)
	assert.Equal(t, 1, summary.FindingsBySeverity[domain.SeverityHigh])
	assert.Equal(t, float64(100), summary.PillarScores["security"])
	assert.Equal(t, domain.RiskLow, summary.RiskLevel)
	assert.Empty(t, summary.Recommendations.ShortTerm)
}

func TestAggregate_CustomWeights(t *testing.T) {
	weights := map[domain.Severity]int{domain.SeverityHigh: 50}

	summary := NewAggregator(weights).Aggregate(repeat(1, domain.SeverityHigh, "security"))

	assert.Equal(t, float64(50), summary.PillarScores["security"])
}
