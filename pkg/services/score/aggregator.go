package score

import (
	"math"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// DefaultWeights is the additive penalty each failed finding deducts from
// its pillar's score.
var DefaultWeights = map[domain.Severity]int{
	domain.SeverityCritical: 25,
	domain.SeverityHigh:     10,
	domain.SeverityMedium:   5,
	domain.SeverityLow:      2,
	domain.SeverityInfo:     1,
}

const (
	immediateLimit = 3
	shortTermLimit = 5
	longTermLimit  = 5
)

// Aggregator folds the findings of a whole run into the tenant-facing
// summary. Unlike the evaluator's per-framework pass ratio, this is a
// penalty model: each failed finding deducts its severity weight from its
// pillar, floored at zero.
type Aggregator interface {
	Aggregate(findings []domain.Finding) domain.AnalysisSummary
}

type aggregator struct {
	weights map[domain.Severity]int
}

func NewAggregator(weights map[domain.Severity]int) Aggregator {
	if len(weights) == 0 {
		weights = DefaultWeights
	}
	return &aggregator{weights: weights}
}

func (a *aggregator) Aggregate(findings []domain.Finding) domain.AnalysisSummary {
	summary := domain.AnalysisSummary{
		TotalFindings:       len(findings),
		FindingsBySeverity:  map[domain.Severity]int{},
		FindingsByPillar:    map[string]int{},
		FindingsByFramework: map[string]int{},
		PillarScores:        map[string]float64{},
	}

	penalties := map[string]int{}
	failedBySeverity := map[domain.Severity]int{}

	for _, f := range findings {
		summary.FindingsBySeverity[f.Severity]++
		if f.PillarID != "" {
			summary.FindingsByPillar[f.PillarID]++
		}
		if f.FrameworkID != "" {
			summary.FindingsByFramework[f.FrameworkID]++
		}
		// Warnings and recorded passes count above but carry no penalty.
		if f.Status != domain.FindingFailed {
			continue
		}
		failedBySeverity[f.Severity]++
		if f.PillarID != "" {
			penalties[f.PillarID] += a.weights[f.Severity]
		}
	}

	for pillar := range summary.FindingsByPillar {
		score := 100 - float64(penalties[pillar])
		if score < 0 {
			score = 0
		}
		summary.PillarScores[pillar] = score
	}

	summary.OverallScore = overallScore(summary.PillarScores)
	summary.RiskLevel = riskLevel(failedBySeverity)
	summary.Recommendations = recommendations(findings)
	return summary
}

// overallScore is the rounded mean across pillars; with no pillars there
// is nothing to deduct from.
func overallScore(pillarScores map[string]float64) int {
	if len(pillarScores) == 0 {
		return 100
	}
	var sum float64
	for _, s := range pillarScores {
		sum += s
	}
	return int(math.Round(sum / float64(len(pillarScores))))
}

// riskLevel applies the fixed threshold ladder over failed findings: any
// CRITICAL wins, five HIGHs make HIGH, a single HIGH or ten MEDIUMs make
// MEDIUM, everything else is LOW.
func riskLevel(failed map[domain.Severity]int) domain.RiskLevel {
	switch {
	case failed[domain.SeverityCritical] > 0:
		return domain.RiskCritical
	case failed[domain.SeverityHigh] >= 5:
		return domain.RiskHigh
	case failed[domain.SeverityHigh] >= 1 || failed[domain.SeverityMedium] >= 10:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// recommendations buckets remediation guidance by urgency, preserving
// finding order within each bucket.
func recommendations(findings []domain.Finding) domain.Recommendations {
	var recs domain.Recommendations
	for _, f := range findings {
		if f.Status != domain.FindingFailed {
			continue
		}
		text := f.Remediation.Description
		if text == "" {
			text = f.Message
		}
		if text == "" {
			continue
		}
		switch f.Severity {
		case domain.SeverityCritical:
			if len(recs.Immediate) < immediateLimit {
				recs.Immediate = append(recs.Immediate, text)
			}
		case domain.SeverityHigh:
			if len(recs.ShortTerm) < shortTermLimit {
				recs.ShortTerm = append(recs.ShortTerm, text)
			}
		case domain.SeverityMedium:
			if len(recs.LongTerm) < longTermLimit {
				recs.LongTerm = append(recs.LongTerm, text)
			}
		}
	}
	return recs
}
