package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

// DegradedConfidence is reported whenever an assessment could not be
// obtained and the fallback policy applied instead.
const DegradedConfidence = 0.2

// DegradedPolicy decides how a custom rule resolves when no provider is
// configured or the provider fails.
type DegradedPolicy string

const (
	// DegradedPass resolves the rule as passed at low confidence. This is
	// the default so a broken reasoning backend cannot flood users with
	// false positives.
	DegradedPass DegradedPolicy = "pass"
	// DegradedWarning surfaces the rule as a WARNING finding instead of a
	// silent pass.
	DegradedWarning DegradedPolicy = "warning"
)

func (p DegradedPolicy) Valid() bool {
	return p == DegradedPass || p == DegradedWarning
}

// Request carries everything a provider may reason over for one rule.
// Logic is the custom-condition instruction text; Excerpt is a size-capped
// prefix of the raw artifact.
type Request struct {
	Rule     domain.Rule
	Logic    string
	Template domain.NormalizedTemplate
	Excerpt  []byte
}

// Assessment is a provider's verdict on one custom rule.
type Assessment struct {
	Passed      bool    `json:"passed"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// Provider is the pluggable reasoning backend. Implementations are
// advisory only; callers must tolerate errors and absent providers.
type Provider interface {
	Name() string
	Assess(ctx context.Context, req Request) (Assessment, error)
}

// Degraded returns the assessment recorded when augmentation is
// unavailable, per the configured policy.
func Degraded(policy DegradedPolicy, reason string) (domain.FindingStatus, Assessment) {
	assessment := Assessment{
		Passed:      true,
		Confidence:  DegradedConfidence,
		Explanation: fmt.Sprintf("augmentation unavailable (%s); defaulting per policy %q", reason, policy),
	}
	if policy == DegradedWarning {
		assessment.Passed = false
		return domain.FindingWarning, assessment
	}
	return domain.FindingPassed, assessment
}

const maxInventoryLines = 40

// buildPrompt renders the rule and artifact context for a provider. The
// reply contract is a single JSON object so parsing stays uniform across
// backends.
func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are an infrastructure compliance auditor. Assess whether the artifact below satisfies the rule.\n\n")
	fmt.Fprintf(&b, "Rule %s (severity %s, category %s):\n%s\n\n", req.Rule.ID, req.Rule.Severity, req.Rule.Category, req.Logic)

	b.WriteString("Resource inventory:\n")
	for i, r := range req.Template.Resources {
		if i >= maxInventoryLines {
			fmt.Fprintf(&b, "... and %d more resources\n", len(req.Template.Resources)-maxInventoryLines)
			break
		}
		fmt.Fprintf(&b, "- %s %q\n", r.Type, r.Name)
	}

	if len(req.Excerpt) > 0 {
		fmt.Fprintf(&b, "\nArtifact excerpt (%s):\n%s\n", req.Template.SourceKind, req.Excerpt)
	}

	b.WriteString("\nReply with exactly one JSON object: {\"passed\": bool, \"confidence\": number between 0 and 1, \"explanation\": string}.")
	return b.String()
}

// parseAssessment extracts the JSON verdict from a model reply, which may
// wrap it in prose or code fences.
func parseAssessment(reply string) (Assessment, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Assessment{}, fmt.Errorf("no JSON object in reply")
	}

	var assessment Assessment
	if err := json.Unmarshal([]byte(reply[start:end+1]), &assessment); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment: %w", err)
	}
	if assessment.Confidence < 0 {
		assessment.Confidence = 0
	}
	if assessment.Confidence > 1 {
		assessment.Confidence = 1
	}
	return assessment, nil
}
