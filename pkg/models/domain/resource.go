package domain

// SourceKind identifies the format an artifact was ingested from.
type SourceKind string

const (
	SourceCloudFormation SourceKind = "CLOUDFORMATION"
	SourceTerraform      SourceKind = "TERRAFORM"
	SourceCDK            SourceKind = "CDK"
	SourceLiveScan       SourceKind = "LIVE_SCAN"
)

// Complexity is a coarse size classification used for reporting and
// runtime estimation only; it never affects evaluation results.
type Complexity string

const (
	ComplexityLow    Complexity = "LOW"
	ComplexityMedium Complexity = "MEDIUM"
	ComplexityHigh   Complexity = "HIGH"
)

// SourceLocation points back at where a resource came from: a file
// position for IaC artifacts, or a provider ARN for live resources.
type SourceLocation struct {
	File string
	Line int
	ARN  string
}

// ResourceDefinition is the format-independent unit the evaluator works
// on. Properties hold arbitrary nested JSON-like values
// (string | float64 | bool | []any | map[string]any | nil).
// Instances are immutable once produced by the normalizer.
type ResourceDefinition struct {
	Type         string
	Name         string
	Properties   map[string]any
	Dependencies []string
	Location     SourceLocation
}

// NormalizedTemplate is the output of normalization: the ordered resource
// set extracted from one artifact plus bookkeeping about its origin.
// RawExcerpt holds a size-capped prefix of the original artifact for
// augmentation prompts; it is never consulted by deterministic evaluation.
type NormalizedTemplate struct {
	SourceKind   SourceKind
	Resources    []ResourceDefinition
	Complexity   Complexity
	Technologies []string
	ByteSize     int
	RawExcerpt   []byte
}

// ResourcesOfType returns every resource whose Type equals t, in order.
func (t NormalizedTemplate) ResourcesOfType(resourceType string) []ResourceDefinition {
	var out []ResourceDefinition
	for _, r := range t.Resources {
		if r.Type == resourceType {
			out = append(out, r)
		}
	}
	return out
}
