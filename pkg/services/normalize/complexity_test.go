package normalize

import (
	"testing"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
)

func TestClassifyComplexity(t *testing.T) {
	tests := []struct {
		name         string
		resources    int
		byteSize     int
		technologies int
		want         domain.Complexity
	}{
		{name: "empty artifact", resources: 0, byteSize: 0, technologies: 0, want: domain.ComplexityLow},
		{name: "ten resources stays low", resources: 10, byteSize: 1024, technologies: 1, want: domain.ComplexityLow},
		{name: "eleven resources still low", resources: 11, byteSize: 1024, technologies: 1, want: domain.ComplexityLow},
		{name: "mid size and count", resources: 51, byteSize: 101 * 1024, technologies: 1, want: domain.ComplexityMedium},
		{name: "two technologies push to medium", resources: 55, byteSize: 0, technologies: 2, want: domain.ComplexityMedium},
		{name: "hundred resources exactly", resources: 100, byteSize: 0, technologies: 0, want: domain.ComplexityLow},
		{name: "large multi-tech estate", resources: 101, byteSize: bytesPerMiB + 1, technologies: 1, want: domain.ComplexityHigh},
		{name: "technology count is capped", resources: 101, byteSize: bytesPerMiB + 1, technologies: 9, want: domain.ComplexityHigh},
		{name: "size alone cannot reach high", resources: 0, byteSize: 10 * bytesPerMiB, technologies: 3, want: domain.ComplexityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyComplexity(tt.resources, tt.byteSize, tt.technologies)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetectTechnologies(t *testing.T) {
	raw := []byte(`
resource "aws_eks_cluster" "main" {}
# deployed alongside k8s manifests
# apiVersion: apps/v1
# kind: Deployment
`)

	technologies := detectTechnologies(raw, domain.SourceTerraform)
	assert.Contains(t, technologies, "terraform")
	assert.Contains(t, technologies, "kubernetes")
	assert.NotContains(t, technologies, "cloudformation")
}

func TestDetectTechnologies_SourceKindAlwaysCounts(t *testing.T) {
	technologies := detectTechnologies([]byte(`[]`), domain.SourceLiveScan)
	assert.Equal(t, []string{"live-scan"}, technologies)
}
