package augment

import (
	"context"
	"strings"
	"testing"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    Assessment
		wantErr bool
	}{
		{
			name:  "bare JSON",
			reply: `{"passed": true, "confidence": 0.9, "explanation": "encryption enforced"}`,
			want:  Assessment{Passed: true, Confidence: 0.9, Explanation: "encryption enforced"},
		},
		{
			name:  "JSON wrapped in prose and fences",
			reply: "Here is my verdict:\n```json\n{\"passed\": false, \"confidence\": 0.75, \"explanation\": \"public ACL\"}\n```\nLet me know.",
			want:  Assessment{Passed: false, Confidence: 0.75, Explanation: "public ACL"},
		},
		{
			name:  "confidence clamped",
			reply: `{"passed": true, "confidence": 1.7, "explanation": "x"}`,
			want:  Assessment{Passed: true, Confidence: 1, Explanation: "x"},
		},
		{
			name:    "no JSON at all",
			reply:   "I cannot assess this rule.",
			wantErr: true,
		},
		{
			name:    "broken JSON",
			reply:   `{"passed": maybe}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssessment(tt.reply)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	req := Request{
		Rule: domain.Rule{
			ID:       "SEC-042",
			Severity: domain.SeverityHigh,
			Category: "encryption",
		},
		Logic: "Verify that every queue uses a customer managed key.",
		Template: domain.NormalizedTemplate{
			SourceKind: domain.SourceTerraform,
			Resources: []domain.ResourceDefinition{
				{Type: "aws_sqs_queue", Name: "jobs"},
			},
		},
		Excerpt: []byte(`resource "aws_sqs_queue" "jobs" {}`),
	}

	prompt := buildPrompt(req)
	assert.Contains(t, prompt, "SEC-042")
	assert.Contains(t, prompt, "customer managed key")
	assert.Contains(t, prompt, `aws_sqs_queue "jobs"`)
	assert.Contains(t, prompt, "TERRAFORM")
	assert.Contains(t, prompt, `"passed"`)
}

func TestBuildPrompt_TruncatesInventory(t *testing.T) {
	req := Request{Rule: domain.Rule{ID: "R1"}}
	for i := 0; i < maxInventoryLines+5; i++ {
		req.Template.Resources = append(req.Template.Resources, domain.ResourceDefinition{
			Type: "AWS::S3::Bucket",
			Name: "bucket",
		})
	}

	prompt := buildPrompt(req)
	assert.Contains(t, prompt, "and 5 more resources")
	assert.Equal(t, maxInventoryLines, strings.Count(prompt, "- AWS::S3::Bucket"))
}

func TestDegraded(t *testing.T) {
	status, assessment := Degraded(DegradedPass, "no provider configured")
	assert.Equal(t, domain.FindingPassed, status)
	assert.True(t, assessment.Passed)
	assert.LessOrEqual(t, assessment.Confidence, 0.2)
	assert.Contains(t, assessment.Explanation, "no provider configured")

	status, assessment = Degraded(DegradedWarning, "timeout")
	assert.Equal(t, domain.FindingWarning, status)
	assert.False(t, assessment.Passed)
	assert.LessOrEqual(t, assessment.Confidence, 0.2)
}

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider(context.Background(), "none", Options{})
	require.NoError(t, err)
	assert.Nil(t, provider)

	provider, err = NewProvider(context.Background(), "", Options{})
	require.NoError(t, err)
	assert.Nil(t, provider)

	_, err = NewProvider(context.Background(), "oracle", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
