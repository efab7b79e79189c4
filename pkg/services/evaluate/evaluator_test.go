package evaluate

import (
	"context"
	"errors"
	"testing"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/augment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Assess(ctx context.Context, req augment.Request) (augment.Assessment, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(augment.Assessment), args.Error(1)
}

func bucketRule(id string, severity domain.Severity) domain.Rule {
	return domain.Rule{
		ID:       id,
		PillarID: "security",
		Category: "storage",
		Severity: severity,
		IsActive: true,
		Conditions: []domain.Condition{
			{
				Type:     domain.ConditionResourceType,
				Operator: domain.OperatorExists,
				Field:    "AWS::S3::Bucket",
			},
		},
	}
}

func TestEvaluate_ResourceTypeExists(t *testing.T) {
	framework := domain.Framework{
		ID:      "baseline",
		Version: "1.0",
		Rules:   []domain.Rule{bucketRule("SEC-001", domain.SeverityHigh)},
	}

	t.Run("fails with empty affected resources when absent", func(t *testing.T) {
		empty := templateWith(domain.ResourceDefinition{Type: "AWS::SQS::Queue", Name: "jobs"})

		result, err := NewEvaluator(Config{}).Evaluate(context.Background(), empty, framework)
		require.NoError(t, err)

		assert.Equal(t, 0, result.PassedCount)
		assert.Equal(t, 1, result.FailedCount)
		require.Len(t, result.Findings, 1)

		finding := result.Findings[0]
		assert.Equal(t, domain.FindingFailed, finding.Status)
		assert.Equal(t, "SEC-001", finding.RuleID)
		assert.Equal(t, "baseline", finding.FrameworkID)
		require.NotNil(t, finding.AffectedResources)
		assert.Empty(t, finding.AffectedResources)
		assert.Equal(t, float64(1), finding.Confidence)
	})

	t.Run("passes without emitting a finding when present", func(t *testing.T) {
		withBucket := templateWith(domain.ResourceDefinition{Type: "AWS::S3::Bucket", Name: "logs"})

		result, err := NewEvaluator(Config{}).Evaluate(context.Background(), withBucket, framework)
		require.NoError(t, err)

		assert.Equal(t, 1, result.PassedCount)
		assert.Equal(t, 0, result.FailedCount)
		assert.Empty(t, result.Findings)
		assert.Equal(t, float64(100), result.Score)
	})
}

func TestEvaluate_ConditionsAreConjunctive(t *testing.T) {
	rule := domain.Rule{
		ID:       "SEC-002",
		PillarID: "security",
		Category: "storage",
		Severity: domain.SeverityCritical,
		IsActive: true,
		Conditions: []domain.Condition{
			{Type: domain.ConditionResourceType, Operator: domain.OperatorExists, Field: "AWS::S3::Bucket"},
			{Type: domain.ConditionPropertyValue, Operator: domain.OperatorEquals, Field: "VersioningConfiguration.Status", Value: "Enabled"},
		},
	}
	tmpl := templateWith(domain.ResourceDefinition{
		Type:       "AWS::S3::Bucket",
		Name:       "logs",
		Properties: map[string]any{"VersioningConfiguration": map[string]any{"Status": "Suspended"}},
	})

	result, err := NewEvaluator(Config{}).Evaluate(context.Background(), tmpl, domain.Framework{ID: "f", Rules: []domain.Rule{rule}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, []string{"logs"}, result.Findings[0].AffectedResources)
}

func TestEvaluate_InactiveRulesAreSkippedSilently(t *testing.T) {
	inactive := bucketRule("SEC-003", domain.SeverityLow)
	inactive.IsActive = false

	framework := domain.Framework{
		ID:    "f",
		Rules: []domain.Rule{inactive, bucketRule("SEC-004", domain.SeverityHigh)},
	}
	tmpl := templateWith(domain.ResourceDefinition{Type: "AWS::S3::Bucket", Name: "logs"})

	result, err := NewEvaluator(Config{}).Evaluate(context.Background(), tmpl, framework)
	require.NoError(t, err)

	assert.Equal(t, 1, result.PassedCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Empty(t, result.Findings)
}

func TestEvaluate_ZeroConditionRuleIsConfigurationError(t *testing.T) {
	framework := domain.Framework{
		ID: "f",
		Rules: []domain.Rule{{
			ID:       "BROKEN",
			IsActive: true,
		}},
	}

	_, err := NewEvaluator(Config{}).Evaluate(context.Background(), templateWith(), framework)
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEvaluate_Scores(t *testing.T) {
	pass := bucketRule("R-PASS", domain.SeverityHigh)
	fail := domain.Rule{
		ID:       "R-FAIL",
		PillarID: "reliability",
		Category: "durability",
		Severity: domain.SeverityMedium,
		IsActive: true,
		Conditions: []domain.Condition{
			{Type: domain.ConditionResourceType, Operator: domain.OperatorExists, Field: "AWS::RDS::DBInstance"},
		},
	}

	framework := domain.Framework{ID: "f", Rules: []domain.Rule{pass, fail}}
	tmpl := templateWith(domain.ResourceDefinition{Type: "AWS::S3::Bucket", Name: "logs"})

	result, err := NewEvaluator(Config{}).Evaluate(context.Background(), tmpl, framework)
	require.NoError(t, err)

	assert.Equal(t, float64(50), result.Score)
	assert.Equal(t, float64(100), result.PillarScores["security"])
	assert.Equal(t, float64(0), result.PillarScores["reliability"])
	assert.Equal(t, float64(100), result.CategoryScores["storage"])
	assert.Equal(t, float64(0), result.CategoryScores["durability"])
}

func TestEvaluate_Deterministic(t *testing.T) {
	framework := domain.Framework{
		ID: "f",
		Rules: []domain.Rule{
			bucketRule("R1", domain.SeverityHigh),
			{
				ID: "R2", PillarID: "security", Category: "net", Severity: domain.SeverityMedium, IsActive: true,
				Conditions: []domain.Condition{
					{Type: domain.ConditionPropertyValue, Operator: domain.OperatorEquals, Field: "Port", Value: float64(443)},
				},
			},
		},
	}
	tmpl := templateWith(
		domain.ResourceDefinition{Type: "AWS::SQS::Queue", Name: "a"},
		domain.ResourceDefinition{Type: "AWS::SQS::Queue", Name: "b", Properties: map[string]any{"Port": float64(80)}},
	)

	first, err := NewEvaluator(Config{}).Evaluate(context.Background(), tmpl, framework)
	require.NoError(t, err)
	second, err := NewEvaluator(Config{}).Evaluate(context.Background(), tmpl, framework)
	require.NoError(t, err)

	for i := range first.Findings {
		first.Findings[i].ID = ""
	}
	for i := range second.Findings {
		second.Findings[i].ID = ""
	}
	assert.Equal(t, first, second)
}

func customRule(id string) domain.Rule {
	return domain.Rule{
		ID:       id,
		PillarID: "security",
		Category: "custom",
		Severity: domain.SeverityHigh,
		IsActive: true,
		Conditions: []domain.Condition{
			{Type: domain.ConditionCustom, CustomLogic: "check for exposed credentials"},
		},
	}
}

func TestEvaluate_CustomRuleWithoutProviderDefaultsToLowConfidencePass(t *testing.T) {
	framework := domain.Framework{ID: "f", Rules: []domain.Rule{customRule("CUST-1")}}

	result, err := NewEvaluator(Config{}).Evaluate(context.Background(), templateWith(), framework)
	require.NoError(t, err)

	assert.Equal(t, 1, result.PassedCount)
	require.Len(t, result.Findings, 1)

	finding := result.Findings[0]
	assert.Equal(t, domain.FindingPassed, finding.Status)
	assert.LessOrEqual(t, finding.Confidence, 0.2)
	assert.NotEmpty(t, finding.Message)
}

func TestEvaluate_CustomRuleWarningPolicy(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Assess", mock.Anything, mock.Anything).
		Return(augment.Assessment{}, errors.New("backend down"))

	framework := domain.Framework{ID: "f", Rules: []domain.Rule{customRule("CUST-2")}}
	evaluator := NewEvaluator(Config{Provider: provider, DegradedPolicy: augment.DegradedWarning})

	result, err := evaluator.Evaluate(context.Background(), templateWith(), framework)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, domain.FindingWarning, result.Findings[0].Status)
	assert.LessOrEqual(t, result.Findings[0].Confidence, 0.2)
	provider.AssertExpectations(t)
}

func TestEvaluate_CustomRuleUsesProviderVerdict(t *testing.T) {
	provider := &mockProvider{}
	provider.On("Assess", mock.Anything, mock.MatchedBy(func(req augment.Request) bool {
		return req.Rule.ID == "CUST-3" && req.Logic == "check for exposed credentials"
	})).Return(augment.Assessment{Passed: false, Confidence: 0.85, Explanation: "plaintext secret in user data"}, nil)

	framework := domain.Framework{ID: "f", Rules: []domain.Rule{customRule("CUST-3")}}
	evaluator := NewEvaluator(Config{Provider: provider})

	result, err := evaluator.Evaluate(context.Background(), templateWith(), framework)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Findings, 1)

	finding := result.Findings[0]
	assert.Equal(t, domain.FindingFailed, finding.Status)
	assert.Equal(t, 0.85, finding.Confidence)
	assert.Contains(t, finding.Message, "plaintext secret")
	provider.AssertExpectations(t)
}

func TestEvaluate_CustomSkippedWhenDeterministicAlreadyFailed(t *testing.T) {
	provider := &mockProvider{}

	rule := customRule("CUST-4")
	rule.Conditions = append([]domain.Condition{
		{Type: domain.ConditionResourceType, Operator: domain.OperatorExists, Field: "AWS::S3::Bucket"},
	}, rule.Conditions...)

	framework := domain.Framework{ID: "f", Rules: []domain.Rule{rule}}
	evaluator := NewEvaluator(Config{Provider: provider})

	result, err := evaluator.Evaluate(context.Background(), templateWith(), framework)
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedCount)
	provider.AssertNotCalled(t, "Assess", mock.Anything, mock.Anything)
}
