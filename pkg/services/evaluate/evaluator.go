package evaluate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/augment"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultAugmentTimeout = 30 * time.Second

// Evaluator runs one framework's active rules over a normalized template.
// Deterministic evaluation is pure and synchronous; only custom rules may
// reach out through the augmentation provider.
type Evaluator interface {
	Evaluate(ctx context.Context, tmpl domain.NormalizedTemplate, framework domain.Framework) (domain.FrameworkResult, error)
}

type Config struct {
	// Provider may be nil; custom rules then resolve via DegradedPolicy.
	Provider       augment.Provider
	DegradedPolicy augment.DegradedPolicy
	AugmentTimeout time.Duration
}

type evaluator struct {
	provider       augment.Provider
	degradedPolicy augment.DegradedPolicy
	augmentTimeout time.Duration
}

func NewEvaluator(cfg Config) Evaluator {
	policy := cfg.DegradedPolicy
	if !policy.Valid() {
		policy = augment.DegradedPass
	}
	timeout := cfg.AugmentTimeout
	if timeout <= 0 {
		timeout = defaultAugmentTimeout
	}
	return &evaluator{
		provider:       cfg.Provider,
		degradedPolicy: policy,
		augmentTimeout: timeout,
	}
}

func (e *evaluator) Evaluate(ctx context.Context, tmpl domain.NormalizedTemplate, framework domain.Framework) (domain.FrameworkResult, error) {
	logger := zerolog.Ctx(ctx)

	result := domain.FrameworkResult{
		FrameworkID:      framework.ID,
		FrameworkVersion: framework.Version,
		PillarScores:     map[string]float64{},
		CategoryScores:   map[string]float64{},
	}

	type ratio struct{ passed, total int }
	pillars := map[string]*ratio{}
	categories := map[string]*ratio{}

	for _, rule := range framework.Rules {
		if !rule.IsActive {
			continue
		}
		if len(rule.Conditions) == 0 {
			return domain.FrameworkResult{}, &domain.ConfigurationError{
				Field:  "rules",
				Reason: fmt.Sprintf("rule %q has no conditions", rule.ID),
			}
		}

		outcome := e.evaluateRule(ctx, rule, tmpl)

		if pillars[rule.PillarID] == nil {
			pillars[rule.PillarID] = &ratio{}
		}
		if categories[rule.Category] == nil {
			categories[rule.Category] = &ratio{}
		}
		pillars[rule.PillarID].total++
		categories[rule.Category].total++

		if outcome.passed {
			result.PassedCount++
			pillars[rule.PillarID].passed++
			categories[rule.Category].passed++
		} else {
			result.FailedCount++
		}

		if outcome.emit {
			result.Findings = append(result.Findings, domain.Finding{
				ID:                uuid.NewString(),
				RuleID:            rule.ID,
				FrameworkID:       framework.ID,
				PillarID:          rule.PillarID,
				Category:          rule.Category,
				Severity:          rule.Severity,
				Status:            outcome.status,
				Message:           outcome.message,
				AffectedResources: outcome.affected,
				Remediation:       rule.Remediation,
				Confidence:        outcome.confidence,
			})
		}
	}

	totalActive := result.PassedCount + result.FailedCount
	result.Score = passRatio(result.PassedCount, totalActive)
	for id, r := range pillars {
		result.PillarScores[id] = passRatio(r.passed, r.total)
	}
	for id, r := range categories {
		result.CategoryScores[id] = passRatio(r.passed, r.total)
	}

	logger.Debug().
		Str("framework_id", framework.ID).
		Int("passed", result.PassedCount).
		Int("failed", result.FailedCount).
		Float64("score", result.Score).
		Msg("framework evaluated")

	return result, nil
}

// passRatio scores pass counts on a 0-100 scale. An empty rule set has
// nothing to fail and scores clean.
func passRatio(passed, total int) float64 {
	if total == 0 {
		return 100
	}
	return 100 * float64(passed) / float64(total)
}

type ruleOutcome struct {
	passed     bool
	emit       bool
	status     domain.FindingStatus
	message    string
	affected   []string
	confidence float64
}

// evaluateRule applies every condition of one rule, conjunctively.
// Deterministic conditions run first; custom conditions only consult the
// provider once nothing deterministic has already failed, so a doomed
// rule never spends an augmentation call.
func (e *evaluator) evaluateRule(ctx context.Context, rule domain.Rule, tmpl domain.NormalizedTemplate) ruleOutcome {
	var custom []domain.Condition
	var failures []conditionResult

	for _, cond := range rule.Conditions {
		if cond.Type == domain.ConditionCustom {
			custom = append(custom, cond)
			continue
		}
		if res := evaluateCondition(cond, tmpl); !res.holds {
			failures = append(failures, res)
		}
	}

	if len(failures) > 0 {
		outcome := ruleOutcome{
			emit:       true,
			status:     domain.FindingFailed,
			message:    failures[0].detail,
			confidence: 1,
		}
		seen := map[string]struct{}{}
		for _, f := range failures {
			for _, name := range f.affected {
				if _, dup := seen[name]; dup {
					continue
				}
				seen[name] = struct{}{}
				outcome.affected = append(outcome.affected, name)
			}
		}
		if outcome.affected == nil {
			outcome.affected = []string{}
		}
		return outcome
	}

	if len(custom) == 0 {
		return ruleOutcome{passed: true, status: domain.FindingPassed, confidence: 1}
	}
	return e.evaluateCustom(ctx, rule, custom, tmpl)
}

// evaluateCustom resolves the rule's custom conditions through the
// augmentation provider. Provider failure is never fatal: the configured
// degraded policy decides the outcome and confidence drops instead.
func (e *evaluator) evaluateCustom(ctx context.Context, rule domain.Rule, conditions []domain.Condition, tmpl domain.NormalizedTemplate) ruleOutcome {
	logger := zerolog.Ctx(ctx)

	outcome := ruleOutcome{
		passed:     true,
		emit:       true,
		status:     domain.FindingPassed,
		confidence: 1,
	}
	var explanations []string

	for _, cond := range conditions {
		assessment, err := e.assess(ctx, rule, cond, tmpl)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("rule_id", rule.ID).
				Str("policy", string(e.degradedPolicy)).
				Msg("augmentation degraded")

			status, degraded := augment.Degraded(e.degradedPolicy, err.Error())
			outcome.status = status
			outcome.passed = outcome.passed && degraded.Passed
			if degraded.Confidence < outcome.confidence {
				outcome.confidence = degraded.Confidence
			}
			explanations = append(explanations, degraded.Explanation)
			continue
		}

		outcome.passed = outcome.passed && assessment.Passed
		if assessment.Confidence < outcome.confidence {
			outcome.confidence = assessment.Confidence
		}
		if assessment.Explanation != "" {
			explanations = append(explanations, assessment.Explanation)
		}
	}

	if !outcome.passed && outcome.status != domain.FindingWarning {
		outcome.status = domain.FindingFailed
	}
	outcome.message = strings.Join(explanations, "; ")
	outcome.affected = []string{}
	return outcome
}

func (e *evaluator) assess(ctx context.Context, rule domain.Rule, cond domain.Condition, tmpl domain.NormalizedTemplate) (augment.Assessment, error) {
	if e.provider == nil {
		return augment.Assessment{}, domain.ErrAugmentationUnavailable
	}

	assessCtx, cancel := context.WithTimeout(ctx, e.augmentTimeout)
	defer cancel()

	return e.provider.Assess(assessCtx, augment.Request{
		Rule:     rule,
		Logic:    cond.CustomLogic,
		Template: tmpl,
		Excerpt:  tmpl.RawExcerpt,
	})
}
