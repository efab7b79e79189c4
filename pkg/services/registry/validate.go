package registry

import (
	"fmt"
	"regexp"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

var validOperators = map[domain.Operator]struct{}{
	domain.OperatorEquals:      {},
	domain.OperatorNotEquals:   {},
	domain.OperatorContains:    {},
	domain.OperatorNotContains: {},
	domain.OperatorRegex:       {},
	domain.OperatorExists:      {},
	domain.OperatorNotExists:   {},
}

var validConditionTypes = map[domain.ConditionType]struct{}{
	domain.ConditionResourceType:  {},
	domain.ConditionPropertyValue: {},
	domain.ConditionRelationship:  {},
	domain.ConditionPattern:       {},
	domain.ConditionCustom:        {},
}

var validSeverities = map[domain.Severity]struct{}{
	domain.SeverityCritical: {},
	domain.SeverityHigh:     {},
	domain.SeverityMedium:   {},
	domain.SeverityLow:      {},
	domain.SeverityInfo:     {},
}

// Validate checks a framework definition before registration. Everything
// rejected here would otherwise surface mid-evaluation, where the
// pipeline has no good way to attribute the fault.
func Validate(framework domain.Framework) error {
	if framework.ID == "" {
		return &domain.ConfigurationError{Field: "id", Reason: "framework id is required"}
	}
	if framework.Name == "" {
		return &domain.ConfigurationError{Field: "name", Reason: "framework name is required"}
	}

	pillarIDs := map[string]struct{}{}
	for _, pillar := range framework.Pillars {
		if pillar.ID == "" {
			return &domain.ConfigurationError{Field: "pillars", Reason: "pillar id is required"}
		}
		if _, dup := pillarIDs[pillar.ID]; dup {
			return &domain.ConfigurationError{
				Field:  "pillars",
				Reason: fmt.Sprintf("duplicate pillar %q", pillar.ID),
			}
		}
		pillarIDs[pillar.ID] = struct{}{}
		if pillar.Weight < 0 || pillar.Weight > 1 {
			return &domain.ConfigurationError{
				Field:  "pillars",
				Reason: fmt.Sprintf("pillar %q weight %v is outside [0,1]", pillar.ID, pillar.Weight),
			}
		}
	}

	ruleIDs := map[string]struct{}{}
	for _, rule := range framework.Rules {
		if rule.ID == "" {
			return &domain.ConfigurationError{Field: "rules", Reason: "rule id is required"}
		}
		if _, dup := ruleIDs[rule.ID]; dup {
			return &domain.ConfigurationError{
				Field:  "rules",
				Reason: fmt.Sprintf("duplicate rule %q", rule.ID),
			}
		}
		ruleIDs[rule.ID] = struct{}{}

		if err := validateRule(rule, pillarIDs); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(rule domain.Rule, pillarIDs map[string]struct{}) error {
	if _, ok := validSeverities[rule.Severity]; !ok {
		return &domain.ConfigurationError{
			Field:  "rules",
			Reason: fmt.Sprintf("rule %q has unknown severity %q", rule.ID, rule.Severity),
		}
	}
	if len(pillarIDs) > 0 {
		if _, ok := pillarIDs[rule.PillarID]; !ok {
			return &domain.ConfigurationError{
				Field:  "rules",
				Reason: fmt.Sprintf("rule %q references unknown pillar %q", rule.ID, rule.PillarID),
			}
		}
	}
	if len(rule.Conditions) == 0 {
		return &domain.ConfigurationError{
			Field:  "rules",
			Reason: fmt.Sprintf("rule %q has no conditions", rule.ID),
		}
	}

	for i, cond := range rule.Conditions {
		if _, ok := validConditionTypes[cond.Type]; !ok {
			return &domain.ConfigurationError{
				Field:  "rules",
				Reason: fmt.Sprintf("rule %q condition %d has unknown type %q", rule.ID, i, cond.Type),
			}
		}
		if cond.Type == domain.ConditionCustom {
			if cond.CustomLogic == "" {
				return &domain.ConfigurationError{
					Field:  "rules",
					Reason: fmt.Sprintf("rule %q condition %d is CUSTOM but has no logic", rule.ID, i),
				}
			}
			continue
		}
		if _, ok := validOperators[cond.Operator]; !ok {
			return &domain.ConfigurationError{
				Field:  "rules",
				Reason: fmt.Sprintf("rule %q condition %d has unknown operator %q", rule.ID, i, cond.Operator),
			}
		}
		if cond.Operator == domain.OperatorRegex {
			pattern := fmt.Sprintf("%v", cond.Value)
			if cond.Value == nil {
				pattern = cond.Field
			}
			if _, err := regexp.Compile(pattern); err != nil {
				return &domain.ConfigurationError{
					Field:  "rules",
					Reason: fmt.Sprintf("rule %q condition %d has invalid pattern: %v", rule.ID, i, err),
				}
			}
		}
	}
	return nil
}
