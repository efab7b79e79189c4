package adapters

import (
	"github.com/de-tools/compliance-atlas/pkg/models/api"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

func MapFrameworkDomainToApi(framework domain.Framework) api.Framework {
	pillars := make([]api.Pillar, 0, len(framework.Pillars))
	for _, pillar := range framework.Pillars {
		pillars = append(pillars, api.Pillar{
			Id:     pillar.ID,
			Name:   pillar.Name,
			Weight: pillar.Weight,
		})
	}

	rules := make([]api.Rule, 0, len(framework.Rules))
	for _, rule := range framework.Rules {
		rules = append(rules, MapRuleDomainToApi(rule))
	}

	return api.Framework{
		Id:      framework.ID,
		Name:    framework.Name,
		Version: framework.Version,
		Status:  string(framework.Status),
		Pillars: pillars,
		Rules:   rules,
	}
}

func MapRuleDomainToApi(rule domain.Rule) api.Rule {
	conditions := make([]api.Condition, 0, len(rule.Conditions))
	for _, condition := range rule.Conditions {
		conditions = append(conditions, api.Condition{
			Type:     string(condition.Type),
			Operator: string(condition.Operator),
			Field:    condition.Field,
			Value:    condition.Value,
			Logic:    condition.CustomLogic,
		})
	}

	return api.Rule{
		Id:          rule.ID,
		PillarId:    rule.PillarID,
		Category:    rule.Category,
		Severity:    string(rule.Severity),
		Active:      rule.IsActive,
		Conditions:  conditions,
		Remediation: api.Remediation{
			Description: rule.Remediation.Description,
			Steps:       rule.Remediation.Steps,
		},
	}
}

func MapFrameworkSummaryDomainToApi(framework domain.Framework) api.FrameworkSummary {
	return api.FrameworkSummary{
		Id:        framework.ID,
		Name:      framework.Name,
		Version:   framework.Version,
		Status:    string(framework.Status),
		RuleCount: len(framework.Rules),
	}
}
