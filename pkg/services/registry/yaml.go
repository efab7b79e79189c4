package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type frameworkFile struct {
	ID      string       `yaml:"id"`
	Name    string       `yaml:"name"`
	Version string       `yaml:"version"`
	Status  string       `yaml:"status"`
	Pillars []pillarFile `yaml:"pillars"`
	Rules   []ruleFile   `yaml:"rules"`
}

type pillarFile struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Weight float64 `yaml:"weight"`
}

type ruleFile struct {
	ID          string          `yaml:"id"`
	Pillar      string          `yaml:"pillar"`
	Category    string          `yaml:"category"`
	Severity    string          `yaml:"severity"`
	Active      *bool           `yaml:"active"`
	Conditions  []conditionFile `yaml:"conditions"`
	Remediation remediationFile `yaml:"remediation"`
}

type conditionFile struct {
	Type     string `yaml:"type"`
	Operator string `yaml:"operator"`
	Field    string `yaml:"field"`
	Value    any    `yaml:"value"`
	Logic    string `yaml:"logic"`
}

type remediationFile struct {
	Description string   `yaml:"description"`
	Steps       []string `yaml:"steps"`
}

// LoadDir reads every framework definition under dir into a fresh memory
// registry. One broken file fails the load; serving a partial catalog
// would silently change scores.
func LoadDir(ctx context.Context, dir string) (*MemoryRegistry, error) {
	logger := zerolog.Ctx(ctx)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read framework dir: %w", err)
	}

	reg := NewMemoryRegistry()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}

		framework, err := ParseFramework(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", entry.Name(), err)
		}
		if err := reg.Register(framework); err != nil {
			return nil, fmt.Errorf("register %s: %w", entry.Name(), err)
		}

		logger.Info().
			Str("framework_id", framework.ID).
			Str("version", framework.Version).
			Int("rules", len(framework.Rules)).
			Msg("loaded framework")
	}
	return reg, nil
}

// ParseFramework decodes one YAML framework definition. Rules default to
// active unless the file says otherwise.
func ParseFramework(data []byte) (domain.Framework, error) {
	var file frameworkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain.Framework{}, err
	}

	framework := domain.Framework{
		ID:      file.ID,
		Name:    file.Name,
		Version: file.Version,
		Status:  domain.FrameworkStatus(file.Status),
	}
	if framework.Status == "" {
		framework.Status = domain.FrameworkStatusActive
	}

	for _, p := range file.Pillars {
		framework.Pillars = append(framework.Pillars, domain.Pillar{
			ID:     p.ID,
			Name:   p.Name,
			Weight: p.Weight,
		})
	}

	for _, r := range file.Rules {
		rule := domain.Rule{
			ID:       r.ID,
			PillarID: r.Pillar,
			Category: r.Category,
			Severity: domain.Severity(r.Severity),
			IsActive: r.Active == nil || *r.Active,
			Remediation: domain.Remediation{
				Description: r.Remediation.Description,
				Steps:       r.Remediation.Steps,
			},
		}
		for _, c := range r.Conditions {
			rule.Conditions = append(rule.Conditions, domain.Condition{
				Type:        domain.ConditionType(c.Type),
				Operator:    domain.Operator(c.Operator),
				Field:       c.Field,
				Value:       c.Value,
				CustomLogic: c.Logic,
			})
		}
		framework.Rules = append(framework.Rules, rule)
	}
	return framework, nil
}
