package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/spf13/viper"
)

// Settings is the application configuration for both the CLI and the web
// server. Secrets (API keys, DSNs) usually come from the environment via
// a .env file; the file only carries non-secret knobs.
type Settings struct {
	Server       ServerSettings       `mapstructure:"server"`
	Frameworks   FrameworkSettings    `mapstructure:"frameworks"`
	Augmentation AugmentationSettings `mapstructure:"augmentation"`
	Scoring      ScoringSettings      `mapstructure:"scoring"`
	Results      ResultSettings       `mapstructure:"results"`
	Analysis     AnalysisSettings     `mapstructure:"analysis"`
}

type ServerSettings struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type FrameworkSettings struct {
	// Dir holds YAML framework definitions loaded at startup.
	Dir string `mapstructure:"dir"`
	// Database optionally points at a SQL framework store; when set it is
	// consulted instead of Dir.
	Database string `mapstructure:"database"`
}

type AugmentationSettings struct {
	Provider       string `mapstructure:"provider"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Endpoint       string `mapstructure:"endpoint"`
	Deployment     string `mapstructure:"deployment"`
	DegradedPolicy string `mapstructure:"degraded_policy"`
}

type ScoringSettings struct {
	SeverityWeights map[string]int `mapstructure:"severity_weights"`
}

// Weights converts the configured severity weights to domain keys.
// Returns nil when unconfigured so callers fall back to defaults.
func (s ScoringSettings) Weights() map[domain.Severity]int {
	if len(s.SeverityWeights) == 0 {
		return nil
	}
	weights := make(map[domain.Severity]int, len(s.SeverityWeights))
	for severity, weight := range s.SeverityWeights {
		// viper lowercases map keys on read; severities are canonically upper case.
		weights[domain.Severity(strings.ToUpper(severity))] = weight
	}
	return weights
}

type ResultSettings struct {
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type AnalysisSettings struct {
	MaxConcurrency int  `mapstructure:"max_concurrency"`
	FailFast       bool `mapstructure:"fail_fast"`
}

// Default returns the settings used when no config file is supplied.
func Default() *Settings {
	return &Settings{
		Server:     ServerSettings{Host: "127.0.0.1", Port: 8080},
		Frameworks: FrameworkSettings{Dir: "frameworks"},
		Augmentation: AugmentationSettings{
			Provider: "none",
		},
		Analysis: AnalysisSettings{MaxConcurrency: 3},
	}
}

// ApplyEnv overlays secrets from the process environment so they never
// have to live in the settings file.
func (s *Settings) ApplyEnv() {
	if key := os.Getenv("AUGMENT_API_KEY"); key != "" {
		s.Augmentation.APIKey = key
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		s.Results.PostgresDSN = dsn
	}
}

// LoadSettings reads the configuration file at path. Fields absent from
// the file keep their Default values.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	settings := Default()
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	return settings, nil
}
