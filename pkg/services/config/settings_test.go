package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settingsYAML = `server:
  host: 0.0.0.0
  port: 9090
frameworks:
  dir: /etc/atlas/frameworks
augmentation:
  provider: gemini
  model: gemini-1.5-flash
  degraded_policy: warning
scoring:
  severity_weights:
    CRITICAL: 30
    HIGH: 12
analysis:
  max_concurrency: 5
  fail_fast: true
`

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atlas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSettings(t *testing.T) {
	settings, err := LoadSettings(writeSettings(t, settingsYAML))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", settings.Server.Host)
	assert.Equal(t, 9090, settings.Server.Port)
	assert.Equal(t, "/etc/atlas/frameworks", settings.Frameworks.Dir)
	assert.Equal(t, "gemini", settings.Augmentation.Provider)
	assert.Equal(t, "warning", settings.Augmentation.DegradedPolicy)
	assert.Equal(t, 5, settings.Analysis.MaxConcurrency)
	assert.True(t, settings.Analysis.FailFast)
}

func TestLoadSettingsKeepsDefaultsForAbsentFields(t *testing.T) {
	settings, err := LoadSettings(writeSettings(t, "server:\n  port: 9999\n"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", settings.Server.Host)
	assert.Equal(t, 9999, settings.Server.Port)
	assert.Equal(t, "frameworks", settings.Frameworks.Dir)
	assert.Equal(t, "none", settings.Augmentation.Provider)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestScoringWeights(t *testing.T) {
	settings, err := LoadSettings(writeSettings(t, settingsYAML))
	require.NoError(t, err)

	weights := settings.Scoring.Weights()
	assert.Equal(t, map[domain.Severity]int{
		domain.SeverityCritical: 30,
		domain.SeverityHigh:     12,
	}, weights)
}

func TestScoringWeightsUnconfigured(t *testing.T) {
	assert.Nil(t, Default().Scoring.Weights())
}

func TestApplyEnvOverlaysSecrets(t *testing.T) {
	t.Setenv("AUGMENT_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://localhost/atlas")

	settings := Default()
	settings.ApplyEnv()

	assert.Equal(t, "sk-test", settings.Augmentation.APIKey)
	assert.Equal(t, "postgres://localhost/atlas", settings.Results.PostgresDSN)
}

func TestApplyEnvKeepsFileValues(t *testing.T) {
	t.Setenv("AUGMENT_API_KEY", "")

	settings := Default()
	settings.Augmentation.APIKey = "from-file"
	settings.ApplyEnv()

	assert.Equal(t, "from-file", settings.Augmentation.APIKey)
}
