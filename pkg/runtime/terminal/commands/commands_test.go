package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/compliance-atlas/pkg/services/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameworkYAML = `id: baseline
name: Security Baseline
version: "1.0.0"
status: ACTIVE
pillars:
  - id: security
    name: Security
    weight: 1.0
rules:
  - id: bucket-encrypted
    pillar: security
    category: encryption
    severity: HIGH
    conditions:
      - type: PROPERTY_VALUE
        operator: EXISTS
        field: BucketEncryption
    remediation:
      description: Enable default bucket encryption
      steps:
        - Enable SSE on the bucket
  - id: bucket-versioned
    pillar: security
    category: durability
    severity: MEDIUM
    conditions:
      - type: PROPERTY_VALUE
        operator: EXISTS
        field: VersioningConfiguration
    remediation:
      description: Enable bucket versioning
      steps:
        - Turn on versioning
`

const templateJSON = `{
  "Resources": {
    "DataBucket": {
      "Type": "AWS::S3::Bucket",
      "Properties": {
        "BucketName": "atlas-data",
        "BucketEncryption": {"ServerSideEncryptionConfiguration": []}
      }
    }
  }
}`

func setupWorkspace(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	frameworksDir := filepath.Join(dir, "frameworks")
	require.NoError(t, os.Mkdir(frameworksDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(frameworksDir, "baseline.yaml"), []byte(frameworkYAML), 0o600))

	templatePath := filepath.Join(dir, "stack.json")
	require.NoError(t, os.WriteFile(templatePath, []byte(templateJSON), 0o600))

	return frameworksDir, templatePath
}

func testEnvironment(buf *bytes.Buffer) Environment {
	return Environment{
		LoadSettings: func() (*config.Settings, error) { return config.Default(), nil },
		Reporter:     export.NewReporter(buf),
	}
}

func TestAnalyzeCommandEndToEnd(t *testing.T) {
	frameworksDir, templatePath := setupWorkspace(t)

	var buf bytes.Buffer
	cmd := NewAnalyzeCmd(testEnvironment(&buf))
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{
		"--file", templatePath,
		"--framework", "baseline",
		"--frameworks-dir", frameworksDir,
	})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	// The failed MEDIUM finding deducts its weight of 5 from the pillar.
	assert.Contains(t, out, "Overall Score: 95/100")
	assert.Contains(t, out, "bucket-versioned")
	assert.Contains(t, out, "Enable bucket versioning")
}

func TestAnalyzeCommandJSONOutput(t *testing.T) {
	frameworksDir, templatePath := setupWorkspace(t)

	var buf bytes.Buffer
	cmd := NewAnalyzeCmd(testEnvironment(&buf))
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{
		"--file", templatePath,
		"--framework", "baseline",
		"--frameworks-dir", frameworksDir,
		"--format", "json",
	})

	require.NoError(t, cmd.Execute())

	var result domain.AnalysisResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, domain.AnalysisCompleted, result.Status)
	assert.Equal(t, 95, result.Summary.OverallScore)
	assert.Len(t, result.Findings, 1)
}

func TestAnalyzeCommandUnknownFramework(t *testing.T) {
	frameworksDir, templatePath := setupWorkspace(t)

	var buf bytes.Buffer
	cmd := NewAnalyzeCmd(testEnvironment(&buf))
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{
		"--file", templatePath,
		"--framework", "missing",
		"--frameworks-dir", frameworksDir,
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFrameworkNotFound)
}

func TestAnalyzeCommandRejectsUnknownFormat(t *testing.T) {
	frameworksDir, templatePath := setupWorkspace(t)

	var buf bytes.Buffer
	cmd := NewAnalyzeCmd(testEnvironment(&buf))
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs([]string{
		"--file", templatePath,
		"--framework", "baseline",
		"--frameworks-dir", frameworksDir,
		"--format", "xml",
	})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestFrameworksCommandLists(t *testing.T) {
	frameworksDir, _ := setupWorkspace(t)

	var buf bytes.Buffer
	cmd := NewFrameworksCmd(testEnvironment(&buf))
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--frameworks-dir", frameworksDir})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "baseline")
	assert.Contains(t, out, "Security Baseline")
	assert.Contains(t, out, "2 rules")
}

func TestFrameworksCommandEmptyDir(t *testing.T) {
	var buf bytes.Buffer
	cmd := NewFrameworksCmd(testEnvironment(&buf))
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--frameworks-dir", t.TempDir()})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No frameworks found")
}

func TestScanResolveTargets(t *testing.T) {
	sc := &ScanCmd{
		profiles: []string{"prod"},
		accounts: []string{"123456789012"},
		regions:  []string{"eu-west-1"},
	}

	targets, err := sc.resolveTargets()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, domain.LiveAccountTarget{Profile: "prod", Regions: []string{"eu-west-1"}}, targets[0])
	assert.Equal(t, domain.LiveAccountTarget{AccountID: "123456789012", Regions: []string{"eu-west-1"}}, targets[1])
}

func TestScanResolveTargetsDefaultsToAmbientAccount(t *testing.T) {
	sc := &ScanCmd{}

	targets, err := sc.resolveTargets()
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, domain.LiveAccountTarget{}, targets[0])
}

func TestScanResolveTargetsAllProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := "[profile prod]\nregions = eu-west-1,eu-central-1\naccount_id = 123456789012\n\n[profile staging]\nregions = us-east-1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	sc := &ScanCmd{allProfiles: true, profilesPath: path}

	targets, err := sc.resolveTargets()
	require.NoError(t, err)
	require.Len(t, targets, 2)

	prod, ok := targets[0].(domain.LiveAccountTarget)
	require.True(t, ok)
	assert.Equal(t, "prod", prod.Profile)
	assert.Equal(t, "123456789012", prod.AccountID)
	assert.Equal(t, []string{"eu-west-1", "eu-central-1"}, prod.Regions)
}
