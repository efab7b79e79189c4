package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/compliance-atlas/pkg/services/analysis"
	"github.com/de-tools/compliance-atlas/pkg/services/augment"
	"github.com/de-tools/compliance-atlas/pkg/services/config"
	"github.com/de-tools/compliance-atlas/pkg/services/evaluate"
	"github.com/de-tools/compliance-atlas/pkg/services/livescan"
	"github.com/de-tools/compliance-atlas/pkg/services/normalize"
	"github.com/de-tools/compliance-atlas/pkg/services/profiles"
	"github.com/de-tools/compliance-atlas/pkg/services/registry"
	"github.com/de-tools/compliance-atlas/pkg/services/score"
	"github.com/spf13/cobra"
)

// Environment carries the dependencies shared by every command.
type Environment struct {
	LoadSettings func() (*config.Settings, error)
	Reporter     *export.Reporter
	Progress     analysis.Observer
}

type pipeline struct {
	registry     registry.Registry
	orchestrator analysis.Orchestrator
	coordinator  *analysis.Coordinator
}

// buildPipeline assembles the analysis engine for one command run.
// frameworksDir and profilesPath are flag overrides; empty values fall
// back to the configured defaults.
func buildPipeline(ctx context.Context, settings *config.Settings, frameworksDir, profilesPath string, progress analysis.Observer) (*pipeline, error) {
	dir := frameworksDir
	if dir == "" {
		dir = settings.Frameworks.Dir
	}
	reg, err := registry.LoadDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load frameworks from %s: %w", dir, err)
	}

	provider, err := augment.NewProvider(ctx, settings.Augmentation.Provider, augment.Options{
		APIKey:       settings.Augmentation.APIKey,
		Model:        settings.Augmentation.Model,
		Endpoint:     settings.Augmentation.Endpoint,
		DeploymentID: settings.Augmentation.Deployment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create augmentation provider: %w", err)
	}

	var accountProfiles profiles.Registry
	if profilesPath != "" {
		accountProfiles, err = profiles.NewRegistry(profilesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load account profiles: %w", err)
		}
	}

	cfg := analysis.Config{
		Fetcher: analysis.RoutingFetcher{
			Files: analysis.FileFetcher{},
			Live:  livescan.NewFetcher(livescan.FetcherConfig{}),
		},
		Registry: reg,
		Evaluator: evaluate.NewEvaluator(evaluate.Config{
			Provider:       provider,
			DegradedPolicy: augment.DegradedPolicy(settings.Augmentation.DegradedPolicy),
		}),
		Aggregator:  score.NewAggregator(settings.Scoring.Weights()),
		Normalizer:  normalize.NewNormalizer(),
		Credentials: livescan.NewVerifier(livescan.VerifierConfig{Profiles: accountProfiles}),
		Observer:    progress,
	}

	return &pipeline{
		registry:     reg,
		orchestrator: analysis.NewOrchestrator(cfg),
		coordinator:  analysis.NewCoordinator(cfg),
	}, nil
}

func renderResult(cmd *cobra.Command, reporter *export.Reporter, format string, result domain.AnalysisResult) error {
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "", "text":
		return reporter.Handle(&result)
	default:
		return fmt.Errorf("unknown output format %q, expected text or json", format)
	}
}
