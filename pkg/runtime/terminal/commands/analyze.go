package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"

	"github.com/spf13/cobra"
)

type AnalyzeCmd struct {
	file          string
	frameworks    []string
	frameworksDir string
	format        string
	failFast      bool
	env           Environment
}

func NewAnalyzeCmd(env Environment) *cobra.Command {
	ac := &AnalyzeCmd{env: env}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze an infrastructure template against compliance frameworks",
		RunE:  ac.run,
	}

	// Define flags
	cmd.Flags().StringVar(&ac.file, "file", "", "Path to the template to analyze")
	cmd.Flags().StringSliceVar(&ac.frameworks, "framework", nil, "Framework id to evaluate against (repeatable)")
	cmd.Flags().StringVar(&ac.frameworksDir, "frameworks-dir", "", "Directory holding framework definitions")
	cmd.Flags().StringVar(&ac.format, "format", "text", "Output format (text or json)")
	cmd.Flags().BoolVar(&ac.failFast, "fail-fast", false, "Stop after the first failed unit")

	// Mark required flags
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("framework")

	return cmd
}

func (ac *AnalyzeCmd) run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	settings, err := ac.env.LoadSettings()
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(ctx, settings, ac.frameworksDir, "", nil)
	if err != nil {
		return err
	}

	result, err := pipe.orchestrator.Run(ctx, domain.AnalysisRequest{
		Targets:      []domain.Target{domain.TemplateTarget{Location: ac.file}},
		FrameworkIDs: ac.frameworks,
		Options: domain.AnalysisOptions{
			FailFast: ac.failFast || settings.Analysis.FailFast,
		},
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return renderResult(cmd, ac.env.Reporter, ac.format, result)
}
