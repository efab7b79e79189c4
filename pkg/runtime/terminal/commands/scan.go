package commands

import (
	"context"
	"fmt"
	"os/user"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/profiles"

	"github.com/spf13/cobra"
)

type ScanCmd struct {
	profiles       []string
	accounts       []string
	regions        []string
	allProfiles    bool
	profilesPath   string
	frameworks     []string
	frameworksDir  string
	format         string
	parallel       bool
	maxConcurrency int
	failFast       bool
	env            Environment
}

func NewScanCmd(env Environment) *cobra.Command {
	sc := &ScanCmd{env: env}
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan live cloud accounts against compliance frameworks",
		RunE:  sc.run,
	}

	usr, _ := user.Current()
	defaultProfiles := fmt.Sprintf("%s/.aws/config", usr.HomeDir)

	cmd.Flags().StringSliceVar(&sc.profiles, "profile", nil, "Account profile to scan (repeatable)")
	cmd.Flags().StringSliceVar(&sc.accounts, "account", nil, "Account id to scan with ambient credentials (repeatable)")
	cmd.Flags().StringSliceVar(&sc.regions, "region", nil, "Region to scan (repeatable)")
	cmd.Flags().BoolVar(&sc.allProfiles, "all-profiles", false, "Scan every profile in the profile registry")
	cmd.Flags().StringVar(&sc.profilesPath, "profiles-path", defaultProfiles,
		"Path to the account profile registry (default is $HOME/.aws/config)")
	cmd.Flags().StringSliceVar(&sc.frameworks, "framework", nil, "Framework id to evaluate against (repeatable)")
	cmd.Flags().StringVar(&sc.frameworksDir, "frameworks-dir", "", "Directory holding framework definitions")
	cmd.Flags().StringVar(&sc.format, "format", "text", "Output format (text or json)")
	cmd.Flags().BoolVar(&sc.parallel, "parallel", false, "Run scan units concurrently")
	cmd.Flags().IntVar(&sc.maxConcurrency, "max-concurrency", 0, "Concurrent unit limit when running in parallel")
	cmd.Flags().BoolVar(&sc.failFast, "fail-fast", false, "Stop after the first failed unit")

	_ = cmd.MarkFlagRequired("framework")

	return cmd
}

func (sc *ScanCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := sc.env.LoadSettings()
	if err != nil {
		return err
	}

	pipe, err := buildPipeline(ctx, settings, sc.frameworksDir, sc.profilesPath, sc.env.Progress)
	if err != nil {
		return err
	}

	targets, err := sc.resolveTargets()
	if err != nil {
		return err
	}

	maxConcurrency := sc.maxConcurrency
	if maxConcurrency == 0 {
		maxConcurrency = settings.Analysis.MaxConcurrency
	}

	scanID, err := pipe.coordinator.Start(ctx, domain.AnalysisRequest{
		Targets:      targets,
		FrameworkIDs: sc.frameworks,
		Options: domain.AnalysisOptions{
			Parallel:       sc.parallel,
			MaxConcurrency: maxConcurrency,
			FailFast:       sc.failFast || settings.Analysis.FailFast,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start scan: %w", err)
	}

	// An interrupt cancels the scan; the wait below still returns once
	// the cancelled units settle, so the partial result can be shown.
	stop := context.AfterFunc(ctx, func() { _ = pipe.coordinator.Cancel(scanID) })
	defer stop()

	if err := pipe.coordinator.Wait(context.WithoutCancel(ctx), scanID); err != nil {
		return err
	}

	result, err := pipe.coordinator.Result(scanID)
	if err != nil {
		return err
	}

	return renderResult(cmd, sc.env.Reporter, sc.format, result)
}

func (sc *ScanCmd) resolveTargets() ([]domain.Target, error) {
	var targets []domain.Target

	if sc.allProfiles {
		reg, err := profiles.NewRegistry(sc.profilesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load account profiles: %w", err)
		}
		names, err := reg.GetProfiles()
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			profile, err := reg.GetProfile(name)
			if err != nil {
				return nil, err
			}
			target := profile.Target()
			if len(sc.regions) > 0 {
				target.Regions = sc.regions
			}
			targets = append(targets, target)
		}
	}

	for _, name := range sc.profiles {
		targets = append(targets, domain.LiveAccountTarget{Profile: name, Regions: sc.regions})
	}
	for _, id := range sc.accounts {
		targets = append(targets, domain.LiveAccountTarget{AccountID: id, Regions: sc.regions})
	}

	if len(targets) == 0 {
		targets = append(targets, domain.LiveAccountTarget{Regions: sc.regions})
	}
	return targets, nil
}
