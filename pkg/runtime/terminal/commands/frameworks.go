package commands

import (
	"fmt"

	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"github.com/de-tools/compliance-atlas/pkg/services/registry"

	"github.com/spf13/cobra"
)

type FrameworksCmd struct {
	frameworksDir string
	status        string
	env           Environment
}

func NewFrameworksCmd(env Environment) *cobra.Command {
	fc := &FrameworksCmd{env: env}
	cmd := &cobra.Command{
		Use:   "frameworks",
		Short: "List the available compliance frameworks",
		RunE:  fc.run,
	}

	cmd.Flags().StringVar(&fc.frameworksDir, "frameworks-dir", "", "Directory holding framework definitions")
	cmd.Flags().StringVar(&fc.status, "status", "", "Filter by framework status (ACTIVE, DEPRECATED or DRAFT)")

	return cmd
}

func (fc *FrameworksCmd) run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings, err := fc.env.LoadSettings()
	if err != nil {
		return err
	}

	dir := fc.frameworksDir
	if dir == "" {
		dir = settings.Frameworks.Dir
	}

	reg, err := registry.LoadDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to load frameworks from %s: %w", dir, err)
	}

	frameworks, err := reg.ListFrameworks(ctx, registry.Filter{Status: domain.FrameworkStatus(fc.status)})
	if err != nil {
		return err
	}

	if len(frameworks) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No frameworks found in %s\n", dir)
		return nil
	}

	for _, framework := range frameworks {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s (version %s, %s, %d rules)\n",
			framework.ID, framework.Name, framework.Version, framework.Status, len(framework.Rules))
	}

	return nil
}
