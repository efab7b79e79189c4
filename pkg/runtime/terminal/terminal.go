package terminal

import (
	"io"
	"os"

	"github.com/de-tools/compliance-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/compliance-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/compliance-atlas/pkg/services/config"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	cfgPath  string
	reporter *export.Reporter
	progress *ProgressReporter
	rootCmd  *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Output io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		reporter: export.NewReporter(opts.Output),
		progress: NewProgressReporter(opts.Output),
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "atlas",
		Short: "Infrastructure compliance analysis tool",
	}

	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "", "Path to the settings file")

	env := commands.Environment{
		LoadSettings: cli.loadSettings,
		Reporter:     cli.reporter,
		Progress:     cli.progress,
	}

	cmd.AddCommand(commands.NewAnalyzeCmd(env))
	cmd.AddCommand(commands.NewScanCmd(env))
	cmd.AddCommand(commands.NewFrameworksCmd(env))

	return cmd
}

func (cli *CLI) loadSettings() (*config.Settings, error) {
	settings := config.Default()
	if cli.cfgPath != "" {
		loaded, err := config.LoadSettings(cli.cfgPath)
		if err != nil {
			return nil, err
		}
		settings = loaded
	}
	settings.ApplyEnv()
	return settings, nil
}
