// Package commands holds the cobra command tree of the servopanel binary.
package commands

import (
	base "github.com/n3wscott/cli-base/pkg/commands/options"
	"github.com/spf13/cobra"

	"servopanel/internal/config"
)

type rootOptions struct {
	configDir string
}

// New builds the root command with every subcommand attached.
func New() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "servopanel",
		Short: base.Wrap80("Command coordinator for a bank of remote servos: debounced moves, " +
			"exclusive sweeps and position reconciliation against the servo backend."),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configDir, "config", "", "directory holding config.yml (default ./configs)")

	addCommands(cmd, opts)
	return cmd
}

func addCommands(topLevel *cobra.Command, opts *rootOptions) {
	addServe(topLevel, opts)
	addFleet(topLevel, opts)
	addHealth(topLevel, opts)
	addVersion(topLevel)
}

// Execute runs the root command.
func Execute() error {
	return New().Execute()
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(config.New(o.configDir))
}
