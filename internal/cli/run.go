package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nhle/task-notifier/internal/model"
)

// runFlags override the run section of the config when set.
type runFlags struct {
	interactive bool
	dryRun      bool
	mode        string
}

func (rf *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&rf.interactive, "interactive", "i", false, "Confirm each notification before sending")
	cmd.Flags().BoolVar(&rf.dryRun, "dry-run", false, "Log messages instead of sending; write nothing")
	cmd.Flags().StringVar(&rf.mode, "mode", "", "Reconciliation mode: checkbox or status")
}

// apply copies explicitly set flags onto cfg.
func (rf *runFlags) apply(flags *pflag.FlagSet, cfg *model.AppConfig) {
	if flags.Changed("interactive") {
		cfg.Run.Interactive = rf.interactive
	}
	if flags.Changed("dry-run") {
		cfg.Run.DryRun = rf.dryRun
	}
	if flags.Changed("mode") {
		cfg.Run.Mode = rf.mode
	}
}

func runCmd(g *globalFlags) *cobra.Command {
	rf := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Notify about new or changed tasks once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, g, rf)
		},
	}
	rf.register(cmd)
	return cmd
}

func runOnce(cmd *cobra.Command, g *globalFlags, rf *runFlags) error {
	logger := newLogger(cmd.ErrOrStderr(), g.verbose)

	cfg, err := loadConfig(g, logger)
	if err != nil {
		return err
	}
	rf.apply(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	return reconcile(cmd.Context(), cmd, cfg, logger)
}
