package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/nhle/task-notifier/internal/sync"
)

func watchCmd(g *globalFlags) *cobra.Command {
	rf := &runFlags{}
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run repeatedly on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), g.verbose)

			cfg, err := loadConfig(g, logger)
			if err != nil {
				return err
			}
			rf.apply(cmd.Flags(), cfg)
			if cfg.Run.Interactive {
				return errors.New("watch cannot run interactively")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if !cmd.Flags().Changed("interval") {
				interval = time.Duration(cfg.Run.WatchIntervalSec) * time.Second
			}
			logger.Info("watching", "interval", interval, "mode", cfg.Run.Mode)

			w := sync.NewWatcher(func(ctx context.Context) error {
				return reconcile(ctx, cmd, cfg, logger)
			}, interval, logger)
			return w.Watch(cmd.Context())
		},
	}

	rf.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", 15*time.Minute, "Time between runs (default from run.watch_interval_sec)")
	return cmd
}
