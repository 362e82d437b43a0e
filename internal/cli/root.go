// Package cli implements the task-notifier command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nhle/task-notifier/internal/model"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
	verbose    bool
}

// NewRootCmd builds the command tree. Running the root command without a
// subcommand performs a single run.
func NewRootCmd(version string) *cobra.Command {
	g := &globalFlags{}
	rf := &runFlags{}

	root := &cobra.Command{
		Use:   "task-notifier",
		Short: "Relay Notion task updates to a Discord channel",
		Long: `task-notifier polls a Notion task database and posts a message to a
Discord webhook for every task or meeting that is new or changed since the
last run. Run it from cron or a CI schedule, or use "watch" to loop.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(g.envFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, g, rf)
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", model.DefaultConfigPath(), "Config file (YAML, optional)")
	root.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "Environment file loaded before reading config")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	rf.register(root)

	root.AddCommand(runCmd(g))
	root.AddCommand(watchCmd(g))
	root.AddCommand(checkCmd(g))
	root.AddCommand(historyCmd(g))
	root.AddCommand(configCmd(g))
	root.AddCommand(credentialCmd())

	return root
}

// Execute runs the command line with SIGINT and SIGTERM cancelling the
// context.
func Execute(version string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// loadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set. A missing file is fine.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
