package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nhle/task-notifier/internal/model"
)

func configCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, newLogger(cmd.ErrOrStderr(), g.verbose))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			data, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# Effective configuration (%s + environment)\n", g.configPath)
			_, err = out.Write(data)
			return err
		},
	}

	cmd.AddCommand(configInitCmd(g))
	cmd.AddCommand(configPathCmd(g))
	return cmd
}

func configInitCmd(g *globalFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(g.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", g.configPath)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}

			// Defaults only: secrets belong in the environment or keyring.
			cfg, err := model.LoadConfig("")
			if err != nil {
				return err
			}
			cfg.Notion.Token = ""
			cfg.Discord.WebhookURL = ""

			if err := model.SaveConfig(g.configPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", g.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}

func configPathCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), g.configPath)
		},
	}
}
