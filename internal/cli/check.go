package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/task-notifier/internal/member"
)

func checkCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the configuration, Notion access and the user map",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			logger := newLogger(cmd.ErrOrStderr(), g.verbose)

			failed := 0
			check := func(name string, err error, detail string) {
				if err != nil {
					fmt.Fprintf(out, "  ✗ %s: %v\n", name, err)
					failed++
					return
				}
				fmt.Fprintf(out, "  ✓ %s%s\n", name, detail)
			}

			cfg, err := loadConfig(g, logger)
			if err == nil {
				err = cfg.Validate()
			}
			check("config", err, "")
			if err != nil {
				return fmt.Errorf("%d check(s) failed", failed)
			}

			users, err := member.LoadUserMap(cfg.State.UserMapPath)
			if err == nil && len(users) == 0 {
				err = member.ErrEmptyUserMap
			}
			check("user map "+cfg.State.UserMapPath, err, fmt.Sprintf(" (%d users)", len(users)))

			adapter := newAdapter(cfg)
			bot, err := adapter.ValidateConnection(cmd.Context())
			check("notion token", err, " ("+bot+")")

			members, err := member.LoadMembers(cmd.Context(), adapter, cfg.Notion.MemberDatabaseID)
			check("member database", err, fmt.Sprintf(" (%d members)", len(members)))

			var unmapped []string
			for _, name := range members {
				if _, ok := users[name]; !ok {
					unmapped = append(unmapped, name)
				}
			}
			if len(unmapped) > 0 {
				fmt.Fprintf(out, "  ! members without a Discord id: %v\n", unmapped)
			}

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}
