package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/task-notifier/internal/model"
	"github.com/nhle/task-notifier/internal/store"
)

func historyCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent deliveries (sqlite state backend only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(g, newLogger(cmd.ErrOrStderr(), g.verbose))
			if err != nil {
				return err
			}
			if cfg.State.Backend != model.BackendSQLite {
				return fmt.Errorf("history needs state.backend %q, have %q", model.BackendSQLite, cfg.State.Backend)
			}

			st, err := store.Open(cfg.State)
			if err != nil {
				return err
			}
			defer st.Close()

			deliveries, err := st.GetDeliveries(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(deliveries) == 0 {
				fmt.Fprintln(out, "No deliveries recorded.")
				return nil
			}
			for _, d := range deliveries {
				title, _, _ := strings.Cut(strings.TrimPrefix(d.Message, "> # "), "\n")
				fmt.Fprintf(out, "%s  %-8s %s  %s\n", d.SentAt.Local().Format("2006-01-02 15:04"), d.Kind, d.RecordID, title)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum deliveries to show (0 for all)")
	return cmd
}
