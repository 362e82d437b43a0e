package cli

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"os"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/nhle/task-notifier/internal/credential"
	"github.com/nhle/task-notifier/internal/member"
	"github.com/nhle/task-notifier/internal/model"
	"github.com/nhle/task-notifier/internal/notify"
	"github.com/nhle/task-notifier/internal/prompt"
	"github.com/nhle/task-notifier/internal/report"
	"github.com/nhle/task-notifier/internal/source/notion"
	"github.com/nhle/task-notifier/internal/store"
	"github.com/nhle/task-notifier/internal/sync"
)

// loadConfig reads the config file and environment and fills secrets
// from the keyring. Callers validate after applying their flags.
func loadConfig(g *globalFlags, logger *slog.Logger) (*model.AppConfig, error) {
	cfg, err := model.LoadConfig(g.configPath)
	if err != nil {
		return nil, err
	}

	// The keyring is optional; a headless host without one still works
	// with environment variables.
	if err := credential.Fill(&cfg.Notion.Token, credential.KeyNotionToken); err != nil {
		logger.Debug("keyring unavailable", "key", credential.KeyNotionToken, "error", err)
	}
	if err := credential.Fill(&cfg.Discord.WebhookURL, credential.KeyDiscordWebhookURL); err != nil {
		logger.Debug("keyring unavailable", "key", credential.KeyDiscordWebhookURL, "error", err)
	}

	return cfg, nil
}

func newAdapter(cfg *model.AppConfig) *notion.Adapter {
	client := notion.NewClient(notion.ClientOptions{
		BaseURL:           cfg.Notion.BaseURL,
		Token:             cfg.Notion.Token,
		APIVersion:        cfg.Notion.APIVersion,
		RequestsPerSecond: cfg.Notion.RequestsPerSecond,
	})
	return notion.NewAdapter(
		client,
		cfg.Notion.TaskDatabaseID,
		cfg.Notion.PageHost,
		cfg.Properties,
		cfg.Values,
	)
}

func newRunID() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}

// reconcile performs one full run: it wires the components from cfg,
// runs the reconciler and prints the report.
func reconcile(ctx context.Context, cmd *cobra.Command, cfg *model.AppConfig, logger *slog.Logger) error {
	logger = logger.With("run_id", newRunID())

	users, err := member.LoadUserMap(cfg.State.UserMapPath)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return fmt.Errorf("%w (%s)", member.ErrEmptyUserMap, cfg.State.UserMapPath)
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.State)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer st.Close()

	var sender notify.Sender = notify.NewWebhook(cfg.Discord.WebhookURL, cfg.Discord.Silent, nil)
	if cfg.Run.DryRun {
		sender = notify.LogSender{Logger: logger}
	}
	notifier := notify.New(users, sender, notify.Options{
		AdminID:         cfg.Discord.AdminID,
		TimestampTokens: cfg.Discord.TimestampTokens,
		Location:        loc,
		Logger:          logger,
	})

	var prompter prompt.Prompter
	if cfg.Run.Interactive {
		prompter = prompt.ForTerminal(os.Stdin, os.Stdout)
	}

	reconciler := sync.NewReconciler(sync.Deps{
		Source:   newAdapter(cfg),
		Store:    st,
		Notifier: notifier,
		Prompter: prompter,
		Logger:   logger,
	}, sync.Options{
		Mode:             cfg.Run.Mode,
		Interactive:      cfg.Run.Interactive,
		ReportOverdue:    cfg.Run.ReportOverdue,
		DryRun:           cfg.Run.DryRun,
		MemberDatabaseID: cfg.Notion.MemberDatabaseID,
		Properties:       cfg.Properties,
		Values:           cfg.Values,
		Location:         loc,
	})

	res, runErr := reconciler.Run(ctx)
	out := cmd.OutOrStdout()
	if err := report.Print(out, res, prompt.IsTerminal(out)); err != nil {
		logger.Warn("printing report", "error", err)
	}
	return runErr
}
