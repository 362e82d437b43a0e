package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Reconciliation modes.
const (
	// ModeCheckbox queries only in-progress records whose notified checkbox
	// is still false and marks them notified after delivery.
	ModeCheckbox = "checkbox"

	// ModeStatus fetches every record and diffs its status against the
	// locally persisted snapshot.
	ModeStatus = "status"
)

// State backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// NotionConfig holds the credentials and identifiers for the Notion API.
type NotionConfig struct {
	// Token is the integration secret. Falls back to the system keyring
	// when empty.
	Token string `mapstructure:"token" yaml:"token" validate:"required"`

	// TaskDatabaseID is the database holding tasks and meetings.
	TaskDatabaseID string `mapstructure:"task_database_id" yaml:"task_database_id" validate:"required"`

	// MemberDatabaseID is the database that relation-type assignee
	// fields point into.
	MemberDatabaseID string `mapstructure:"member_database_id" yaml:"member_database_id" validate:"required"`

	BaseURL           string  `mapstructure:"base_url" yaml:"base_url" validate:"required,url"`
	APIVersion        string  `mapstructure:"api_version" yaml:"api_version" validate:"required"`
	PageHost          string  `mapstructure:"page_host" yaml:"page_host" validate:"required"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" validate:"gt=0"`
}

// DiscordConfig holds the chat webhook settings.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url" validate:"required,url"`

	// AdminID is mentioned next to the unregistered-user footnote so
	// someone can fix the user map.
	AdminID string `mapstructure:"admin_id" yaml:"admin_id"`

	// Silent sets the suppress-notifications flag on every message.
	Silent bool `mapstructure:"silent" yaml:"silent"`

	// TimestampTokens appends a <t:unix:style> token so clients render
	// the date in the viewer's time zone.
	TimestampTokens bool `mapstructure:"timestamp_tokens" yaml:"timestamp_tokens"`
}

// PropertyConfig names the Notion properties read and written by the
// reconciler. Empty optional names disable the feature.
type PropertyConfig struct {
	Title     string `mapstructure:"title" yaml:"title" validate:"required"`
	Status    string `mapstructure:"status" yaml:"status" validate:"required"`
	Kind      string `mapstructure:"kind" yaml:"kind" validate:"required"`
	Assignee  string `mapstructure:"assignee" yaml:"assignee" validate:"required"`
	Checker   string `mapstructure:"checker" yaml:"checker"`
	Deadline  string `mapstructure:"deadline" yaml:"deadline" validate:"required"`
	StartTime string `mapstructure:"start_time" yaml:"start_time" validate:"required"`
	Notified  string `mapstructure:"notified" yaml:"notified" validate:"required"`
	Suppress  string `mapstructure:"suppress" yaml:"suppress"`
	Force     string `mapstructure:"force" yaml:"force"`
}

// ValueConfig holds the option values the reconciler matches against.
type ValueConfig struct {
	InProgressStatus string `mapstructure:"in_progress_status" yaml:"in_progress_status" validate:"required"`

	// InProgressStatusID, when set, is compared instead of the status
	// name in status mode.
	InProgressStatusID string `mapstructure:"in_progress_status_id" yaml:"in_progress_status_id"`

	TaskKind    string `mapstructure:"task_kind" yaml:"task_kind" validate:"required"`
	MeetingKind string `mapstructure:"meeting_kind" yaml:"meeting_kind" validate:"required"`
}

// StateConfig controls where notification state is persisted.
type StateConfig struct {
	Backend     string `mapstructure:"backend" yaml:"backend" validate:"oneof=json sqlite"`
	Path        string `mapstructure:"path" yaml:"path" validate:"required"`
	UserMapPath string `mapstructure:"user_map_path" yaml:"user_map_path" validate:"required"`
}

// RunConfig holds reconciliation behavior switches.
type RunConfig struct {
	Mode          string `mapstructure:"mode" yaml:"mode" validate:"oneof=checkbox status"`
	Interactive   bool   `mapstructure:"interactive" yaml:"interactive"`
	ReportOverdue bool   `mapstructure:"report_overdue" yaml:"report_overdue"`
	DryRun        bool   `mapstructure:"dry_run" yaml:"dry_run"`
	Timezone      string `mapstructure:"timezone" yaml:"timezone" validate:"required"`

	// WatchIntervalSec is the default period of the watch command.
	WatchIntervalSec int `mapstructure:"watch_interval_sec" yaml:"watch_interval_sec" validate:"gte=0"`
}

// AppConfig is the top-level application configuration. It is built once
// at process start and handed to each component constructor.
type AppConfig struct {
	Notion     NotionConfig   `mapstructure:"notion" yaml:"notion"`
	Discord    DiscordConfig  `mapstructure:"discord" yaml:"discord"`
	Properties PropertyConfig `mapstructure:"properties" yaml:"properties"`
	Values     ValueConfig    `mapstructure:"values" yaml:"values"`
	State      StateConfig    `mapstructure:"state" yaml:"state"`
	Run        RunConfig      `mapstructure:"run" yaml:"run"`
}

// envPrefix namespaces generic environment overrides, e.g.
// TASK_NOTIFIER_RUN_MODE=status.
const envPrefix = "TASK_NOTIFIER"

// legacyEnv maps config keys to the plain variable names used by
// existing .env files.
var legacyEnv = map[string]string{
	"notion.token":              "NOTION_TOKEN",
	"notion.task_database_id":   "NOTION_TASK_DATABASE_ID",
	"notion.member_database_id": "NOTION_MEMBER_DATABASE_ID",
	"discord.webhook_url":       "DISCORD_WEBHOOK_URL",
	"discord.admin_id":          "DISCORD_ADMIN_ID",
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/task-notifier/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "task-notifier", "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.task_database_id", "")
	v.SetDefault("notion.member_database_id", "")
	v.SetDefault("notion.base_url", "https://api.notion.com")
	v.SetDefault("notion.api_version", "2022-06-28")
	v.SetDefault("notion.page_host", "www.notion.so")
	v.SetDefault("notion.requests_per_second", 3.0)

	v.SetDefault("discord.webhook_url", "")
	v.SetDefault("discord.admin_id", "")
	v.SetDefault("discord.silent", true)
	v.SetDefault("discord.timestamp_tokens", true)

	v.SetDefault("properties.title", "名前")
	v.SetDefault("properties.status", "ステータス")
	v.SetDefault("properties.kind", "種類")
	v.SetDefault("properties.assignee", "担当者")
	v.SetDefault("properties.checker", "")
	v.SetDefault("properties.deadline", "締切日")
	v.SetDefault("properties.start_time", "締切日")
	v.SetDefault("properties.notified", "通知済み")
	v.SetDefault("properties.suppress", "非通知")
	v.SetDefault("properties.force", "強制通知")

	v.SetDefault("values.in_progress_status", "進行中")
	v.SetDefault("values.in_progress_status_id", "")
	v.SetDefault("values.task_kind", "タスク")
	v.SetDefault("values.meeting_kind", "会議")

	v.SetDefault("state.backend", BackendJSON)
	v.SetDefault("state.path", filepath.Join("log", "last_state.json"))
	v.SetDefault("state.user_map_path", filepath.Join("data", "user_map.json"))

	v.SetDefault("run.mode", ModeCheckbox)
	v.SetDefault("run.interactive", false)
	v.SetDefault("run.report_overdue", true)
	v.SetDefault("run.dry_run", false)
	v.SetDefault("run.timezone", "Asia/Tokyo")
	v.SetDefault("run.watch_interval_sec", 900)
}

// LoadConfig reads configuration from the optional YAML file at path and
// the environment using Viper. A missing file is not an error; defaults
// and environment values apply.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		prefixed := envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			_, pathErr := err.(*os.PathError)
			if !notFound && !pathErr {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks required fields and enumerations. It runs before any
// network call so a missing token fails fast instead of surfacing as a
// 401 from the API.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("%s failed '%s'", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Location resolves the configured time zone.
func (c *AppConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Run.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading time zone %q: %w", c.Run.Timezone, err)
	}
	return loc, nil
}

// Redacted returns a copy safe to print: secrets are masked.
func (c AppConfig) Redacted() AppConfig {
	c.Notion.Token = mask(c.Notion.Token)
	c.Discord.WebhookURL = mask(c.Discord.WebhookURL)
	return c
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("notion", cfg.Notion)
	v.Set("discord", cfg.Discord)
	v.Set("properties", cfg.Properties)
	v.Set("values", cfg.Values)
	v.Set("state", cfg.State)
	v.Set("run", cfg.Run)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
