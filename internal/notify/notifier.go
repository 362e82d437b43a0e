package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nhle/task-notifier/internal/member"
	"github.com/nhle/task-notifier/internal/model"
)

// noMentions stands in for an empty mention list.
const noMentions = "（メンション対象なし）"

// Message is the data one notification is rendered from. Assignees and
// Checkers hold display names, looked up in the user map.
type Message struct {
	Kind      model.Kind
	Title     string
	RecordID  string
	URL       string
	Assignees []string
	Checkers  []string

	// When is the raw deadline (tasks) or start time (meetings).
	When string
}

// Options configure a Notifier.
type Options struct {
	AdminID         string
	TimestampTokens bool
	Location        *time.Location
	Logger          *slog.Logger
}

// Notifier renders messages and hands them to a Sender.
type Notifier struct {
	users  member.UserMap
	sender Sender
	opts   Options
}

// New creates a Notifier. A nil Location means UTC.
func New(users member.UserMap, sender Sender, opts Options) *Notifier {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Notifier{users: users, sender: sender, opts: opts}
}

// unmapped lists the names of one role that have no user map entry.
type unmapped struct {
	role  string
	names []string
}

// Notify renders msg, sends it and returns the content that was sent.
// Names missing from the user map are logged here, once per delivery.
func (n *Notifier) Notify(ctx context.Context, msg Message) (string, error) {
	content, missing, err := n.render(msg)
	if err != nil {
		return "", err
	}
	for _, u := range missing {
		n.opts.Logger.Warn("user not in user map",
			"role", u.role,
			"names", u.names,
			"record", msg.RecordID,
			"title", msg.Title,
		)
	}
	if err := n.sender.Send(ctx, content); err != nil {
		return "", fmt.Errorf("sending notification for %s: %w", msg.RecordID, err)
	}
	return content, nil
}

// Render builds the message content without sending it. Names missing
// from the user map are listed in a footnote rather than dropped.
func (n *Notifier) Render(msg Message) (string, error) {
	content, _, err := n.render(msg)
	return content, err
}

func (n *Notifier) render(msg Message) (string, []unmapped, error) {
	label, err := whenLabel(msg.Kind)
	if err != nil {
		return "", nil, err
	}
	when, err := FormatWhen(msg.When, n.opts.Location, n.opts.TimestampTokens)
	if err != nil {
		return "", nil, fmt.Errorf("formatting %s of %s: %w", label, msg.RecordID, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "> # %s\n", msg.Title)
	fmt.Fprintf(&b, "## %s: %s\n", label, when)

	assignees, unknownAssignees := n.users.Mentions(msg.Assignees)
	b.WriteString("## 担当者\n")
	writeMentions(&b, assignees)

	var unknownCheckers []string
	if len(msg.Checkers) > 0 {
		var checkers []string
		checkers, unknownCheckers = n.users.Mentions(msg.Checkers)
		b.WriteString("## 確認者\n")
		writeMentions(&b, checkers)
	}

	b.WriteString("\n👇 **詳細はこちら**\n")
	b.WriteString(msg.URL)
	b.WriteString("\n")

	var missing []unmapped
	for _, u := range []unmapped{{"担当者", unknownAssignees}, {"確認者", unknownCheckers}} {
		if len(u.names) == 0 {
			continue
		}
		n.footnote(&b, u)
		missing = append(missing, u)
	}

	return b.String(), missing, nil
}

func (n *Notifier) footnote(b *strings.Builder, u unmapped) {
	b.WriteString("-# ")
	if n.opts.AdminID != "" {
		b.WriteString(member.Mention(n.opts.AdminID) + " ")
	}
	fmt.Fprintf(b, "%sのDiscordIDが未登録です: %s\n", u.role, strings.Join(u.names, ", "))
}

func writeMentions(b *strings.Builder, mentions []string) {
	if len(mentions) == 0 {
		b.WriteString(noMentions + "\n")
		return
	}
	for _, m := range mentions {
		b.WriteString(`\- ` + m + "\n")
	}
}

func whenLabel(kind model.Kind) (string, error) {
	switch kind {
	case model.KindTask:
		return "締切日", nil
	case model.KindMeeting:
		return "開始日時", nil
	default:
		return "", fmt.Errorf("no message template for kind %q", kind)
	}
}
