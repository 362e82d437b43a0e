// Package report prints the end-of-run summary to the console.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-notifier/internal/model"
	"github.com/nhle/task-notifier/internal/sync"
	"github.com/nhle/task-notifier/internal/theme"
)

// Print writes the counts of res and its overdue list. With styled unset
// the output is plain text suitable for logs and pipes.
func Print(w io.Writer, res *sync.Result, styled bool) error {
	if res == nil {
		return nil
	}
	var out string
	if styled {
		out = renderStyled(res)
	} else {
		out = renderPlain(res)
	}
	_, err := io.WriteString(w, out)
	return err
}

type count struct {
	label string
	n     int
}

func counts(res *sync.Result) []count {
	return []count{
		{"tasks", res.Tasks},
		{"meetings", res.Meetings},
		{"skipped", res.Skipped},
		{"failed", res.Failed},
	}
}

func renderPlain(res *sync.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run summary (%s mode)\n", res.Mode)
	for _, c := range counts(res) {
		fmt.Fprintf(&b, "  %-10s%d\n", c.label, c.n)
	}
	if len(res.Overdue) > 0 {
		fmt.Fprintf(&b, "Overdue (%d)\n", len(res.Overdue))
		for _, rec := range res.Overdue {
			fmt.Fprintf(&b, "  - [%s] %s%s\n    %s\n", rec.Kind, rec.Title, overdueWhen(rec), rec.URL)
		}
	}
	return b.String()
}

func renderStyled(res *sync.Result) string {
	lines := make([]string, 0, 4)
	for _, c := range counts(res) {
		lines = append(lines, theme.LabelStyle.Render(c.label)+
			theme.CountStyle(c.label, c.n).Render(fmt.Sprint(c.n)))
	}

	sections := []string{
		theme.HeaderStyle.Render(fmt.Sprintf("Run summary (%s mode)", res.Mode)),
		theme.PanelStyle.Render(strings.Join(lines, "\n")),
	}

	if len(res.Overdue) > 0 {
		items := []string{theme.WarningStyle.Render(fmt.Sprintf("Overdue (%d)", len(res.Overdue)))}
		for _, rec := range res.Overdue {
			items = append(items,
				theme.KindStyle(rec.Kind).Render(string(rec.Kind))+" "+rec.Title+overdueWhen(rec),
				"    "+theme.LinkStyle.Render(rec.URL),
			)
		}
		sections = append(sections, strings.Join(items, "\n"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func overdueWhen(rec model.Record) string {
	if raw, ok := rec.When(); ok {
		return " (" + raw + ")"
	}
	return ""
}
