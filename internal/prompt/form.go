package prompt

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/nhle/task-notifier/internal/theme"
)

// FormPrompter asks with an interactive select in the terminal.
type FormPrompter struct{}

// Ask shows message above a Yes/No/Exit select. Aborting the form
// (ctrl+c) counts as Exit.
func (FormPrompter) Ask(ctx context.Context, message string) (Answer, error) {
	answer := Yes
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Notification preview").
				Description(message),
			huh.NewSelect[Answer]().
				Title("Do you want to continue?").
				Options(
					huh.NewOption("Yes, send it", Yes),
					huh.NewOption("No, skip it", No),
					huh.NewOption("Exit", Exit),
				).
				Value(&answer),
		),
	).WithTheme(theme.Form())

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return Exit, nil
		}
		return Exit, err
	}
	return answer, nil
}

// ForTerminal picks the form prompter when stdin and stdout are both
// terminals and the line prompter otherwise.
func ForTerminal(in *os.File, out *os.File) Prompter {
	if term.IsTerminal(int(in.Fd())) && term.IsTerminal(int(out.Fd())) {
		return FormPrompter{}
	}
	return NewLinePrompter(in, out, DefaultMaxAttempts)
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
