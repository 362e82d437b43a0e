// Package prompt asks the operator to confirm notifications before they
// are sent.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Answer is the operator's reply to a confirmation.
type Answer int

const (
	No Answer = iota
	Yes
	Exit
)

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Exit:
		return "exit"
	default:
		return fmt.Sprintf("Answer(%d)", int(a))
	}
}

// ErrTooManyAttempts is returned when the operator keeps giving input
// that is neither yes, no nor exit.
var ErrTooManyAttempts = errors.New("too many invalid answers")

// DefaultMaxAttempts bounds how often an invalid answer is re-asked.
const DefaultMaxAttempts = 5

// Prompter asks a yes/no/exit question about message.
type Prompter interface {
	Ask(ctx context.Context, message string) (Answer, error)
}

// ParseAnswer maps typed input to an Answer. Matching is exact apart from
// surrounding whitespace.
func ParseAnswer(input string) (Answer, bool) {
	switch strings.TrimSpace(input) {
	case "Yes", "yes", "Y", "y":
		return Yes, true
	case "No", "no", "N", "n":
		return No, true
	case "Stop", "stop", "S", "s", "exit", "e":
		return Exit, true
	default:
		return No, false
	}
}

// LinePrompter reads answers line by line, e.g. from stdin.
type LinePrompter struct {
	in          *bufio.Reader
	out         io.Writer
	maxAttempts int
}

// NewLinePrompter creates a prompter reading from in and writing to out.
// A non-positive maxAttempts uses DefaultMaxAttempts.
func NewLinePrompter(in io.Reader, out io.Writer, maxAttempts int) *LinePrompter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &LinePrompter{in: bufio.NewReader(in), out: out, maxAttempts: maxAttempts}
}

// Ask prints message and reads answers until a valid one arrives. End of
// input counts as Exit.
func (p *LinePrompter) Ask(ctx context.Context, message string) (Answer, error) {
	fmt.Fprintf(p.out, "%s\n\n", message)

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Exit, err
		}

		fmt.Fprint(p.out, "Do you want to continue? (y/n/exit) ")
		line, err := p.in.ReadString('\n')
		if answer, ok := ParseAnswer(line); ok {
			return answer, nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			return Exit, nil
		}
		if err != nil {
			return Exit, fmt.Errorf("reading answer: %w", err)
		}
	}
	return Exit, ErrTooManyAttempts
}

// Auto answers Yes to everything. It stands in for an operator in
// automatic runs.
type Auto struct{}

// Ask always returns Yes.
func (Auto) Ask(context.Context, string) (Answer, error) {
	return Yes, nil
}
