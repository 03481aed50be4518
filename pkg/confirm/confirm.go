// Package confirm asks the operator yes/no questions.
package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrNoAnswer is returned when input ends before a yes or no was given.
var ErrNoAnswer = errors.New("no answer: input closed")

// Gate is a yes/no decision point.
type Gate interface {
	Confirm(question string) (bool, error)
}

// GateFunc adapts a function to Gate.
type GateFunc func(question string) (bool, error)

// Confirm calls f.
func (f GateFunc) Confirm(question string) (bool, error) { return f(question) }

var questionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// Prompter reads answers line by line. It blocks until the operator answers.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	styled      bool
	interactive bool
}

var _ Gate = (*Prompter)(nil)

// NewPrompter creates a Prompter reading from in and writing prompts to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:          bufio.NewReader(in),
		out:         out,
		styled:      isTerminal(out),
		interactive: IsInteractive(in),
	}
}

// Confirm asks question until the answer is y, yes, n or no.
func (p *Prompter) Confirm(question string) (bool, error) {
	prompt := question + " (y/n): "
	if p.styled {
		prompt = questionStyle.Render(question) + " (y/n): "
	}

	for {
		fmt.Fprint(p.out, prompt)

		line, err := p.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("reading answer: %w", err)
		}

		if answer, ok := ParseAnswer(line); ok {
			return answer, nil
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(p.out)
			if !p.interactive {
				return false, fmt.Errorf("%w (stdin is not a terminal; run setup from a console or pipe y/n answers)", ErrNoAnswer)
			}
			return false, ErrNoAnswer
		}
		fmt.Fprintln(p.out, "Please answer 'y' or 'n'")
	}
}

// ParseAnswer normalizes a free-text response. ok is false when the text is
// neither a yes nor a no.
func ParseAnswer(s string) (answer, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true, true
	case "n", "no":
		return false, true
	default:
		return false, false
	}
}

// IsInteractive reports whether r is a terminal the operator can type into.
func IsInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
