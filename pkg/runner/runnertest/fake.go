// Package runnertest provides a scripted Runner for tests.
package runnertest

import (
	"context"
	"errors"
	"sync"

	"github.com/mcpds/mcpds-setup/pkg/runner"
)

// ErrNotScripted is the cause reported for commands with no response.
var ErrNotScripted = errors.New("executable not found")

// Response is the scripted outcome of a command.
type Response struct {
	Output   string
	ExitCode int
	// Effect runs before the response is returned, e.g. to create files a
	// real tool would produce.
	Effect func() error
}

// Fake is a runner.Runner that answers from a script keyed by
// Command.String(). Unscripted commands behave like a missing executable.
type Fake struct {
	mu     sync.Mutex
	script map[string][]Response
	calls  []runner.Command
}

var _ runner.Runner = (*Fake)(nil)

// NewFake creates an empty fake.
func NewFake() *Fake {
	return &Fake{script: make(map[string][]Response)}
}

// On queues resp for the command rendered as line. Queued responses are
// consumed in order; the last one repeats.
func (f *Fake) On(line string, resp Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script[line] = append(f.script[line], resp)
	return f
}

// Calls returns the commands run so far.
func (f *Fake) Calls() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Command(nil), f.calls...)
}

// Ran reports whether a command rendered as line was run.
func (f *Fake) Ran(line string) bool {
	for _, c := range f.Calls() {
		if c.String() == line {
			return true
		}
	}
	return false
}

// Run implements runner.Runner with the same strict/tolerant semantics as
// runner.ExecRunner.
func (f *Fake) Run(_ context.Context, cmd runner.Command) (*runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	queue := f.script[cmd.String()]
	var resp *Response
	if len(queue) > 0 {
		r := queue[0]
		resp = &r
		if len(queue) > 1 {
			f.script[cmd.String()] = queue[1:]
		}
	}
	f.mu.Unlock()

	if resp == nil {
		return failure(cmd, -1, "", ErrNotScripted)
	}
	if resp.Effect != nil {
		if err := resp.Effect(); err != nil {
			return failure(cmd, -1, "", err)
		}
	}
	if resp.ExitCode != 0 {
		return failure(cmd, resp.ExitCode, resp.Output, errors.New("exit status"))
	}
	return &runner.Result{RunID: "fake", Stdout: resp.Output}, nil
}

func failure(cmd runner.Command, code int, output string, err error) (*runner.Result, error) {
	if !cmd.Check {
		return nil, nil
	}
	return nil, &runner.CommandExecutionError{
		Command:  cmd,
		ExitCode: code,
		Output:   output,
		Err:      err,
	}
}
