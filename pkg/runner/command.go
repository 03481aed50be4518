// Package runner executes external commands for the provisioning stages.
//
// Commands are argv lists, never shell strings. A command is either strict
// (Check set), where any failure is returned as a *CommandExecutionError, or
// tolerant, where failure means "not present" and Run returns a nil result.
package runner

import (
	"fmt"
	"strings"
	"time"
)

// Command is a single external tool invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Check makes failures fatal to the caller.
	Check bool
	// Combined merges stderr into the captured stdout, preserving order.
	Combined bool
}

// Strict returns a command whose failures are reported as errors.
func Strict(name string, args ...string) Command {
	return Command{Name: name, Args: args, Check: true}
}

// Tolerant returns a command whose failures are swallowed.
func Tolerant(name string, args ...string) Command {
	return Command{Name: name, Args: args}
}

// In returns a copy of c running in dir.
func (c Command) In(dir string) Command {
	c.Dir = dir
	return c
}

// WithCombinedOutput returns a copy of c capturing stdout and stderr together.
func (c Command) WithCombinedOutput() Command {
	c.Combined = true
	return c
}

// String renders the command for logs and error messages.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result holds the output of a finished command.
type Result struct {
	RunID    string
	ExitCode int
	// Stdout is trimmed of surrounding whitespace. When the command was
	// run with Combined, it holds both streams.
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// CommandExecutionError reports a strict command that failed.
type CommandExecutionError struct {
	Command  Command
	ExitCode int // -1 when the process could not be started
	Output   string
	Err      error
}

func (e *CommandExecutionError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("command %q exited with code %d: %v", e.Command.String(), e.ExitCode, e.Err)
	}
	return fmt.Sprintf("command %q failed: %v", e.Command.String(), e.Err)
}

func (e *CommandExecutionError) Unwrap() error {
	return e.Err
}
