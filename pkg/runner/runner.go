package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

//go:generate go run go.uber.org/mock/mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks

// Runner executes commands.
type Runner interface {
	// Run executes cmd. For tolerant commands a failure yields (nil, nil).
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// DefaultMaxOutput caps each captured stream.
const DefaultMaxOutput = 4 << 20

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	logger    *slog.Logger
	maxOutput int
}

var _ Runner = (*ExecRunner)(nil)

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithMaxOutput sets the per-stream capture limit in bytes.
func WithMaxOutput(n int) Option {
	return func(r *ExecRunner) {
		if n > 0 {
			r.maxOutput = n
		}
	}
}

// New creates an ExecRunner.
func New(logger *slog.Logger, opts ...Option) *ExecRunner {
	r := &ExecRunner{
		logger:    logger,
		maxOutput: DefaultMaxOutput,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	runID := uuid.New().String()
	logger := r.logger.With("command", cmd.String(), "run_id", runID)

	if cmd.Name == "" {
		return r.fail(logger, cmd, -1, "", errors.New("empty command"))
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir

	var stdout, stderr bytes.Buffer
	if cmd.Combined {
		w := &lockedWriter{w: &limitWriter{buf: &stdout, limit: r.maxOutput}}
		c.Stdout = w
		c.Stderr = w
	} else {
		c.Stdout = &limitWriter{buf: &stdout, limit: r.maxOutput}
		c.Stderr = &limitWriter{buf: &stderr, limit: r.maxOutput}
	}

	logger.Debug("running command", "dir", cmd.Dir)
	start := time.Now()
	runErr := c.Run()
	elapsed := time.Since(start)

	output := strings.TrimSpace(stdout.String())
	if runErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if !cmd.Combined && stderr.Len() > 0 {
			output = strings.TrimSpace(output + "\n" + stderr.String())
		}
		return r.fail(logger, cmd, exitCode, output, runErr)
	}

	logger.Debug("command finished", "duration", elapsed)
	return &Result{
		RunID:    runID,
		ExitCode: 0,
		Stdout:   output,
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: elapsed,
	}, nil
}

func (r *ExecRunner) fail(logger *slog.Logger, cmd Command, exitCode int, output string, err error) (*Result, error) {
	if !cmd.Check {
		logger.Debug("command unavailable", "exit_code", exitCode, "error", err)
		return nil, nil
	}
	logger.Debug("command failed", "exit_code", exitCode, "error", err)
	return nil, &CommandExecutionError{
		Command:  cmd,
		ExitCode: exitCode,
		Output:   output,
		Err:      err,
	}
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}

// lockedWriter serializes writes from the stdout and stderr copiers.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}
