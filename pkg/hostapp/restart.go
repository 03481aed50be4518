package hostapp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mcpds/mcpds-setup/pkg/confirm"
	"github.com/mcpds/mcpds-setup/pkg/runner"
)

// Action is what the Restarter did.
type Action string

const (
	ActionRestarted Action = "restarted"
	ActionStarted   Action = "started"
	ActionDeclined  Action = "declined"
)

// ListCommand lists processes with the given image name.
func ListCommand(processName string) runner.Command {
	return runner.Tolerant("tasklist", "/FI", "IMAGENAME eq "+processName)
}

// KillCommand force-terminates every process with the given image name.
func KillCommand(processName string) runner.Command {
	return runner.Strict("taskkill", "/IM", processName, "/F")
}

// LaunchCommand starts appPath detached from this process.
func LaunchCommand(appPath string) runner.Command {
	return runner.Strict("cmd", "/C", "start", "", appPath)
}

// Restarter restarts the host application so it rereads its config.
type Restarter struct {
	runner      runner.Runner
	gate        confirm.Gate
	logger      *slog.Logger
	appPath     string
	processName string
	delay       time.Duration
	sleep       func(time.Duration)
}

// RestarterOption configures a Restarter.
type RestarterOption func(*Restarter)

// WithSleep replaces time.Sleep for the pause between kill and relaunch.
func WithSleep(sleep func(time.Duration)) RestarterOption {
	return func(r *Restarter) {
		r.sleep = sleep
	}
}

// NewRestarter creates a Restarter. delay is the pause between terminating
// the old process and launching the new one.
func NewRestarter(run runner.Runner, gate confirm.Gate, logger *slog.Logger, appPath, processName string, delay time.Duration, opts ...RestarterOption) *Restarter {
	r := &Restarter{
		runner:      run,
		gate:        gate,
		logger:      logger,
		appPath:     appPath,
		processName: processName,
		delay:       delay,
		sleep:       time.Sleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Running reports whether the process shows up in the process listing.
// The check is a substring search, so an unusual listing format reads as
// not running.
func (r *Restarter) Running(ctx context.Context) bool {
	res, err := r.runner.Run(ctx, ListCommand(r.processName))
	if err != nil || res == nil {
		return false
	}
	return strings.Contains(res.Stdout, r.processName)
}

// Restart relaunches the application if the operator agrees, or starts it
// when it is not running.
func (r *Restarter) Restart(ctx context.Context) (Action, error) {
	if !r.Running(ctx) {
		r.logger.Info("starting Claude")
		if err := r.launch(ctx); err != nil {
			return "", err
		}
		return ActionStarted, nil
	}

	ok, err := r.gate.Confirm("Claude is running. Restart it?")
	if err != nil {
		return "", err
	}
	if !ok {
		r.logger.Info("restart skipped; changes apply after Claude is restarted")
		return ActionDeclined, nil
	}

	r.logger.Info("restarting Claude")
	if _, err := r.runner.Run(ctx, KillCommand(r.processName)); err != nil {
		return "", fmt.Errorf("stopping Claude: %w", err)
	}
	r.sleep(r.delay)
	if err := r.launch(ctx); err != nil {
		return "", err
	}
	r.logger.Info("Claude restarted successfully")
	return ActionRestarted, nil
}

func (r *Restarter) launch(ctx context.Context) error {
	if _, err := r.runner.Run(ctx, LaunchCommand(r.appPath)); err != nil {
		return fmt.Errorf("launching Claude: %w", err)
	}
	return nil
}
