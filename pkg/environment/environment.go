// Package environment creates the project's virtual environment and syncs
// its dependencies with uv.
package environment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mcpds/mcpds-setup/pkg/confirm"
	"github.com/mcpds/mcpds-setup/pkg/runner"
	"github.com/mcpds/mcpds-setup/pkg/toolchain"
)

// VenvCommand creates a virtual environment at dir.
func VenvCommand(workDir, venvDir string) runner.Command {
	return runner.Strict(toolchain.UV, "venv", venvDir).In(workDir)
}

// SyncCommand installs the locked dependencies into the environment.
func SyncCommand(workDir string) runner.Command {
	return runner.Strict(toolchain.UV, "sync").In(workDir)
}

// Builder manages the isolated environment of a project.
type Builder struct {
	runner   runner.Runner
	gate     confirm.Gate
	logger   *slog.Logger
	workDir  string
	venvDir  string
	progress runner.Progress
}

// NewBuilder creates a Builder for the project in workDir.
func NewBuilder(r runner.Runner, gate confirm.Gate, logger *slog.Logger, workDir, venvDir string) *Builder {
	return &Builder{
		runner:   r,
		gate:     gate,
		logger:   logger,
		workDir:  workDir,
		venvDir:  venvDir,
		progress: runner.NoProgress,
	}
}

// SetProgress sets the indicator shown while dependencies sync.
func (b *Builder) SetProgress(p runner.Progress) {
	if p != nil {
		b.progress = p
	}
}

// Exists reports whether the environment directory is present.
func (b *Builder) Exists() (bool, error) {
	info, err := os.Stat(b.venvDir)
	if err == nil {
		return info.IsDir(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking virtual environment: %w", err)
}

// EnsureVenv creates the environment if it is missing. It returns true when
// one was created.
func (b *Builder) EnsureVenv(ctx context.Context) (bool, error) {
	exists, err := b.Exists()
	if err != nil {
		return false, err
	}
	if exists {
		b.logger.Info("virtual environment found", "path", b.venvDir)
		return false, nil
	}

	ok, err := b.gate.Confirm("Virtual environment not found. Create one?")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, confirm.Declined("Virtual environment is required to continue")
	}

	b.logger.Info("creating virtual environment", "path", b.venvDir)
	if _, err := b.runner.Run(ctx, VenvCommand(b.workDir, b.venvDir)); err != nil {
		return false, fmt.Errorf("creating virtual environment: %w", err)
	}
	b.logger.Info("virtual environment created successfully")
	return true, nil
}

// Sync installs the declared dependencies. It is idempotent and never asks.
func (b *Builder) Sync(ctx context.Context) error {
	b.logger.Info("syncing dependencies")
	stop := b.progress("Syncing dependencies...")
	_, err := b.runner.Run(ctx, SyncCommand(b.workDir))
	stop()
	if err != nil {
		return fmt.Errorf("syncing dependencies: %w", err)
	}
	b.logger.Info("dependencies synced successfully")
	return nil
}
