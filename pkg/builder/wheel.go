// Package builder builds the server's wheel and locates the result.
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mcpds/mcpds-setup/pkg/runner"
	"github.com/mcpds/mcpds-setup/pkg/toolchain"
)

// WheelPattern matches build outputs in the dist directory.
const WheelPattern = "*.whl"

var (
	// ErrNoDistDir is returned when the build left no dist directory.
	ErrNoDistDir = errors.New("dist directory not found after build")
	// ErrNoWheel is returned when the dist directory holds no wheel.
	ErrNoWheel = errors.New("No wheel files found in dist directory")
)

// BuildError reports a build command that exited unsuccessfully.
type BuildError struct {
	ExitCode int
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("Build failed with error code %d", e.ExitCode)
}

func (e *BuildError) Unwrap() error { return e.Err }

// BuildCommand runs uv build with both streams captured in order.
func BuildCommand(workDir string) runner.Command {
	return runner.Strict(toolchain.UV, "build").In(workDir).WithCombinedOutput()
}

// Artifact is a located wheel.
type Artifact struct {
	// Path is absolute.
	Path string
	// Distribution and Version come from the file name and are informational.
	Distribution string
	Version      string
	// SemVer is nil when Version is not semver-compatible (e.g. "1.0.dev1").
	SemVer *semver.Version
}

// Builder runs the package build for a project.
type Builder struct {
	runner   runner.Runner
	out      io.Writer
	logger   *slog.Logger
	workDir  string
	distDir  string
	progress runner.Progress
}

// New creates a Builder. Build output is echoed to out.
func New(r runner.Runner, out io.Writer, logger *slog.Logger, workDir, distDir string) *Builder {
	return &Builder{
		runner:   r,
		out:      out,
		logger:   logger,
		workDir:  workDir,
		distDir:  distDir,
		progress: runner.NoProgress,
	}
}

// SetProgress sets the indicator shown while the build runs.
func (b *Builder) SetProgress(p runner.Progress) {
	if p != nil {
		b.progress = p
	}
}

// Build runs the build and returns the first wheel in the dist directory.
// The build output is shown whether or not the build succeeds.
func (b *Builder) Build(ctx context.Context) (*Artifact, error) {
	b.logger.Info("building package")

	stop := b.progress("Building package...")
	res, err := b.runner.Run(ctx, BuildCommand(b.workDir))
	stop()
	if err != nil {
		var execErr *runner.CommandExecutionError
		if errors.As(err, &execErr) {
			b.echo(execErr.Output)
			return nil, &BuildError{ExitCode: execErr.ExitCode, Err: err}
		}
		return nil, fmt.Errorf("running build: %w", err)
	}
	if res != nil {
		b.echo(res.Stdout)
	}

	artifact, err := FindWheel(b.distDir)
	if err != nil {
		return nil, err
	}
	if artifact.SemVer != nil {
		b.logger.Info("found wheel file", "path", artifact.Path, "version", artifact.SemVer.String())
	} else {
		b.logger.Debug("wheel version is not semver", "version", artifact.Version)
		b.logger.Info("found wheel file", "path", artifact.Path)
	}
	return artifact, nil
}

func (b *Builder) echo(output string) {
	fmt.Fprintf(b.out, "Build output: %s\n", output)
}

// FindWheel returns the first wheel in dir by listing order. os.ReadDir lists
// by file name, so with several wheels the lexically first one wins, not the
// newest.
func FindWheel(dir string) (*Artifact, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoDistDir
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(WheelPattern, entry.Name()); !ok {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("resolving wheel path: %w", err)
		}
		artifact := &Artifact{Path: abs}
		artifact.Distribution, artifact.Version = ParseWheelName(entry.Name())
		if artifact.Version != "" {
			artifact.SemVer, _ = semver.NewVersion(artifact.Version)
		}
		return artifact, nil
	}

	return nil, ErrNoWheel
}

// ParseWheelName splits a wheel file name
// ({distribution}-{version}(-{build})?-{python}-{abi}-{platform}.whl) into
// its distribution and version. Unrecognized names yield empty strings.
func ParseWheelName(name string) (distribution, version string) {
	base := strings.TrimSuffix(name, ".whl")
	if base == name {
		return "", ""
	}
	parts := strings.Split(base, "-")
	if len(parts) < 5 {
		return "", ""
	}
	return parts[0], parts[1]
}
