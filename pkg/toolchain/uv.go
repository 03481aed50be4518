// Package toolchain makes sure the uv package manager is available.
package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/mcpds/mcpds-setup/pkg/confirm"
	"github.com/mcpds/mcpds-setup/pkg/runner"
)

// UV is the executable the rest of the pipeline calls.
const UV = "uv"

// ProbeCommand checks for uv without failing when it is absent.
func ProbeCommand() runner.Command {
	return runner.Tolerant(UV, "--version")
}

// InstallCommand runs the official PowerShell bootstrap script.
func InstallCommand(installerURL string) runner.Command {
	return runner.Strict("powershell",
		"-ExecutionPolicy", "ByPass",
		"-Command", fmt.Sprintf("irm %s | iex", installerURL),
	)
}

// Installer detects uv and installs it with the operator's permission.
type Installer struct {
	runner       runner.Runner
	gate         confirm.Gate
	logger       *slog.Logger
	installerURL string
}

// NewInstaller creates an Installer.
func NewInstaller(r runner.Runner, gate confirm.Gate, logger *slog.Logger, installerURL string) *Installer {
	return &Installer{
		runner:       r,
		gate:         gate,
		logger:       logger,
		installerURL: installerURL,
	}
}

// Probe reports whether uv responds and, when it can be parsed, its version.
func (i *Installer) Probe(ctx context.Context) (bool, *semver.Version) {
	res, err := i.runner.Run(ctx, ProbeCommand())
	if err != nil || res == nil {
		return false, nil
	}
	return true, parseVersion(res.Stdout)
}

// Ensure installs uv if it is missing. It returns true when an install ran.
// Refusing the install is fatal: nothing downstream works without uv.
func (i *Installer) Ensure(ctx context.Context) (bool, error) {
	if found, version := i.Probe(ctx); found {
		if version != nil {
			i.logger.Info("uv found", "version", version.String())
		} else {
			i.logger.Info("uv found")
		}
		return false, nil
	}

	ok, err := i.gate.Confirm("uv is not installed. Would you like to install it?")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, confirm.Declined("uv is required to continue")
	}

	i.logger.Info("installing uv", "installer", i.installerURL)
	if _, err := i.runner.Run(ctx, InstallCommand(i.installerURL)); err != nil {
		return false, fmt.Errorf("installing uv: %w", err)
	}

	// The installer edits the user PATH, which this process may not see yet.
	if found, version := i.Probe(ctx); found {
		i.logger.Info("uv installed successfully", "version", versionString(version))
	} else {
		i.logger.Warn("uv installed but not found on PATH; open a new terminal if later steps fail")
	}
	return true, nil
}

// parseVersion extracts the version from output like "uv 0.5.11 (c4d0caa 2024-12-19)".
func parseVersion(out string) *semver.Version {
	fields := strings.Fields(out)
	if len(fields) < 2 {
		return nil
	}
	v, err := semver.NewVersion(fields[1])
	if err != nil {
		return nil
	}
	return v
}

func versionString(v *semver.Version) string {
	if v == nil {
		return "unknown"
	}
	return v.String()
}
