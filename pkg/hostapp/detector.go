// Package hostapp finds, restarts and launches the desktop application the
// MCP server is registered with.
package hostapp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mcpds/mcpds-setup/pkg/confirm"
)

// Detector checks that the host application is installed.
type Detector struct {
	gate        confirm.Gate
	out         io.Writer
	logger      *slog.Logger
	appPath     string
	downloadURL string
}

// NewDetector creates a Detector for the executable at appPath.
func NewDetector(gate confirm.Gate, out io.Writer, logger *slog.Logger, appPath, downloadURL string) *Detector {
	return &Detector{
		gate:        gate,
		out:         out,
		logger:      logger,
		appPath:     appPath,
		downloadURL: downloadURL,
	}
}

// Installed reports whether the executable exists. No version check is made.
func (d *Detector) Installed() (bool, error) {
	_, err := os.Stat(d.appPath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("checking %s: %w", d.appPath, err)
}

// Check returns true when the application was found. When it is missing
// the operator may install it and continue; refusing stops the run.
func (d *Detector) Check() (bool, error) {
	installed, err := d.Installed()
	if err != nil {
		return false, err
	}
	if installed {
		d.logger.Info("Claude desktop app found", "path", d.appPath)
		return true, nil
	}

	fmt.Fprintln(d.out, "Claude desktop app not found.")
	fmt.Fprintf(d.out, "Please download and install from: %s\n", d.downloadURL)

	ok, err := d.gate.Confirm("Continue after installing Claude?")
	if err != nil {
		return false, err
	}
	if !ok {
		return false, confirm.Declined("Claude desktop app is required to continue")
	}
	return false, nil
}
