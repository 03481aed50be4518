// Package config holds the settings and resolved paths of a provisioning run.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSettingsFile is looked up in the working directory when no
// settings file is given explicitly.
const DefaultSettingsFile = "mcpds-setup.yaml"

// WheelPlaceholder in launcher args is replaced with the built wheel path.
const WheelPlaceholder = "{{wheel}}"

// namePattern validates MCP-compatible identifiers.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Settings describes what to provision and where.
type Settings struct {
	ServerName   string        `yaml:"serverName"`
	Launcher     Launcher      `yaml:"launcher"`
	AppPath      string        `yaml:"appPath"`
	ProcessName  string        `yaml:"processName"`
	ConfigPath   string        `yaml:"configPath"`
	DistDir      string        `yaml:"distDir"`
	VenvDir      string        `yaml:"venvDir"`
	InstallerURL string        `yaml:"installerURL"`
	DownloadURL  string        `yaml:"downloadURL"`
	RestartDelay time.Duration `yaml:"restartDelay"`
	Backups      int           `yaml:"backups"`
}

// Launcher is the command template written into the host config.
type Launcher struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// DefaultSettings returns the settings for mcp-server-ds on Claude Desktop.
func DefaultSettings() Settings {
	return Settings{
		ServerName: "mcp-server-ds",
		Launcher: Launcher{
			Command: "uvx",
			Args:    []string{"--from", WheelPlaceholder, "mcp-server-ds"},
		},
		AppPath:      `%LOCALAPPDATA%\Programs\Claude\Claude.exe`,
		ProcessName:  "Claude.exe",
		ConfigPath:   `%APPDATA%\Claude\claude_desktop_config.json`,
		DistDir:      "dist",
		VenvDir:      ".venv",
		InstallerURL: "https://astral.sh/uv/install.ps1",
		DownloadURL:  "https://claude.ai/download",
		RestartDelay: 2 * time.Second,
		Backups:      3,
	}
}

// LoadSettings reads a YAML settings file over the defaults. An empty path
// falls back to DefaultSettingsFile in dir, which may be absent.
func LoadSettings(path, dir string) (Settings, error) {
	s := DefaultSettings()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, DefaultSettingsFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("reading settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// Validate checks Settings for correctness.
func (s *Settings) Validate() error {
	if s.ServerName == "" {
		return fmt.Errorf("serverName is required")
	}
	if !namePattern.MatchString(s.ServerName) {
		return fmt.Errorf("serverName %q must match %s", s.ServerName, namePattern.String())
	}
	if s.Launcher.Command == "" {
		return fmt.Errorf("launcher.command is required")
	}
	if !s.Launcher.referencesWheel() {
		return fmt.Errorf("launcher.args must reference %s", WheelPlaceholder)
	}
	if s.AppPath == "" || s.ConfigPath == "" {
		return fmt.Errorf("appPath and configPath are required")
	}
	if s.ProcessName == "" {
		return fmt.Errorf("processName is required")
	}
	if s.DistDir == "" || s.VenvDir == "" {
		return fmt.Errorf("distDir and venvDir are required")
	}
	if s.RestartDelay < 0 {
		return fmt.Errorf("restartDelay must not be negative")
	}
	if s.Backups < 0 {
		return fmt.Errorf("backups must not be negative")
	}
	return nil
}

func (l Launcher) referencesWheel() bool {
	for _, a := range l.Args {
		if strings.Contains(a, WheelPlaceholder) {
			return true
		}
	}
	return false
}

// Entry builds the server descriptor for the given wheel path.
func (l Launcher) Entry(wheelPath string) map[string]any {
	args := make([]any, len(l.Args))
	for i, a := range l.Args {
		args[i] = strings.ReplaceAll(a, WheelPlaceholder, wheelPath)
	}
	return map[string]any{
		"command": l.Command,
		"args":    args,
	}
}
