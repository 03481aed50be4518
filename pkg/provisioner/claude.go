// Package provisioner reads and updates the Claude Desktop configuration
// file that lists the MCP servers the app launches.
package provisioner

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// MCPServersKey is the top-level key holding server descriptors.
const MCPServersKey = "mcpServers"

// Document is a parsed config file. Keys other than MCPServersKey belong to
// the app and are written back untouched.
type Document map[string]any

// NewDocument returns the document used when no config file exists yet.
func NewDocument() Document {
	return Document{MCPServersKey: map[string]any{}}
}

// Servers returns the server map, or nil if the key is absent or malformed.
func (d Document) Servers() map[string]any {
	servers, _ := d[MCPServersKey].(map[string]any)
	return servers
}

// ClaudeDesktop provisions the Claude Desktop MCP config.
type ClaudeDesktop struct {
	path    string
	backups int
	logger  *slog.Logger
}

// NewClaudeDesktop creates a provisioner for the config file at path,
// keeping up to backups previous versions next to it.
func NewClaudeDesktop(path string, backups int, logger *slog.Logger) *ClaudeDesktop {
	return &ClaudeDesktop{
		path:    path,
		backups: backups,
		logger:  logger,
	}
}

// Path returns the config file location.
func (c *ClaudeDesktop) Path() string {
	return c.path
}

// Load creates the config directory if needed and returns the current
// document, or a default one if the file does not exist. The default is not
// written until Save. Malformed JSON is an error.
func (c *ClaudeDesktop) Load() (Document, error) {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	raw, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		c.logger.Info("config file not found, starting from empty config", "path", c.path)
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.path, err)
	}

	doc, lenient, err := decodeDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", c.path, err)
	}
	if lenient {
		c.logger.Warn("config contains comments or trailing commas; they will be removed on save", "path", c.path)
	}
	return doc, nil
}

// Save backs up the current file and replaces it with doc.
func (c *ClaudeDesktop) Save(doc Document) error {
	backupPath, err := createBackup(c.path, c.backups)
	if err != nil {
		return err
	}
	if backupPath != "" {
		c.logger.Debug("backed up config", "backup", backupPath)
	}

	data, err := encodeDocument(doc)
	if err != nil {
		return err
	}
	if err := replaceFile(c.path, data); err != nil {
		return fmt.Errorf("writing %s: %w", c.path, err)
	}
	c.logger.Info("updated config", "path", c.path)
	return nil
}

// Backups lists existing backups of the config file, oldest first.
func (c *ClaudeDesktop) Backups() ([]string, error) {
	return listBackups(c.path)
}
