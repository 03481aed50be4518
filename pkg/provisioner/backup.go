package provisioner

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupSuffix     = ".mcpds-backup-"
	backupTimeFormat = "20060102-150405.000"
)

// now is replaced in tests to produce distinct backup names.
var now = time.Now

// createBackup copies the original file to a timestamped backup and keeps
// only the newest keep backups. Returns the backup path, or empty string if
// the source file doesn't exist or keep is zero.
func createBackup(path string, keep int) (string, error) {
	if keep <= 0 {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading file for backup: %w", err)
	}

	backupPath := path + backupSuffix + now().Format(backupTimeFormat)
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing backup: %w", err)
	}

	// Pruning failures leave extra backups behind, nothing worse.
	_ = pruneBackups(path, keep)

	return backupPath, nil
}

// listBackups returns the backups of originalPath, oldest first.
func listBackups(originalPath string) ([]string, error) {
	dir := filepath.Dir(originalPath)
	prefix := filepath.Base(originalPath) + backupSuffix

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var backups []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			backups = append(backups, filepath.Join(dir, entry.Name()))
		}
	}

	// Timestamp in filename makes lexicographic sort chronological.
	sort.Strings(backups)
	return backups, nil
}

// pruneBackups keeps only the most recent keep backup files.
func pruneBackups(originalPath string, keep int) error {
	backups, err := listBackups(originalPath)
	if err != nil {
		return err
	}
	if len(backups) <= keep {
		return nil
	}

	var errs []string
	for _, path := range backups[:len(backups)-keep] {
		if err := os.Remove(path); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("pruning backups: %s", strings.Join(errs, "; "))
	}
	return nil
}
