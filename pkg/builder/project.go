package builder

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// ProjectFile marks the root of the Python project.
const ProjectFile = "pyproject.toml"

// FindProjectRoot returns the directory the uv commands should run in.
// dir itself wins when it holds pyproject.toml; otherwise the root of the
// enclosing git repository is used if it holds one. Failing both, dir is
// returned unchanged.
func FindProjectRoot(dir string, logger *slog.Logger) string {
	if hasProjectFile(dir) {
		return dir
	}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		logger.Debug("not inside a git repository", "dir", dir, "error", err)
		return dir
	}

	wt, err := repo.Worktree()
	if err != nil {
		logger.Debug("repository has no worktree", "error", err)
		return dir
	}

	root := wt.Filesystem.Root()
	if !hasProjectFile(root) {
		logger.Warn("no "+ProjectFile+" found; running in current directory", "dir", dir)
		return dir
	}

	// Get current commit for logging
	if head, err := repo.Head(); err == nil {
		logger.Info("using project at repository root", "root", root, "commit", head.Hash().String()[:8])
	} else {
		logger.Info("using project at repository root", "root", root)
	}
	return root
}

func hasProjectFile(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, ProjectFile))
	return err == nil && !info.IsDir()
}
