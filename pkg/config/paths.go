package config

import (
	"fmt"
	"path/filepath"
)

// Paths are the absolute locations a run touches. They are resolved once so
// stages never consult the process environment or working directory.
type Paths struct {
	WorkDir    string
	VenvDir    string
	DistDir    string
	AppPath    string
	ConfigPath string
}

// Resolve computes Paths from settings. workDir must be absolute.
func Resolve(s Settings, workDir string, lookup LookupFunc) (Paths, error) {
	if !filepath.IsAbs(workDir) {
		return Paths{}, fmt.Errorf("working directory %q is not absolute", workDir)
	}

	appPath, err := ExpandPath(s.AppPath, lookup)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving app path: %w", err)
	}
	configPath, err := ExpandPath(s.ConfigPath, lookup)
	if err != nil {
		return Paths{}, fmt.Errorf("resolving config path: %w", err)
	}

	return Paths{
		WorkDir:    filepath.Clean(workDir),
		VenvDir:    underDir(workDir, s.VenvDir),
		DistDir:    underDir(workDir, s.DistDir),
		AppPath:    appPath,
		ConfigPath: configPath,
	}, nil
}

func underDir(dir, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}
