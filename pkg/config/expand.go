package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// LookupFunc resolves an environment variable.
type LookupFunc func(name string) (string, bool)

// OSLookup reads the process environment.
var OSLookup LookupFunc = os.LookupEnv

// envVarRegex matches both Windows-style and POSIX-style references:
//   - %VAR%
//   - ${VAR}
//
// Variable names start with a letter or underscore, followed by letters,
// digits, parentheses or underscores (Windows has %ProgramFiles(x86)%).
var envVarRegex = regexp.MustCompile(`%([a-zA-Z_][a-zA-Z0-9_()]*)%|\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// ExpandPath expands environment references in s and converts either
// separator style to the host's. Unlike cmd.exe, an undefined or empty
// variable is an error: a path built on it would point somewhere arbitrary.
// A literal %name% pair that is not a variable is rejected the same way, so
// settings paths cannot contain one.
func ExpandPath(s string, lookup LookupFunc) (string, error) {
	var missing []string

	expanded := envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarRegex.FindStringSubmatch(match)
		name := parts[1]
		if name == "" {
			name = parts[2]
		}
		value, ok := lookup(name)
		if !ok || value == "" {
			missing = append(missing, name)
			return match
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("expanding %q: environment variable %s is not set", s, strings.Join(missing, ", "))
	}

	return filepath.Clean(filepath.FromSlash(strings.ReplaceAll(expanded, `\`, "/"))), nil
}
