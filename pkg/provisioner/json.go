package provisioner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// decodeDocument parses a config file. The app tolerates comments and
// trailing commas, so the input is JSONC; lenient reports whether any were
// present, since encodeDocument cannot keep them.
func decodeDocument(raw []byte) (doc Document, lenient bool, err error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false, errors.New("config is empty")
	}

	v, err := hujson.Parse(raw)
	if err != nil {
		return nil, false, fmt.Errorf("parsing config: %w", err)
	}
	lenient = !v.IsStandard()
	v.Standardize()

	if err := json.Unmarshal(v.Pack(), &doc); err != nil {
		return nil, false, fmt.Errorf("decoding config: %w", err)
	}
	if doc == nil {
		return nil, false, errors.New("decoding config: top level must be an object")
	}
	return doc, lenient, nil
}

// encodeDocument renders doc with two-space indentation and a trailing
// newline.
func encodeDocument(doc Document) ([]byte, error) {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return append(out, '\n'), nil
}

// replaceFile writes data to a temp file beside path and renames it over
// path, so readers see either the old or the new content.
func replaceFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", filepath.Base(path), err)
	}
	return nil
}
