package lock

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Load reads a releases.lock.yaml file. A missing file yields an empty
// lock.
func Load(fsys afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	return Parse(data)
}

// Parse parses releases.lock.yaml content.
func Parse(data []byte) (*File, error) {
	var lf File
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parsing lock YAML: %w", err)
	}
	if lf.Version != 0 && lf.Version != 1 {
		return nil, fmt.Errorf("unsupported lock file version: %d (expected 1)", lf.Version)
	}
	if lf.Repos == nil {
		lf.Repos = make(map[string]*Release)
	}
	return &lf, nil
}

// Save writes the lock file.
func Save(fsys afero.Fs, path string, lf *File) error {
	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0644); err != nil { //nolint:gosec // lock file needs to be readable
		return fmt.Errorf("writing lock file: %w", err)
	}
	return nil
}
