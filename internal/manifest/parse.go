package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Validate checks the workspace manifest for errors.
func Validate(ws *Workspace) error { return validate(ws) }

// Save validates and writes a workspace manifest.
func Save(fsys afero.Fs, path string, ws *Workspace) error {
	if err := validate(ws); err != nil {
		return err
	}
	data, err := yaml.Marshal(ws)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := afero.WriteFile(fsys, path, data, 0644); err != nil { //nolint:gosec // manifest needs to be readable
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Load reads and validates a workspace.yaml file.
func Load(fsys afero.Fs, path string) (*Workspace, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates workspace.yaml content.
func Parse(data []byte) (*Workspace, error) {
	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("parsing manifest YAML: %w", err)
	}
	if err := validate(&ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

func validate(ws *Workspace) error {
	if ws.Version != 1 {
		return fmt.Errorf("unsupported manifest version: %d (expected 1)", ws.Version)
	}
	if ws.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if err := validateConfig(ws.Defaults, "defaults"); err != nil {
		return err
	}

	seen := make(map[string]bool, len(ws.Repos))
	for i, r := range ws.Repos {
		if err := validateRepo(i, r, seen); err != nil {
			return err
		}
		seen[r.ID()] = true
	}
	return nil
}

func validateRepo(i int, r Repo, seen map[string]bool) error {
	if r.Path == "" {
		return fmt.Errorf("manifest: repos[%d].path is required", i)
	}
	if err := validatePath(r.Path, fmt.Sprintf("repos[%d]", i)); err != nil {
		return err
	}
	if seen[r.ID()] {
		return fmt.Errorf("manifest: duplicate repo path %q", r.ID())
	}
	return validateConfig(r.Config, fmt.Sprintf("repos[%d] (%s).config", i, r.ID()))
}

func validateConfig(c Config, label string) error {
	for _, p := range []string{c.Readme, c.VersionFile, c.Workflow} {
		if p == "" {
			continue
		}
		if err := validatePath(p, label); err != nil {
			return err
		}
	}
	return nil
}

// validatePath ensures a path is relative and does not escape the workspace.
func validatePath(p, label string) error {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "/") {
		return fmt.Errorf("manifest: %s: absolute path is not allowed: %s", label, p)
	}
	cleaned := filepath.Clean(p)
	if cleaned == "." {
		return fmt.Errorf("manifest: %s: path must name a directory below the workspace root: %s", label, p)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return fmt.Errorf("manifest: %s: path must not escape workspace (contains ..): %s", label, p)
	}
	return nil
}
