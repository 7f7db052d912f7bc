package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

// RepoConfigName is the repo-local configuration file.
const RepoConfigName = "repokeep.toml"

// Defaults used when neither the manifest nor the repo sets a value.
const (
	DefaultReadme        = "README.md"
	DefaultVersionFile   = "VERSION"
	DefaultVersionFormat = "plain"
	DefaultWorkflow      = ".github/workflows/ci.yml"
	DefaultWorkflowName  = "CI"
)

// Config holds per-repo settings consumed by the producers.
type Config struct {
	// Name is the project name, defaulting to the last path element.
	Name string `yaml:"name,omitempty" toml:"name"`
	// Disabled lists producers that must not run for the repo.
	Disabled      []string `yaml:"disabled,omitempty" toml:"disabled"`
	Readme        string   `yaml:"readme,omitempty" toml:"readme"`
	VersionFile   string   `yaml:"version_file,omitempty" toml:"version_file"`
	VersionFormat string   `yaml:"version_format,omitempty" toml:"version_format"`
	Workflow      string   `yaml:"workflow,omitempty" toml:"workflow"`
	WorkflowName  string   `yaml:"workflow_name,omitempty" toml:"workflow_name"`
	// Variables are extra bindings for version specifications.
	Variables map[string]string `yaml:"variables,omitempty" toml:"variables"`
}

// Merge returns c with the non-empty fields of o applied over it.
func (c Config) Merge(o Config) Config {
	if o.Name != "" {
		c.Name = o.Name
	}
	if o.Disabled != nil {
		c.Disabled = o.Disabled
	}
	if o.Readme != "" {
		c.Readme = o.Readme
	}
	if o.VersionFile != "" {
		c.VersionFile = o.VersionFile
	}
	if o.VersionFormat != "" {
		c.VersionFormat = o.VersionFormat
	}
	if o.Workflow != "" {
		c.Workflow = o.Workflow
	}
	if o.WorkflowName != "" {
		c.WorkflowName = o.WorkflowName
	}
	if len(o.Variables) > 0 {
		vars := make(map[string]string, len(c.Variables)+len(o.Variables))
		for k, v := range c.Variables {
			vars[k] = v
		}
		for k, v := range o.Variables {
			vars[k] = v
		}
		c.Variables = vars
	}
	return c
}

// IsDisabled reports whether producer is disabled.
func (c Config) IsDisabled(producer string) bool {
	for _, d := range c.Disabled {
		if d == producer {
			return true
		}
	}
	return false
}

// withDefaults fills in the built-in defaults for repo.
func (c Config) withDefaults(repo *Repo) Config {
	if c.Name == "" {
		c.Name = filepath.Base(filepath.FromSlash(repo.ID()))
	}
	if c.Readme == "" {
		c.Readme = DefaultReadme
	}
	if c.VersionFile == "" {
		c.VersionFile = DefaultVersionFile
	}
	if c.VersionFormat == "" {
		c.VersionFormat = DefaultVersionFormat
	}
	if c.Workflow == "" {
		c.Workflow = DefaultWorkflow
	}
	if c.WorkflowName == "" {
		c.WorkflowName = DefaultWorkflowName
	}
	return c
}

// ParseRepoConfig parses repokeep.toml content. An explicitly empty
// disabled list clears the producers disabled by the manifest.
func ParseRepoConfig(data []byte) (Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", RepoConfigName, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("parsing %s: unknown key %q", RepoConfigName, undecoded[0].String())
	}
	if md.IsDefined("disabled") && c.Disabled == nil {
		c.Disabled = []string{}
	}
	return c, nil
}

// LoadRepoConfig resolves the effective configuration of repo: the
// manifest defaults, then the repo entry, then the repo's repokeep.toml.
func LoadRepoConfig(fsys afero.Fs, root string, ws *Workspace, repo *Repo) (Config, error) {
	c := ws.Defaults.Merge(repo.Config)

	path := filepath.Join(root, filepath.FromSlash(repo.ID()), RepoConfigName)
	data, err := afero.ReadFile(fsys, path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return c.withDefaults(repo), nil
	case err != nil:
		return Config{}, fmt.Errorf("reading %s: %w", path, err)
	}

	local, err := ParseRepoConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", repo.ID(), err)
	}
	if err := validateConfig(local, repo.ID()+"/"+RepoConfigName); err != nil {
		return Config{}, err
	}
	return c.Merge(local).withDefaults(repo), nil
}
