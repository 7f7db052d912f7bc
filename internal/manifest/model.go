package manifest

import (
	"path"
	"strings"
)

// FileName is the name of the manifest at the workspace root.
const FileName = "workspace.yaml"

// Workspace represents the top-level workspace.yaml manifest.
type Workspace struct {
	Version     int    `yaml:"version"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Defaults apply to every repo unless overridden at the repo level or by
	// the repo's own repokeep.toml.
	Defaults Config `yaml:"defaults,omitempty"`
	Repos    []Repo `yaml:"repos"`
}

// Repo represents a single repository entry in the manifest.
type Repo struct {
	Path   string `yaml:"path"`
	URL    string `yaml:"url,omitempty"`
	Ref    string `yaml:"ref,omitempty"`
	Config Config `yaml:"config,omitempty"`
}

// ID returns the workspace-relative path identifying the repo.
func (r *Repo) ID() string {
	return path.Clean(strings.ReplaceAll(r.Path, "\\", "/"))
}

// EffectiveRef returns the ref for this repo, defaulting to "main".
func (r *Repo) EffectiveRef() string {
	if r.Ref != "" {
		return r.Ref
	}
	return "main"
}

// Remote returns the owner and name of the repo's remote, parsed from its
// URL. ok is false when the URL does not name a owner/name pair.
func (r *Repo) Remote() (owner, name string, ok bool) {
	u := strings.TrimSuffix(strings.TrimSpace(r.URL), "/")
	u = strings.TrimSuffix(u, ".git")
	if u == "" {
		return "", "", false
	}

	switch {
	case strings.Contains(u, "://"):
		u = u[strings.Index(u, "://")+3:]
		if i := strings.IndexByte(u, '/'); i >= 0 {
			u = u[i+1:]
		} else {
			return "", "", false
		}
	case strings.Contains(u, ":"):
		u = u[strings.IndexByte(u, ':')+1:]
	}

	parts := strings.Split(u, "/")
	if len(parts) < 2 {
		return "", "", false
	}
	owner, name = parts[len(parts)-2], parts[len(parts)-1]
	if owner == "" || name == "" {
		return "", "", false
	}
	return owner, name, true
}
