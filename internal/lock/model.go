package lock

// FileName is the name of the lock file at the workspace root.
const FileName = "releases.lock.yaml"

// File represents releases.lock.yaml.
type File struct {
	Version     int                 `yaml:"version"`
	GeneratedAt string              `yaml:"generated_at"`
	ToolVersion string              `yaml:"tool_version"`
	Repos       map[string]*Release `yaml:"repos"`
}

// Release records the released state of a single repository.
type Release struct {
	Version string `yaml:"version"`
	Commit  string `yaml:"commit"`
	Tag     string `yaml:"tag,omitempty"`
}

// New returns an empty lock file.
func New() *File {
	return &File{Version: 1, Repos: make(map[string]*Release)}
}

// Get returns the release recorded for repo.
func (f *File) Get(repo string) (*Release, bool) {
	r, ok := f.Repos[repo]
	return r, ok && r != nil
}

// Set records the release of repo.
func (f *File) Set(repo string, r *Release) {
	if f.Repos == nil {
		f.Repos = make(map[string]*Release)
	}
	f.Repos[repo] = r
}
