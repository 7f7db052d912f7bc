package workspace

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/fbkclanna/repokeep/internal/changes"
	"github.com/fbkclanna/repokeep/internal/discovery"
	"github.com/fbkclanna/repokeep/internal/git"
	"github.com/fbkclanna/repokeep/internal/lock"
	"github.com/fbkclanna/repokeep/internal/manifest"
	"github.com/fbkclanna/repokeep/internal/producer"
	"github.com/fbkclanna/repokeep/internal/sets"
	"github.com/fbkclanna/repokeep/internal/state"
	"github.com/fbkclanna/repokeep/internal/version"
)

// SetsDir is the workspace relative directory holding persisted repo sets.
const SetsDir = "sets"

// DefaultSet is the set expression used when none is given.
const DefaultSet = "@" + sets.All

// Workspace holds the discovered repositories of a workspace root together
// with the engines operating on them.
type Workspace struct {
	Root      string
	FS        afero.Fs
	Manifest  *manifest.Workspace
	Repos     []manifest.Repo
	Sets      *sets.Engine
	State     *state.Provider
	Stager    *changes.Stager
	Releases  *lock.File
	Producers []producer.Producer

	discoverer discovery.Discoverer
	logger     *zap.Logger
	now        func() time.Time
	fetch      bool
	jobs       int
}

// Option configures Load.
type Option func(*Workspace)

// WithFS sets the filesystem used by the engines. Defaults to the OS.
func WithFS(fsys afero.Fs) Option {
	return func(w *Workspace) { w.FS = fsys }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithClock overrides the clock used for %date and set snapshots.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// WithDiscoverer overrides how repositories are discovered.
func WithDiscoverer(d discovery.Discoverer) Option {
	return func(w *Workspace) { w.discoverer = d }
}

// WithProducers overrides the producers run by Stage.
func WithProducers(ps ...producer.Producer) Option {
	return func(w *Workspace) { w.Producers = ps }
}

// WithFetch makes @outdated fetch from origin first.
func WithFetch(fetch bool) Option {
	return func(w *Workspace) { w.fetch = fetch }
}

// WithJobs bounds the concurrency of every engine.
func WithJobs(n int) Option {
	return func(w *Workspace) { w.jobs = n }
}

// Load discovers the repositories of the workspace at root and wires the
// engines for it.
func Load(ctx context.Context, root string, opts ...Option) (*Workspace, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root: %w", err)
	}

	w := &Workspace{
		Root:      root,
		FS:        afero.NewOsFs(),
		Producers: producer.Builtins(),
		logger:    zap.NewNop(),
		now:       time.Now,
		jobs:      changes.DefaultJobs,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.discoverer == nil {
		w.discoverer = discovery.Auto{FS: w.FS}
	}

	ws, err := w.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, err
	}
	w.Manifest = ws
	w.Repos = ws.Repos

	w.Releases, err = lock.Load(w.FS, w.ReleasesPath())
	if err != nil {
		return nil, err
	}

	w.Stager = changes.NewStager(w.FS, root,
		changes.WithLogger(w.logger.Named("changes")),
		changes.WithJobs(w.jobs))

	ids := make([]string, len(w.Repos))
	for i := range w.Repos {
		ids[i] = w.Repos[i].ID()
	}
	w.State = state.New(root, w.Repos, w.Releases, w.Stager.LoadOrEmpty,
		state.WithFetch(w.fetch),
		state.WithLogger(w.logger.Named("state")))
	store := sets.NewStore(w.FS, filepath.Join(root, SetsDir),
		sets.WithClock(w.now),
		sets.WithStoreLogger(w.logger.Named("sets")))
	w.Sets = sets.NewEngine(store, ids, w.State,
		sets.WithJobs(w.jobs),
		sets.WithLogger(w.logger.Named("sets")))

	w.logger.Debug("loaded workspace", zap.String("root", root), zap.Int("repos", len(w.Repos)))
	return w, nil
}

// ReleasesPath returns the path of the releases lock file.
func (w *Workspace) ReleasesPath() string {
	return filepath.Join(w.Root, lock.FileName)
}

// RepoDir returns the absolute path for a repo within the workspace.
func (w *Workspace) RepoDir(repo manifest.Repo) string {
	return filepath.Join(w.Root, filepath.FromSlash(repo.ID()))
}

// Repo returns the repository with the given identifier.
func (w *Workspace) Repo(id string) (manifest.Repo, bool) {
	for _, r := range w.Repos {
		if r.ID() == id {
			return r, true
		}
	}
	return manifest.Repo{}, false
}

// Acquire takes the staging lock of the workspace.
func (w *Workspace) Acquire() error {
	return w.Stager.Acquire()
}

// Release gives the staging lock back.
func (w *Workspace) Release() error {
	return w.Stager.Release()
}

// Select resolves a set expression to repositories, in workspace order.
func (w *Workspace) Select(ctx context.Context, expr string) ([]manifest.Repo, error) {
	if expr == "" {
		expr = DefaultSet
	}
	set, err := w.Sets.Resolve(ctx, expr)
	if err != nil {
		return nil, err
	}
	var repos []manifest.Repo
	for _, r := range w.Repos {
		if set.Contains(r.ID()) {
			repos = append(repos, r)
		}
	}
	return repos, nil
}

// Bindings returns the built-in version variables of a repository: today's
// date plus its exact tag and current branch when it is checked out.
func (w *Workspace) Bindings(repo manifest.Repo) version.Variables {
	var tag, branch string
	dir := w.RepoDir(repo)
	if git.IsCloned(dir) {
		var err error
		if tag, err = git.ExactTag(dir); err != nil {
			w.logger.Debug("no tag", zap.String("repo", repo.ID()), zap.Error(err))
		}
		if branch, err = git.CurrentBranch(dir); err != nil {
			w.logger.Debug("no branch", zap.String("repo", repo.ID()), zap.Error(err))
		}
	}
	return version.Builtins(w.now(), tag, branch)
}

// Environment returns the ${{ }} bindings describing a repository.
func (w *Workspace) Environment(repo manifest.Repo, cfg manifest.Config) version.Environment {
	env := version.Environment{
		"workspace.name": w.Manifest.Name,
		"repo.path":      repo.ID(),
		"repo.url":       repo.URL,
		"repo.ref":       repo.EffectiveRef(),
		"repo.name":      cfg.Name,
	}
	if owner, name, ok := repo.Remote(); ok {
		env["repo.owner"] = owner
		env["repo.remote"] = owner + "/" + name
	}
	return env
}

// ResolveVersion resolves spec for a repository. Bindings are layered as
// built-ins, then the repository configuration, then defines.
func (w *Workspace) ResolveVersion(repo manifest.Repo, cfg manifest.Config, spec string, defines version.Variables) (version.Resolved, error) {
	vars := w.Bindings(repo).Merge(cfg.Variables).Merge(defines)
	r, err := version.Resolve(spec, vars, w.Environment(repo, cfg))
	if err != nil {
		return version.Resolved{}, fmt.Errorf("%s: %w", repo.ID(), err)
	}
	return r, nil
}

// Config returns the effective configuration of a repository.
func (w *Workspace) Config(repo manifest.Repo) (manifest.Config, error) {
	return manifest.LoadRepoConfig(w.FS, w.Root, w.Manifest, &repo)
}
