package workspace

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/fbkclanna/repokeep/internal/changes"
	"github.com/fbkclanna/repokeep/internal/git"
	"github.com/fbkclanna/repokeep/internal/lock"
	"github.com/fbkclanna/repokeep/internal/manifest"
	"github.com/fbkclanna/repokeep/internal/producer"
	"github.com/fbkclanna/repokeep/internal/version"
)

// StageOptions configures a compute-and-stage run.
type StageOptions struct {
	// Set selects the repositories. Defaults to @all.
	Set string
	// Version is an optional version specification handed to producers.
	Version string
	Defines version.Variables
	// Save applies the proposals right away instead of only persisting them.
	Save bool
	// Done is called once per repository after its producers ran.
	Done func(repo string, failed bool)
}

// StageResult is the outcome of Stage.
type StageResult struct {
	Repos       []manifest.Repo
	Versions    map[string]version.Resolved
	Diagnostics []producer.Diagnostic
	Report      *changes.Report
}

// Stage runs the producers over the repositories selected by opts.Set and
// either applies their proposals or persists them for a later ApplyPending.
func (w *Workspace) Stage(ctx context.Context, opts StageOptions) (*StageResult, error) {
	repos, err := w.Select(ctx, opts.Set)
	if err != nil {
		return nil, err
	}
	return w.StageRepos(ctx, repos, opts)
}

// StageRepos is Stage over an already selected list of repositories;
// opts.Set is ignored. Staged changes of other repositories are kept.
func (w *Workspace) StageRepos(ctx context.Context, repos []manifest.Repo, opts StageOptions) (*StageResult, error) {
	res := &StageResult{Repos: repos, Versions: make(map[string]version.Resolved)}
	inputs := make([]producer.Input, 0, len(repos))
	for _, r := range repos {
		cfg, err := w.Config(r)
		if err != nil {
			return nil, err
		}
		in := producer.Input{FS: w.FS, Root: w.Root, Repo: r, Config: cfg}
		if opts.Version != "" {
			v, err := w.ResolveVersion(r, cfg, opts.Version, opts.Defines)
			if err != nil {
				return nil, err
			}
			res.Versions[r.ID()] = v
			in.Version = &v
		}
		inputs = append(inputs, in)
	}

	store, err := w.Stager.LoadOrEmpty()
	if err != nil {
		return nil, err
	}
	for _, r := range repos {
		for _, c := range store.Changes() {
			if c.Repo == r.ID() {
				store.Remove(c.Key())
			}
		}
	}

	res.Diagnostics, err = producer.Run(ctx, inputs, w.Producers, store, producer.RunOptions{
		Jobs:   w.jobs,
		Done:   opts.Done,
		Logger: w.logger.Named("producer"),
	})
	if err != nil {
		return nil, err
	}
	w.logger.Info("producers finished",
		zap.Int("repos", len(repos)),
		zap.Int("changes", store.Len()),
		zap.Int("diagnostics", len(res.Diagnostics)))

	if !opts.Save {
		res.Report, err = w.Stager.Apply(ctx, store, false)
		return res, err
	}
	selected := make(map[string]bool, len(repos))
	for _, r := range repos {
		selected[r.ID()] = true
	}
	res.Report, err = w.applySubset(ctx, store, func(c changes.Change) bool {
		return selected[c.Repo]
	})
	return res, err
}

// Pending returns the persisted staging store, empty when nothing is staged.
func (w *Workspace) Pending() (*changes.Store, error) {
	return w.Stager.LoadOrEmpty()
}

// ApplyPending loads the persisted staging store and applies it. Without
// save it only reports what is pending. changes.ErrNoChanges is returned when
// nothing is staged.
func (w *Workspace) ApplyPending(ctx context.Context, save bool) (*changes.Report, error) {
	store, err := w.Stager.Load(w.Stager.Handle())
	if err != nil {
		return nil, err
	}
	return w.Stager.Apply(ctx, store, save)
}

// ApplyMatching applies the staged changes accepted by keep and leaves the
// others staged.
func (w *Workspace) ApplyMatching(ctx context.Context, keep func(changes.Change) bool) (*changes.Report, error) {
	store, err := w.Stager.Load(w.Stager.Handle())
	if err != nil {
		return nil, err
	}
	return w.applySubset(ctx, store, keep)
}

// applySubset writes the changes of store accepted by keep. Whatever was not
// written, declined or not, is persisted again on every return path.
func (w *Workspace) applySubset(ctx context.Context, store *changes.Store, keep func(changes.Change) bool) (*changes.Report, error) {
	chosen := changes.NewStore()
	for _, c := range store.Changes() {
		if !keep(c) {
			continue
		}
		store.Remove(c.Key())
		if err := chosen.Propose(c); err != nil {
			return nil, err
		}
	}

	report, err := w.Stager.Write(ctx, chosen)
	for _, c := range chosen.Changes() {
		err = multierr.Append(err, store.Propose(c))
	}
	if _, perr := w.Stager.Persist(store); perr != nil {
		err = multierr.Append(err, perr)
	}
	return report, err
}

// Pin records the resolved version and HEAD commit of each selected
// repository in the releases lock. Repositories that are not checked out
// are skipped.
func (w *Workspace) Pin(ctx context.Context, set, spec string, defines version.Variables, toolVersion string) ([]string, error) {
	repos, err := w.Select(ctx, set)
	if err != nil {
		return nil, err
	}

	var pinned []string
	for _, r := range repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := w.RepoDir(r)
		if !git.IsCloned(dir) {
			w.logger.Warn("skipping repo that is not checked out", zap.String("repo", r.ID()))
			continue
		}
		cfg, err := w.Config(r)
		if err != nil {
			return nil, err
		}
		v, err := w.ResolveVersion(r, cfg, spec, defines)
		if err != nil {
			return nil, err
		}
		commit, err := git.HeadCommitFull(dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.ID(), err)
		}
		tag, err := git.ExactTag(dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r.ID(), err)
		}
		w.Releases.Set(r.ID(), &lock.Release{Version: v.String(), Commit: commit, Tag: tag})
		pinned = append(pinned, r.ID())
	}

	w.Releases.GeneratedAt = w.now().Format(time.RFC3339)
	w.Releases.ToolVersion = toolVersion
	if err := lock.Save(w.FS, w.ReleasesPath(), w.Releases); err != nil {
		return nil, err
	}
	return pinned, nil
}
