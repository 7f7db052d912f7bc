// Package state answers questions about the live state of workspace
// repositories. It backs the computed repo sets.
package state

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/fbkclanna/repokeep/internal/changes"
	"github.com/fbkclanna/repokeep/internal/git"
	"github.com/fbkclanna/repokeep/internal/lock"
	"github.com/fbkclanna/repokeep/internal/manifest"
	"github.com/fbkclanna/repokeep/internal/sets"
)

// StagedFunc returns the currently staged changes.
type StagedFunc func() (*changes.Store, error)

// Provider implements sets.StateProvider on top of git, the releases lock
// and the staging store.
type Provider struct {
	root     string
	repos    map[string]manifest.Repo
	releases *lock.File
	staged   StagedFunc
	fetch    bool
	logger   *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithFetch makes IsOutdated fetch from origin before comparing.
func WithFetch(fetch bool) Option {
	return func(p *Provider) { p.fetch = fetch }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// New returns a provider for the repos of the workspace at root.
func New(root string, repos []manifest.Repo, releases *lock.File, staged StagedFunc, opts ...Option) *Provider {
	p := &Provider{
		root:     root,
		repos:    make(map[string]manifest.Repo, len(repos)),
		releases: releases,
		staged:   staged,
		logger:   zap.NewNop(),
	}
	for _, r := range repos {
		p.repos[r.ID()] = r
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot returns a copy of p that loads the staging store at most once.
// The sets engine takes one per computed set it evaluates.
func (p *Provider) Snapshot() sets.StateProvider {
	c := *p
	if p.staged != nil {
		c.staged = sync.OnceValues(p.staged)
	}
	return &c
}

func (p *Provider) dir(ctx context.Context, id string) (string, manifest.Repo, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", manifest.Repo{}, false, err
	}
	repo, ok := p.repos[id]
	if !ok {
		return "", manifest.Repo{}, false, fmt.Errorf("unknown repo %q", id)
	}
	dir := filepath.Join(p.root, filepath.FromSlash(id))
	if !git.IsCloned(dir) {
		p.logger.Debug("repo is not checked out", zap.String("repo", id))
		return dir, repo, false, nil
	}
	return dir, repo, true, nil
}

// IsDirty reports whether the repo has uncommitted changes.
func (p *Provider) IsDirty(ctx context.Context, id string) (bool, error) {
	dir, _, ok, err := p.dir(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return git.IsDirty(dir)
}

// IsOutdated reports whether origin has commits on the repo's ref that HEAD
// does not have.
func (p *Provider) IsOutdated(ctx context.Context, id string) (bool, error) {
	dir, repo, ok, err := p.dir(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	if p.fetch {
		if err := git.Fetch(dir); err != nil {
			return false, fmt.Errorf("fetching %s: %w", id, err)
		}
	}
	n, err := git.BehindCount(dir, repo.EffectiveRef())
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// HasStagedCache reports whether the repo has staged changes.
func (p *Provider) HasStagedCache(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if p.staged == nil {
		return false, nil
	}
	store, err := p.staged()
	if err != nil {
		return false, err
	}
	for _, r := range store.Repos() {
		if r == id {
			return true, nil
		}
	}
	return false, nil
}

// IsUnreleased reports whether HEAD differs from the commit recorded in the
// releases lock. A repo without a recorded release is unreleased.
func (p *Provider) IsUnreleased(ctx context.Context, id string) (bool, error) {
	dir, _, ok, err := p.dir(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	release, found := p.releases.Get(id)
	if !found || release.Commit == "" {
		return true, nil
	}
	head, err := git.HeadCommitFull(dir)
	if err != nil {
		return false, err
	}
	return !strings.HasPrefix(head, release.Commit), nil
}
