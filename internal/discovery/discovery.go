// Package discovery finds the repositories of a workspace.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/fbkclanna/repokeep/internal/git"
	"github.com/fbkclanna/repokeep/internal/manifest"
)

// ErrNoWorkspace is returned when a directory has neither a manifest nor
// submodules.
var ErrNoWorkspace = errors.New("no " + manifest.FileName + " or .gitmodules found")

// Discoverer yields the workspace manifest for a root directory.
type Discoverer interface {
	Discover(ctx context.Context, root string) (*manifest.Workspace, error)
}

// Manifest discovers repositories from workspace.yaml.
type Manifest struct {
	FS afero.Fs
}

// Discover implements Discoverer.
func (m Manifest) Discover(_ context.Context, root string) (*manifest.Workspace, error) {
	return manifest.Load(m.FS, filepath.Join(root, manifest.FileName))
}

// Gitmodules discovers repositories from the submodules of the root
// repository. URLs missing from .gitmodules are asked from the submodule's
// origin remote.
type Gitmodules struct{}

// Discover implements Discoverer.
func (Gitmodules) Discover(ctx context.Context, root string) (*manifest.Workspace, error) {
	subs, err := git.Submodules(root)
	if err != nil {
		return nil, fmt.Errorf("reading submodules: %w", err)
	}
	if len(subs) == 0 {
		return nil, ErrNoWorkspace
	}

	ws := &manifest.Workspace{Version: 1, Name: filepath.Base(root)}
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.Path == "" {
			continue
		}
		url := s.URL
		if url == "" {
			if url, err = git.RemoteURL(filepath.Join(root, filepath.FromSlash(s.Path)), "origin"); err != nil {
				return nil, fmt.Errorf("submodule %s: %w", s.Name, err)
			}
		}
		ws.Repos = append(ws.Repos, manifest.Repo{Path: s.Path, URL: url, Ref: s.Branch})
	}
	if err := manifest.Validate(ws); err != nil {
		return nil, err
	}
	return ws, nil
}

// Auto uses workspace.yaml when present and falls back to .gitmodules.
type Auto struct {
	FS afero.Fs
}

// Discover implements Discoverer.
func (a Auto) Discover(ctx context.Context, root string) (*manifest.Workspace, error) {
	_, err := a.FS.Stat(filepath.Join(root, manifest.FileName))
	switch {
	case err == nil:
		return Manifest(a).Discover(ctx, root)
	case errors.Is(err, fs.ErrNotExist):
		return Gitmodules{}.Discover(ctx, root)
	default:
		return nil, err
	}
}
