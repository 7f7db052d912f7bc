package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/fbkclanna/repokeep/internal/manifest"
	"github.com/fbkclanna/repokeep/internal/testutil"
)

func TestManifest_Discover(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := "version: 1\nname: tools\nrepos:\n  - path: lib/core\n"
	if err := afero.WriteFile(fs, "/ws/"+manifest.FileName, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	ws, err := Manifest{FS: fs}.Discover(context.Background(), "/ws")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(ws.Repos) != 1 || ws.Repos[0].ID() != "lib/core" {
		t.Errorf("repos = %+v", ws.Repos)
	}
}

func TestGitmodules_Discover(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, ".gitmodules"), `[submodule "core"]
	path = lib/core
	url = git@github.com:org/core.git
	branch = develop
[submodule "cli"]
	path = apps/cli
`)
	bare := testutil.CreateBareRepo(t)
	testutil.CloneRepo(t, bare, filepath.Join(root, "apps", "cli"))

	ws, err := Auto{FS: afero.NewOsFs()}.Discover(context.Background(), root)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if ws.Name != filepath.Base(root) {
		t.Errorf("name = %q", ws.Name)
	}
	if len(ws.Repos) != 2 {
		t.Fatalf("repos = %d, want 2", len(ws.Repos))
	}
	if ws.Repos[0].ID() != "lib/core" || ws.Repos[0].EffectiveRef() != "develop" {
		t.Errorf("repos[0] = %+v", ws.Repos[0])
	}
	if ws.Repos[1].URL != bare {
		t.Errorf("repos[1].url = %q, want remote url %q", ws.Repos[1].URL, bare)
	}
}

func TestAuto_noWorkspace(t *testing.T) {
	_, err := Auto{FS: afero.NewOsFs()}.Discover(context.Background(), t.TempDir())
	if !errors.Is(err, ErrNoWorkspace) {
		t.Fatalf("err = %v, want ErrNoWorkspace", err)
	}
}
