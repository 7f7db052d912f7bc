package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fbkclanna/repokeep/internal/changes"
	"github.com/fbkclanna/repokeep/internal/git"
	"github.com/fbkclanna/repokeep/internal/lock"
	"github.com/fbkclanna/repokeep/internal/manifest"
	"github.com/fbkclanna/repokeep/internal/testutil"
)

func setup(t *testing.T) (root, bare string) {
	t.Helper()
	root = t.TempDir()
	bare = testutil.CreateBareRepo(t)
	testutil.CloneRepo(t, bare, filepath.Join(root, "a"))
	testutil.CloneRepo(t, bare, filepath.Join(root, "b"))
	return root, bare
}

func TestProvider(t *testing.T) {
	root, bare := setup(t)
	ctx := context.Background()
	repos := []manifest.Repo{{Path: "a"}, {Path: "b"}, {Path: "missing"}}

	head, err := git.HeadCommitFull(filepath.Join(root, "a"))
	if err != nil {
		t.Fatal(err)
	}
	releases := lock.New()
	releases.Set("a", &lock.Release{Version: "1.0.0", Commit: head[:12]})

	staged := changes.NewStore()
	if err := staged.Propose(changes.Change{Repo: "b", Path: "VERSION", Baseline: changes.Absent, Content: []byte("1\n")}); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(root, "b", "x.txt"), []byte("x"), 0644); err != nil { //nolint:gosec // test file
		t.Fatal(err)
	}
	testutil.PushCommit(t, bare, "NEWS.md", "news\n")

	p := New(root, repos, releases, func() (*changes.Store, error) { return staged, nil }, WithFetch(true))

	check := func(name string, fn func(context.Context, string) (bool, error), want map[string]bool) {
		t.Helper()
		for _, r := range repos {
			got, err := fn(ctx, r.ID())
			if err != nil {
				t.Fatalf("%s(%s): %v", name, r.ID(), err)
			}
			if got != want[r.ID()] {
				t.Errorf("%s(%s) = %v, want %v", name, r.ID(), got, want[r.ID()])
			}
		}
	}

	check("IsDirty", p.IsDirty, map[string]bool{"b": true})
	check("IsOutdated", p.IsOutdated, map[string]bool{"a": true, "b": true})
	check("HasStagedCache", p.HasStagedCache, map[string]bool{"b": true})
	check("IsUnreleased", p.IsUnreleased, map[string]bool{"b": true})

	if _, err := p.IsDirty(ctx, "unknown"); err == nil {
		t.Error("expected error for unknown repo")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := p.IsDirty(cancelled, "a"); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestProvider_SnapshotLoadsStagedOnce(t *testing.T) {
	ctx := context.Background()
	repos := []manifest.Repo{{Path: "a"}, {Path: "b"}, {Path: "c"}}
	staged := changes.NewStore()
	if err := staged.Propose(changes.Change{Repo: "c", Path: "VERSION", Baseline: changes.Absent, Content: []byte("1\n")}); err != nil {
		t.Fatal(err)
	}
	var loads int
	p := New(t.TempDir(), repos, lock.New(), func() (*changes.Store, error) {
		loads++
		return staged, nil
	})

	snap := p.Snapshot()
	for _, r := range repos {
		got, err := snap.HasStagedCache(ctx, r.ID())
		if err != nil {
			t.Fatal(err)
		}
		if got != (r.ID() == "c") {
			t.Errorf("HasStagedCache(%s) = %v", r.ID(), got)
		}
	}
	if loads != 1 {
		t.Errorf("staging store loaded %d times, want 1", loads)
	}

	if _, err := p.Snapshot().HasStagedCache(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if loads != 2 {
		t.Errorf("a new snapshot must load again, got %d loads", loads)
	}
}
