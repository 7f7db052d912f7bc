package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/fbkclanna/repokeep/internal/lock"
)

func TestRunPin_recordsReleases(t *testing.T) {
	wsDir, _ := setupWorkspace(t, 2)

	out, err := execute(t, wsDir, "pin", "--version", "1.4.0")
	if err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	if !strings.Contains(out, "Pinned alpha 1.4.0 @ ") || !strings.Contains(out, "Lock file written to") {
		t.Errorf("unexpected output:\n%s", out)
	}

	lf, err := lock.Load(afero.NewOsFs(), filepath.Join(wsDir, lock.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if len(lf.Repos) != 2 {
		t.Errorf("expected 2 pinned repos, got %d", len(lf.Repos))
	}
	for id, r := range lf.Repos {
		if r.Version != "1.4.0" || len(r.Commit) != 40 {
			t.Errorf("%s: unexpected release %+v", id, r)
		}
	}
	if lf.ToolVersion != toolVersion {
		t.Errorf("tool_version = %q, want %q", lf.ToolVersion, toolVersion)
	}

	statuses := statusJSON(t, wsDir, "--set", "@unreleased")
	if len(statuses) != 0 {
		t.Errorf("pinned repos should not be unreleased: %+v", statuses)
	}
}

func TestRunPin_set(t *testing.T) {
	wsDir, _ := setupWorkspace(t, 2)

	if _, err := execute(t, wsDir, "set", "save", "--base", "first", "@all - @all"); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, wsDir, "pin", "--set", "first", "--version", "1.0.0"); err != nil {
		t.Fatalf("pin failed: %v", err)
	}
	statuses := statusJSON(t, wsDir, "--set", "@unreleased")
	if len(statuses) != 2 {
		t.Errorf("an empty set pins nothing: %+v", statuses)
	}
}

func TestRunPin_requiresVersion(t *testing.T) {
	wsDir, _ := setupWorkspace(t, 1)
	if _, err := execute(t, wsDir, "pin"); err == nil {
		t.Fatal("expected error without --version")
	}
}
