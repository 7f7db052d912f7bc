package lock

import (
	"testing"

	"github.com/spf13/afero"
)

func TestParse_valid(t *testing.T) {
	data := []byte(`
version: 1
generated_at: "2026-02-15T12:34:56+09:00"
tool_version: "0.1.0"
repos:
  lib/core:
    version: 1.2.3
    commit: "a1b2c3d4e5f6"
    tag: v1.2.3
  apps/cli:
    version: 2026-02-15-nightly1
    commit: "deadbeef1234"
`)
	lf, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lf.Version != 1 {
		t.Errorf("version = %d, want 1", lf.Version)
	}
	if len(lf.Repos) != 2 {
		t.Errorf("repos count = %d, want 2", len(lf.Repos))
	}
	core, ok := lf.Get("lib/core")
	if !ok {
		t.Fatal("lib/core release not found")
	}
	if core.Commit != "a1b2c3d4e5f6" || core.Tag != "v1.2.3" {
		t.Errorf("core = %+v", core)
	}
	if _, ok := lf.Get("missing"); ok {
		t.Error("expected no release for missing repo")
	}
}

func TestParse_badVersion(t *testing.T) {
	if _, err := Parse([]byte("version: 3\n")); err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if _, err := Parse([]byte("repos: [")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestSaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/ws/" + FileName

	empty, err := Load(fs, path)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if len(empty.Repos) != 0 {
		t.Errorf("expected empty lock, got %d repos", len(empty.Repos))
	}

	lf := New()
	lf.GeneratedAt = "2026-01-01T00:00:00Z"
	lf.ToolVersion = "dev"
	lf.Set("svc", &Release{Version: "1.0.0", Commit: "abc123"})

	if err := Save(fs, path, lf); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(fs, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if r, _ := loaded.Get("svc"); r == nil || r.Commit != "abc123" {
		t.Errorf("svc release = %+v", r)
	}
}
