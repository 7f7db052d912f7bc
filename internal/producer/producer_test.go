package producer

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbkclanna/repokeep/internal/changes"
	"github.com/fbkclanna/repokeep/internal/manifest"
	"github.com/fbkclanna/repokeep/internal/version"
)

const root = "/ws"

func newInput(t *testing.T, files map[string]string) Input {
	t.Helper()
	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(root, "lib/core", name), []byte(content), 0o644))
	}
	ws := &manifest.Workspace{Version: 1, Name: "tools"}
	repo := manifest.Repo{Path: "lib/core"}
	cfg, err := manifest.LoadRepoConfig(fs, root, ws, &repo)
	require.NoError(t, err)
	return Input{FS: fs, Root: root, Repo: repo, Config: cfg}
}

func TestReadme(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		res, err := Readme{}.Produce(ctx, newInput(t, nil))
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, changes.Absent, res.Changes[0].Baseline)
		assert.Equal(t, "# core\n", string(res.Changes[0].Content))
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, LevelWarning, res.Diagnostics[0].Level)
	})

	t.Run("up to date", func(t *testing.T) {
		res, err := Readme{}.Produce(ctx, newInput(t, map[string]string{"README.md": "# core\n\nText.\n"}))
		require.NoError(t, err)
		assert.Empty(t, res.Changes)
		assert.Empty(t, res.Diagnostics)
	})

	t.Run("wrong title", func(t *testing.T) {
		old := "<!-- badges -->\n# old-name\r\n\n```sh\n# not a heading\n```\n# Second\n"
		res, err := Readme{}.Produce(ctx, newInput(t, map[string]string{"README.md": old}))
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		c := res.Changes[0]
		assert.Equal(t, changes.Fingerprint([]byte(old)), c.Baseline)
		assert.Equal(t, "<!-- badges -->\n# core\r\n\n```sh\n# not a heading\n```\n# Second\n", string(c.Content))
		assert.Equal(t, "readme", c.Producer)
		require.Len(t, res.Diagnostics, 1)
		assert.Contains(t, res.Diagnostics[0].Message, "line 7")
	})

	t.Run("no title", func(t *testing.T) {
		res, err := Readme{}.Produce(ctx, newInput(t, map[string]string{"README.md": "Just text.\n"}))
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, "# core\n\nJust text.\n", string(res.Changes[0].Content))
	})
}

func TestVersion(t *testing.T) {
	ctx := context.Background()
	resolved, err := version.Resolve("1.2.3-pre1", nil, nil)
	require.NoError(t, err)

	t.Run("no version requested", func(t *testing.T) {
		res, err := Version{}.Produce(ctx, newInput(t, nil))
		require.NoError(t, err)
		assert.Empty(t, res.Changes)
	})

	t.Run("creates file", func(t *testing.T) {
		in := newInput(t, nil)
		in.Version = &resolved
		res, err := Version{}.Produce(ctx, in)
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, "VERSION", res.Changes[0].Path)
		assert.Equal(t, "1.2.3-pre1\n", string(res.Changes[0].Content))
	})

	t.Run("formats for target", func(t *testing.T) {
		in := newInput(t, map[string]string{"VERSION": "1.0.0\n"})
		in.Config.VersionFormat = "rpm"
		in.Version = &resolved
		res, err := Version{}.Produce(ctx, in)
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, "1.2.3~pre1\n", string(res.Changes[0].Content))
		assert.Contains(t, res.Changes[0].Reason, "was 1.0.0")
	})

	t.Run("unchanged", func(t *testing.T) {
		in := newInput(t, map[string]string{"VERSION": "1.2.3-pre1\n"})
		in.Version = &resolved
		res, err := Version{}.Produce(ctx, in)
		require.NoError(t, err)
		assert.Empty(t, res.Changes)
	})

	t.Run("bad format", func(t *testing.T) {
		in := newInput(t, nil)
		in.Config.VersionFormat = "zip"
		in.Version = &resolved
		_, err := Version{}.Produce(ctx, in)
		assert.Error(t, err)
	})
}

const workflow = `# main workflow
name: build
on:
  pull_request: {}
  push:
    branches: [main]
jobs:
  test:
    runs-on: ubuntu-latest
`

func TestCI(t *testing.T) {
	ctx := context.Background()
	path := ".github/workflows/ci.yml"

	t.Run("renames workflow", func(t *testing.T) {
		res, err := CI{}.Produce(ctx, newInput(t, map[string]string{path: workflow}))
		require.NoError(t, err)
		require.Len(t, res.Changes, 1)
		assert.Equal(t, strings.Replace(workflow, "name: build", "name: CI", 1), string(res.Changes[0].Content))
		assert.Empty(t, res.Diagnostics)
	})

	t.Run("validates triggers and jobs", func(t *testing.T) {
		res, err := CI{}.Produce(ctx, newInput(t, map[string]string{path: "name: CI\non:\n  push:\n    branches: [develop]\n"}))
		require.NoError(t, err)
		assert.Empty(t, res.Changes)
		var msgs []string
		for _, d := range res.Diagnostics {
			msgs = append(msgs, d.Message)
		}
		assert.ElementsMatch(t, []string{
			"on.pull_request: missing",
			`on.push.branches: missing branch "main"`,
			"workflow has no jobs",
		}, msgs)
	})

	t.Run("missing", func(t *testing.T) {
		res, err := CI{}.Produce(ctx, newInput(t, nil))
		require.NoError(t, err)
		assert.Empty(t, res.Changes)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, "missing CI workflow", res.Diagnostics[0].Message)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		res, err := CI{}.Produce(ctx, newInput(t, map[string]string{path: "name: [\n"}))
		require.NoError(t, err)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, LevelError, res.Diagnostics[0].Level)
	})
}

type fixedProducer struct {
	name    string
	content string
	calls   atomic.Int32
}

func (p *fixedProducer) Name() string { return p.name }

func (p *fixedProducer) Produce(_ context.Context, in Input) (Result, error) {
	p.calls.Add(1)
	var res Result
	res.change(p, in, "VERSION", changes.Fingerprint([]byte(p.name)), []byte(p.content), "")
	return res, nil
}

func TestRun(t *testing.T) {
	in := newInput(t, map[string]string{"README.md": "# core\n"})
	other := in
	other.Repo = manifest.Repo{Path: "lib/other"}
	other.Config.Name = "other"
	other.Config.Disabled = []string{"second"}

	first := &fixedProducer{name: "first", content: "1"}
	second := &fixedProducer{name: "second", content: "2"}

	store := changes.NewStore()
	var done atomic.Int32
	diags, err := Run(context.Background(), []Input{in, other}, []Producer{first, second, Readme{}}, store, RunOptions{
		Jobs: 2,
		Done: func(string, bool) { done.Add(1) },
	})
	require.NoError(t, err)

	assert.Equal(t, int32(2), done.Load())
	assert.Equal(t, int32(1), second.calls.Load(), "disabled producer must not run")

	// lib/core: second conflicts with first, readme creates lib/other's README
	require.Len(t, diags, 2)
	assert.Equal(t, "lib/core", diags[0].Repo)
	assert.Equal(t, LevelError, diags[0].Level)
	assert.Contains(t, diags[0].Message, "conflicting changes")
	assert.Equal(t, "lib/other", diags[1].Repo)

	c, ok := store.Get(changes.Key{Repo: "lib/core", Path: "VERSION"})
	require.True(t, ok)
	assert.Equal(t, "1", string(c.Content))
	assert.Equal(t, 3, store.Len())
}

func TestLookup(t *testing.T) {
	ps, err := Lookup("ci", "readme")
	require.NoError(t, err)
	assert.Equal(t, "ci", ps[0].Name())
	assert.Equal(t, []string{"readme", "version", "ci"}, Names())

	_, err = Lookup("cargo")
	assert.Error(t, err)
}
