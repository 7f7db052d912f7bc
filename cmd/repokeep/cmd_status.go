package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fbkclanna/repokeep/internal/git"
	"github.com/fbkclanna/repokeep/internal/manifest"
	"github.com/fbkclanna/repokeep/internal/sets"
	"github.com/fbkclanna/repokeep/internal/ui"
	"github.com/fbkclanna/repokeep/internal/workspace"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace status",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
	cmd.Flags().String("set", workspace.DefaultSet, "Repo set expression")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

type repoStatus struct {
	ID         string `json:"id"`
	Cloned     bool   `json:"cloned"`
	Branch     string `json:"branch,omitempty"`
	Head       string `json:"head,omitempty"`
	Dirty      bool   `json:"dirty"`
	Outdated   bool   `json:"outdated"`
	Staged     bool   `json:"staged"`
	Unreleased bool   `json:"unreleased"`
	Release    string `json:"release,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	setExpr, _ := cmd.Flags().GetString("set")
	asJSON, _ := cmd.Flags().GetBool("json")

	w, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	repos, err := w.Select(cmd.Context(), setExpr)
	if err != nil {
		return err
	}

	st := w.State.Snapshot()
	statuses := make([]repoStatus, len(repos))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(4)
	for i, r := range repos {
		i, r := i, r
		g.Go(func() error {
			s, err := collectStatus(ctx, w, st, r)
			statuses[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(statuses)
	}

	tbl := ui.NewTable(out, "REPO", "BRANCH", "HEAD", "DIRTY", "OUTDATED", "STAGED", "UNRELEASED", "RELEASE")
	for _, s := range statuses {
		branch := s.Branch
		if !s.Cloned {
			branch = "(not cloned)"
		}
		tbl.Row(s.ID, branch, s.Head, s.Dirty, s.Outdated, s.Staged, s.Unreleased, s.Release)
	}
	return tbl.Flush()
}

func collectStatus(ctx context.Context, w *workspace.Workspace, st sets.StateProvider, r manifest.Repo) (repoStatus, error) {
	id := r.ID()
	s := repoStatus{ID: id}
	if rel, ok := w.Releases.Get(id); ok {
		s.Release = rel.Version
	}

	var err error
	if s.Staged, err = st.HasStagedCache(ctx, id); err != nil {
		return s, err
	}

	dir := w.RepoDir(r)
	if !git.IsCloned(dir) {
		return s, nil
	}
	s.Cloned = true

	if branch, err := git.CurrentBranch(dir); err == nil {
		s.Branch = branch
	}
	if head, err := git.HeadCommit(dir); err == nil {
		s.Head = head
	}
	if s.Dirty, err = st.IsDirty(ctx, id); err != nil {
		return s, fmt.Errorf("%s: %w", id, err)
	}
	if s.Outdated, err = st.IsOutdated(ctx, id); err != nil {
		return s, fmt.Errorf("%s: %w", id, err)
	}
	if s.Unreleased, err = st.IsUnreleased(ctx, id); err != nil {
		return s, fmt.Errorf("%s: %w", id, err)
	}
	return s, nil
}
