package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fbkclanna/repokeep/internal/changes"
	"github.com/fbkclanna/repokeep/internal/ui"
	"github.com/fbkclanna/repokeep/internal/workspace"
)

func newChangesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "changes",
		Short: "Show or apply staged changes",
		Args:  cobra.NoArgs,
		RunE:  runChanges,
	}
	cmd.Flags().Bool("save", false, "Apply the staged changes")
	cmd.Flags().BoolP("interactive", "i", false, "Confirm each change before applying it")
	cmd.Flags().Bool("diff", false, "Show a diff of each staged change")
	return cmd
}

func runChanges(cmd *cobra.Command, _ []string) error {
	save, _ := cmd.Flags().GetBool("save")
	interactive, _ := cmd.Flags().GetBool("interactive")
	showDiff, _ := cmd.Flags().GetBool("diff")

	if interactive && !isTerminal() {
		return fmt.Errorf("--interactive requires a TTY")
	}

	w, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	if err := w.Acquire(); err != nil {
		return err
	}
	defer func() { _ = w.Release() }()

	out := cmd.OutOrStdout()
	pending, err := w.Pending()
	if err != nil {
		return err
	}
	if pending.Len() == 0 {
		_, _ = fmt.Fprintln(out, "No staged changes.")
		return nil
	}

	var report *changes.Report
	switch {
	case interactive:
		report, err = applyInteractive(cmd, w, pending)
	case save:
		report, err = w.ApplyPending(cmd.Context(), true)
	default:
		printPending(out, pending)
		if showDiff {
			if err := showDiffs(cmd, w, pending); err != nil {
				return err
			}
		}
		_, _ = fmt.Fprintf(out, "%d change(s) staged, run with --save to apply\n", pending.Len())
		return nil
	}
	if errors.Is(err, changes.ErrNoChanges) {
		_, _ = fmt.Fprintln(out, "No staged changes.")
		return nil
	}
	if err != nil {
		return err
	}

	for _, k := range report.Applied {
		_, _ = fmt.Fprintf(out, "  applied %s\n", k)
	}
	for _, e := range report.Stale {
		_, _ = fmt.Fprintf(out, "  stale   %s\n", e.Key)
	}
	for _, e := range report.Failed {
		_, _ = fmt.Fprintf(out, "  failed  %s: %v\n", e.Key, e.Err)
	}
	_, _ = fmt.Fprintln(out, report.Summary())
	return report.Err()
}

func showDiffs(cmd *cobra.Command, w *workspace.Workspace, store *changes.Store) error {
	for _, c := range store.Changes() {
		d, err := w.Stager.Diff(c)
		if err != nil {
			return err
		}
		if err := ui.WriteDiff(cmd.OutOrStdout(), d); err != nil {
			return err
		}
	}
	return nil
}

// applyInteractive shows each staged change and applies the accepted ones.
// Aborting the prompt applies nothing.
func applyInteractive(cmd *cobra.Command, w *workspace.Workspace, store *changes.Store) (*changes.Report, error) {
	out := cmd.OutOrStdout()
	pending := store.Changes()
	accepted := make(map[changes.Key]bool, len(pending))
	for i, c := range pending {
		d, err := w.Stager.Diff(c)
		if err != nil {
			return nil, err
		}
		if err := ui.WriteDiff(out, d); err != nil {
			return nil, err
		}
		decision, err := promptReview(c, i+1, len(pending))
		if err != nil {
			return nil, err
		}
		if decision == applyRest {
			for _, rest := range pending[i:] {
				accepted[rest.Key()] = true
			}
			break
		}
		accepted[c.Key()] = decision == applyChange
	}
	return w.ApplyMatching(cmd.Context(), func(c changes.Change) bool { return accepted[c.Key()] })
}
