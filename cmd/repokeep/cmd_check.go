package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fbkclanna/repokeep/internal/changes"
	"github.com/fbkclanna/repokeep/internal/producer"
	"github.com/fbkclanna/repokeep/internal/ui"
	"github.com/fbkclanna/repokeep/internal/workspace"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the checks over a set of repositories and stage their fixes",
		Args:  cobra.NoArgs,
		RunE:  runCheck,
	}
	cmd.Flags().String("set", workspace.DefaultSet, "Repo set expression")
	versionFlags(cmd)
	cmd.Flags().Bool("save", false, "Apply the fixes instead of only staging them")
	cmd.Flags().Int("jobs", changes.DefaultJobs, "Number of repositories checked in parallel")
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	setExpr, _ := cmd.Flags().GetString("set")
	save, _ := cmd.Flags().GetBool("save")
	jobs, _ := cmd.Flags().GetInt("jobs")

	if jobs < 1 {
		return fmt.Errorf("--jobs must be >= 1 (got %d)", jobs)
	}
	spec, defines, err := versionSpec(cmd, "")
	if err != nil {
		return err
	}

	w, err := loadWorkspace(cmd, workspace.WithJobs(jobs))
	if err != nil {
		return err
	}
	if err := w.Acquire(); err != nil {
		return err
	}
	defer func() { _ = w.Release() }()

	repos, err := w.Select(cmd.Context(), setExpr)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No repositories selected.")
		return nil
	}

	progress := ui.NewProgress(cmd.ErrOrStderr(), len(repos))
	res, err := w.StageRepos(cmd.Context(), repos, workspace.StageOptions{
		Version: spec,
		Defines: defines,
		Save:    save,
		Done:    progress.Done,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	errs := printDiagnostics(out, res.Diagnostics)
	if !save {
		pending, err := w.Pending()
		if err != nil {
			return err
		}
		printPending(out, pending)
	}
	_, _ = fmt.Fprintln(out, res.Report.Summary())

	if err := res.Report.Err(); err != nil {
		return err
	}
	if errs > 0 {
		return fmt.Errorf("%d check(s) failed", errs)
	}
	return nil
}

// printDiagnostics prints warnings and errors and returns the error count.
func printDiagnostics(out io.Writer, diags []producer.Diagnostic) int {
	errs := 0
	for _, d := range diags {
		if d.Level == producer.LevelInfo {
			continue
		}
		if d.Level == producer.LevelError {
			errs++
		}
		_, _ = fmt.Fprintln(out, d.String())
	}
	return errs
}

func printPending(out io.Writer, store *changes.Store) {
	for _, c := range store.Changes() {
		_, _ = fmt.Fprintf(out, "  %s: %s (%s)\n", c.Key(), c.Reason, c.Producer)
	}
}
