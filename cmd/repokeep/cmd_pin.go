package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fbkclanna/repokeep/internal/workspace"
)

func newPinCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Record the released version and HEAD commit of each repository",
		Args:  cobra.NoArgs,
		RunE:  runPin,
	}
	cmd.Flags().String("set", workspace.DefaultSet, "Repo set expression")
	versionFlags(cmd)
	return cmd
}

func runPin(cmd *cobra.Command, _ []string) error {
	setExpr, _ := cmd.Flags().GetString("set")
	spec, defines, err := versionSpec(cmd, "")
	if err != nil {
		return err
	}
	if spec == "" {
		return fmt.Errorf("--version is required")
	}

	w, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	pinned, err := w.Pin(cmd.Context(), setExpr, spec, defines, toolVersion)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, id := range pinned {
		rel, _ := w.Releases.Get(id)
		_, _ = fmt.Fprintf(out, "Pinned %s %s @ %s\n", id, rel.Version, rel.Commit[:min(len(rel.Commit), 7)])
	}
	_, _ = fmt.Fprintf(out, "Lock file written to %s\n", w.ReleasesPath())
	return nil
}
