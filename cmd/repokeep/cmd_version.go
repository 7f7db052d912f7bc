package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/fbkclanna/repokeep/internal/git"
	"github.com/fbkclanna/repokeep/internal/version"
)

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version [spec]",
		Short: "Resolve a version specification",
		Long: `Resolve a version specification.

Candidates are separated by "||" and the first non-empty one wins. %date,
%tag and %branch are bound from the git checkout at --root; --define and
REPOKEEP_DEFINE add more variables. REPOKEEP_VERSION replaces the argument.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVersion,
	}
	cmd.Flags().StringArray("define", nil, "Define a version variable as key=value (repeatable)")
	cmd.Flags().String("format", "", "Coerce to semver, rpm, deb, msi or plain")
	cmd.Flags().Bool("json", false, "Output as JSON")
	return cmd
}

type versionOutput struct {
	Version  string           `json:"version"`
	Resolved version.Resolved `json:"resolved"`
}

func runVersion(cmd *cobra.Command, args []string) error {
	root, _ := cmd.Flags().GetString("root")
	format, _ := cmd.Flags().GetString("format")
	asJSON, _ := cmd.Flags().GetBool("json")

	fallback := ""
	if len(args) == 1 {
		fallback = args[0]
	}
	spec, defines, err := versionSpec(cmd, fallback)
	if err != nil {
		return err
	}
	if spec == "" {
		return fmt.Errorf("no version specification given")
	}

	vars := rootBindings(root).Merge(defines)
	r, err := version.Resolve(spec, vars, nil)
	if err != nil {
		return err
	}

	text := r.String()
	if format != "" {
		target, err := version.ParseTarget(format)
		if err != nil {
			return err
		}
		if text, err = version.Format(r, target); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(versionOutput{Version: text, Resolved: r})
	}
	_, _ = fmt.Fprintln(out, text)
	return nil
}

// rootBindings returns the built-in variables for the checkout at root.
func rootBindings(root string) version.Variables {
	var tag, branch string
	if dir, err := filepath.Abs(root); err == nil && git.IsCloned(dir) {
		tag, _ = git.ExactTag(dir)
		branch, _ = git.CurrentBranch(dir)
	}
	return version.Builtins(time.Now(), tag, branch)
}
