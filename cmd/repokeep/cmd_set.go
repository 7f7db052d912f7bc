package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fbkclanna/repokeep/internal/sets"
	"github.com/fbkclanna/repokeep/internal/ui"
)

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Resolve and persist repo sets",
	}
	cmd.AddCommand(newSetResolveCmd(), newSetSaveCmd(), newSetListCmd())
	return cmd
}

func newSetResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <expr>",
		Short: "Print the repositories of a set expression",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetResolve,
	}
}

func runSetResolve(cmd *cobra.Command, args []string) error {
	w, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	set, err := w.Sets.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	for _, id := range set.Items() {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func newSetSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [name] <expr>",
		Short: "Save the repositories of a set expression under a name",
		Long: `Save the repositories of a set expression under a name.

By default today's dated snapshot <name>-YYYY-MM-DD is written and only the
three most recent snapshots are kept. --base writes the undated file instead.
The name is prompted for when omitted on a terminal.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: runSetSave,
	}
	cmd.Flags().Bool("base", false, "Write the undated base file instead of a snapshot")
	cmd.Flags().String("hint", "", "Comment written at the top of the file (defaults to the expression)")
	return cmd
}

func runSetSave(cmd *cobra.Command, args []string) error {
	base, _ := cmd.Flags().GetBool("base")
	hint, _ := cmd.Flags().GetString("hint")

	expr := args[len(args)-1]
	if len(args) == 1 && !isTerminal() {
		return fmt.Errorf("set name is required (usage: %s)", cmd.UseLine())
	}
	if hint == "" {
		hint = expr
	}

	w, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	set, err := w.Sets.Resolve(cmd.Context(), expr)
	if err != nil {
		return err
	}

	var name string
	if len(args) == 2 {
		name = args[0]
	} else if name, err = promptSetName(expr, set.Len(), setNameValidator); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if err := setNameValidator(name); err != nil {
		return err
	}

	store := w.Sets.Store()
	if base {
		err = store.SaveBase(name, set, hint)
	} else {
		err = store.Save(name, set, hint)
	}
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved %d repo(s) to set %s\n", set.Len(), name)
	return nil
}

func setNameValidator(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("set name is required")
	}
	if !sets.ValidName(s) {
		return fmt.Errorf("invalid set name %q: use letters, digits, '_' and '.'", s)
	}
	return nil
}

func newSetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted sets",
		Args:  cobra.NoArgs,
		RunE:  runSetList,
	}
}

func runSetList(cmd *cobra.Command, _ []string) error {
	w, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}
	infos, err := w.Sets.Store().List()
	if err != nil {
		return err
	}

	tbl := ui.NewTable(cmd.OutOrStdout(), "NAME", "BASE", "SNAPSHOTS", "LATEST")
	for _, info := range infos {
		latest := ""
		if t, ok := info.Latest(); ok {
			latest = t.Format(time.DateOnly)
		}
		tbl.Row(info.Name, info.Base, len(info.Snapshots), latest)
	}
	return tbl.Flush()
}
