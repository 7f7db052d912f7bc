package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/fbkclanna/repokeep/internal/logging"
	"github.com/fbkclanna/repokeep/internal/version"
	"github.com/fbkclanna/repokeep/internal/workspace"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "repokeep",
		Short:         "Keep a set of repositories consistent",
		Version:       toolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("root", ".", "Workspace root directory")
	cmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error, none)")
	cmd.PersistentFlags().Bool("fetch", false, "Fetch from origin before computing @outdated")

	cmd.AddCommand(
		newCheckCmd(),
		newChangesCmd(),
		newSetCmd(),
		newVersionCmd(),
		newStatusCmd(),
		newPinCmd(),
	)

	return cmd
}

// newEnv returns the REPOKEEP_* environment overrides.
func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("repokeep")
	v.AutomaticEnv()
	return v
}

// loadWorkspace loads the workspace named by --root with the logger and
// options taken from the persistent flags.
func loadWorkspace(cmd *cobra.Command, opts ...workspace.Option) (*workspace.Workspace, error) {
	root, _ := cmd.Flags().GetString("root")
	level, _ := cmd.Flags().GetString("log-level")
	fetch, _ := cmd.Flags().GetBool("fetch")

	logger, err := logging.New(level)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts = append([]workspace.Option{
		workspace.WithLogger(logger),
		workspace.WithFetch(fetch),
	}, opts...)
	return workspace.Load(cmd.Context(), root, opts...)
}

// versionFlags registers --version and --define on cmd.
func versionFlags(cmd *cobra.Command) {
	cmd.Flags().String("version", "", "Version specification (REPOKEEP_VERSION overrides)")
	cmd.Flags().StringArray("define", nil, "Define a version variable as key=value (repeatable)")
}

// versionSpec returns the version specification and defines of cmd.
// REPOKEEP_VERSION replaces the flag, REPOKEEP_DEFINE adds comma separated
// defines that flags can still override.
func versionSpec(cmd *cobra.Command, fallback string) (string, version.Variables, error) {
	env := newEnv()

	spec := fallback
	if cmd.Flags().Lookup("version") != nil {
		if s, _ := cmd.Flags().GetString("version"); s != "" {
			spec = s
		}
	}
	if s := env.GetString("version"); s != "" {
		spec = s
	}

	var defs []string
	if s := env.GetString("define"); s != "" {
		for _, d := range strings.Split(s, ",") {
			if d = strings.TrimSpace(d); d != "" {
				defs = append(defs, d)
			}
		}
	}
	flagDefs, _ := cmd.Flags().GetStringArray("define")
	defs = append(defs, flagDefs...)

	vars, err := version.ParseDefines(defs)
	if err != nil {
		return "", nil, err
	}
	return spec, vars, nil
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
