// Package commands wires the wellspring CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/stefanpenner/wellspring/pkg/config"
)

// New returns the root command. Running it without a subcommand opens
// the board.
func New() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:           "wellspring",
		Short:         "Keep a short list of goals in focus.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUI(cmd, a)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("dir", "", "data directory (default: OS data dir, or $WELLSPRING_DIR)")
	flags.String("backend", "", "storage backend: files or sqlite")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format: text or json")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while the board is open")
	// Flags are registered above, so binding cannot fail.
	_ = config.BindFlags(a.v, flags)

	addCommands(cmd, a)
	return cmd
}

// addCommands registers every subcommand.
func addCommands(topLevel *cobra.Command, a *app) {
	addList(topLevel, a)
	addShow(topLevel, a)
	addAdd(topLevel, a)
	addMove(topLevel, a)
	addFocus(topLevel, a)
	addComplete(topLevel, a)
	addReopen(topLevel, a)
	addReorder(topLevel, a)
	addProgress(topLevel, a)
	addRename(topLevel, a)
	addNote(topLevel, a)
	addDelete(topLevel, a)
	addMilestone(topLevel, a)
	addInit(topLevel, a)
	addSync(topLevel, a)
	addConfig(topLevel, a)
}
