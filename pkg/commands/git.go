package commands

import (
	"github.com/spf13/cobra"

	"github.com/stefanpenner/wellspring/pkg/config"
	"github.com/stefanpenner/wellspring/pkg/store"
	gsync "github.com/stefanpenner/wellspring/pkg/sync"
)

func addInit(topLevel *cobra.Command, a *app) {
	var remote string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Make the data directory a git repository",
		Example: `
wellspring init --remote git@github.com:me/goals.git
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			log := cfg.Logger()
			log.SetOutput(cmd.ErrOrStderr())
			if _, err := store.NewFileStore(cfg.Dir); err != nil {
				return err
			}
			return gsync.New(cfg.Dir, cmd.OutOrStdout(), log).Init(remote)
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "set origin to this url")
	topLevel.AddCommand(cmd)
}

func addSync(topLevel *cobra.Command, a *app) {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Commit, pull and push the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			log := cfg.Logger()
			log.SetOutput(cmd.ErrOrStderr())
			return gsync.New(cfg.Dir, cmd.OutOrStdout(), log).Sync()
		},
	}

	topLevel.AddCommand(cmd)
}
