package commands

import (
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/stefanpenner/wellspring/pkg/config"
)

func addConfig(topLevel *cobra.Command, a *app) {
	oo := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.v)
			if err != nil {
				return oo.HandleError(cmd.OutOrStdout(), err)
			}
			if oo.JSON {
				return outputJSON(cmd.OutOrStdout(), cfg)
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}

	AddOutputArg(cmd, oo)
	topLevel.AddCommand(cmd)
}

func printConfig(w io.Writer, cfg *config.Config) {
	file := cfg.File
	if file == "" {
		file = dimColor("(none)")
	}
	table := uitable.New()
	table.AddRow("dir:", cfg.Dir)
	table.AddRow("backend:", cfg.Backend)
	if cfg.Backend == config.BackendSQLite {
		table.AddRow("database:", cfg.DBPath())
	}
	table.AddRow("log_level:", cfg.LogLevel)
	table.AddRow("log_format:", cfg.LogFormat)
	if cfg.MetricsAddr != "" {
		table.AddRow("metrics_addr:", cfg.MetricsAddr)
	}
	table.AddRow("config file:", file)
	fmt.Fprintln(w, table)
}
