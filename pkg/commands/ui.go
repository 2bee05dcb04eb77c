package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stefanpenner/wellspring/pkg/config"
	gsync "github.com/stefanpenner/wellspring/pkg/sync"
	"github.com/stefanpenner/wellspring/pkg/tui"
)

// LogFile receives logs while the board owns the terminal.
const LogFile = "wellspring.log"

func runUI(cmd *cobra.Command, a *app) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.Dir, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := a.open(ctx, logFile); err != nil {
		return err
	}
	defer a.close()

	opts := tui.Options{
		Log:     a.log.WithField("component", "tui"),
		Metrics: a.metrics,
	}
	if a.files != nil {
		opts.GoalPath = a.files.GoalPath
		opts.Repo = gsync.New(cfg.Dir, logFile, a.log.WithField("component", "sync"))
	}

	m := tui.NewModel(a.store, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	unsubscribe := tui.Subscribe(a.store, p)
	defer unsubscribe()

	if a.files != nil {
		stop, err := tui.StartWatcher(a.files.GoalsDir(), p, a.log.WithField("component", "watcher"))
		if err != nil {
			a.log.WithError(err).Warn("file watcher failed")
		} else {
			defer stop()
		}
	}

	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, a.metrics, a.log)
		defer stop()
	}

	_, err = p.Run()
	return err
}
