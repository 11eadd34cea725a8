package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atkw312/website-blocker/internal/clock"
	"github.com/atkw312/website-blocker/internal/orchestrator"
	"github.com/atkw312/website-blocker/internal/state"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the focus session daemon",
	Long: `Run the background daemon that keeps the enforcement agent in sync.

The daemon reconciles agent state on a fixed interval, starts sessions on
schedule, watches the state file for edits made by other processes, and ends
sessions whose time is up. It runs until interrupted.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	logger, err := daemonLogger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	watcher, err := state.NewWatcher(e.store, logger)
	if err != nil {
		return fmt.Errorf("failed to create state watcher: %w", err)
	}

	orch := orchestrator.New(e.store, e.agent, watcher, clock.SystemClock{}, orchestrator.Options{
		PollInterval:       e.cfg.Intervals.PollDuration(),
		ScheduleInterval:   e.cfg.Intervals.ScheduleDuration(),
		SupervisorInterval: e.cfg.Intervals.SupervisorDuration(),
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	logger.Info("daemon running",
		zap.String("state", e.store.Path()),
		zap.String("agent", e.cfg.Agent.Path),
	)

	// Block until SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	orch.Stop()
	return nil
}

// daemonLogger builds the long-running process logger. --debug lowers the
// level and switches to the console encoder.
func daemonLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
