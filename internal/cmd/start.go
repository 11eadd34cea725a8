package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/atkw312/website-blocker/internal/orchestrator"
	"github.com/atkw312/website-blocker/internal/state"
)

var (
	startMode    string
	startMinutes int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a focus session",
	Long: `Start a focus session in precision or strict mode.

Precision mode enforces inside the browser surface only. Strict mode asks the
enforcement agent to add system-level blocking; when the agent is unreachable
the session still starts, degraded to precision.

Examples:
  focusblock start                         # default mode and duration
  focusblock start --mode strict
  focusblock start --mode precision --minutes 45`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVarP(&startMode, "mode", "m", "", "session mode: precision or strict (default: configured default mode)")
	startCmd.Flags().IntVar(&startMinutes, "minutes", 0, "session length in minutes (default: configured duration)")

	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	opts := orchestrator.StartOptions{DurationMinutes: startMinutes}
	if startMode != "" {
		mode, err := state.ParseMode(startMode)
		if err != nil {
			return err
		}
		if mode == state.ModeOff {
			return fmt.Errorf("cannot start a session in mode %q", mode)
		}
		opts.Mode = mode
	}

	result, err := e.dispatcher().StartSession(context.Background(), opts)
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidTransition) {
			return fmt.Errorf("a session is already running (use 'focusblock switch' to change mode)")
		}
		return fmt.Errorf("failed to start session: %w", err)
	}

	sess := result.Session
	ends := time.UnixMilli(sess.EndTime).Format("15:04")
	fmt.Printf("Session started: %s mode until %s\n", sess.Mode, ends)
	if sess.Locked {
		fmt.Println("Session is locked; ending early requires the parent credential.")
	}
	if result.Warning != "" {
		fmt.Printf("Warning: %s\n", result.Warning)
	}
	return nil
}
