package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atkw312/website-blocker/internal/orchestrator"
	"github.com/atkw312/website-blocker/internal/state"
)

var switchCmd = &cobra.Command{
	Use:   "switch <mode>",
	Short: "Switch the running session between precision and strict",
	Long: `Switch the running session's mode without restarting it.

Upgrading to strict asks the agent for system-level blocking; if the agent
refuses or is unreachable the session stays in precision. Downgrading to
precision releases the system-level blocks first.

Examples:
  focusblock switch strict
  focusblock switch precision`,
	Args: cobra.ExactArgs(1),
	RunE: runSwitch,
}

func init() {
	rootCmd.AddCommand(switchCmd)
}

func runSwitch(cmd *cobra.Command, args []string) error {
	mode, err := state.ParseMode(args[0])
	if err != nil {
		return err
	}
	if mode == state.ModeOff {
		return fmt.Errorf("use 'focusblock end' to end the session")
	}

	e, err := setup()
	if err != nil {
		return err
	}

	if err := e.dispatcher().SwitchMode(context.Background(), mode); err != nil {
		if errors.Is(err, orchestrator.ErrAgentUnavailable) {
			return fmt.Errorf("enforcement agent unreachable; session unchanged")
		}
		return fmt.Errorf("failed to switch mode: %w", err)
	}

	fmt.Printf("Session switched to %s mode.\n", mode)
	return nil
}
