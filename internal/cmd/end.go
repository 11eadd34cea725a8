package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atkw312/website-blocker/internal/orchestrator"
)

var endCredential string

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "End the running focus session",
	Long: `End the running focus session.

Locked strict sessions require the parent credential:
  focusblock end --credential <secret>`,
	RunE: runEnd,
}

func init() {
	endCmd.Flags().StringVarP(&endCredential, "credential", "c", "", "parent credential for locked sessions")

	rootCmd.AddCommand(endCmd)
}

func runEnd(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	result, err := e.dispatcher().EndSession(context.Background(), orchestrator.EndOptions{
		Credential: endCredential,
	})
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrInvalidTransition):
			return fmt.Errorf("no session is running")
		case errors.Is(err, orchestrator.ErrCredentialRequired):
			return fmt.Errorf("this session is locked; pass --credential to end it early")
		case errors.Is(err, orchestrator.ErrInvalidCredential):
			return fmt.Errorf("credential rejected")
		}
		return fmt.Errorf("failed to end session: %w", err)
	}

	fmt.Println("Session ended.")
	if result.Warning != "" {
		fmt.Printf("Warning: %s\n", result.Warning)
	}
	return nil
}
