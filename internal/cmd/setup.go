package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atkw312/website-blocker/internal/agent"
	"github.com/atkw312/website-blocker/internal/credential"
	"github.com/atkw312/website-blocker/internal/state"
)

var (
	setupDefaultMode   string
	setupMinutes       int
	setupBlockAll      bool
	setupRequireUnlock bool
	setupCredential    string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure session defaults and parent unlock",
	Long: `Configure the default session mode and duration, and optionally a parent
credential that locked sessions require to end early.

The credential is stored only as a hash; losing it means waiting out locked
sessions.

Examples:
  focusblock setup --default-mode strict --minutes 45
  focusblock setup --require-unlock --credential <secret>`,
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringVar(&setupDefaultMode, "default-mode", "", "default session mode: precision or strict")
	setupCmd.Flags().IntVar(&setupMinutes, "minutes", 0, "default session length in minutes")
	setupCmd.Flags().BoolVar(&setupBlockAll, "block-all-channels", false, "block every channel except the allow list")
	setupCmd.Flags().BoolVar(&setupRequireUnlock, "require-unlock", false, "require the parent credential to end locked sessions")
	setupCmd.Flags().StringVar(&setupCredential, "credential", "", "parent credential to hash and store")

	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	settings := e.store.Settings()

	if setupDefaultMode != "" {
		mode, err := state.ParseMode(setupDefaultMode)
		if err != nil {
			return err
		}
		if mode == state.ModeOff {
			return fmt.Errorf("default mode must be precision or strict")
		}
		settings.DefaultMode = mode
	}
	if setupMinutes > 0 {
		settings.SessionDurationMinutes = setupMinutes
	}
	if cmd.Flags().Changed("block-all-channels") {
		settings.BlockAllChannels = setupBlockAll
	}
	if cmd.Flags().Changed("require-unlock") {
		settings.RequireParentUnlock = setupRequireUnlock
	}
	if setupCredential != "" {
		hash, err := credential.Hash(setupCredential)
		if err != nil {
			return fmt.Errorf("failed to hash credential: %w", err)
		}
		settings.ParentCredentialHash = hash
	}

	if err := e.store.SetSettings(state.OriginUser, settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	// Best-effort push so the agent picks this up without waiting for the
	// daemon. Local-only fields stay local.
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Agent.CallTimeoutDuration())
	defer cancel()
	_, syncErr := e.agent.Call(ctx, agent.Request{
		Type: agent.TypeSyncSettings,
		Settings: &agent.SettingsPayload{
			DefaultMode:            settings.DefaultMode,
			BlockAllChannels:       settings.BlockAllChannels,
			SessionDurationMinutes: settings.SessionDurationMinutes,
		},
	})
	if syncErr != nil {
		Debug("settings sync skipped: %v", syncErr)
	}

	fmt.Println("Settings saved.")
	if setupCredential != "" {
		fmt.Println("Parent credential updated.")
	}
	return nil
}
