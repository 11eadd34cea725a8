package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atkw312/website-blocker/internal/agent"
	"github.com/atkw312/website-blocker/internal/rules"
	"github.com/atkw312/website-blocker/internal/state"
)

var blockCmd = &cobra.Command{
	Use:   "block <domain>",
	Short: "Add a domain to the block list",
	Long: `Add a domain to the block list. The domain is normalized (scheme, path,
port, and a leading www. are stripped) before being stored.

Examples:
  focusblock block reddit.com
  focusblock block https://www.example.com/feed`,
	Args: cobra.ExactArgs(1),
	RunE: runBlock,
}

func init() {
	rootCmd.AddCommand(blockCmd)
}

func runBlock(cmd *cobra.Command, args []string) error {
	domain, err := rules.NormalizeDomain(args[0])
	if err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}

	r := e.store.Rules()
	for _, existing := range r.BlockedDomains {
		if existing == domain {
			fmt.Printf("%s is already blocked.\n", domain)
			return nil
		}
	}
	r.BlockedDomains = append(append([]string(nil), r.BlockedDomains...), domain)

	if err := e.store.SetRules(state.OriginUser, r); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}

	// Best-effort push so enforcement starts without waiting for the daemon.
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Agent.CallTimeoutDuration())
	defer cancel()
	if _, err := e.agent.Call(ctx, agent.Request{Type: agent.TypeBlockDomain, Domain: domain}); err != nil {
		Debug("block push skipped: %v", err)
	}

	fmt.Printf("Blocked %s\n", domain)
	return nil
}
