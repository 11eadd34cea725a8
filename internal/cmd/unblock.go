package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atkw312/website-blocker/internal/agent"
	"github.com/atkw312/website-blocker/internal/rules"
	"github.com/atkw312/website-blocker/internal/state"
)

var unblockCmd = &cobra.Command{
	Use:   "unblock <domain>",
	Short: "Remove a domain from the block list",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnblock,
}

func init() {
	rootCmd.AddCommand(unblockCmd)
}

func runUnblock(cmd *cobra.Command, args []string) error {
	domain, err := rules.NormalizeDomain(args[0])
	if err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}

	r := e.store.Rules()
	kept := make([]string, 0, len(r.BlockedDomains))
	found := false
	for _, existing := range r.BlockedDomains {
		if existing == domain {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return fmt.Errorf("%s is not blocked", domain)
	}
	r.BlockedDomains = kept

	if err := e.store.SetRules(state.OriginUser, r); err != nil {
		return fmt.Errorf("failed to save rules: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Agent.CallTimeoutDuration())
	defer cancel()
	if _, err := e.agent.Call(ctx, agent.Request{Type: agent.TypeUnblockDomain, Domain: domain}); err != nil {
		Debug("unblock push skipped: %v", err)
	}

	fmt.Printf("Unblocked %s\n", domain)
	return nil
}
