package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/atkw312/website-blocker/internal/agent"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session and agent status",
	Long:  `Show the current session, settings, and whether the enforcement agent responds.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	sess := e.store.Session()
	settings := e.store.Settings()

	// Create tabwriter for aligned output
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if sess.Active() {
		started := time.UnixMilli(sess.StartTime).Format("2006-01-02 15:04:05")
		ends := time.UnixMilli(sess.EndTime).Format("15:04:05")
		locked := "no"
		if sess.Locked {
			locked = "yes"
		}
		_, _ = fmt.Fprintf(w, "Session:\t%s\n", sess.Mode)
		_, _ = fmt.Fprintf(w, "Started:\t%s\n", started)
		_, _ = fmt.Fprintf(w, "Ends:\t%s\n", ends)
		_, _ = fmt.Fprintf(w, "Locked:\t%s\n", locked)
		if sess.ScheduledID != "" {
			_, _ = fmt.Fprintf(w, "Schedule:\t%s\n", scheduleLabel(e, sess.ScheduledID))
		}
	} else {
		_, _ = fmt.Fprintf(w, "Session:\tnone\n")
	}

	_, _ = fmt.Fprintf(w, "Default mode:\t%s\n", settings.DefaultMode)
	_, _ = fmt.Fprintf(w, "Default length:\t%d min\n", settings.SessionDurationMinutes)
	_, _ = fmt.Fprintf(w, "Parent unlock:\t%v\n", settings.RequireParentUnlock)
	_, _ = fmt.Fprintf(w, "Agent:\t%s\n", agentStatus(e))

	_ = w.Flush()
	return nil
}

// agentStatus pings the agent with a one-shot call.
func agentStatus(e *env) string {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Agent.CallTimeoutDuration())
	defer cancel()

	resp, err := e.agent.Call(ctx, agent.Request{Type: agent.TypePing})
	if err != nil || !resp.OK() {
		return "unreachable"
	}
	return "responding"
}

func scheduleLabel(e *env, id string) string {
	for _, sched := range e.store.Schedules() {
		if sched.ID == id {
			if sched.Label != "" {
				return sched.Label
			}
			return sched.ID
		}
	}
	return id
}
