package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/atkw312/website-blocker/internal/state"
)

var (
	scheduleLabelFlag string
	scheduleDays      string
	scheduleStart     string
	scheduleEnd       string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring focus session schedules",
	Long: `Manage the recurring windows during which a session auto-starts.

The daemon checks schedules once a minute and starts a session in the default
mode for whatever remains of the first matching window.

Examples:
  focusblock schedule list
  focusblock schedule add --label homework --days mon,tue,wed,thu,fri --start 16:00 --end 18:00
  focusblock schedule disable <id>
  focusblock schedule remove <id>`,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	RunE:  runScheduleList,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a schedule",
	RunE:  runScheduleAdd,
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRemove,
}

var scheduleEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleSetEnabled(true),
}

var scheduleDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleSetEnabled(false),
}

func init() {
	scheduleAddCmd.Flags().StringVar(&scheduleLabelFlag, "label", "", "human-readable name for the schedule")
	scheduleAddCmd.Flags().StringVar(&scheduleDays, "days", "", "comma-separated weekdays (mon,tue,...)")
	scheduleAddCmd.Flags().StringVar(&scheduleStart, "start", "", "window start time (HH:MM)")
	scheduleAddCmd.Flags().StringVar(&scheduleEnd, "end", "", "window end time (HH:MM)")
	_ = scheduleAddCmd.MarkFlagRequired("days")
	_ = scheduleAddCmd.MarkFlagRequired("start")
	_ = scheduleAddCmd.MarkFlagRequired("end")

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
	scheduleCmd.AddCommand(scheduleEnableCmd)
	scheduleCmd.AddCommand(scheduleDisableCmd)

	rootCmd.AddCommand(scheduleCmd)
}

func runScheduleList(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	schedules := e.store.Schedules()
	if len(schedules) == 0 {
		fmt.Println("No schedules configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tLABEL\tDAYS\tWINDOW\tENABLED")

	for _, sched := range schedules {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%02d:%02d-%02d:%02d\t%v\n",
			sched.ID,
			sched.Label,
			formatDays(sched.Days),
			sched.StartHour, sched.StartMinute,
			sched.EndHour, sched.EndMinute,
			sched.Enabled,
		)
	}

	_ = w.Flush()
	return nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	days, err := parseDays(scheduleDays)
	if err != nil {
		return err
	}
	startHour, startMinute, err := parseTimeOfDay(scheduleStart)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	endHour, endMinute, err := parseTimeOfDay(scheduleEnd)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	sched := state.Schedule{
		ID:          uuid.NewString(),
		Label:       scheduleLabelFlag,
		Days:        days,
		StartHour:   startHour,
		StartMinute: startMinute,
		EndHour:     endHour,
		EndMinute:   endMinute,
		Enabled:     true,
	}
	if err := sched.Validate(); err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}

	schedules := append(e.store.Schedules(), sched)
	if err := e.store.SetSchedules(state.OriginUser, schedules); err != nil {
		return fmt.Errorf("failed to save schedule: %w", err)
	}

	fmt.Printf("Added schedule %s\n", sched.ID)
	return nil
}

func runScheduleRemove(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}

	schedules := e.store.Schedules()
	kept := schedules[:0]
	found := false
	for _, sched := range schedules {
		if sched.ID == args[0] {
			found = true
			continue
		}
		kept = append(kept, sched)
	}
	if !found {
		return fmt.Errorf("no schedule with id %s", args[0])
	}

	if err := e.store.SetSchedules(state.OriginUser, kept); err != nil {
		return fmt.Errorf("failed to save schedules: %w", err)
	}

	fmt.Printf("Removed schedule %s\n", args[0])
	return nil
}

func runScheduleSetEnabled(enabled bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}

		schedules := e.store.Schedules()
		found := false
		for i := range schedules {
			if schedules[i].ID == args[0] {
				schedules[i].Enabled = enabled
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no schedule with id %s", args[0])
		}

		if err := e.store.SetSchedules(state.OriginUser, schedules); err != nil {
			return fmt.Errorf("failed to save schedules: %w", err)
		}

		verb := "Disabled"
		if enabled {
			verb = "Enabled"
		}
		fmt.Printf("%s schedule %s\n", verb, args[0])
		return nil
	}
}

var dayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func parseDays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	seen := make(map[time.Weekday]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		day, ok := dayNames[name]
		if !ok {
			return nil, fmt.Errorf("unknown day %q (expected mon, tue, ...)", part)
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("at least one day is required")
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days, nil
}

func parseTimeOfDay(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

func formatDays(days []time.Weekday) string {
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = strings.ToLower(d.String()[:3])
	}
	return strings.Join(names, ",")
}
