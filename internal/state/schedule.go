package state

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSchedule marks a schedule that cannot be evaluated. The schedule
// engine skips such entries and keeps scanning the rest.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Validate checks that the schedule describes a usable window. Overnight
// windows (end at or before start) are rejected rather than wrapped.
func (s Schedule) Validate() error {
	if s.StartHour < 0 || s.StartHour > 23 || s.EndHour < 0 || s.EndHour > 23 {
		return fmt.Errorf("%w: hour out of range", ErrInvalidSchedule)
	}
	if s.StartMinute < 0 || s.StartMinute > 59 || s.EndMinute < 0 || s.EndMinute > 59 {
		return fmt.Errorf("%w: minute out of range", ErrInvalidSchedule)
	}
	if len(s.Days) == 0 {
		return fmt.Errorf("%w: no days selected", ErrInvalidSchedule)
	}
	for _, d := range s.Days {
		if d < time.Sunday || d > time.Saturday {
			return fmt.Errorf("%w: unknown weekday %d", ErrInvalidSchedule, d)
		}
	}
	if s.endMinuteOfDay() <= s.startMinuteOfDay() {
		return fmt.Errorf("%w: window end must be after start", ErrInvalidSchedule)
	}
	return nil
}

// ContainsTime reports whether t falls on one of the schedule's days and
// inside its [start, end) minute-of-day window.
func (s Schedule) ContainsTime(t time.Time) bool {
	dayMatch := false
	for _, d := range s.Days {
		if t.Weekday() == d {
			dayMatch = true
			break
		}
	}
	if !dayMatch {
		return false
	}

	minute := t.Hour()*60 + t.Minute()
	return minute >= s.startMinuteOfDay() && minute < s.endMinuteOfDay()
}

// MinutesUntilEnd returns how many whole minutes remain until the window's
// end, assuming t is inside the window.
func (s Schedule) MinutesUntilEnd(t time.Time) int {
	return s.endMinuteOfDay() - (t.Hour()*60 + t.Minute())
}

func (s Schedule) startMinuteOfDay() int {
	return s.StartHour*60 + s.StartMinute
}

func (s Schedule) endMinuteOfDay() int {
	return s.EndHour*60 + s.EndMinute
}
