package ledger

import (
	"fmt"
	"time"

	"github.com/lonchera-pe/cantina-backend/pkg/enums"
)

// Window is a half-open [Start, End) interval used for spending-limit sums.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// DayWindow covers the local calendar day containing now.
func DayWindow(now time.Time, loc *time.Location) Window {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekWindow covers the local calendar week containing now. Weeks start on
// Sunday, matching how schools bill weekly cycles.
func WeekWindow(now time.Time, loc *time.Location) Window {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	start = start.AddDate(0, 0, -int(start.Weekday()))
	return Window{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthWindow covers the local calendar month containing now.
func MonthWindow(now time.Time, loc *time.Location) Window {
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}
}

// WindowFor maps a limit type onto the matching calendar window.
func WindowFor(limitType enums.LimitType, now time.Time, loc *time.Location) (Window, error) {
	switch limitType {
	case enums.LimitTypeDaily:
		return DayWindow(now, loc), nil
	case enums.LimitTypeWeekly:
		return WeekWindow(now, loc), nil
	case enums.LimitTypeMonthly:
		return MonthWindow(now, loc), nil
	}
	return Window{}, fmt.Errorf("no window for limit type %q", limitType)
}

// ParseClock parses an "HH:MM" string into hour and minute components.
func ParseClock(value string) (int, int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(value, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid clock value %q: %w", value, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock value %q out of range", value)
	}
	return hour, minute, nil
}

// ClockOn anchors an "HH:MM" string on the calendar day carried by date,
// in the given zone. Order dates are civil dates, so the zone date was
// parsed in must not shift which day the clock lands on.
func ClockOn(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}
