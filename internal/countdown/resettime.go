package countdown

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Remaining is the decomposed duration until the next reset instant.
// Seconds are tracked so the imminence check stays second-accurate even
// though the display rounds to whole minutes.
type Remaining struct {
	Hours   int
	Minutes int
	Seconds int

	// Imminent reports that the reset is at most 5 seconds away. It is the
	// hand-off trigger into the reset phase.
	Imminent bool

	// At is the reset instant Remaining counts down to.
	At time.Time
}

// ParseTimeOfDay parses "HH:MM:SS" into its components.
func ParseTimeOfDay(s string) (hour, minute, sec int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid time %q, expected HH:MM:SS", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	sec, err = strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec > 59 {
		return 0, 0, 0, fmt.Errorf("invalid second in %q", s)
	}
	return hour, minute, sec, nil
}

// ParseUTCOffset parses a fixed offset label like "UTC-4" or "UTC+8" into
// signed hours. There is no daylight-saving awareness on purpose: game
// servers reset on fixed UTC offsets.
func ParseUTCOffset(s string) (int, error) {
	t := strings.TrimSpace(strings.ToUpper(s))
	if t == "UTC" {
		return 0, nil
	}
	rest, ok := strings.CutPrefix(t, "UTC")
	if !ok {
		return 0, fmt.Errorf("invalid offset %q, expected UTC±N", s)
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < -14 || n > 14 {
		return 0, fmt.Errorf("invalid offset %q, expected UTC±N", s)
	}
	return n, nil
}

// NextReset returns the next future instant at which the configured
// time-of-day (local to the given UTC offset) occurs. The result is always
// strictly after now.
func NextReset(now time.Time, hour, minute, sec, offsetHours int) time.Time {
	u := now.UTC()
	reset := time.Date(u.Year(), u.Month(), u.Day(), hour-offsetHours, minute, sec, 0, time.UTC)
	if !reset.After(u) {
		reset = reset.AddDate(0, 0, 1)
	}
	return reset
}

// TimeRemaining computes the decomposed duration from now until the next
// reset, plus the imminence flag.
func TimeRemaining(now time.Time, hour, minute, sec, offsetHours int) Remaining {
	at := NextReset(now, hour, minute, sec, offsetHours)
	d := at.Sub(now.UTC())

	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	s := int((d % time.Minute) / time.Second)

	return Remaining{
		Hours:    h,
		Minutes:  m,
		Seconds:  s,
		Imminent: h == 0 && m == 0 && s <= 5,
		At:       at,
	}
}

// FormatDuration renders hours/minutes the way the display shows them.
// Seconds are always dropped: display resolution is whole minutes.
func FormatDuration(hours, minutes int) string {
	hourText := fmt.Sprintf("%dhrs", hours)
	if hours == 1 {
		hourText = "1hr"
	}
	minuteText := fmt.Sprintf("%dmins", minutes)
	if minutes == 1 {
		minuteText = "1min"
	}
	if hours > 0 {
		return hourText + " " + minuteText
	}
	return minuteText
}
