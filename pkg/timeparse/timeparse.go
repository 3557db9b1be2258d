// Package timeparse turns human reminder phrases into concrete times.
// It accepts relative offsets ("in 2 hours"), absolute stamps
// ("2026-03-15 10:00"), clock times ("at 17:00", "tomorrow",
// "tomorrow at 9am"), and cron expressions ("0 9 * * 1").
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

var (
	relativeRe = regexp.MustCompile(`(?i)^in\s+(\d+)\s*(m|min|mins|minute|minutes|h|hr|hrs|hour|hours|d|day|days)$`)
	clockRe    = regexp.MustCompile(`(?i)^(tomorrow\s+)?(?:at\s+)?(\d{1,2})(?::(\d{2}))?\s*(am|pm)?$`)
)

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse resolves phrase against now, returning the moment it names.
// The result is always strictly after now.
func Parse(phrase string, now time.Time) (time.Time, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return time.Time{}, fmt.Errorf("empty time phrase")
	}

	if m := relativeRe.FindStringSubmatch(phrase); m != nil {
		return parseRelative(m, now)
	}

	// Bare "tomorrow" means tomorrow morning.
	if strings.EqualFold(phrase, "tomorrow") {
		t := time.Date(now.Year(), now.Month(), now.Day(), 9, 0, 0, 0, now.Location())
		return t.AddDate(0, 0, 1), nil
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, phrase, now.Location()); err == nil {
			if !t.After(now) {
				return time.Time{}, fmt.Errorf("time %q is in the past", phrase)
			}
			return t, nil
		}
	}

	if m := clockRe.FindStringSubmatch(phrase); m != nil {
		return parseClock(m, now)
	}

	if gronx.New().IsValid(phrase) {
		next, err := gronx.NextTickAfter(phrase, now, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("resolving cron %q: %w", phrase, err)
		}
		return next, nil
	}

	return time.Time{}, fmt.Errorf("cannot understand time %q", phrase)
}

func parseRelative(m []string, now time.Time) (time.Time, error) {
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("bad duration %q", m[1])
	}

	var unit time.Duration
	switch strings.ToLower(m[2])[0] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	}
	return now.Add(time.Duration(n) * unit), nil
}

func parseClock(m []string, now time.Time) (time.Time, error) {
	hour, err := strconv.Atoi(m[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad hour %q", m[2])
	}

	minute := 0
	if m[3] != "" {
		if minute, err = strconv.Atoi(m[3]); err != nil {
			return time.Time{}, fmt.Errorf("bad minute %q", m[3])
		}
	}

	switch strings.ToLower(m[4]) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}

	if hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("clock time %d:%02d out of range", hour, minute)
	}

	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if m[1] != "" {
		t = t.AddDate(0, 0, 1)
	} else if !t.After(now) {
		// A bare clock time that already passed means the same time tomorrow.
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}
