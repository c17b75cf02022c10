package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Spec compiles d into a 5-field cron expression.
func (d Daily) Spec() (string, error) {
	if d.Hour < 0 || d.Hour > 23 {
		return "", fmt.Errorf("invalid hour %d", d.Hour)
	}
	if d.Minute < 0 || d.Minute > 59 {
		return "", fmt.Errorf("invalid minute %d", d.Minute)
	}
	dow := "*"
	if len(d.Days) > 0 && len(d.Days) < 7 {
		seen := map[time.Weekday]bool{}
		var days []int
		for _, wd := range d.Days {
			if wd < time.Sunday || wd > time.Saturday {
				return "", fmt.Errorf("invalid weekday %d", wd)
			}
			if !seen[wd] {
				seen[wd] = true
				days = append(days, int(wd))
			}
		}
		if len(days) < 7 {
			sort.Ints(days)
			parts := make([]string, len(days))
			for i, v := range days {
				parts[i] = strconv.Itoa(v)
			}
			dow = strings.Join(parts, ",")
		}
	}
	return fmt.Sprintf("%d %d * * %s", d.Minute, d.Hour, dow), nil
}

// ParseClock parses "HH:MM" (24h).
func ParseClock(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// ParseWeekdays parses names like "mon", "Friday" or "sat". An empty list,
// "*" or "daily" means every day and returns nil.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	var out []time.Weekday
	for _, raw := range names {
		n := strings.ToLower(strings.TrimSpace(raw))
		switch n {
		case "", "*", "daily", "every":
			return nil, nil
		}
		wd, ok := weekdayNames[n]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", raw)
		}
		out = append(out, wd)
	}
	return out, nil
}
