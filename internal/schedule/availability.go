package schedule

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot is a requested time window on a given day.
type Slot struct {
	Day   string `json:"day" mapstructure:"day"`
	Start string `json:"start" mapstructure:"start"`
	End   string `json:"end" mapstructure:"end"`
}

// Interval is an availability window inside a day.
type Interval struct {
	Start string `json:"start" mapstructure:"start"`
	End   string `json:"end" mapstructure:"end"`
}

// Schedule maps a lowercase day name to its availability intervals.
type Schedule map[string][]Interval

// ToMinutes converts "HH:MM" into minutes since midnight.
func ToMinutes(hhmm string) (int, error) {
	hours, minutes, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", hhmm)
	}

	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q: %w", hhmm, err)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q: %w", hhmm, err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", hhmm)
	}

	return h*60 + m, nil
}

// Covers reports whether every requested slot fits completely inside at least
// one interval of the same day. A missing day or an unparsable time fails the
// whole check.
func Covers(slots []Slot, availability Schedule) bool {
	for _, slot := range slots {
		if !covered(slot, availability[normalizeDay(slot.Day)]) {
			return false
		}
	}

	return true
}

func covered(slot Slot, intervals []Interval) bool {
	if len(intervals) == 0 {
		return false
	}

	start, err := ToMinutes(slot.Start)
	if err != nil {
		return false
	}
	end, err := ToMinutes(slot.End)
	if err != nil {
		return false
	}

	for _, iv := range intervals {
		ivStart, err := ToMinutes(iv.Start)
		if err != nil {
			continue
		}
		ivEnd, err := ToMinutes(iv.End)
		if err != nil {
			continue
		}
		if start >= ivStart && end <= ivEnd {
			return true
		}
	}

	return false
}

// Normalize returns a copy of the schedule keyed by lowercase trimmed day names.
func Normalize(s Schedule) Schedule {
	out := make(Schedule, len(s))
	for day, intervals := range s {
		key := normalizeDay(day)
		out[key] = append(out[key], intervals...)
	}
	return out
}

func normalizeDay(day string) string {
	return strings.ToLower(strings.TrimSpace(day))
}
