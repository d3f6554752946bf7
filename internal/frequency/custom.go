// Package frequency parses the custom-frequency rule attached to chores
// whose recurrence is a set of weekdays rather than a fixed cycle.
package frequency

import (
	"fmt"
	"strings"
	"time"
)

var weekdayFromName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var weekdayNames = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// Rule is a parsed custom-frequency rule: the weekdays a chore is due,
// plus an optional reminder time of day.
type Rule struct {
	Days []time.Weekday
	At   string // "HH:MM", empty if the rule carries no time
}

// Parse parses a rule string like "monday,friday@18:00". The day list is
// required and must contain at least one recognized weekday name; the
// "@HH:MM" suffix is optional.
func Parse(rule string) (Rule, error) {
	if rule == "" {
		return Rule{}, fmt.Errorf("empty rule")
	}

	var r Rule
	daysPart := rule
	if i := strings.IndexByte(rule, '@'); i >= 0 {
		daysPart = rule[:i]
		at := rule[i+1:]
		if _, err := time.Parse("15:04", at); err != nil {
			return Rule{}, fmt.Errorf("invalid time %q: %w", at, err)
		}
		r.At = at
	}

	seen := make(map[time.Weekday]bool)
	for _, name := range strings.Split(daysPart, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		wd, ok := weekdayFromName[name]
		if !ok {
			return Rule{}, fmt.Errorf("unknown weekday: %q", name)
		}
		if !seen[wd] {
			seen[wd] = true
			r.Days = append(r.Days, wd)
		}
	}
	if len(r.Days) == 0 {
		return Rule{}, fmt.Errorf("rule has no weekdays: %q", rule)
	}

	return r, nil
}

// DueOn reports whether the rule includes the given weekday.
func (r Rule) DueOn(day time.Weekday) bool {
	for _, d := range r.Days {
		if d == day {
			return true
		}
	}
	return false
}

// String serializes the rule back to its storage form. Day order is
// preserved from the parsed input.
func (r Rule) String() string {
	names := make([]string, 0, len(r.Days))
	for _, d := range r.Days {
		names = append(names, weekdayNames[d])
	}
	s := strings.Join(names, ",")
	if r.At != "" {
		s += "@" + r.At
	}
	return s
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	if len(r.Days) == 0 {
		return "Never due"
	}
	var names []string
	for _, d := range r.Days {
		names = append(names, d.String()[:3])
	}
	desc := "Repeats on " + strings.Join(names, ", ")
	if r.At != "" {
		desc += " at " + r.At
	}
	return desc
}
