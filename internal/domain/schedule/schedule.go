// Package schedule holds the calendar rules used by the refresh scheduler:
// active-day predicates, time-of-day parsing and the active-hours window.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTimeOfDay is returned for values that are not HH:MM.
var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// ErrUnknownRule is returned for an unrecognized active-day rule name.
var ErrUnknownRule = errors.New("unknown active day rule")

// Active-day rule names accepted by ParseRule.
const (
	RuleWeekend     = "weekend"
	RuleEvenOrdinal = "even_ordinal"
	RuleWeekdays    = "weekdays"
	RuleAlways      = "always"
	RuleNever       = "never"
)

// DayPredicate decides whether a calendar day warrants frequent refreshing.
// Only the date part of the argument is significant.
type DayPredicate interface {
	IsActiveDay(day time.Time) bool
}

// PredicateFunc adapts a function to DayPredicate.
type PredicateFunc func(day time.Time) bool

// IsActiveDay implements DayPredicate.
func (f PredicateFunc) IsActiveDay(day time.Time) bool { return f(day) }

// Weekend flags Saturdays and Sundays.
func Weekend() DayPredicate {
	return Weekdays(time.Saturday, time.Sunday)
}

// Weekdays flags the given days of the week.
func Weekdays(days ...time.Weekday) DayPredicate {
	set := make(map[time.Weekday]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	return PredicateFunc(func(day time.Time) bool {
		_, ok := set[day.Weekday()]
		return ok
	})
}

// EvenOrdinal flags days whose proleptic Gregorian ordinal (0001-01-01 is
// day 1) is even.
func EvenOrdinal() DayPredicate {
	return PredicateFunc(func(day time.Time) bool {
		return Ordinal(day)%2 == 0
	})
}

// Always flags every day.
func Always() DayPredicate {
	return PredicateFunc(func(time.Time) bool { return true })
}

// Never flags no day.
func Never() DayPredicate {
	return PredicateFunc(func(time.Time) bool { return false })
}

const (
	unixEpochOrdinal = 719163 // ordinal of 1970-01-01
	secondsPerDay    = 86400
)

// Ordinal returns the day number of day's calendar date, counting
// 0001-01-01 as 1.
func Ordinal(day time.Time) int64 {
	y, m, d := day.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return midnight.Unix()/secondsPerDay + unixEpochOrdinal
}

// ParseRule resolves a rule name. weekdays is only used by RuleWeekdays and
// accepts English day names or three-letter abbreviations.
func ParseRule(rule string, weekdays []string) (DayPredicate, error) {
	switch strings.ToLower(strings.TrimSpace(rule)) {
	case RuleWeekend, "":
		return Weekend(), nil
	case RuleEvenOrdinal:
		return EvenOrdinal(), nil
	case RuleAlways:
		return Always(), nil
	case RuleNever:
		return Never(), nil
	case RuleWeekdays:
		days, err := ParseWeekdays(weekdays)
		if err != nil {
			return nil, err
		}
		if len(days) == 0 {
			return nil, fmt.Errorf("%w: weekdays rule needs at least one day", ErrUnknownRule)
		}
		return Weekdays(days...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRule, rule)
	}
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

// ParseWeekdays converts day names to time.Weekday values.
func ParseWeekdays(names []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "" {
			continue
		}
		d, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrUnknownRule, n)
		}
		out = append(out, d)
	}
	return out, nil
}
