package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM". A bare hour ("18") is accepted and "24:00"
// is normalized to midnight.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hourPart, minutePart, found := strings.Cut(s, ":")
	if !found {
		minutePart = "0"
	}
	h, err := strconv.Atoi(hourPart)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	m, err := strconv.Atoi(minutePart)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if h == 24 && m == 0 {
		h = 0
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return TimeOfDay{Hour: h, Minute: m}, nil
}

// MustTimeOfDay is ParseTimeOfDay for constants.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int { return t.Hour*60 + t.Minute }

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// On returns the instant t occurs on day's date in day's location.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, day.Location())
}

// Next returns the first occurrence of t strictly after now.
func (t TimeOfDay) Next(now time.Time) time.Time {
	at := t.On(now)
	if !at.After(now) {
		at = t.On(now.AddDate(0, 0, 1))
	}
	return at
}

// MinutesOf returns the minutes since midnight of now in its location.
func MinutesOf(now time.Time) int {
	return now.Hour()*60 + now.Minute()
}

// Window is a daily active-hours range, start inclusive and end exclusive.
// A start after the end wraps past midnight. Equal bounds cover the whole day.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Contains reports whether now falls inside the window.
func (w Window) Contains(now time.Time) bool {
	s, e, m := w.Start.Minutes(), w.End.Minutes(), MinutesOf(now)
	switch {
	case s == e:
		return true
	case s < e:
		return m >= s && m < e
	default:
		return m >= s || m < e
	}
}

// NextBoundary returns the next instant strictly after now at which the
// window opens or closes. Whole-day windows have no boundary and return the
// zero time.
func (w Window) NextBoundary(now time.Time) time.Time {
	if w.Start == w.End {
		return time.Time{}
	}
	a, b := w.Start.Next(now), w.End.Next(now)
	if a.Before(b) {
		return a
	}
	return b
}

// NextMidnight returns the start of the day after now.
func NextMidnight(now time.Time) time.Time {
	y, m, d := now.AddDate(0, 0, 1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

// SameDay reports whether a and b share a calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayKey formats the calendar date of t.
func DayKey(t time.Time) string { return t.Format(time.DateOnly) }
