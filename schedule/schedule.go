// Package schedule maps wall-clock time onto the school timetable.
package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hushlight/clock"
)

type Window int

const (
	Off Window = iota
	Lesson
	Assembly
	Break
	Lunch
)

func (w Window) String() string {
	switch w {
	case Off:
		return "off"
	case Lesson:
		return "lesson"
	case Assembly:
		return "assembly"
	case Break:
		return "break"
	case Lunch:
		return "lunch"
	}
	return "unknown"
}

func (w Window) MarshalText() ([]byte, error) { return []byte(w.String()), nil }

// Boundaries are the raw HH:MM strings from configuration. The assembly
// pair is optional.
type Boundaries struct {
	DayStart   string
	BreakStart string
	BreakEnd   string
	LunchStart string
	LunchEnd   string
	DayEnd     string

	AssemblyStart string
	AssemblyEnd   string
}

// DefaultBoundaries is the timetable used when configuration is missing or
// unusable.
var DefaultBoundaries = Boundaries{
	DayStart:   "08:45",
	BreakStart: "10:30",
	BreakEnd:   "10:45",
	LunchStart: "12:00",
	LunchEnd:   "13:00",
	DayEnd:     "15:15",
}

// Timetable holds boundaries as minutes past midnight.
type Timetable struct {
	DayStart, BreakStart, BreakEnd, LunchStart, LunchEnd, DayEnd int

	HasAssembly                bool
	AssemblyStart, AssemblyEnd int
}

var ErrOutOfOrder = errors.New("timetable boundaries out of order")

func DefaultTimetable() Timetable {
	t, err := parseBase(DefaultBoundaries)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimetable never fails: a malformed or unordered base timetable is
// replaced by the default, and a bad assembly slot is dropped. Each fallback
// is reported in warnings.
func ParseTimetable(b Boundaries) (Timetable, []error) {
	var warnings []error
	t, err := parseBase(b)
	if err != nil {
		warnings = append(warnings, fmt.Errorf("using default timetable: %w", err))
		t = DefaultTimetable()
	}

	if b.AssemblyStart == "" && b.AssemblyEnd == "" {
		return t, warnings
	}
	start, errS := ParseClock(b.AssemblyStart)
	end, errE := ParseClock(b.AssemblyEnd)
	switch {
	case errS != nil:
		warnings = append(warnings, fmt.Errorf("ignoring assembly slot: %w", errS))
	case errE != nil:
		warnings = append(warnings, fmt.Errorf("ignoring assembly slot: %w", errE))
	case start >= end || start < t.DayStart || end > t.DayEnd:
		warnings = append(warnings, fmt.Errorf("ignoring assembly slot %s-%s: outside the school day", b.AssemblyStart, b.AssemblyEnd))
	default:
		t.HasAssembly = true
		t.AssemblyStart, t.AssemblyEnd = start, end
	}
	return t, warnings
}

func parseBase(b Boundaries) (Timetable, error) {
	var t Timetable
	fields := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"day start", b.DayStart, &t.DayStart},
		{"break start", b.BreakStart, &t.BreakStart},
		{"break end", b.BreakEnd, &t.BreakEnd},
		{"lunch start", b.LunchStart, &t.LunchStart},
		{"lunch end", b.LunchEnd, &t.LunchEnd},
		{"day end", b.DayEnd, &t.DayEnd},
	}
	prev := -1
	for _, f := range fields {
		m, err := ParseClock(f.raw)
		if err != nil {
			return Timetable{}, fmt.Errorf("%s: %w", f.name, err)
		}
		if m <= prev {
			return Timetable{}, fmt.Errorf("%s %s: %w", f.name, f.raw, ErrOutOfOrder)
		}
		*f.dst = m
		prev = m
	}
	return t, nil
}

// ParseClock parses H:MM or HH:MM into minutes past midnight.
func ParseClock(s string) (int, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hs) < 1 || len(hs) > 2 || len(ms) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

type Resolver struct {
	Timetable Timetable
	AlwaysOn  bool
}

func (r Resolver) Resolve(weekday time.Weekday, hour, minute int) Window {
	if r.AlwaysOn {
		return Lesson
	}
	if weekday == time.Saturday || weekday == time.Sunday {
		return Off
	}
	t := r.Timetable
	m := hour*60 + minute
	switch {
	case m < t.DayStart || m >= t.DayEnd:
		return Off
	case m >= t.BreakStart && m < t.BreakEnd:
		return Break
	case m >= t.LunchStart && m < t.LunchEnd:
		return Lunch
	case t.HasAssembly && m >= t.AssemblyStart && m < t.AssemblyEnd:
		return Assembly
	}
	return Lesson
}

// ResolveReading treats an unsynchronised clock as Off unless always-on.
func (r Resolver) ResolveReading(rd clock.Reading, valid bool) Window {
	if !valid && !r.AlwaysOn {
		return Off
	}
	return r.Resolve(rd.Weekday, rd.Hour, rd.Minute)
}

type Transition struct {
	From, To Window
}

// EnteredLesson is true when a lesson begins from any other window.
func (t Transition) EnteredLesson() bool {
	return t.To == Lesson && t.From != Lesson
}

// Tracker remembers the previous window. Its zero value starts at Off, so
// booting straight into a lesson counts as entering it.
type Tracker struct {
	cur Window
}

func (t *Tracker) Current() Window { return t.cur }

func (t *Tracker) Observe(w Window) (Transition, bool) {
	if w == t.cur {
		return Transition{From: w, To: w}, false
	}
	tr := Transition{From: t.cur, To: w}
	t.cur = w
	return tr, true
}
