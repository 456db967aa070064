package clock

import (
	"sync"
	"time"
)

// Millis is a free-running millisecond counter. It wraps at 2^32 (~49.7 days),
// so never compare two values directly; use Since.
type Millis uint32

// Since returns the time elapsed from then to now. Unsigned subtraction makes
// the result correct across a single counter rollover.
func Since(now, then Millis) time.Duration {
	return time.Duration(uint32(now-then)) * time.Millisecond
}

// Add returns m advanced by d, wrapping like the counter does.
func (m Millis) Add(d time.Duration) Millis {
	return m + Millis(uint32(d/time.Millisecond))
}

// MinValidEpoch is the earliest epoch accepted as a synchronised wall clock.
// Boards boot at 1970 until NTP lands; anything before 2021 is treated as unset.
const MinValidEpoch = 1609459200

// Reading is one wall-clock sample in the room's local time.
type Reading struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
	Epoch   int64
}

type Wall interface {
	// Now returns the current reading and whether the clock is synchronised.
	Now() (Reading, bool)
}

func ReadingFrom(t time.Time) Reading {
	return Reading{
		Weekday: t.Weekday(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Epoch:   t.Unix(),
	}
}

// System reads the host clock in a fixed location.
type System struct {
	loc *time.Location
}

func NewSystem(tz string) (*System, error) {
	if tz == "" {
		return &System{loc: time.Local}, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	return &System{loc: loc}, nil
}

func (s *System) Now() (Reading, bool) {
	t := time.Now().In(s.loc)
	r := ReadingFrom(t)
	return r, r.Epoch >= MinValidEpoch
}

// Counter supplies the free-running millisecond counter.
type Counter interface {
	Millis() Millis
}

// Monotonic derives a Millis counter from the process monotonic clock.
type Monotonic struct {
	start time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

func (m *Monotonic) Millis() Millis {
	return Millis(uint32(time.Since(m.start).Milliseconds()))
}

// Fake is a manually advanced clock for tests and simulations. It serves both
// the wall and the monotonic side so the two never drift apart.
type Fake struct {
	mu     sync.Mutex
	wall   time.Time
	millis Millis
	valid  bool
}

func NewFake(start time.Time) *Fake {
	return &Fake{wall: start, valid: start.Unix() >= MinValidEpoch}
}

func (f *Fake) Now() (Reading, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return ReadingFrom(f.wall), f.valid
}

func (f *Fake) Millis() Millis {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.millis
}

func (f *Fake) Time() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wall
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.wall = f.wall.Add(d)
	f.millis = f.millis.Add(d)
	f.mu.Unlock()
}

// SetMillis moves only the monotonic counter, for rollover tests.
func (f *Fake) SetMillis(m Millis) {
	f.mu.Lock()
	f.millis = m
	f.mu.Unlock()
}

func (f *Fake) SetValid(ok bool) {
	f.mu.Lock()
	f.valid = ok
	f.mu.Unlock()
}
