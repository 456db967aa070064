// Package reward tracks quiet streaks during a lesson and decides when the
// class has earned a reward or a penalty lockout.
package reward

import (
	"time"

	"hushlight/clock"
)

type Params struct {
	BreakOffset float64 // dB above good that breaks a streak
	SpikeOffset float64 // dB above good that counts as a shout

	Streak     time.Duration
	Show       time.Duration
	Cooldown   time.Duration
	Penalty    time.Duration
	MinLesson  time.Duration
	Visibility time.Duration
}

func DefaultParams() Params {
	return Params{
		BreakOffset: 1.5,
		SpikeOffset: 8.0,
		Streak:      120 * time.Second,
		Show:        3 * time.Second,
		Cooldown:    3 * time.Minute,
		Penalty:     2 * time.Minute,
		MinLesson:   2 * time.Minute,
		Visibility:  130 * time.Second,
	}
}

// State holds every reward timer as a start stamp plus an active flag, so
// elapsed time is always measured with clock.Since and survives rollover.
type State struct {
	LessonStart clock.Millis

	Streaking   bool
	StreakStart clock.Millis

	CoolingDown   bool
	CooldownStart clock.Millis

	Penalized    bool
	PenaltyStart clock.Millis

	// NeedAboveGood blocks a new streak until the average has gone above
	// good at least once since the last reward or spike.
	NeedAboveGood bool

	Showing   bool
	ShowStart clock.Millis

	Rewarded   bool
	LastReward clock.Millis
}

type Input struct {
	Now     clock.Millis
	Average float64 // raw rolling average, not the smoothed display value
	GoodDb  float64
}

type Event int

const (
	None Event = iota
	Granted
	Ended
	Penalty
)

func (e Event) String() string {
	switch e {
	case None:
		return "none"
	case Granted:
		return "granted"
	case Ended:
		return "ended"
	case Penalty:
		return "penalty"
	}
	return "unknown"
}

type Phase int

const (
	Idle Phase = iota
	Streaking
	CoolingDown
	ShowingReward
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Streaking:
		return "streaking"
	case CoolingDown:
		return "cooling_down"
	case ShowingReward:
		return "showing_reward"
	}
	return "unknown"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (s State) Phase() Phase {
	switch {
	case s.Showing:
		return ShowingReward
	case s.CoolingDown || s.Penalized:
		return CoolingDown
	case s.Streaking:
		return Streaking
	}
	return Idle
}

// EnterLesson restarts the lesson clock and drops any streak. Cooldown and
// penalty carry over so leaving and re-entering a lesson cannot clear them,
// but ones that ran out between lessons are dropped here, before a long gap
// can wrap the counter and make them look recent.
func EnterLesson(s State, now clock.Millis, p Params) State {
	s = expire(s, now, p)
	s.LessonStart = now
	s.Streaking = false
	return s
}

// PenaltyActive reports whether a penalty lockout is still running at now.
func PenaltyActive(s State, now clock.Millis, p Params) bool {
	return s.Penalized && clock.Since(now, s.PenaltyStart) < p.Penalty
}

func expire(s State, now clock.Millis, p Params) State {
	if s.CoolingDown && clock.Since(now, s.CooldownStart) >= p.Cooldown {
		s.CoolingDown = false
	}
	if s.Penalized && !PenaltyActive(s, now, p) {
		s.Penalized = false
	}
	if s.Rewarded && !Visible(s, now, p) {
		s.Rewarded = false
	}
	return s
}

// Visible reports whether a reward happened recently enough that the next
// periodic telemetry record should still carry it.
func Visible(s State, now clock.Millis, p Params) bool {
	return s.Rewarded && clock.Since(now, s.LastReward) < p.Visibility
}

// StreakElapsed is how long the current streak has run, zero if none.
func StreakElapsed(s State, now clock.Millis) time.Duration {
	if !s.Streaking {
		return 0
	}
	return clock.Since(now, s.StreakStart)
}

// Step advances the machine by one control-loop tick.
func Step(s State, in Input, p Params) (State, Event) {
	now := in.Now

	if s.Showing {
		if clock.Since(now, s.ShowStart) < p.Show {
			return s, None
		}
		s.Showing = false
		s.Streaking = false
		return s, Ended
	}

	s = expire(s, now, p)

	// No streak can run in the first minutes of a lesson, but a shout still
	// locks out rewards.
	settling := clock.Since(now, s.LessonStart) < p.MinLesson
	if settling {
		s.Streaking = false
	}

	good := in.GoodDb
	avg := in.Average

	if avg >= good+p.SpikeOffset {
		s.Penalized = true
		s.PenaltyStart = now
		s.Streaking = false
		s.NeedAboveGood = true
		return s, Penalty
	}
	if avg > good {
		s.NeedAboveGood = false
	}

	if settling {
		return s, None
	}
	if s.CoolingDown || s.Penalized {
		s.Streaking = false
		return s, None
	}
	if s.NeedAboveGood {
		s.Streaking = false
		return s, None
	}

	switch {
	case avg <= good:
		if !s.Streaking {
			s.Streaking = true
			s.StreakStart = now
		}
		if clock.Since(now, s.StreakStart) >= p.Streak {
			s.Streaking = false
			s.CoolingDown = true
			s.CooldownStart = now
			s.NeedAboveGood = true
			s.Showing = true
			s.ShowStart = now
			s.Rewarded = true
			s.LastReward = now
			return s, Granted
		}
	case avg >= good+p.BreakOffset:
		s.Streaking = false
	}
	// Between good and break the streak neither grows a new start nor
	// resets, so hovering on the boundary cannot farm rewards.
	return s, None
}
