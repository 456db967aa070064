// Package display turns zones and schedule states into light commands.
package display

import (
	"fmt"

	"hushlight/noise"
)

type RGB struct {
	R, G, B uint8
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

type Animation int

const (
	BreakPulse Animation = iota
	SleepRainbow
	AssemblyDim
	Hop
	RewardSwirl
)

func (a Animation) String() string {
	switch a {
	case BreakPulse:
		return "break-pulse"
	case SleepRainbow:
		return "sleep-rainbow"
	case AssemblyDim:
		return "assembly-dim"
	case Hop:
		return "hop"
	case RewardSwirl:
		return "reward-swirl"
	}
	return "unknown"
}

// Sink renders one command per tick. Colorimetry and frame timing are the
// sink's business.
type Sink interface {
	Fill(c RGB)
	Animate(a Animation)
}

var (
	ColourGreen = RGB{0, 200, 40}
	ColourAmber = RGB{255, 170, 0}
	ColourDeep  = RGB{255, 90, 0}
	ColourRed   = RGB{230, 0, 0}
)

const (
	// BlendSpan is how far below a zone's upper threshold the colour starts
	// leaning towards the next zone.
	BlendSpan = 2.0
	// MaxBlend caps the lean so the zone stays recognisable until it flips.
	MaxBlend = 0.5
)

func base(z noise.Zone) RGB {
	switch z {
	case noise.Amber:
		return ColourAmber
	case noise.Deep:
		return ColourDeep
	case noise.Red:
		return ColourRed
	}
	return ColourGreen
}

// ZoneColour is the fill for zone z at display value v.
func ZoneColour(z noise.Zone, v float64, t noise.ThresholdSet) RGB {
	var upper float64
	switch z {
	case noise.Green:
		upper = t.GreenMax
	case noise.Amber:
		upper = t.AmberMax
	case noise.Deep:
		upper = t.RedWarnDb
	default:
		return base(z)
	}
	f := (v - (upper - BlendSpan)) / BlendSpan
	f = max(0, min(1, f)) * MaxBlend
	return lerp(base(z), base(z+1), f)
}

func lerp(a, b RGB, f float64) RGB {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*f + 0.5)
	}
	return RGB{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B)}
}

type tee []Sink

func (t tee) Fill(c RGB) {
	for _, s := range t {
		s.Fill(c)
	}
}

func (t tee) Animate(a Animation) {
	for _, s := range t {
		s.Animate(a)
	}
}

// Tee fans every command out to all sinks, skipping nil ones.
func Tee(sinks ...Sink) Sink {
	var t tee
	for _, s := range sinks {
		if s != nil {
			t = append(t, s)
		}
	}
	return t
}
