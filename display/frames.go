package display

import (
	"math"
	"time"
)

var (
	pulseColour    = RGB{70, 130, 255}
	assemblyColour = RGB{255, 200, 150}
	hopA           = RGB{160, 60, 255}
	hopB           = RGB{0, 200, 255}
)

const (
	pulsePeriod   = 4 * time.Second
	rainbowPeriod = 20 * time.Second
	swirlPeriod   = time.Second
	hopStep       = 500 * time.Millisecond

	sleepBrightness    = 0.15
	assemblyBrightness = 0.25
	pulseFloor         = 0.35
)

// Frame renders command c at t into its animation, for sinks that draw
// animations themselves. A fill ignores t.
func Frame(c Command, t time.Duration) RGB {
	if !c.Animated {
		return c.Colour
	}
	switch c.Animation {
	case BreakPulse:
		phase := 2 * math.Pi * float64(t%pulsePeriod) / float64(pulsePeriod)
		level := pulseFloor + (1-pulseFloor)*(1-math.Cos(phase))/2
		return scale(pulseColour, level)
	case SleepRainbow:
		return scale(hue(float64(t%rainbowPeriod)/float64(rainbowPeriod)), sleepBrightness)
	case AssemblyDim:
		return scale(assemblyColour, assemblyBrightness)
	case Hop:
		if (t/hopStep)%2 == 0 {
			return hopA
		}
		return hopB
	case RewardSwirl:
		return hue(float64(t%swirlPeriod) / float64(swirlPeriod))
	}
	return RGB{}
}

// Ring renders n LEDs around a ring. Fills light every LED the same; the
// rainbow and swirl animations spread their hue around it.
func Ring(c Command, t time.Duration, n int) []RGB {
	out := make([]RGB, n)
	for i := range out {
		offset := time.Duration(0)
		if c.Animated && (c.Animation == SleepRainbow || c.Animation == RewardSwirl) {
			period := rainbowPeriod
			if c.Animation == RewardSwirl {
				period = swirlPeriod
			}
			offset = period * time.Duration(i) / time.Duration(n)
		}
		out[i] = Frame(c, t+offset)
	}
	return out
}

func scale(c RGB, f float64) RGB {
	return RGB{
		R: uint8(math.Round(float64(c.R) * f)),
		G: uint8(math.Round(float64(c.G) * f)),
		B: uint8(math.Round(float64(c.B) * f)),
	}
}

// hue maps h in [0,1) to a fully saturated colour.
func hue(h float64) RGB {
	h = math.Mod(h, 1) * 6
	x := 1 - math.Abs(math.Mod(h, 2)-1)
	var r, g, b float64
	switch int(h) {
	case 0:
		r, g = 1, x
	case 1:
		r, g = x, 1
	case 2:
		g, b = 1, x
	case 3:
		g, b = x, 1
	case 4:
		r, b = x, 1
	default:
		r, b = 1, x
	}
	return RGB{uint8(math.Round(r * 255)), uint8(math.Round(g * 255)), uint8(math.Round(b * 255))}
}
