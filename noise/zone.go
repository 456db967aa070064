package noise

// Zone is an ordered noise severity level.
type Zone int

const (
	Green Zone = iota
	Amber
	Deep
	Red
)

func (z Zone) String() string {
	switch z {
	case Green:
		return "green"
	case Amber:
		return "amber"
	case Deep:
		return "deep"
	case Red:
		return "red"
	}
	return "unknown"
}

func (z Zone) MarshalText() ([]byte, error) { return []byte(z.String()), nil }

// Classify maps a value straight onto a zone with no memory.
func Classify(v float64, t ThresholdSet) Zone {
	switch {
	case v <= t.GreenMax:
		return Green
	case v <= t.AmberMax:
		return Amber
	case v <= t.RedWarnDb:
		return Deep
	default:
		return Red
	}
}

// ApplyHysteresis returns the zone after one tick. Entering a louder zone
// needs the value to clear the boundary by its margin; leaving it needs the
// value to fall the same margin below. Call it once per tick with the
// smoothed display value and store the result as the new current zone.
func ApplyHysteresis(cur Zone, v float64, t ThresholdSet, m Margins) Zone {
	switch cur {
	case Green:
		if v > t.GreenMax+m.GreenAmber {
			return Amber
		}
		return Green
	case Amber:
		if v < t.GreenMax-m.GreenAmber {
			return Green
		}
		if v > t.AmberMax+m.AmberDeep {
			return Deep
		}
		return Amber
	case Deep:
		if v < t.AmberMax-m.AmberDeep {
			return Amber
		}
		if v > t.RedWarnDb+m.DeepRed {
			return Red
		}
		return Deep
	case Red:
		if v < t.RedWarnDb-m.DeepRed {
			return Deep
		}
		return Red
	}
	// Out-of-range state, e.g. a zero value restored from somewhere odd.
	return Classify(v, t)
}
