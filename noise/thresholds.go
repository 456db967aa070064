package noise

import (
	"fmt"
	"math"
	"strings"
)

// MinGap is the smallest allowed distance between consecutive thresholds.
const MinGap = 2.0

// ThresholdSet holds the upper bound of each zone in dB. It is always
// replaced as a whole; callers never patch a single field.
type ThresholdSet struct {
	GreenMax  float64 `json:"green_max"`
	AmberMax  float64 `json:"amber_max"`
	RedWarnDb float64 `json:"red_warn_db"`
}

func (t ThresholdSet) String() string {
	return fmt.Sprintf("%.1f/%.1f/%.1f", t.GreenMax, t.AmberMax, t.RedWarnDb)
}

// Normalize pushes amber and red up until each sits at least MinGap above
// the one below it.
func Normalize(t ThresholdSet) ThresholdSet {
	if t.AmberMax < t.GreenMax+MinGap {
		t.AmberMax = t.GreenMax + MinGap
	}
	if t.RedWarnDb < t.AmberMax+MinGap {
		t.RedWarnDb = t.AmberMax + MinGap
	}
	return t
}

// Guardrails bound calibrated thresholds per audience band. The tables below
// keep GreenHi+MinGap <= AmberHi and AmberHi+MinGap <= RedHi, which is what
// lets Apply clamp and normalize in a single pass without breaking the gaps.
type Guardrails struct {
	GreenLo, GreenHi float64
	AmberLo, AmberHi float64
	RedLo, RedHi     float64
}

// Apply clamps each field into its bounds, normalizing gaps as it goes.
// Non-finite fields are replaced with fallback's value first.
func (g Guardrails) Apply(t, fallback ThresholdSet) ThresholdSet {
	if !finite(t.GreenMax) {
		t.GreenMax = fallback.GreenMax
	}
	if !finite(t.AmberMax) {
		t.AmberMax = fallback.AmberMax
	}
	if !finite(t.RedWarnDb) {
		t.RedWarnDb = fallback.RedWarnDb
	}

	var out ThresholdSet
	out.GreenMax = clamp(t.GreenMax, g.GreenLo, g.GreenHi)
	out.AmberMax = clamp(math.Max(t.AmberMax, out.GreenMax+MinGap), g.AmberLo, g.AmberHi)
	out.RedWarnDb = clamp(math.Max(t.RedWarnDb, out.AmberMax+MinGap), g.RedLo, g.RedHi)
	return out
}

func (g Guardrails) Contains(t ThresholdSet) bool {
	return t.GreenMax >= g.GreenLo && t.GreenMax <= g.GreenHi &&
		t.AmberMax >= g.AmberLo && t.AmberMax <= g.AmberHi &&
		t.RedWarnDb >= g.RedLo && t.RedWarnDb <= g.RedHi
}

// Margins are the hysteresis half-widths around each boundary.
type Margins struct {
	GreenAmber float64
	AmberDeep  float64
	DeepRed    float64
}

var (
	standardMargins = Margins{GreenAmber: 0.7, AmberDeep: 0.7, DeepRed: 0.7}
	lenientMargins  = Margins{GreenAmber: 1.2, AmberDeep: 1.2, DeepRed: 0.7}
)

// Band is an audience profile: default thresholds, guardrails and margins.
type Band struct {
	Name       string
	Label      string
	Defaults   ThresholdSet
	Guardrails Guardrails
	Margins    Margins
}

// Default returns the band's defaults passed through its own guardrails.
func (b Band) Default() ThresholdSet {
	return b.Guardrails.Apply(b.Defaults, b.Defaults)
}

const DefaultBandName = "Y2Y3"

var bands = []Band{
	{
		Name:       "EYFS",
		Label:      "early years",
		Defaults:   ThresholdSet{52, 55, 58},
		Guardrails: Guardrails{46, 57, 49, 61, 52, 65},
		Margins:    lenientMargins,
	},
	{
		Name:       "Y1",
		Label:      "year 1",
		Defaults:   ThresholdSet{50, 53, 56},
		Guardrails: Guardrails{44, 55, 47, 59, 50, 63},
		Margins:    standardMargins,
	},
	{
		Name:       "Y2Y3",
		Label:      "years 2-3",
		Defaults:   ThresholdSet{49, 52, 55},
		Guardrails: Guardrails{43, 54, 46, 58, 49, 62},
		Margins:    standardMargins,
	},
	{
		Name:       "Y4Y6",
		Label:      "years 4-6",
		Defaults:   ThresholdSet{47, 50, 53},
		Guardrails: Guardrails{41, 52, 44, 56, 47, 60},
		Margins:    standardMargins,
	},
	{
		Name:       "SEN",
		Label:      "special needs",
		Defaults:   ThresholdSet{45, 48, 51},
		Guardrails: Guardrails{40, 50, 43, 54, 46, 58},
		Margins:    lenientMargins,
	},
}

var bandAliases = map[string]string{
	"EARLYYEARS":   "EYFS",
	"RECEPTION":    "EYFS",
	"YEAR1":        "Y1",
	"Y23":          "Y2Y3",
	"Y456":         "Y4Y6",
	"Y4Y5Y6":       "Y4Y6",
	"KS2":          "Y4Y6",
	"SPECIALNEEDS": "SEN",
	"SEND":         "SEN",
}

// Bands returns every known band in display order.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// LookupBand resolves user input like "y2-y3" or "Y2/Y3". Unknown input
// returns the default band and false.
func LookupBand(input string) (Band, bool) {
	key := bandKey(input)
	if alias, ok := bandAliases[key]; ok {
		key = alias
	}
	for _, b := range bands {
		if b.Name == key {
			return b, true
		}
	}
	for _, b := range bands {
		if b.Name == DefaultBandName {
			return b, false
		}
	}
	panic("noise: default band missing")
}

func bandKey(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(s) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
