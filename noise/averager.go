package noise

import "math"

const (
	// WindowSize covers ~30s at one sample per 200ms.
	WindowSize = 150
	// Baseline pre-fills the window so early averages are not dragged down.
	Baseline = 45.0
	// SmoothingAlpha keeps the display slow; it assumes one update per sample.
	SmoothingAlpha = 0.08
)

// Averager is a fixed-size ring of recent loudness readings.
type Averager struct {
	buf []float64
	pos int
}

func NewAverager(size int, baseline float64) *Averager {
	if size < 1 {
		size = 1
	}
	a := &Averager{buf: make([]float64, size)}
	a.Fill(baseline)
	return a
}

// Record overwrites the oldest slot. NaN and ±Inf are dropped.
func (a *Averager) Record(sample float64) bool {
	if math.IsNaN(sample) || math.IsInf(sample, 0) {
		return false
	}
	a.buf[a.pos] = sample
	a.pos = (a.pos + 1) % len(a.buf)
	return true
}

// Average is the mean of the whole window.
func (a *Averager) Average() float64 {
	var sum float64
	for _, v := range a.buf {
		sum += v
	}
	return sum / float64(len(a.buf))
}

func (a *Averager) Fill(v float64) {
	for i := range a.buf {
		a.buf[i] = v
	}
	a.pos = 0
}

func (a *Averager) Len() int { return len(a.buf) }

// Smoother is an exponential moving average over the rolling average.
// Update it once per recorded sample, never once per loop tick: alpha is
// tuned for the sample interval and per-tick updates make the light twitch.
type Smoother struct {
	alpha   float64
	display float64
}

func NewSmoother(alpha, initial float64) *Smoother {
	return &Smoother{alpha: alpha, display: initial}
}

func (s *Smoother) Update(avg float64) {
	s.display = (1-s.alpha)*s.display + s.alpha*avg
}

func (s *Smoother) Display() float64 { return s.display }

func (s *Smoother) Reset(v float64) { s.display = v }
