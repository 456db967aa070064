package calibration

import "math"

// Stats accumulates streaming sample statistics with Welford's method so a
// five-day window never needs the raw samples.
type Stats struct {
	Count uint64
	Mean  float64
	M2    float64 // running sum of squared deltas from the mean
	Min   float64
	Max   float64
}

func (s *Stats) Add(x float64) bool {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return false
	}
	s.Count++
	if s.Count == 1 {
		s.Min, s.Max = x, x
	} else {
		s.Min = math.Min(s.Min, x)
		s.Max = math.Max(s.Max, x)
	}
	delta := x - s.Mean
	s.Mean += delta / float64(s.Count)
	s.M2 += delta * (x - s.Mean)
	return true
}

// Variance is the unbiased sample variance; zero below two samples.
func (s Stats) Variance() float64 {
	if s.Count < 2 {
		return 0
	}
	return s.M2 / float64(s.Count-1)
}

func (s Stats) StdDev() float64 {
	return math.Sqrt(s.Variance())
}
