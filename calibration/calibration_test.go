package calibration

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"hushlight/noise"
)

type mapStore struct {
	kv     map[string]string
	writes int
	fail   error
}

func newMapStore() *mapStore { return &mapStore{kv: map[string]string{}} }

func (m *mapStore) Get(key string) (string, bool, error) {
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *mapStore) SetMany(kv map[string]string) error {
	if m.fail != nil {
		return m.fail
	}
	for k, v := range kv {
		m.kv[k] = v
	}
	m.writes++
	return nil
}

const t0 = int64(1_700_000_000)

var fiveDays = int64(LearningDuration / time.Second)

func band(t *testing.T) noise.Band {
	t.Helper()
	b, ok := noise.LookupBand("Y2Y3")
	if !ok {
		t.Fatal("Y2Y3 missing")
	}
	return b
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func nearSet(a, b noise.ThresholdSet) bool {
	return near(a.GreenMax, b.GreenMax) && near(a.AmberMax, b.AmberMax) && near(a.RedWarnDb, b.RedWarnDb)
}

func TestStatsMatchClosedForm(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	samples := make([]float64, 500)
	var s Stats
	for i := range samples {
		samples[i] = 35 + rng.Float64()*25
		s.Add(samples[i])
	}

	var sum float64
	for _, v := range samples {
		sum += v
	}
	mean := sum / float64(len(samples))
	var sq float64
	lo, hi := samples[0], samples[0]
	for _, v := range samples {
		sq += (v - mean) * (v - mean)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	variance := sq / float64(len(samples)-1)

	if math.Abs(s.Mean-mean) > 1e-9 {
		t.Errorf("mean = %v, want %v", s.Mean, mean)
	}
	if math.Abs(s.Variance()-variance) > 1e-7 {
		t.Errorf("variance = %v, want %v", s.Variance(), variance)
	}
	if s.Min != lo || s.Max != hi {
		t.Errorf("min/max = %v/%v, want %v/%v", s.Min, s.Max, lo, hi)
	}
}

func TestStatsIgnoresNonFinite(t *testing.T) {
	var s Stats
	s.Add(50)
	s.Add(math.NaN())
	s.Add(math.Inf(-1))
	if s.Count != 1 || s.Mean != 50 {
		t.Errorf("non-finite sample counted: %+v", s)
	}
	if s.Variance() != 0 {
		t.Errorf("variance of one sample = %v", s.Variance())
	}
}

func feed(s *Stats, n int, vals ...float64) {
	for i := 0; i < n; i++ {
		s.Add(vals[i%len(vals)])
	}
}

func TestDerive(t *testing.T) {
	b := band(t)

	t.Run("insufficient samples", func(t *testing.T) {
		var s Stats
		feed(&s, MinSamples-1, 30, 70)
		if got := Derive(s, b); got != b.Default() {
			t.Errorf("Derive with %d samples = %v, want band default", s.Count, got)
		}
	})

	t.Run("sigma", func(t *testing.T) {
		var s Stats
		feed(&s, 100, 40, 50)
		sd := math.Sqrt(25 * 100.0 / 99)
		want := noise.ThresholdSet{GreenMax: 45 + 0.9*sd, AmberMax: 45 + 1.6*sd, RedWarnDb: 45 + 2.4*sd}
		if got := Derive(s, b); !nearSet(got, want) {
			t.Errorf("Derive = %v, want %v", got, want)
		}
	})

	t.Run("near silent room", func(t *testing.T) {
		var s Stats
		feed(&s, 100, 45, 45.5)
		want := noise.ThresholdSet{GreenMax: 46.25, AmberMax: 48.25, RedWarnDb: 51.25}
		if got := Derive(s, b); !nearSet(got, want) {
			t.Errorf("Derive = %v, want %v", got, want)
		}
	})

	t.Run("loud room clamps", func(t *testing.T) {
		var s Stats
		feed(&s, 100, 65, 75)
		want := noise.ThresholdSet{GreenMax: 54, AmberMax: 58, RedWarnDb: 62}
		if got := Derive(s, b); got != want {
			t.Errorf("Derive = %v, want %v", got, want)
		}
	})
}

func TestEngineLifecycle(t *testing.T) {
	b := band(t)
	st := newMapStore()
	e := NewEngine(b, st)

	if err := e.Configure(true); err != nil {
		t.Fatal(err)
	}
	if !e.NeedsStart() {
		t.Fatal("enabled engine should wait for a start time")
	}
	if e.IsActive(t0, true) {
		t.Fatal("active before start")
	}
	interim, err := e.Start(t0)
	if err != nil {
		t.Fatal(err)
	}
	if interim != b.Default() {
		t.Errorf("interim = %v, want band default", interim)
	}
	if !e.IsActive(t0+60, true) {
		t.Error("not active inside window")
	}
	if e.IsActive(t0+60, false) {
		t.Error("active with invalid clock")
	}

	for i := 0; i < 200; i++ {
		v := 40.0
		if i%2 == 1 {
			v = 50
		}
		if err := e.Sample(v); err != nil {
			t.Fatal(err)
		}
	}

	if _, done, _ := e.FinalizeIfDue(t0+fiveDays-1, true); done {
		t.Fatal("finalized before five days")
	}
	if _, done, _ := e.FinalizeIfDue(t0+fiveDays, false); done {
		t.Fatal("finalized with invalid clock")
	}
	if e.IsActive(t0+fiveDays, true) {
		t.Error("still active at end of window")
	}
	got, done, err := e.FinalizeIfDue(t0+fiveDays, true)
	if err != nil || !done {
		t.Fatalf("FinalizeIfDue = %v, %v", done, err)
	}
	if got != Derive(e.Stats(), b) {
		t.Errorf("finalized %v, derive says %v", got, Derive(e.Stats(), b))
	}
	if e.Thresholds() != got {
		t.Errorf("active thresholds not adopted")
	}
	if _, again, _ := e.FinalizeIfDue(t0+fiveDays+10, true); again {
		t.Error("finalized twice")
	}

	// A second engine on the same store picks up where this one left off.
	r := NewEngine(b, st)
	if err := r.Restore(); err != nil {
		t.Fatal(err)
	}
	if r.Window() != e.Window() {
		t.Errorf("restored window %+v, want %+v", r.Window(), e.Window())
	}
	if !nearSet(r.Thresholds(), got) {
		t.Errorf("restored thresholds %v, want %v", r.Thresholds(), got)
	}
	if r.Stats().Count != 200 {
		t.Errorf("restored count %d", r.Stats().Count)
	}
}

func TestEngineConfigure(t *testing.T) {
	b := band(t)
	e := NewEngine(b, newMapStore())
	e.Configure(true)
	e.Start(t0)
	feed(&e.stats, 100, 40, 50)
	e.FinalizeIfDue(t0+fiveDays, true)
	calibrated := e.Thresholds()

	e.Configure(false)
	if e.Thresholds() != b.Default() {
		t.Errorf("disabled engine uses %v, want band default", e.Thresholds())
	}

	e.Configure(true)
	if e.Stats().Count != 0 || !e.NeedsStart() {
		t.Errorf("re-enabling kept old window: %+v", e.Window())
	}
	if e.Thresholds() == calibrated {
		t.Errorf("re-enabled engine still uses the previous calibration")
	}
}

func TestEngineRestoreErrors(t *testing.T) {
	st := newMapStore()
	st.kv[KeyEnabled] = "true"
	st.kv[KeyCount] = "lots"
	e := NewEngine(band(t), st)
	if err := e.Restore(); err == nil {
		t.Fatal("expected parse error")
	}
	if e.Window().Enabled {
		t.Error("engine kept partial state after a bad restore")
	}

	empty := NewEngine(band(t), newMapStore())
	if err := empty.Restore(); err != nil {
		t.Fatal(err)
	}
	if empty.Window() != (Window{}) {
		t.Errorf("empty store restored %+v", empty.Window())
	}
}

func TestEnginePersistError(t *testing.T) {
	st := newMapStore()
	st.fail = errors.New("disk full")
	e := NewEngine(band(t), st)
	if _, err := e.Start(t0); !errors.Is(err, st.fail) {
		t.Errorf("Start error = %v, want wrapped disk full", err)
	}
}
