package calibration

import (
	"fmt"
	"strconv"
	"time"

	"hushlight/noise"
)

const (
	LearningDuration = 5 * 24 * time.Hour
	SampleInterval   = 60 * time.Second
	MinSamples       = 60

	// Below this spread the room is near-silent and sigma multiples would
	// produce thresholds a cough could cross.
	MinStdDev = 1.0
)

var (
	sigmaFactors = noise.ThresholdSet{GreenMax: 0.90, AmberMax: 1.60, RedWarnDb: 2.40}
	quietOffsets = noise.ThresholdSet{GreenMax: 1.0, AmberMax: 3.0, RedWarnDb: 6.0}
)

// Store keys. Values are plain decimal strings.
const (
	KeyEnabled  = "cal.enabled"
	KeyComplete = "cal.complete"
	KeyStart    = "cal.start"
	KeyCount    = "cal.count"
	KeyMean     = "cal.mean"
	KeyM2       = "cal.m2"
	KeyMin      = "cal.min"
	KeyMax      = "cal.max"
	KeyGreen    = "thr.green"
	KeyAmber    = "thr.amber"
	KeyRed      = "thr.red"
)

// Store is the flat key/value persistence the engine writes through.
type Store interface {
	Get(key string) (string, bool, error)
	SetMany(kv map[string]string) error
}

// Window is the learning window: disabled, learning (enabled, not complete)
// or complete. Start is zero until the clock is valid enough to stamp it.
type Window struct {
	Enabled  bool
	Complete bool
	Start    int64
}

type Engine struct {
	band       noise.Band
	store      Store
	window     Window
	stats      Stats
	calibrated noise.ThresholdSet
}

func NewEngine(band noise.Band, store Store) *Engine {
	return &Engine{band: band, store: store}
}

func (e *Engine) Window() Window { return e.window }
func (e *Engine) Stats() Stats   { return e.stats }

// Thresholds is the set the classifier should use right now.
func (e *Engine) Thresholds() noise.ThresholdSet {
	if e.window.Enabled && e.window.Complete {
		return e.calibrated
	}
	return e.band.Default()
}

func (e *Engine) SetBand(b noise.Band) {
	e.band = b
	if e.window.Complete {
		e.calibrated = b.Guardrails.Apply(e.calibrated, b.Defaults)
	}
}

// Configure applies the calibration toggle. Turning it on from off opens a
// fresh window and drops old stats; turning it off keeps the stats on disk
// but reverts to band defaults.
func (e *Engine) Configure(enabled bool) error {
	switch {
	case enabled && !e.window.Enabled:
		e.window = Window{Enabled: true}
		e.stats = Stats{}
		e.calibrated = noise.ThresholdSet{}
	case !enabled && e.window.Enabled:
		e.window.Enabled = false
	default:
		return nil
	}
	return e.Persist()
}

// NeedsStart reports an enabled window still waiting for a valid clock.
func (e *Engine) NeedsStart() bool {
	return e.window.Enabled && !e.window.Complete && e.window.Start == 0
}

// Start opens a learning window at now and returns the interim thresholds.
func (e *Engine) Start(now int64) (noise.ThresholdSet, error) {
	e.window = Window{Enabled: true, Start: now}
	e.stats = Stats{}
	e.calibrated = noise.ThresholdSet{}
	return e.band.Default(), e.Persist()
}

func (e *Engine) elapsed(now int64) time.Duration {
	return time.Duration(now-e.window.Start) * time.Second
}

// IsActive reports whether samples should be collected at now.
func (e *Engine) IsActive(now int64, clockValid bool) bool {
	if !e.window.Enabled || e.window.Complete || !clockValid || e.window.Start == 0 {
		return false
	}
	el := e.elapsed(now)
	return el >= 0 && el < LearningDuration
}

// Sample folds one raw rolling average into the stats and persists them.
func (e *Engine) Sample(avg float64) error {
	if !e.stats.Add(avg) {
		return nil
	}
	return e.Persist()
}

// Progress is the fraction of the window elapsed, 0 when not learning.
func (e *Engine) Progress(now int64) float64 {
	if !e.window.Enabled || e.window.Start == 0 {
		return 0
	}
	if e.window.Complete {
		return 1
	}
	p := float64(e.elapsed(now)) / float64(LearningDuration)
	return max(0, min(1, p))
}

// FinalizeIfDue completes the window once the learning duration is up and
// returns the adopted thresholds.
func (e *Engine) FinalizeIfDue(now int64, clockValid bool) (noise.ThresholdSet, bool, error) {
	if !e.window.Enabled || e.window.Complete || !clockValid || e.window.Start == 0 {
		return noise.ThresholdSet{}, false, nil
	}
	if e.elapsed(now) < LearningDuration {
		return noise.ThresholdSet{}, false, nil
	}
	e.calibrated = Derive(e.stats, e.band)
	e.window.Complete = true
	return e.calibrated, true, e.Persist()
}

// Derive turns window statistics into a guardrailed threshold set.
func Derive(s Stats, b noise.Band) noise.ThresholdSet {
	if s.Count < MinSamples {
		return b.Default()
	}
	sd := s.StdDev()
	var t noise.ThresholdSet
	if sd < MinStdDev {
		t = noise.ThresholdSet{
			GreenMax:  s.Mean + quietOffsets.GreenMax,
			AmberMax:  s.Mean + quietOffsets.AmberMax,
			RedWarnDb: s.Mean + quietOffsets.RedWarnDb,
		}
	} else {
		t = noise.ThresholdSet{
			GreenMax:  s.Mean + sigmaFactors.GreenMax*sd,
			AmberMax:  s.Mean + sigmaFactors.AmberMax*sd,
			RedWarnDb: s.Mean + sigmaFactors.RedWarnDb*sd,
		}
	}
	return b.Guardrails.Apply(noise.Normalize(t), b.Defaults)
}

func (e *Engine) Persist() error {
	if e.store == nil {
		return nil
	}
	kv := map[string]string{
		KeyEnabled:  strconv.FormatBool(e.window.Enabled),
		KeyComplete: strconv.FormatBool(e.window.Complete),
		KeyStart:    strconv.FormatInt(e.window.Start, 10),
		KeyCount:    strconv.FormatUint(e.stats.Count, 10),
		KeyMean:     formatFloat(e.stats.Mean),
		KeyM2:       formatFloat(e.stats.M2),
		KeyMin:      formatFloat(e.stats.Min),
		KeyMax:      formatFloat(e.stats.Max),
		KeyGreen:    formatFloat(e.calibrated.GreenMax),
		KeyAmber:    formatFloat(e.calibrated.AmberMax),
		KeyRed:      formatFloat(e.calibrated.RedWarnDb),
	}
	if err := e.store.SetMany(kv); err != nil {
		return fmt.Errorf("persist calibration: %w", err)
	}
	return nil
}

// Restore loads a previously persisted window. A store with no calibration
// keys leaves the engine disabled. On a parse error the engine is reset.
func (e *Engine) Restore() error {
	if e.store == nil {
		return nil
	}
	r := reader{store: e.store}
	w := Window{
		Enabled:  r.bool(KeyEnabled),
		Complete: r.bool(KeyComplete),
		Start:    r.int(KeyStart),
	}
	s := Stats{
		Count: r.uint(KeyCount),
		Mean:  r.float(KeyMean),
		M2:    r.float(KeyM2),
		Min:   r.float(KeyMin),
		Max:   r.float(KeyMax),
	}
	cal := noise.ThresholdSet{
		GreenMax:  r.float(KeyGreen),
		AmberMax:  r.float(KeyAmber),
		RedWarnDb: r.float(KeyRed),
	}
	if r.err != nil {
		e.window, e.stats, e.calibrated = Window{}, Stats{}, noise.ThresholdSet{}
		return fmt.Errorf("restore calibration: %w", r.err)
	}
	if w.Complete && cal.GreenMax == 0 {
		cal = Derive(s, e.band)
	}
	e.window, e.stats = w, s
	if w.Complete {
		e.calibrated = e.band.Guardrails.Apply(cal, e.band.Defaults)
	}
	return nil
}

// reader collects the first error so Restore reads like a field list.
type reader struct {
	store Store
	err   error
}

func (r *reader) get(key string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok, err := r.store.Get(key)
	if err != nil {
		r.err = err
		return "", false
	}
	return v, ok
}

func (r *reader) bool(key string) bool {
	v, ok := r.get(key)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return b
}

func (r *reader) int(key string) int64 {
	v, ok := r.get(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return n
}

func (r *reader) uint(key string) uint64 {
	v, ok := r.get(key)
	if !ok {
		return 0
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return n
}

func (r *reader) float(key string) float64 {
	v, ok := r.get(key)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
	}
	return f
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
