package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"hushlight/calibration"
	"hushlight/clock"
	"hushlight/config"
	"hushlight/display"
	"hushlight/noise"
	"hushlight/reward"
	"hushlight/schedule"
	"hushlight/store"
	"hushlight/telemetry"
)

// Monday, inside the first morning lesson of the default timetable.
var monday0900 = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

type level struct {
	mu    sync.Mutex
	db    float64
	err   error
	reads int
}

func (l *level) Read(context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reads++
	return l.db, l.err
}

func (l *level) set(db float64, err error) {
	l.mu.Lock()
	l.db, l.err = db, err
	l.mu.Unlock()
}

type records struct {
	mu  sync.Mutex
	all []telemetry.Record
}

func (r *records) Send(rec telemetry.Record) bool {
	r.mu.Lock()
	r.all = append(r.all, rec)
	r.mu.Unlock()
	return true
}

func (r *records) of(ev telemetry.Event) []telemetry.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []telemetry.Record
	for _, rec := range r.all {
		if rec.Event == ev {
			out = append(out, rec)
		}
	}
	return out
}

type chime struct{ rewards, penalties, modes int }

func (c *chime) Reward()  { c.rewards++ }
func (c *chime) Penalty() { c.penalties++ }
func (c *chime) Mode()    { c.modes++ }

type rig struct {
	t     *testing.T
	clk   *clock.Fake
	src   *level
	rec   *display.Recorder
	pub   *records
	chime *chime
	kv    *store.Memory
	sess  *Session
}

func quietConfig() config.Config {
	cfg := config.Defaults()
	cfg.CalibrationEnabled = false
	return cfg
}

func newRig(t *testing.T, start time.Time, cfg config.Config, kv *store.Memory) *rig {
	t.Helper()
	if kv == nil {
		kv = store.NewMemory()
	}
	r := &rig{
		t:     t,
		clk:   clock.NewFake(start),
		src:   &level{db: 40},
		rec:   &display.Recorder{},
		pub:   &records{},
		chime: &chime{},
		kv:    kv,
	}
	sess, err := New(Options{
		Source:    r.src,
		Wall:      r.clk,
		Counter:   r.clk,
		Store:     kv,
		Display:   r.rec,
		Telemetry: r.pub,
		Chime:     r.chime,
		DeviceID:  "test-device",
		Config:    cfg,
	})
	if err != nil {
		t.Fatal(err)
	}
	r.sess = sess
	return r
}

// run advances the fake clock in loop-sized steps, ticking after each one.
func (r *rig) run(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += TickInterval {
		r.clk.Advance(TickInterval)
		r.sess.Tick(context.Background(), r.clk.Millis())
	}
}

func (r *rig) output() string {
	r.t.Helper()
	c, ok := r.rec.Last()
	if !ok {
		r.t.Fatal("no display command yet")
	}
	return c.String()
}

func TestNewRequiresSourceAndClocks(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without a source")
	}
}

func TestQuietLessonEarnsExactlyOneReward(t *testing.T) {
	r := newRig(t, monday0900, quietConfig(), nil)

	// Lesson entered on the first tick at 50ms. The minimum lesson time
	// holds the streak back until 120.05s, so the grant lands at 240.05s.
	r.run(240 * time.Second)
	if got := r.sess.Snapshot().Rewards; got != 0 {
		t.Fatalf("rewards before 240.05s = %d", got)
	}
	if !strings.HasPrefix(r.output(), "fill ") {
		t.Errorf("output = %q, want a zone fill", r.output())
	}

	r.run(TickInterval)
	snap := r.sess.Snapshot()
	if snap.Rewards != 1 {
		t.Fatalf("rewards at 240.05s = %d, want 1", snap.Rewards)
	}
	if r.output() != "animate reward-swirl" {
		t.Errorf("output = %q, want reward-swirl", r.output())
	}
	if snap.RewardPhase != reward.ShowingReward {
		t.Errorf("phase = %v", snap.RewardPhase)
	}
	if r.chime.rewards != 1 {
		t.Errorf("chime rewards = %d", r.chime.rewards)
	}
	recs := r.pub.of(telemetry.EventReward)
	if len(recs) != 1 {
		t.Fatalf("reward records = %d, want 1", len(recs))
	}
	if !recs[0].RewardVisible || recs[0].Window != "lesson" || recs[0].DeviceID != "test-device" {
		t.Errorf("unexpected reward record %+v", recs[0])
	}

	r.run(2950 * time.Millisecond)
	if r.output() != "animate reward-swirl" {
		t.Errorf("swirl ended early: %q", r.output())
	}
	r.run(TickInterval)
	if !strings.HasPrefix(r.output(), "fill ") {
		t.Errorf("output after 3s show = %q, want zone fill", r.output())
	}
	if got := r.sess.Snapshot().RewardPhase; got != reward.CoolingDown {
		t.Errorf("phase after show = %v, want cooling_down", got)
	}

	// The room never goes above good again, so no second reward.
	r.run(15 * time.Minute)
	if got := r.sess.Snapshot().Rewards; got != 1 {
		t.Errorf("rewards after 15 more minutes = %d, want 1", got)
	}
	if n := len(r.pub.of(telemetry.EventLesson)); n == 0 {
		t.Error("expected periodic lesson records")
	}
}

func TestSpikePenaltyLocksOutRewards(t *testing.T) {
	r := newRig(t, monday0900, quietConfig(), nil)
	r.run(130 * time.Second)

	r.src.set(120, nil)
	r.run(8 * time.Second)
	snap := r.sess.Snapshot()
	if snap.Penalties != 1 {
		t.Fatalf("penalties = %d, want 1", snap.Penalties)
	}
	if r.chime.penalties != 1 {
		t.Errorf("penalty chimes = %d, want 1 for one loud episode", r.chime.penalties)
	}

	r.src.set(40, nil)
	r.run(3 * time.Minute)
	if got := r.sess.Snapshot().Rewards; got != 0 {
		t.Fatalf("reward inside lockout: %d", got)
	}
	r.run(6 * time.Minute)
	if got := r.sess.Snapshot().Rewards; got != 1 {
		t.Errorf("rewards after lockout = %d, want 1", got)
	}
}

func TestSpikeEarlyInLessonPenalises(t *testing.T) {
	r := newRig(t, monday0900, quietConfig(), nil)
	r.run(60 * time.Second)

	r.src.set(120, nil)
	r.run(8 * time.Second)
	if got := r.sess.Snapshot().Penalties; got != 1 {
		t.Fatalf("penalties = %d, want 1 for a shout in the first minutes", got)
	}
	if r.chime.penalties != 1 {
		t.Errorf("penalty chimes = %d, want 1", r.chime.penalties)
	}
}

func TestWindowAnimations(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		want  string
		win   schedule.Window
	}{
		{"saturday", time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC), "animate sleep-rainbow", schedule.Off},
		{"before school", time.Date(2025, 3, 3, 7, 0, 0, 0, time.UTC), "animate sleep-rainbow", schedule.Off},
		{"break", time.Date(2025, 3, 3, 10, 35, 0, 0, time.UTC), "animate break-pulse", schedule.Break},
		{"lunch", time.Date(2025, 3, 3, 12, 30, 0, 0, time.UTC), "animate break-pulse", schedule.Lunch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig(t, tt.start, quietConfig(), nil)
			r.run(time.Second)
			if r.output() != tt.want {
				t.Errorf("output = %q, want %q", r.output(), tt.want)
			}
			if w := r.sess.Snapshot().Window; w != tt.win {
				t.Errorf("window = %v, want %v", w, tt.win)
			}
		})
	}
}

func TestAssemblySlot(t *testing.T) {
	cfg := quietConfig()
	cfg.Boundaries.AssemblyStart = "09:00"
	cfg.Boundaries.AssemblyEnd = "09:20"
	r := newRig(t, monday0900, cfg, nil)
	r.run(time.Second)
	if r.output() != "animate assembly-dim" {
		t.Errorf("output = %q", r.output())
	}
}

func TestInvalidClock(t *testing.T) {
	r := newRig(t, monday0900, quietConfig(), nil)
	r.clk.SetValid(false)
	r.run(time.Second)
	if w := r.sess.Snapshot().Window; w != schedule.Off {
		t.Errorf("unsynchronised clock window = %v, want off", w)
	}

	cfg := quietConfig()
	cfg.AlwaysOn = true
	r = newRig(t, monday0900, cfg, nil)
	r.clk.SetValid(false)
	r.run(time.Second)
	if w := r.sess.Snapshot().Window; w != schedule.Lesson {
		t.Errorf("always-on window = %v, want lesson", w)
	}
}

func TestSmootherMovesOnlyOnNewSamples(t *testing.T) {
	r := newRig(t, monday0900, quietConfig(), nil)
	r.src.set(80, nil)

	r.run(TickInterval)
	first := r.sess.Snapshot().DisplayDb
	if first == noise.Baseline {
		t.Fatal("first tick should sample")
	}
	r.run(3 * TickInterval)
	if got := r.sess.Snapshot().DisplayDb; got != first {
		t.Errorf("display moved without a sample: %v -> %v", first, got)
	}
	r.run(TickInterval)
	if got := r.sess.Snapshot().DisplayDb; got == first {
		t.Error("display did not move on the next sample")
	}
	if r.src.reads != 2 {
		t.Errorf("reads = %d, want one per 200ms", r.src.reads)
	}
}

func TestSensorFaultKeepsAverage(t *testing.T) {
	r := newRig(t, monday0900, quietConfig(), nil)
	r.run(time.Second)
	before := r.sess.Snapshot()

	r.src.set(0, errors.New("no frames"))
	r.run(2 * time.Second)
	snap := r.sess.Snapshot()
	if snap.SensorOK {
		t.Error("sensor should be marked faulty")
	}
	if snap.AverageDb != before.AverageDb || snap.DisplayDb != before.DisplayDb {
		t.Errorf("average moved during a fault: %+v -> %+v", before, snap)
	}

	r.src.set(40, nil)
	r.run(time.Second)
	if !r.sess.Snapshot().SensorOK {
		t.Error("sensor should recover")
	}
}

func TestOverrideSuspendsRewards(t *testing.T) {
	r := newRig(t, monday0900, quietConfig(), nil)
	r.run(time.Second)

	r.sess.ToggleOverride(r.clk.Millis())
	r.run(time.Second)
	if r.output() != "animate hop" {
		t.Errorf("output = %q, want hop", r.output())
	}
	r.run(5 * time.Minute)
	if got := r.sess.Snapshot().Rewards; got != 0 {
		t.Errorf("reward during override: %d", got)
	}

	r.sess.ToggleOverride(r.clk.Millis())
	r.run(TickInterval)
	if !strings.HasPrefix(r.output(), "fill ") {
		t.Errorf("output after override = %q", r.output())
	}
	modes := r.pub.of(telemetry.EventMode)
	if len(modes) != 2 || !modes[0].Override || modes[1].Override {
		t.Errorf("mode records = %+v", modes)
	}
	if r.chime.modes != 2 {
		t.Errorf("mode chimes = %d, want 2", r.chime.modes)
	}

	// Streak restarts from the exit, it does not resume.
	r.run(119 * time.Second)
	if got := r.sess.Snapshot().Rewards; got != 0 {
		t.Errorf("reward before a fresh 120s streak: %d", got)
	}
	r.run(2 * time.Second)
	if got := r.sess.Snapshot().Rewards; got != 1 {
		t.Errorf("rewards = %d, want 1", got)
	}
}

func TestCalibrationSamplesEveryMinute(t *testing.T) {
	cfg := config.Defaults()
	r := newRig(t, monday0900, cfg, nil)
	r.run(3*time.Minute + time.Second)
	snap := r.sess.Snapshot()
	if !snap.Calibrating {
		t.Fatal("window should be learning")
	}
	if snap.CalibrationSamples != 3 {
		t.Errorf("samples = %d, want 3", snap.CalibrationSamples)
	}
	if v, ok, _ := r.kv.Get(calibration.KeyCount); !ok || v != "3" {
		t.Errorf("persisted count = %q", v)
	}
}

func TestCalibrationCompletesAndAdoptsThresholds(t *testing.T) {
	kv := store.NewMemory()
	band, _ := noise.LookupBand("Y2Y3")
	seed := calibration.NewEngine(band, kv)
	fiveDays := int64(calibration.LearningDuration / time.Second)
	if _, err := seed.Start(monday0900.Unix() - fiveDays + 30); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		if err := seed.Sample(44 + float64(i%5)); err != nil {
			t.Fatal(err)
		}
	}
	want := calibration.Derive(seed.Stats(), band)

	r := newRig(t, monday0900, config.Defaults(), kv)
	r.run(10 * time.Second)
	if r.sess.Snapshot().CalibrationComplete {
		t.Fatal("completed before the window ended")
	}
	r.run(30 * time.Second)
	snap := r.sess.Snapshot()
	if !snap.CalibrationComplete {
		t.Fatal("calibration should be complete")
	}
	if snap.Thresholds != want {
		t.Errorf("thresholds = %v, want %v", snap.Thresholds, want)
	}
	if v, _, _ := kv.Get(calibration.KeyComplete); v != "true" {
		t.Errorf("complete flag not persisted: %q", v)
	}
}

func TestApplyBand(t *testing.T) {
	r := newRig(t, monday0900, quietConfig(), nil)
	cfg := quietConfig()
	cfg.Band = "special needs"
	r.sess.Apply(cfg)
	r.run(TickInterval)
	sen, _ := noise.LookupBand("SEN")
	if got := r.sess.Snapshot().Thresholds; got != sen.Default() {
		t.Errorf("thresholds = %v, want SEN defaults", got)
	}

	cfg.Band = "martians"
	r.sess.Apply(cfg)
	r.run(TickInterval)
	if got := r.sess.Snapshot().Band; got != noise.DefaultBandName {
		t.Errorf("unknown band fell back to %q", got)
	}
}

func TestRunTogglesOverrideAndPersists(t *testing.T) {
	kv := store.NewMemory()
	r := newRig(t, monday0900, config.Defaults(), kv)
	ctx, cancel := context.WithCancel(context.Background())
	overrides := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- r.sess.Run(ctx, overrides, nil) }()

	overrides <- struct{}{}
	deadline := time.Now().Add(2 * time.Second)
	for !r.sess.Snapshot().Override {
		if time.Now().After(deadline) {
			t.Fatal("override never showed up in a snapshot")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if _, ok, _ := kv.Get(calibration.KeyEnabled); !ok {
		t.Error("calibration state not persisted on exit")
	}
}
