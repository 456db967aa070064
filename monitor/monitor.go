// Package monitor runs the room's control loop. A Session owns every piece of
// mutable state and is advanced one iteration at a time by Tick, so the
// hardware loop, the simulator and the tests all drive the same code.
package monitor

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"hushlight/calibration"
	"hushlight/clock"
	"hushlight/config"
	"hushlight/display"
	"hushlight/log"
	"hushlight/metrics"
	"hushlight/noise"
	"hushlight/reward"
	"hushlight/schedule"
	"hushlight/store"
	"hushlight/telemetry"
)

const (
	TickInterval   = 50 * time.Millisecond
	SampleInterval = 200 * time.Millisecond
)

// LoudnessSource returns one dB-equivalent reading per call.
type LoudnessSource interface {
	Read(ctx context.Context) (float64, error)
}

// SpeechReporter is optionally implemented by a LoudnessSource that runs
// voice activity detection.
type SpeechReporter interface {
	SpeechRatio() float64
}

type Publisher interface {
	Send(r telemetry.Record) bool
}

type Chime interface {
	Reward()
	Penalty()
	Mode()
}

type Options struct {
	Source  LoudnessSource
	Wall    clock.Wall
	Counter clock.Counter

	// Optional. Missing pieces get in-memory or no-op stand-ins.
	Store     calibration.Store
	Display   display.Sink
	Telemetry Publisher
	Metrics   *metrics.Metrics
	Chime     Chime

	DeviceID string
	Config   config.Config

	// OnSnapshot is called from the loop goroutine after every tick.
	OnSnapshot func(Snapshot)
}

var windows = []schedule.Window{schedule.Off, schedule.Lesson, schedule.Assembly, schedule.Break, schedule.Lunch}

func windowNames() []string {
	names := make([]string, len(windows))
	for i, w := range windows {
		names[i] = w.String()
	}
	return names
}

type Session struct {
	opts   Options
	cfg    config.Config
	params reward.Params

	band       noise.Band
	resolver   schedule.Resolver
	tracker    schedule.Tracker
	cal        *calibration.Engine
	thresholds noise.ThresholdSet
	zone       noise.Zone

	avg    *noise.Averager
	smooth *noise.Smoother

	reward   reward.State
	override bool

	sampled      bool
	lastSample   clock.Millis
	sensorOK     bool
	calPrimed    bool
	lastCal      clock.Millis
	lastLesson   clock.Millis
	reading      clock.Reading
	clockValid   bool
	output       display.Command
	rewardCount  uint64
	penaltyCount uint64

	mu   sync.Mutex
	snap Snapshot
}

func New(opts Options) (*Session, error) {
	if opts.Source == nil || opts.Wall == nil || opts.Counter == nil {
		return nil, errors.New("monitor: source, wall clock and counter are required")
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if opts.Display == nil {
		opts.Display = display.NewLogger(nil)
	}
	if opts.Telemetry == nil {
		opts.Telemetry = nopPublisher{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Chime == nil {
		opts.Chime = nopChime{}
	}

	s := &Session{
		opts:     opts,
		params:   reward.DefaultParams(),
		avg:      noise.NewAverager(noise.WindowSize, noise.Baseline),
		smooth:   noise.NewSmoother(noise.SmoothingAlpha, noise.Baseline),
		sensorOK: true,
	}
	band, _ := noise.LookupBand(opts.Config.Band)
	s.cal = calibration.NewEngine(band, opts.Store)
	if err := s.cal.Restore(); err != nil {
		log.Warnf("calibration state unreadable, starting fresh: %v", err)
	}
	s.Apply(opts.Config)

	t := s.thresholds
	log.SessionStart(opts.DeviceID, s.band.Name, log.Thresholds{Green: t.GreenMax, Amber: t.AmberMax, Red: t.RedWarnDb}, s.cal.Window().Enabled && !s.cal.Window().Complete)
	s.opts.Metrics.SetZone(s.zone)
	s.opts.Metrics.SetWindow(s.tracker.Current().String(), windowNames())
	return s, nil
}

// Apply swaps in a new configuration between ticks. Timers and reward state
// carry over; only the band, timetable, always-on flag and calibration toggle
// change.
func (s *Session) Apply(cfg config.Config) {
	band, ok := noise.LookupBand(cfg.Band)
	if !ok {
		log.Warnf("unknown audience band %q, using %s", cfg.Band, band.Name)
	}
	s.band = band
	s.cal.SetBand(band)

	tt, warnings := cfg.Timetable()
	for _, w := range warnings {
		log.Warnf("timetable: %v", w)
	}
	s.resolver = schedule.Resolver{Timetable: tt, AlwaysOn: cfg.AlwaysOn}

	if err := s.cal.Configure(cfg.CalibrationEnabled); err != nil {
		log.Errorf("persisting calibration toggle: %v", err)
	}
	if cfg.TelemetryInterval <= 0 {
		cfg.TelemetryInterval = config.DefaultTelemetryInterval
	}
	s.cfg = cfg
	s.setThresholds(s.cal.Thresholds())
}

func (s *Session) setThresholds(t noise.ThresholdSet) {
	s.thresholds = t
	s.opts.Metrics.SetThresholds(t)
}

// Tick runs one iteration of the control loop at monotonic time now.
func (s *Session) Tick(ctx context.Context, now clock.Millis) {
	defer s.publish(now)

	s.sample(ctx, now)

	s.reading, s.clockValid = s.opts.Wall.Now()
	w := s.resolver.ResolveReading(s.reading, s.clockValid)
	if tr, changed := s.tracker.Observe(w); changed {
		log.ScheduleChange(tr.From.String(), tr.To.String())
		s.opts.Metrics.SetWindow(tr.To.String(), windowNames())
		if tr.EnteredLesson() {
			s.reward = reward.EnterLesson(s.reward, now, s.params)
			s.lastLesson = now
		}
	}
	if s.cal.NeedsStart() && s.clockValid {
		t, err := s.cal.Start(s.reading.Epoch)
		if err != nil {
			log.Errorf("persisting calibration start: %v", err)
		}
		log.Info("calibration window opened")
		s.setThresholds(t)
	}

	if s.override {
		s.animate(display.Hop)
		return
	}
	switch w {
	case schedule.Lesson:
	case schedule.Break, schedule.Lunch:
		s.animate(display.BreakPulse)
		return
	case schedule.Assembly:
		s.animate(display.AssemblyDim)
		return
	default:
		s.animate(display.SleepRainbow)
		return
	}

	average := s.avg.Average()
	prev := s.reward
	next, ev := reward.Step(s.reward, reward.Input{Now: now, Average: average, GoodDb: s.thresholds.GreenMax}, s.params)
	s.reward = next
	switch ev {
	case reward.Granted:
		s.rewardCount++
		log.Reward(average, s.thresholds.GreenMax, clock.Since(now, prev.StreakStart))
		s.opts.Metrics.Reward()
		s.opts.Chime.Reward()
		s.send(telemetry.EventReward, now)
		s.animate(display.RewardSwirl)
		return
	case reward.Penalty:
		// Step re-arms the penalty on every loud tick; announce only the first.
		if reward.PenaltyActive(prev, now, s.params) {
			break
		}
		s.penaltyCount++
		log.Penalty(average, s.thresholds.GreenMax+s.params.SpikeOffset)
		s.opts.Metrics.Penalty()
		s.opts.Chime.Penalty()
	}
	if s.reward.Showing {
		s.animate(display.RewardSwirl)
		return
	}

	s.calibrate(now, average)

	v := s.smooth.Display()
	if z := noise.ApplyHysteresis(s.zone, v, s.thresholds, s.band.Margins); z != s.zone {
		log.ZoneChange(s.zone.String(), z.String(), v)
		s.zone = z
		s.opts.Metrics.SetZone(z)
	}
	s.fill(display.ZoneColour(s.zone, v, s.thresholds))

	if clock.Since(now, s.lastLesson) >= s.cfg.TelemetryInterval {
		s.lastLesson = now
		s.send(telemetry.EventLesson, now)
	}
}

func (s *Session) sample(ctx context.Context, now clock.Millis) {
	if s.sampled && clock.Since(now, s.lastSample) < SampleInterval {
		return
	}
	s.sampled, s.lastSample = true, now

	db, err := s.opts.Source.Read(ctx)
	if err == nil && (math.IsNaN(db) || math.IsInf(db, 0)) {
		err = errors.New("non-finite reading")
	}
	if err != nil {
		s.opts.Metrics.SensorFault()
		if s.sensorOK {
			log.Warnf("loudness read failed, keeping previous average: %v", err)
		}
		s.sensorOK = false
		return
	}
	if !s.sensorOK {
		log.Info("loudness source recovered")
	}
	s.sensorOK = true
	if s.avg.Record(db) {
		s.smooth.Update(s.avg.Average())
	}
	s.opts.Metrics.SetLoudness(s.avg.Average(), s.smooth.Display())
}

// calibrate samples on its own 60s timer. The first call only primes the
// timer so a freshly booted unit does not sample a baseline-filled buffer.
func (s *Session) calibrate(now clock.Millis, average float64) {
	epoch := s.reading.Epoch
	if !s.calPrimed {
		s.calPrimed, s.lastCal = true, now
	} else if clock.Since(now, s.lastCal) >= calibration.SampleInterval {
		s.lastCal = now
		if s.cal.IsActive(epoch, s.clockValid) {
			if err := s.cal.Sample(average); err != nil {
				log.Errorf("persisting calibration sample: %v", err)
			}
			st := s.cal.Stats()
			progress := s.cal.Progress(epoch)
			log.CalibrationSample(st.Count, st.Mean, st.StdDev(), progress)
			s.opts.Metrics.SetCalibration(progress, st.Count)
		}
	}

	t, done, err := s.cal.FinalizeIfDue(epoch, s.clockValid)
	if err != nil {
		log.Errorf("persisting calibration result: %v", err)
	}
	if done {
		st := s.cal.Stats()
		log.CalibrationComplete(st.Count, st.Mean, st.StdDev(), log.Thresholds{Green: t.GreenMax, Amber: t.AmberMax, Red: t.RedWarnDb})
		s.opts.Metrics.SetCalibration(1, st.Count)
		s.setThresholds(t)
	}
}

// SetOverride enters or leaves hop mode. Any running streak is dropped both
// ways; cooldown and penalty timers keep running.
func (s *Session) SetOverride(on bool, now clock.Millis) {
	if on == s.override {
		return
	}
	s.override = on
	s.reward.Streaking = false
	log.ModeChange("hop", on)
	s.opts.Chime.Mode()
	s.opts.Metrics.SetOverride(on)
	s.send(telemetry.EventMode, now)
}

func (s *Session) ToggleOverride(now clock.Millis) {
	s.SetOverride(!s.override, now)
}

// Persist flushes calibration state, for shutdown.
func (s *Session) Persist() error {
	return s.cal.Persist()
}

func (s *Session) fill(c display.RGB) {
	s.output = display.Command{Colour: c}
	s.opts.Display.Fill(c)
}

func (s *Session) animate(a display.Animation) {
	s.output = display.Command{Animated: true, Animation: a}
	s.opts.Display.Animate(a)
}

func (s *Session) record(ev telemetry.Event, now clock.Millis) telemetry.Record {
	w := s.cal.Window()
	r := telemetry.Record{
		DeviceID:            s.opts.DeviceID,
		DeviceName:          s.cfg.DeviceName,
		Band:                s.band.Name,
		Event:               ev,
		Thresholds:          s.thresholds,
		AverageDb:           s.avg.Average(),
		DisplayDb:           s.smooth.Display(),
		Zone:                s.zone.String(),
		Window:              s.tracker.Current().String(),
		Override:            s.override,
		Calibrating:         w.Enabled && !w.Complete,
		CalibrationProgress: s.cal.Progress(s.reading.Epoch),
		RewardVisible:       reward.Visible(s.reward, now, s.params),
	}
	if sr, ok := s.opts.Source.(SpeechReporter); ok {
		r.SpeechRatio = sr.SpeechRatio()
	}
	r.Stamp(time.Unix(s.reading.Epoch, 0))
	return r
}

func (s *Session) send(ev telemetry.Event, now clock.Millis) {
	if !s.opts.Telemetry.Send(s.record(ev, now)) {
		log.Warnf("telemetry %s record dropped", ev)
	}
}

type nopPublisher struct{}

func (nopPublisher) Send(telemetry.Record) bool { return true }

type nopChime struct{}

func (nopChime) Reward()  {}
func (nopChime) Penalty() {}
func (nopChime) Mode()    {}
