package monitor

import (
	"time"

	"hushlight/clock"
	"hushlight/noise"
	"hushlight/reward"
	"hushlight/schedule"
)

// Snapshot is a copy of the loop state after a tick, safe to hand to other
// goroutines.
type Snapshot struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name,omitempty"`
	Band       string `json:"band"`

	Window     schedule.Window    `json:"window"`
	Zone       noise.Zone         `json:"zone"`
	Thresholds noise.ThresholdSet `json:"thresholds"`
	AverageDb  float64            `json:"average_db"`
	DisplayDb  float64            `json:"display_db"`
	Output     string             `json:"output"`

	RewardPhase   reward.Phase `json:"reward_phase"`
	StreakSeconds float64      `json:"streak_seconds"`
	Rewards       uint64       `json:"rewards"`
	Penalties     uint64       `json:"penalties"`

	Override            bool    `json:"override"`
	Calibrating         bool    `json:"calibrating"`
	CalibrationComplete bool    `json:"calibration_complete"`
	CalibrationProgress float64 `json:"calibration_progress"`
	CalibrationSamples  uint64  `json:"calibration_samples"`

	ClockValid bool      `json:"clock_valid"`
	SensorOK   bool      `json:"sensor_ok"`
	Time       time.Time `json:"time"`
}

func (s *Session) publish(now clock.Millis) {
	w := s.cal.Window()
	snap := Snapshot{
		DeviceID:            s.opts.DeviceID,
		DeviceName:          s.cfg.DeviceName,
		Band:                s.band.Name,
		Window:              s.tracker.Current(),
		Zone:                s.zone,
		Thresholds:          s.thresholds,
		AverageDb:           s.avg.Average(),
		DisplayDb:           s.smooth.Display(),
		Output:              s.output.String(),
		RewardPhase:         s.reward.Phase(),
		StreakSeconds:       reward.StreakElapsed(s.reward, now).Seconds(),
		Rewards:             s.rewardCount,
		Penalties:           s.penaltyCount,
		Override:            s.override,
		Calibrating:         w.Enabled && !w.Complete,
		CalibrationComplete: w.Enabled && w.Complete,
		CalibrationProgress: s.cal.Progress(s.reading.Epoch),
		CalibrationSamples:  s.cal.Stats().Count,
		ClockValid:          s.clockValid,
		SensorOK:            s.sensorOK,
		Time:                time.Unix(s.reading.Epoch, 0).UTC(),
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	if s.opts.OnSnapshot != nil {
		s.opts.OnSnapshot(snap)
	}
}

// Snapshot returns the state as of the last completed tick.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}
