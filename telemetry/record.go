// Package telemetry ships structured device records to remote sinks on a
// best-effort basis.
package telemetry

import (
	"time"

	"hushlight/noise"
)

type Event string

const (
	EventLesson Event = "lesson"
	EventReward Event = "reward"
	EventMode   Event = "mode"
)

type Record struct {
	DeviceID   string `json:"device_id"`
	DeviceName string `json:"device_name,omitempty"`
	Band       string `json:"band"`
	Event      Event  `json:"event"`

	Thresholds noise.ThresholdSet `json:"thresholds"`
	AverageDb  float64            `json:"average_db"`
	DisplayDb  float64            `json:"display_db"`
	Zone       string             `json:"zone"`
	Window     string             `json:"window"`

	Override            bool    `json:"override"`
	Calibrating         bool    `json:"calibrating"`
	CalibrationProgress float64 `json:"calibration_progress"`
	RewardVisible       bool    `json:"reward_visible"`
	SpeechRatio         float64 `json:"speech_ratio"`

	Timestamp string `json:"timestamp"`
}

// Stamp sets the record time in RFC 3339 UTC.
func (r *Record) Stamp(t time.Time) {
	r.Timestamp = t.UTC().Format(time.RFC3339)
}
