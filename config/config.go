// Package config reads the device's key/value configuration surface.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"hushlight/schedule"
)

const (
	KeyBand               = "AUDIENCE_BAND"
	KeyDayStart           = "DAY_START"
	KeyBreakStart         = "BREAK_START"
	KeyBreakEnd           = "BREAK_END"
	KeyLunchStart         = "LUNCH_START"
	KeyLunchEnd           = "LUNCH_END"
	KeyDayEnd             = "DAY_END"
	KeyAssemblyStart      = "ASSEMBLY_START"
	KeyAssemblyEnd        = "ASSEMBLY_END"
	KeyAlwaysOn           = "ALWAYS_ON"
	KeyCalibrationEnabled = "CALIBRATION_ENABLED"
	KeyDeviceName         = "DEVICE_NAME"
	KeyTimezone           = "TIMEZONE"
	KeyMicDbOffset        = "MIC_DB_OFFSET"
	KeyMQTTBroker         = "MQTT_BROKER"
	KeyMQTTTopic          = "MQTT_TOPIC"
	KeyWebhookURL         = "WEBHOOK_URL"
	KeyTelemetryInterval  = "TELEMETRY_INTERVAL"
)

var Keys = []string{
	KeyBand, KeyDayStart, KeyBreakStart, KeyBreakEnd, KeyLunchStart, KeyLunchEnd, KeyDayEnd,
	KeyAssemblyStart, KeyAssemblyEnd, KeyAlwaysOn, KeyCalibrationEnabled, KeyDeviceName,
	KeyTimezone, KeyMicDbOffset, KeyMQTTBroker, KeyMQTTTopic, KeyWebhookURL, KeyTelemetryInterval,
}

const (
	DefaultMicDbOffset       = 90.0
	DefaultMQTTTopic         = "hushlight"
	DefaultTelemetryInterval = 5 * time.Minute
)

type Config struct {
	Band               string
	Boundaries         schedule.Boundaries
	AlwaysOn           bool
	CalibrationEnabled bool

	DeviceName  string
	Timezone    string
	MicDbOffset float64

	MQTTBroker        string
	MQTTTopic         string
	WebhookURL        string
	TelemetryInterval time.Duration
}

func Defaults() Config {
	return Config{
		Band:               "Y2Y3",
		Boundaries:         schedule.DefaultBoundaries,
		CalibrationEnabled: true,
		MicDbOffset:        DefaultMicDbOffset,
		MQTTTopic:          DefaultMQTTTopic,
		TelemetryInterval:  DefaultTelemetryInterval,
	}
}

// Load reads path (if non-empty) and lets process environment variables
// override it. Only an unreadable file is an error; bad values fall back to
// defaults and come back as warnings.
func Load(path string) (Config, []error, error) {
	values := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		if err != nil {
			return Config{}, nil, fmt.Errorf("read config %s: %w", path, err)
		}
		values = m
	}
	for _, k := range Keys {
		if v, ok := os.LookupEnv(k); ok {
			values[k] = v
		}
	}
	cfg, warnings := FromMap(values)
	return cfg, warnings, nil
}

func FromMap(m map[string]string) (Config, []error) {
	cfg := Defaults()
	var warnings []error
	get := func(k string) (string, bool) {
		v, ok := m[k]
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(KeyBand); ok {
		cfg.Band = v
	}

	// Timetable strings are passed through untouched; schedule.ParseTimetable
	// owns validation and the fallback.
	for k, dst := range map[string]*string{
		KeyDayStart:      &cfg.Boundaries.DayStart,
		KeyBreakStart:    &cfg.Boundaries.BreakStart,
		KeyBreakEnd:      &cfg.Boundaries.BreakEnd,
		KeyLunchStart:    &cfg.Boundaries.LunchStart,
		KeyLunchEnd:      &cfg.Boundaries.LunchEnd,
		KeyDayEnd:        &cfg.Boundaries.DayEnd,
		KeyAssemblyStart: &cfg.Boundaries.AssemblyStart,
		KeyAssemblyEnd:   &cfg.Boundaries.AssemblyEnd,
	} {
		if v, ok := get(k); ok {
			*dst = v
		}
	}

	boolKey := func(k string, dst *bool) {
		if v, ok := get(k); ok {
			b, err := parseBool(v)
			if err != nil {
				warnings = append(warnings, fmt.Errorf("%s: %w", k, err))
				return
			}
			*dst = b
		}
	}
	boolKey(KeyAlwaysOn, &cfg.AlwaysOn)
	boolKey(KeyCalibrationEnabled, &cfg.CalibrationEnabled)

	if v, ok := get(KeyDeviceName); ok {
		cfg.DeviceName = v
	}
	if v, ok := get(KeyTimezone); ok {
		if _, err := time.LoadLocation(v); err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", KeyTimezone, err))
		} else {
			cfg.Timezone = v
		}
	}
	if v, ok := get(KeyMicDbOffset); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("%s: %w", KeyMicDbOffset, err))
		} else {
			cfg.MicDbOffset = f
		}
	}
	if v, ok := get(KeyMQTTBroker); ok {
		cfg.MQTTBroker = v
	}
	if v, ok := get(KeyMQTTTopic); ok {
		cfg.MQTTTopic = strings.TrimSuffix(v, "/")
	}
	if v, ok := get(KeyWebhookURL); ok {
		cfg.WebhookURL = v
	}
	if v, ok := get(KeyTelemetryInterval); ok {
		d, err := time.ParseDuration(v)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Errorf("%s: %w", KeyTelemetryInterval, err))
		case d < 10*time.Second:
			warnings = append(warnings, fmt.Errorf("%s: %s is below the 10s minimum", KeyTelemetryInterval, d))
		default:
			cfg.TelemetryInterval = d
		}
	}
	return cfg, warnings
}

var errBool = errors.New("want true/false, yes/no, on/off or 1/0")

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q: %w", v, errBool)
}

// Timetable parses the configured boundaries, falling back per schedule rules.
func (c Config) Timetable() (schedule.Timetable, []error) {
	return schedule.ParseTimetable(c.Boundaries)
}

// ResolveSource picks the config file: explicit flag, then
// HUSHLIGHT_CONFIG, then none.
func ResolveSource(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return os.Getenv("HUSHLIGHT_CONFIG")
}
