package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog    zerolog.Logger
	diagFile   *os.File
	rewardFile *os.File
	logMu      sync.Mutex
	logReady   bool
	pid        int
	dir        string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: HUSHLIGHT_LOG_PATH environment variable
	if envPath := os.Getenv("HUSHLIGHT_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	rewardPath := filepath.Join(dir, "rewards_log.txt")
	rewardFile, err = os.OpenFile(rewardPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if rewardFile != nil {
		rewardFile.Close()
		rewardFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

type Thresholds struct {
	Green float64
	Amber float64
	Red   float64
}

func SessionStart(device, band string, t Thresholds, calibrating bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("device", device).
		Str("band", band).
		Float64("green", t.Green).
		Float64("amber", t.Amber).
		Float64("red", t.Red).
		Bool("calibrating", calibrating).
		Msg("session_start")
}

func ZoneChange(from, to string, display float64) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("from", from).
		Str("to", to).
		Float64("display_db", display).
		Msg("zone_change")
}

func ScheduleChange(from, to string) {
	if !logReady {
		return
	}
	diagLog.Info().Str("from", from).Str("to", to).Msg("schedule_change")
}

func ModeChange(mode string, active bool) {
	if !logReady {
		return
	}
	diagLog.Info().Str("mode", mode).Bool("active", active).Msg("mode_change")
}

func Penalty(average, spikeDb float64) {
	if !logReady {
		return
	}
	diagLog.Warn().
		Float64("average_db", average).
		Float64("spike_db", spikeDb).
		Msg("penalty")
}

func CalibrationSample(count uint64, mean, sd, progress float64) {
	if !logReady {
		return
	}
	diagLog.Debug().
		Uint64("count", count).
		Float64("mean", mean).
		Float64("sd", sd).
		Float64("progress", progress).
		Msg("calibration_sample")
}

func CalibrationComplete(count uint64, mean, sd float64, t Thresholds) {
	if !logReady {
		return
	}
	diagLog.Info().
		Uint64("count", count).
		Float64("mean", mean).
		Float64("sd", sd).
		Float64("green", t.Green).
		Float64("amber", t.Amber).
		Float64("red", t.Red).
		Msg("calibration_complete")
}

func SinkError(sink string, err error) {
	if !logReady {
		return
	}
	diagLog.Warn().Str("sink", sink).Err(err).Msg("sink_error")
}

// Reward logs the grant and appends a line to rewards_log.txt.
func Reward(average, goodDb float64, streak time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Float64("average_db", average).
		Float64("good_db", goodDb).
		Dur("streak", streak).
		Msg("reward")

	logMu.Lock()
	defer logMu.Unlock()
	if rewardFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%.1f\t%.1f\n", time.Now().Format("2006-01-02 15:04:05"), pid, average, goodDb)
	rewardFile.WriteString(line)
}
