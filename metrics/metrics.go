package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hushlight/noise"
)

var zones = []noise.Zone{noise.Green, noise.Amber, noise.Deep, noise.Red}

type Metrics struct {
	registry *prometheus.Registry

	averageDb    prometheus.Gauge
	displayDb    prometheus.Gauge
	zone         *prometheus.GaugeVec
	window       *prometheus.GaugeVec
	thresholds   *prometheus.GaugeVec
	override     prometheus.Gauge
	rewards      prometheus.Counter
	penalties    prometheus.Counter
	calProgress  prometheus.Gauge
	calSamples   prometheus.Gauge
	sinkResults  *prometheus.CounterVec
	sensorFaults prometheus.Counter
}

// New registers every collector on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		averageDb: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hushlight_average_db",
			Help: "Rolling average loudness over the last 30 seconds.",
		}),
		displayDb: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hushlight_display_db",
			Help: "Smoothed loudness driving the light.",
		}),
		zone: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hushlight_zone",
			Help: "1 for the zone currently shown, 0 otherwise.",
		}, []string{"zone"}),
		window: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hushlight_schedule_window",
			Help: "1 for the active timetable window, 0 otherwise.",
		}, []string{"window"}),
		thresholds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "hushlight_threshold_db",
			Help: "Active zone thresholds.",
		}, []string{"level"}),
		override: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hushlight_override_active",
			Help: "1 while the override mode is on.",
		}),
		rewards: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hushlight_rewards_total",
			Help: "Quiet rewards granted.",
		}),
		penalties: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hushlight_penalties_total",
			Help: "Spike penalties started.",
		}),
		calProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hushlight_calibration_progress_ratio",
			Help: "Fraction of the learning window elapsed.",
		}),
		calSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hushlight_calibration_samples",
			Help: "Samples collected in the current learning window.",
		}),
		sinkResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hushlight_telemetry_publish_total",
			Help: "Telemetry publish attempts by sink and result.",
		}, []string{"sink", "result"}),
		sensorFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hushlight_sensor_faults_total",
			Help: "Loudness reads that timed out or failed.",
		}),
	}
	m.registry.MustRegister(
		m.averageDb, m.displayDb, m.zone, m.window, m.thresholds, m.override,
		m.rewards, m.penalties, m.calProgress, m.calSamples, m.sinkResults, m.sensorFaults,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetLoudness(average, display float64) {
	m.averageDb.Set(average)
	m.displayDb.Set(display)
}

func (m *Metrics) SetZone(z noise.Zone) {
	for _, each := range zones {
		m.zone.WithLabelValues(each.String()).Set(boolFloat(each == z))
	}
}

// SetWindow marks name as the active window among all names.
func (m *Metrics) SetWindow(name string, all []string) {
	for _, each := range all {
		m.window.WithLabelValues(each).Set(boolFloat(each == name))
	}
}

func (m *Metrics) SetThresholds(t noise.ThresholdSet) {
	m.thresholds.WithLabelValues("green").Set(t.GreenMax)
	m.thresholds.WithLabelValues("amber").Set(t.AmberMax)
	m.thresholds.WithLabelValues("red").Set(t.RedWarnDb)
}

func (m *Metrics) SetOverride(on bool) { m.override.Set(boolFloat(on)) }
func (m *Metrics) Reward()             { m.rewards.Inc() }
func (m *Metrics) Penalty()            { m.penalties.Inc() }
func (m *Metrics) SensorFault()        { m.sensorFaults.Inc() }

func (m *Metrics) SetCalibration(progress float64, samples uint64) {
	m.calProgress.Set(progress)
	m.calSamples.Set(float64(samples))
}

// SinkResult matches telemetry.Dispatcher.OnResult.
func (m *Metrics) SinkResult(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sinkResults.WithLabelValues(sink, result).Inc()
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
