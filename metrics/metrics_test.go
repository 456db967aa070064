package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hushlight/noise"
)

func TestZoneIsOneHot(t *testing.T) {
	m := New()
	m.SetZone(noise.Deep)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.zone.WithLabelValues("deep")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.zone.WithLabelValues("green")))

	m.SetZone(noise.Green)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.zone.WithLabelValues("deep")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.zone.WithLabelValues("green")))
}

func TestCounters(t *testing.T) {
	m := New()
	m.Reward()
	m.Reward()
	m.Penalty()
	m.SinkResult("mqtt", nil)
	m.SinkResult("mqtt", errors.New("down"))
	m.SinkResult("mqtt", errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rewards))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.penalties))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sinkResults.WithLabelValues("mqtt", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sinkResults.WithLabelValues("mqtt", "error")))
}

func TestHandlerExposesThresholds(t *testing.T) {
	m := New()
	m.SetThresholds(noise.ThresholdSet{GreenMax: 49, AmberMax: 52, RedWarnDb: 55})
	m.SetLoudness(41, 42.5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	text := string(body)
	assert.True(t, strings.Contains(text, `hushlight_threshold_db{level="amber"} 52`), text)
	assert.True(t, strings.Contains(text, "hushlight_display_db 42.5"), text)
}
