package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity/verity/internal/model"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveStage("rendering", 300*time.Millisecond)
	m.IncrementExcluded("fetching")
	m.IncrementExcluded("fetching")
	m.IncrementUsable()
	m.RecordAlerts([]model.Alert{
		{Severity: model.SeverityHigh, Check: "Nationality"},
		{Severity: model.SeverityHigh, Check: "Nationality"},
	})
	m.ObserveRun("check", "CRITICAL_ERROR", 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsExcluded.WithLabelValues("fetching")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsUsable))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Alerts.WithLabelValues("Nationality", "HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("check", "CRITICAL_ERROR")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStage("rendering", time.Second)
		m.IncrementExcluded("fetching")
		m.IncrementUsable()
		m.RecordAlerts([]model.Alert{{Check: "x"}})
		m.ObserveRun("check", "SUCCESS", time.Second)
	})
}
