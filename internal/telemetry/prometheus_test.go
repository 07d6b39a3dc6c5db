package telemetry

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findFamily(t *testing.T, e *Exporter, name string) float64 {
	t.Helper()
	families, err := e.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		var total float64
		for _, m := range fam.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		return total
	}
	t.Fatalf("metric family %q not found", name)
	return 0
}

func TestExporter_RecordSubmittedIncrementsCounter(t *testing.T) {
	e := NewExporter(DefaultConfig())
	e.RecordSubmitted("Default")
	e.RecordSubmitted("Default")
	e.RecordSubmitted("Priority")

	assert.Equal(t, float64(3), findFamily(t, e, "cadence_runner_tasks_submitted_total"))
}

func TestExporter_OutcomeCounters(t *testing.T) {
	e := NewExporter(DefaultConfig())
	e.RecordCompleted("Default")
	e.RecordFailed("Default")
	e.RecordCancelled("Default")

	assert.Equal(t, float64(1), findFamily(t, e, "cadence_runner_tasks_completed_total"))
	assert.Equal(t, float64(1), findFamily(t, e, "cadence_runner_tasks_failed_total"))
	assert.Equal(t, float64(1), findFamily(t, e, "cadence_runner_tasks_cancelled_total"))
}

func TestExporter_ActiveTasksGauge(t *testing.T) {
	e := NewExporter(DefaultConfig())
	e.SetActiveTasks("Default", 7)
	assert.Equal(t, float64(7), findFamily(t, e, "cadence_runner_active_tasks"))

	e.SetActiveTasks("Default", 2)
	assert.Equal(t, float64(2), findFamily(t, e, "cadence_runner_active_tasks"))
}

func TestExporter_ObserveTickDurationRecordsIntoHistogram(t *testing.T) {
	e := NewExporter(DefaultConfig())
	e.ObserveTickDuration(5 * time.Millisecond)

	families, err := e.Gather()
	require.NoError(t, err)
	var found bool
	for _, fam := range families {
		if fam.GetName() != "cadence_runner_tick_duration_seconds" {
			continue
		}
		found = true
		require.Len(t, fam.GetMetric(), 1)
		assert.Equal(t, uint64(1), fam.GetMetric()[0].GetHistogram().GetSampleCount())
	}
	assert.True(t, found, "tick duration histogram family not found")
}

func TestExporter_HandlerServesText(t *testing.T) {
	e := NewExporter(DefaultConfig())
	e.RecordSubmitted("Default")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "cadence_runner_tasks_submitted_total")
}
