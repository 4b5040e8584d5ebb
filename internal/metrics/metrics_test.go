package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// family gathers the registry and returns the named metric family.
func family(t *testing.T, r *Recorder, name string) *dto.MetricFamily {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

// counter returns the value of the series whose only label equals value.
func counter(t *testing.T, r *Recorder, name, value string) float64 {
	t.Helper()
	for _, m := range family(t, r, name).GetMetric() {
		if m.GetLabel()[0].GetValue() == value {
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserveStage(t *testing.T) {
	r := NewRecorder()
	r.ObserveStage(StageCompile, 10*time.Millisecond, nil)
	r.ObserveStage(StageCompile, 20*time.Millisecond, errors.New("syntax"))
	r.ObserveStage(StageTransform, time.Millisecond, nil)

	require.Equal(t, 1.0, counter(t, r, "jot_stage_failures_total", StageCompile))
	require.Equal(t, 0.0, counter(t, r, "jot_stage_failures_total", StageTransform))
	require.Len(t, family(t, r, "jot_stage_duration_seconds").GetMetric(), 2)
}

func TestObserveRunAndLines(t *testing.T) {
	r := NewRecorder()
	r.ObserveRun("succeeded")
	r.ObserveRun("succeeded")
	r.ObserveLine("stdout")

	require.Equal(t, 2.0, counter(t, r, "jot_runs_total", "succeeded"))
	require.Equal(t, 1.0, counter(t, r, "jot_output_lines_total", "stdout"))
}

func TestNilRecorderIgnoresCalls(t *testing.T) {
	var r *Recorder
	require.NotPanics(t, func() {
		r.ObserveStage(StageExecute, time.Second, errors.New("x"))
		r.ObserveRun("failed")
		r.ObserveLine("stderr")
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder()
	r.ObserveRun("failed")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), `jot_runs_total{status="failed"} 1`))
}
