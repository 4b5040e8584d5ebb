// Package metrics exposes Prometheus counters and histograms for pipeline runs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages used as the "stage" label.
const (
	StageCompile   = "compile"
	StageTransform = "transform"
	StageResolve   = "resolve"
	StageExecute   = "execute"
)

// Recorder owns its registry so several can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	outputLines   *prometheus.CounterVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jot_runs_total",
				Help: "Total number of pipeline runs by final status",
			},
			[]string{"status"},
		),
		stageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jot_stage_failures_total",
				Help: "Total number of pipeline stage failures",
			},
			[]string{"stage"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jot_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		outputLines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jot_output_lines_total",
				Help: "Total number of lines delivered to the caller by channel",
			},
			[]string{"channel"},
		),
	}
}

// ObserveStage records one stage's duration and, if err is non-nil, a failure.
// A nil Recorder ignores every call.
func (r *Recorder) ObserveStage(stage string, d time.Duration, err error) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	if err != nil {
		r.stageFailures.WithLabelValues(stage).Inc()
	}
}

func (r *Recorder) ObserveRun(status string) {
	if r == nil {
		return
	}
	r.runsTotal.WithLabelValues(status).Inc()
}

func (r *Recorder) ObserveLine(channel string) {
	if r == nil {
		return
	}
	r.outputLines.WithLabelValues(channel).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
