package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"uk.co.dudmesh.crosspost/internal/model"
)

const (
	namespace = "crosspost"
	job       = "crosspost"
)

type recorder struct {
	registry    *prometheus.Registry
	statuses    *prometheus.CounterVec
	skipped     *prometheus.CounterVec
	failures    *prometheus.CounterVec
	lastSuccess prometheus.Gauge
}

// New registers the run counters on a private registry. A run is a short
// lived process, so nothing is scraped; Push hands the registry to a
// Pushgateway when one is configured.
func New() *recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &recorder{
		registry: registry,
		statuses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "statuses_total",
				Help:      "Statuses submitted to the destination, by action",
			},
			[]string{"action"},
		),
		skipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "skipped_total",
				Help:      "Statuses skipped because their target could not be resolved, by action",
			},
			[]string{"action"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Statuses that halted the run, by failure kind",
			},
			[]string{"kind"},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last status delivered",
			},
		),
	}
}

func (r *recorder) Delivered(action string, at time.Time) {
	r.statuses.WithLabelValues(action).Inc()
	r.lastSuccess.Set(float64(at.Unix()))
}

func (r *recorder) Skipped(action string) {
	r.skipped.WithLabelValues(action).Inc()
}

func (r *recorder) Failed(kind model.FailureKind) {
	r.failures.WithLabelValues(string(kind)).Inc()
}

func (r *recorder) Push(url string, runID model.RunID) error {
	if url == "" {
		return nil
	}
	err := push.New(url, job).
		Gatherer(r.registry).
		Grouping("run", string(runID)).
		Push()
	if err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	return nil
}
