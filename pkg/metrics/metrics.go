// Package metrics exposes goal store activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

const namespace = "wellspring"

// Recorder owns a registry and the collectors fed by the goal store.
type Recorder struct {
	Registry *prometheus.Registry

	goalsByStatus *prometheus.GaugeVec
	changes       *prometheus.CounterVec
	rejections    *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		goalsByStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "goals",
				Name:      "count",
				Help:      "Current number of goals per bucket.",
			},
			[]string{"status"},
		),
		changes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "changes_total",
				Help:      "Committed goal store changes by kind.",
			},
			[]string{"kind"},
		),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "rejections_total",
				Help:      "Goal store operations that returned an error, by operation and reason.",
			},
			[]string{"op", "reason"},
		),
	}
	r.Registry.MustRegister(
		r.goalsByStatus,
		r.changes,
		r.rejections,
		prometheus.NewGoCollector(),
	)
	return r
}

// Observer returns a goals.Observer that updates the gauges and change
// counters from every snapshot.
func (r *Recorder) Observer() goals.Observer {
	return func(s goals.Snapshot) {
		for st, n := range s.Counts() {
			r.goalsByStatus.WithLabelValues(string(st)).Set(float64(n))
		}
		if s.Change.Kind != "" {
			r.changes.WithLabelValues(string(s.Change.Kind)).Inc()
		}
	}
}

// RecordRejection counts a failed operation. A nil error is ignored.
func (r *Recorder) RecordRejection(op string, err error) {
	if err == nil {
		return
	}
	r.rejections.WithLabelValues(op, Reason(err)).Inc()
}

// Reason maps an error to a short label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, goals.ErrCapacityExceeded):
		return "capacity"
	case errors.Is(err, goals.ErrValidation):
		return "validation"
	case errors.Is(err, goals.ErrNotFound):
		return "not_found"
	case errors.Is(err, goals.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, goals.ErrPersistence):
		return "persistence"
	default:
		return "other"
	}
}

// Handler returns an HTTP handler exposing the registered metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.Registry, promhttp.HandlerOpts{})
}
