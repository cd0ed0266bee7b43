package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	batchOutcomeSucceeded = "succeeded"
	batchOutcomeFailed    = "failed"
	batchOutcomeRejected  = "rejected"

	deleteOutcomeDeleted   = "deleted"
	deleteOutcomeFailed    = "failed"
	deleteOutcomeForbidden = "forbidden"
)

// Metrics holds the photo service collectors. A nil *Metrics records nothing.
type Metrics struct {
	batches    *prometheus.CounterVec
	batchFiles prometheus.Histogram
	deletes    *prometheus.CounterVec
	gatherer   prometheus.Gatherer
}

// NewMetrics registers photo service collectors on reg.
func NewMetrics(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		return nil, fmt.Errorf("metrics registry is required")
	}
	m := &Metrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadlens",
			Subsystem: "photos",
			Name:      "batches_total",
			Help:      "Upload batches by outcome.",
		}, []string{"outcome"}),
		batchFiles: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "roadlens",
			Subsystem: "photos",
			Name:      "batch_files",
			Help:      "Files submitted per upload batch.",
			Buckets:   []float64{1, 2, 3, 4, 5, 10},
		}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roadlens",
			Subsystem: "photos",
			Name:      "deletes_total",
			Help:      "Photo deletions by outcome.",
		}, []string{"outcome"}),
		gatherer: reg,
	}
	for _, c := range []prometheus.Collector{m.batches, m.batchFiles, m.deletes} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return nil, fmt.Errorf("photo metrics already registered")
			}
			return nil, fmt.Errorf("register photo metric: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) recordBatch(outcome string, files int) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
	m.batchFiles.Observe(float64(files))
}

func (m *Metrics) recordDelete(outcome string) {
	if m == nil {
		return
	}
	m.deletes.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
