package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"roadlens/internal/models"
)

// Observer captures upload telemetry.
type Observer interface {
	RecordUpload(duration time.Duration, sizeBytes int64, err error)
}

// PrometheusObserver exports upload metrics to Prometheus.
type PrometheusObserver struct {
	duration *prometheus.HistogramVec
	failures *prometheus.CounterVec
	bytes    prometheus.Counter
}

var _ Observer = (*PrometheusObserver)(nil)

// NewPrometheusObserver registers upload metrics on reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "roadlens"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	observer := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "upload_duration_seconds",
			Help:      "Latency of single-file uploads to the photo provider.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "upload_failures_total",
			Help:      "Failed uploads by failure kind.",
		}, []string{"kind"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "uploaded_bytes_total",
			Help:      "Bytes accepted by the photo provider.",
		}),
	}

	var err error
	if observer.duration, err = registerCollector(reg, observer.duration); err != nil {
		return nil, err
	}
	if observer.failures, err = registerCollector(reg, observer.failures); err != nil {
		return nil, err
	}
	if observer.bytes, err = registerCollector(reg, observer.bytes); err != nil {
		return nil, err
	}
	return observer, nil
}

// registerCollector registers c or returns the collector already registered
// under the same descriptor.
func registerCollector[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register provider metric: %w", err)
	}
	return c, nil
}

// RecordUpload tracks one upload attempt.
func (o *PrometheusObserver) RecordUpload(duration time.Duration, sizeBytes int64, err error) {
	if o == nil {
		return
	}
	if err != nil {
		kind := KindOf(err)
		if kind == "" {
			kind = "other"
		}
		o.duration.WithLabelValues("failure").Observe(duration.Seconds())
		o.failures.WithLabelValues(string(kind)).Inc()
		return
	}
	o.duration.WithLabelValues("success").Observe(duration.Seconds())
	o.bytes.Add(float64(sizeBytes))
}

type nopObserver struct{}

func (nopObserver) RecordUpload(time.Duration, int64, error) {}

// Instrument wraps next so every Upload is reported to observer.
func Instrument(next Uploader, observer Observer) Uploader {
	if observer == nil {
		observer = nopObserver{}
	}
	return &instrumented{next: next, observer: observer}
}

type instrumented struct {
	next     Uploader
	observer Observer
}

func (i *instrumented) Upload(ctx context.Context, file File, opts UploadOptions) (models.StoredImage, error) {
	start := time.Now()
	stored, err := i.next.Upload(ctx, file, opts)
	i.observer.RecordUpload(time.Since(start), stored.Bytes, err)
	return stored, err
}
