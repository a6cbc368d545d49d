package api

import (
	"context"

	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSink counts content lifecycle events.
type MetricsSink struct {
	operations *prometheus.CounterVec
}

// NewMetricsSink registers the content counters on reg.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	return &MetricsSink{
		operations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "realtycms",
			Name:      "content_operations_total",
			Help:      "Content write operations by kind and operation.",
		}, []string{"kind", "op"}),
	}
}

func (m *MetricsSink) ContentCreated(ctx context.Context, kind realtycms.Kind, id uuid.UUID, slug string) error {
	m.operations.WithLabelValues(string(kind), "create").Inc()
	return nil
}

func (m *MetricsSink) ContentUpdated(ctx context.Context, kind realtycms.Kind, id uuid.UUID, op string) error {
	m.operations.WithLabelValues(string(kind), op).Inc()
	return nil
}

func (m *MetricsSink) ContentDeleted(ctx context.Context, kind realtycms.Kind, id uuid.UUID) error {
	m.operations.WithLabelValues(string(kind), "delete").Inc()
	return nil
}

// Counter exposes the counter of kind and op, for tests and diagnostics.
func (m *MetricsSink) Counter(kind realtycms.Kind, op string) prometheus.Counter {
	return m.operations.WithLabelValues(string(kind), op)
}
