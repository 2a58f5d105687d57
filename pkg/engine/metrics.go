package engine

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts lifecycle transitions for scraping.
type MetricsSink struct {
	events *prometheus.CounterVec
	active prometheus.Gauge
}

// NewMetricsSink builds a sink registered against reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	s := &MetricsSink{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trailstop",
			Name:      "order_events_total",
			Help:      "Order lifecycle and configuration events by type.",
		}, []string{"type"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trailstop",
			Name:      "orders_active",
			Help:      "Number of live trailing-stop orders.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.events, s.active)
	}
	return s
}

// Emit implements EventSink.
func (s *MetricsSink) Emit(ctx context.Context, ev Event) {
	s.events.WithLabelValues(string(ev.Type)).Inc()
	switch ev.Type {
	case EventOrderCreated:
		s.active.Inc()
	case EventOrderCancelled, EventOrderExecuted:
		s.active.Dec()
	}
}
