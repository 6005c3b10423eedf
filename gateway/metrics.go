package gateway

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ChristopherJHart/disnake/metric"
)

// Metrics holds Prometheus metrics for the gateway session and dispatcher
type Metrics struct {
	eventsReceived   *prometheus.CounterVec
	eventsDispatched *prometheus.CounterVec
	eventsDropped    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	handlerPanics    prometheus.Counter
	handlerStalls    prometheus.Counter
	reconnects       prometheus.Counter
	connectionState  prometheus.Gauge
}

// newMetrics creates and registers gateway metrics
func newMetrics(registry metric.Registrar) *Metrics {
	if registry == nil {
		return nil
	}

	metrics := &Metrics{
		eventsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      "events_received_total",
			Help:      "Total events received from the streaming connection",
		}, []string{"type"}),

		eventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      "events_dispatched_total",
			Help:      "Total events delivered to registered handlers",
		}, []string{"type"}),

		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      "events_dropped_total",
			Help:      "Total events dropped before dispatch, by reason",
		}, []string{"reason"}),

		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      "dispatch_duration_seconds",
			Help:      "Time to deliver one event to all of its handlers",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.1, 1.0, 5.0},
		}, []string{"type"}),

		handlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      "handler_panics_total",
			Help:      "Total panics recovered from event handlers",
		}),

		handlerStalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      "handler_stalls_total",
			Help:      "Total handlers that exceeded the stall grace period",
		}),

		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      "reconnects_total",
			Help:      "Total reconnection attempts after connection loss",
		}),

		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "gateway",
			Name:      "connection_state",
			Help:      "Session state (0=disconnected, 1=connecting, 2=subscribed, 3=dispatching)",
		}),
	}

	_ = registry.Register("gateway", "events_received", metrics.eventsReceived)
	_ = registry.Register("gateway", "events_dispatched", metrics.eventsDispatched)
	_ = registry.Register("gateway", "events_dropped", metrics.eventsDropped)
	_ = registry.Register("gateway", "dispatch_duration", metrics.dispatchDuration)
	_ = registry.Register("gateway", "handler_panics", metrics.handlerPanics)
	_ = registry.Register("gateway", "handler_stalls", metrics.handlerStalls)
	_ = registry.Register("gateway", "reconnects", metrics.reconnects)
	_ = registry.Register("gateway", "connection_state", metrics.connectionState)

	return metrics
}
