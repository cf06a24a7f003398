package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the subsystem
type Metrics struct {
	EventsPublished    prometheus.Counter
	EventsDelivered    prometheus.Counter
	EventsReplayed     prometheus.Counter
	ConnectionsActive  prometheus.Gauge
	ConnectionsDropped prometheus.Counter
}

// New creates and registers all metrics on the default registry
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on the given registerer; tests pass a fresh
// prometheus.NewRegistry so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventrelay_events_published_total",
			Help: "Total number of events durably appended to the log",
		}),
		EventsDelivered: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventrelay_events_delivered_total",
			Help: "Total number of live events handed to connections",
		}),
		EventsReplayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventrelay_events_replayed_total",
			Help: "Total number of events redelivered from the log on connect",
		}),
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "eventrelay_connections_active",
			Help: "Number of device connections currently joined",
		}),
		ConnectionsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventrelay_connections_dropped_total",
			Help: "Connections forcibly closed for slow or stalled writes",
		}),
	}
}
