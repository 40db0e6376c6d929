package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the framework-level statistics collectors
type Metrics struct {
	// Element tree
	Elements       *prometheus.GaugeVec
	ElementsAdded  *prometheus.CounterVec
	ElementsRemove *prometheus.CounterVec

	// Connection graph
	Connectors      prometheus.Gauge
	ConnectAttempts *prometheus.CounterVec
	Disconnects     prometheus.Counter
	URIConnectors   *prometheus.GaugeVec

	// Broker event publishing
	EventsPublished *prometheus.CounterVec
	BrokerConnected prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all framework metrics
func NewMetrics() *Metrics {
	return &Metrics{
		Elements: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "framecore",
				Subsystem: "tree",
				Name:      "elements",
				Help:      "Published framework elements by kind (port, element)",
			},
			[]string{"kind"},
		),
		ElementsAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "framecore",
				Subsystem: "tree",
				Name:      "elements_added_total",
				Help:      "Total framework elements published",
			},
			[]string{"kind"},
		),
		ElementsRemove: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "framecore",
				Subsystem: "tree",
				Name:      "elements_removed_total",
				Help:      "Total framework elements deleted",
			},
			[]string{"kind"},
		),
		Connectors: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "framecore",
				Subsystem: "graph",
				Name:      "connectors",
				Help:      "Live connectors between ports",
			},
		),
		ConnectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "framecore",
				Subsystem: "graph",
				Name:      "connect_attempts_total",
				Help:      "Connect attempts by result (connected, existing, rejected, invalid)",
			},
			[]string{"result"},
		),
		Disconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "framecore",
				Subsystem: "graph",
				Name:      "disconnects_total",
				Help:      "Total connectors disconnected",
			},
		),
		URIConnectors: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "framecore",
				Subsystem: "graph",
				Name:      "uri_connectors",
				Help:      "URI connectors by status (disconnected, connected, error)",
			},
			[]string{"status"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "framecore",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Structural events published to the broker by type",
			},
			[]string{"type"},
		),
		BrokerConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "framecore",
				Subsystem: "events",
				Name:      "broker_connected",
				Help:      "Broker connection status (0=disconnected, 1=connected)",
			},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.Elements,
		c.ElementsAdded,
		c.ElementsRemove,
		c.Connectors,
		c.ConnectAttempts,
		c.Disconnects,
		c.URIConnectors,
		c.EventsPublished,
		c.BrokerConnected,
	}
}

func kindLabel(isPort bool) string {
	if isPort {
		return "port"
	}
	return "element"
}

// RecordElementAdded counts a published element
func (c *Metrics) RecordElementAdded(isPort bool) {
	kind := kindLabel(isPort)
	c.Elements.WithLabelValues(kind).Inc()
	c.ElementsAdded.WithLabelValues(kind).Inc()
}

// RecordElementRemoved counts a deleted element that had been published
func (c *Metrics) RecordElementRemoved(isPort bool) {
	kind := kindLabel(isPort)
	c.Elements.WithLabelValues(kind).Dec()
	c.ElementsRemove.WithLabelValues(kind).Inc()
}

// RecordConnect counts a connect attempt with its result
func (c *Metrics) RecordConnect(result string) {
	c.ConnectAttempts.WithLabelValues(result).Inc()
	if result == "connected" {
		c.Connectors.Inc()
	}
}

// RecordDisconnect counts a removed connector
func (c *Metrics) RecordDisconnect() {
	c.Connectors.Dec()
	c.Disconnects.Inc()
}

// RecordURIStatus moves one URI connector from one status to another.
// An empty from or to skips that side.
func (c *Metrics) RecordURIStatus(from, to string) {
	if from != "" {
		c.URIConnectors.WithLabelValues(from).Dec()
	}
	if to != "" {
		c.URIConnectors.WithLabelValues(to).Inc()
	}
}

// RecordEventPublished counts a structural event sent to the broker
func (c *Metrics) RecordEventPublished(eventType string) {
	c.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordBrokerStatus updates broker connection status
func (c *Metrics) RecordBrokerStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.BrokerConnected.Set(value)
}
