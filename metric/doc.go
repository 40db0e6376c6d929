// Package metric provides Prometheus statistics collectors for the framework
// and an HTTP server that exposes them.
//
// The core Metrics are registered automatically: element counts by kind,
// live connectors, connect attempts by result, URI connector states and
// broker event counters. Subsystems such as the reclaimer register their own
// collectors through MetricsRegistrar.
//
//	registry := metric.NewMetricsRegistry()
//	rt := element.NewRuntime(element.Dependencies{Metrics: registry.CoreMetrics()})
//	server := metric.NewServer(9090, "/metrics", registry, nil)
//	go server.Start()
//	defer server.Stop()
package metric
