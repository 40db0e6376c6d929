// Package health aggregates the health of the services in a framecore process.
//
// A Monitor holds a Status per service. Statuses are either pushed with
// Update or computed on demand by registered checks:
//
//	monitor := health.NewMonitor()
//	monitor.Register("runtime", health.RuntimeCheck(rt))
//	monitor.Register("reclaimer", health.ReclaimerCheck(reclaimer, 10000))
//	monitor.Register("events", health.BrokerCheck(broker))
//
//	server := metric.NewServer(9090, "/metrics", registry, monitor.Probe("framecore"))
//
// Aggregation: any unhealthy service makes the system unhealthy, otherwise
// any degraded service makes it degraded. Probe reports a degraded system as
// serving.
//
// Messages built from errors with FromError are sanitized: URLs, file paths,
// IP addresses, ports and credentials are replaced by placeholders.
package health
