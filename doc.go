// Package framecore provides a live tree of framework elements whose typed
// ports are wired together by connectors, with deferred reclamation so the
// tree and its connection graph can be read without locks.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│        admin / persist              │  Handle-based administration,
//	│  (connect, create, enumerate)       │  declarative bookkeeping
//	└─────────────────────────────────────┘
//	           ↓ operates on
//	┌─────────────────────────────────────┐
//	│        port                         │  ConnectTo protocol, direction
//	│  (ports, connectors, URI connectors)│  inference, constraints, schemes
//	└─────────────────────────────────────┘
//	           ↓ extends
//	┌─────────────────────────────────────┐
//	│        element                      │  Handles, links, flags,
//	│  (runtime, registry, tree)          │  Init / ManagedDelete lifecycle
//	└─────────────────────────────────────┘
//	           ↓ retires into
//	┌─────────────────────────────────────┐
//	│        pkg/reclaim                  │  Safety-interval deferred
//	│  (deferred reclaimer)               │  destruction
//	└─────────────────────────────────────┘
//
// Every structural mutation (linking, adding children, registering
// connectors, URI path listeners) runs under the single runtime lock.
// Readers iterate children and connector sets lock-free; an element or
// connector removed while a reader holds it is only destroyed after the
// reclaimer's safety interval.
//
// # Element Lifecycle
//
//	Constructing ──Init()──→ Ready ──(all ancestors ready)──→ Published
//	     │                     │                                  │
//	     └─────────────────────┴──────ManagedDelete()─────────────┴──→ Deleted
//
// Constructing elements may be linked and renamed by the goroutine that
// built them. Init publishes a subtree to runtime listeners. ManagedDelete
// is the only way to destroy an element; repeated calls are no-ops.
//
// # Connections
//
// Ports declare whether they emit and accept data and which dtype they
// carry. ConnectTo picks the direction (explicit flag, the single permitted
// direction, or inference for proxy ports) and reports rejections as a
// *port.ConnectError rather than failing hard. URI connectors name ports by
// path and materialize once the target appears; with the reconnect flag, or
// when an endpoint is volatile, they reconnect each time it reappears.
//
// # Observability
//
// The metric package exposes Prometheus collectors for elements,
// connectors, URI connectors and the reclaimer. The structevents package
// publishes structural changes as JSON over NATS. The health package
// aggregates runtime, reclaimer and broker checks into the probe served
// next to /metrics.
//
// # Binary
//
//	# Run with defaults and a small demo topology
//	./bin/framecore --demo
//
//	# Run with a layered config and dump the element tree as YAML
//	./bin/framecore --config configs/framecore.yaml --dump yaml
//
// See cmd/framecore for flags and the FRAMECORE_* environment fallbacks.
package framecore
