// Package port implements ports, connectors and the connection protocol of
// the element tree.
//
// A Port is an element with the PORT flag and a data type. Connectors are
// resolved edges between two live ports and are recorded on both endpoints.
// ConnectTo decides the direction of a new connector from the explicit
// direction flags, from which directions MayConnectTo permits, and as a last
// resort from InferConnectDirection.
//
// URI connectors describe edges whose partner is addressed by a path or URI
// and may not exist yet. A LocalURIConnector watches the path in the element
// registry and materializes a connector as soon as a port appears there.
// With RECONNECT, or when an endpoint is VOLATILE, it keeps watching and
// reconnects after the partner is deleted and created again.
//
// URIs with a scheme are dispatched to the SchemeRegistry. The local handler
// has an empty scheme name and is represented by LocalURIConnector itself.
//
// Per-runtime services (type registry, connection constraints, scheme
// handlers) are attached to the runtime root as a Services annotation.
package port
