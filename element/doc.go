// Package element implements the framework element tree: handles, links,
// lifecycle flags, annotations and the runtime root that owns the structure
// lock.
//
// # Lifecycle
//
// Every element moves through Constructing, Ready and Published, and may be
// Deleted from any state:
//
//	e, err := element.New(parent, "Controller", 0)
//	...
//	e.Init()          // Ready, Published once all ancestors are Ready
//	e.ManagedDelete() // Deleted, physically released by the reclaimer later
//
// Structural changes (linking, renaming, reparenting) are only allowed while
// an element is still Constructing. Readers may iterate children and query
// flags without locking; all writers hold the runtime's structure lock.
//
// # Handles
//
// The Registry hands out handles from two disjoint ranges. Port handles are
// always at or above PortHandleBase, so the magnitude of a handle tells
// whether it names a port. Handles are never reused while a runtime lives.
//
// # Deletion
//
// ManagedDelete is the only way to destroy an element. It is idempotent and
// hands the element to the runtime's deferred reclaimer, which releases the
// handle and notifies annotations once the safety interval has elapsed.
package element
