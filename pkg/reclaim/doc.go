// Package reclaim implements deferred reclamation for the live element graph.
//
// # Why
//
// Readers iterate child sets and connector sets of the element tree without
// taking the structure lock. A reader that fetched a reference just before an
// element was deleted must be able to finish using it. Instead of locking
// every read, destruction is deferred: ManagedDelete retires the element and
// the reclaimer runs its destroy function only after a safety interval.
//
// # Cycles
//
// The worker ticks once per CyclePeriod. An object retired in cycle c is
// destroyed in the first cycle >= c + SafetyCycles(), where
//
//	SafetyCycles = ceil(SafetyInterval / CyclePeriod) + 1
//
// After due entries are destroyed each cycle runs the registered regular
// tasks (housekeeping hooks of other subsystems) and then increments the
// counter.
//
// # Start and shutdown
//
// Before Start and after Stop, Retire destroys inline. Stop drains the whole
// queue synchronously, so no entry is ever dropped.
//
//	r, _ := reclaim.New(reclaim.DefaultConfig(), reclaim.WithLogger(logger))
//	_ = r.Start(ctx)
//	defer r.Stop(5 * time.Second)
//
// Tests use WithManualCycles and call Step to advance a simulated clock.
package reclaim
