// Package testutil provides test fixtures for packages built on the element
// tree.
//
// NewEnv builds a runtime with a manually stepped reclaimer and installed port
// services, so tests decide when retired objects are released:
//
//	env := testutil.NewEnv(t)
//	out := env.Port(t, nil, "Out", testutil.OutputFlags)
//	in := env.Port(t, nil, "In", testutil.InputFlags)
//	out.Init()
//	in.Init()
//	env.StepPastSafetyInterval()
//
// MockNATSClient is an in-memory stand-in for the broker used by the
// structure event emitter. MockExecutable records execution control calls.
// All mocks are safe for concurrent use.
package testutil
