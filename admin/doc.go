// Package admin provides handle-addressed administration of a runtime.
//
// Admin wraps the element and port operations that remote tooling needs:
// connecting and disconnecting ports, creating modules from registered
// factories, deleting elements and finding the execution controls of a
// subtree. Every call resolves handles through the runtime's registry, so a
// stale handle yields ErrElementNotFound instead of touching a deleted
// element.
//
// Module types are registered once at startup:
//
//	modules := admin.NewModuleRegistry()
//	err := modules.Register(admin.ModuleType{
//		Name:    "counter",
//		Factory: newCounter,
//	})
//	a, err := admin.New(admin.Dependencies{Runtime: rt, Modules: modules})
//	h, err := a.CreateModule("counter", "Counter", rt.Root().Handle(), nil)
package admin
