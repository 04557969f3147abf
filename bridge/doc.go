// Package bridge connects an asynchronous stream engine to a scripting host.
//
// A [Bridge] owns every script-visible [Handle], the per-handle event
// tables, and the in-flight write records. The engine reports readiness via
// native callbacks, which the bridge translates into named events that are
// looked up in the handle's table and invoked through the [Host].
//
// Script objects are never held directly by engine-side state. Instead the
// bridge keeps them in a [Registry], and hands out generation-checked
// [Token] values that are resolved at dispatch time. A token that outlives
// its handle fails loudly, rather than reaching a recycled slot.
//
// All methods must be called from the goroutine that runs the engine, which
// is also the goroutine every callback is dispatched on.
package bridge
