// Package engine implements the raw value surface of the scripting engine.
//
// It is the narrow boundary the rest of the library is built on: a
// reference-counted value heap, property storage keyed by interned atoms,
// a per-realm pending-exception slot, a promise primitive, and a job queue
// for deferred work. There is no evaluator, parser, or cycle collector here;
// script execution is driven entirely by the host through native function
// calls.
//
// The calling convention is deliberately C-like. Fallible operations return
// an ok flag instead of an error; when ok is false the realm either has a
// pending exception (retrieve it with TakeException) or the heap budget was
// exhausted. Operations that accept a value "consume" exactly one owning
// reference on success and none on failure; callers track ownership per call
// site. The runtime package wraps this surface with a safe, error-returning
// API and is the only intended consumer.
//
// An Engine and everything rooted in it is confined to one goroutine. No
// operation takes a lock; confinement replaces locking.
package engine
