// Package runtime provides the safe, high-level API over the engine's raw
// value surface: runtimes and contexts, reference-owning values, object
// property access, and the exception bridge.
//
// Every Value backed by a heap cell owns exactly one engine reference.
// Clone takes another, Free gives one back, and consuming operations
// (Object.Set, Value.IntoRaw, Context.ThrowValue) take the reference over so
// the caller must not Free afterwards; the Value tracks this and panics on
// use after transfer. This is the single safety-critical contract in the
// library: a missed transfer leaks, a doubled one frees a reachable cell.
//
// A Context and every Value created under it are confined to the goroutine
// that created the Runtime.
package runtime
