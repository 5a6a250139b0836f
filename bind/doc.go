// Package bind exposes Go functions, constants, modules, and classes to the
// scripting engine.
//
// Definitions are built with Func, AsyncFunc, Const, Module, and Class, then
// installed into a context with InitInto. Signatures are analyzed with
// reflection once, at definition time; the installed trampolines dispatch
// through fixed shapes with no per-call reflection beyond argument decoding.
//
// A bound Go function may take *runtime.Context as its first parameter,
// any convertible types after that, and a variadic tail. It returns nothing,
// a value, an error, or a value and an error. Returned errors surface inside
// the engine as catchable exceptions. Calls with fewer values than the
// required parameter count fail before the Go function runs.
//
// A bound function may instead take context.Context first; it receives a
// background context.
//
// AsyncFunc runs the Go function on its own goroutine and hands the caller a
// promise; the settlement job is queued back to the engine goroutine. Async
// functions cannot take *runtime.Context, since the context is confined to
// the engine goroutine; context.Context is fine.
package bind
