// Package scriptbridge provides the value marshalling and ownership layer
// between a Go host and an embedded, reference-counted scripting engine.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	script-bridge/       Root package documentation
//	├── engine/          The engine boundary: tagged values, refcounting,
//	│                    atoms, properties, exceptions, promises, jobs
//	├── runtime/         Ownership-tracked values, contexts, exception
//	│                    bridging in both directions
//	├── convert/         Compiled codecs between Go types and engine values
//	├── bind/            Function, constant, module, and class bindings
//	├── wasmbind/        Exposing bindings to WebAssembly guests
//	└── errors/          Structured error types for the boundary
//
// # Quick Start
//
// Create a context, move a value across, and bind a function:
//
//	rt := runtime.New()
//	ctx, err := rt.NewContext()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	v, err := convert.Encode(ctx, map[string]int{"a": 3})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer v.Free()
//
//	err = bind.Install(ctx, bind.Func("add", func(a, b int64) int64 {
//	    return a + b
//	}))
//
// # Ownership Model
//
// Every Value owns exactly one engine reference. Passing a value to an
// operation that consumes it (setting a property, throwing, returning it
// from a trampoline) transfers that reference; using the value afterwards
// panics. Free releases the reference and is safe to call twice. Borrowed
// values, such as trampoline arguments, are never released by the borrower.
//
// # Thread Safety
//
// An engine and everything created from it is confined to one goroutine.
// The only cross-goroutine surface is the runtime's async inbox, which
// AsyncFunc bindings use to post settlement jobs back to the engine.
package scriptbridge
