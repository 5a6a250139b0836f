// Package convert implements the conversion protocol between Go values and
// engine values.
//
// Encode produces an owned engine value from a Go value; Decode populates a
// Go value from an engine value, following the engine's coercion rules
// (numeric strings decode into numbers, primitives stringify, objects never
// stringify implicitly). Both directions are driven by per-type codecs that
// are compiled with reflection once, cached, and reflection-free on the hot
// path.
//
// Structured types map structurally: structs to objects (field names
// renameable via the `js` tag, `js:"-"` skips), slices and arrays to engine
// arrays, maps with string keys to objects, and the empty struct to
// Undefined. Two explicit override points exist beyond the ValueEncoder and
// ValueDecoder interfaces: RegisterTuple marks a struct to encode
// positionally as a fixed-length array, and RegisterUnion fixes the
// discriminated-union encoding for an interface type. The union wire format
// is stable: payload-free variants encode as their bare tag string; variants
// with payload encode as a single-key object {tag: payload}.
package convert
