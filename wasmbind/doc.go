// Package wasmbind exposes bound Go functions to WebAssembly guests.
//
// Describe maps a binding's Go signature onto WIT types, so a guest's
// expected imports can be checked against the host's bindings before
// instantiation. Install registers a set of bindings as a wazero host
// module: integers travel as i64, floats as f64, booleans as i32, and
// string parameters as (ptr, len) pairs read from guest memory.
package wasmbind
