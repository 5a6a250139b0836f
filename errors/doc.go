// Package errors provides structured error types for the script-bridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: field path, Go type name,
// expected/actual engine tags, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("user", "age").
//		Expected("int").
//		Actual("object").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseDecode, path, "int", "object")
//	err := errors.MissingArgument("add2", 1, 1, 2)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
