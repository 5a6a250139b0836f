package bind

import (
	"github.com/wippyai/script-bridge/runtime"
)

// Def is anything that can install itself into an object.
type Def interface {
	// InitInto installs the definition as a property (or, for bare modules,
	// as several properties) of obj.
	InitInto(ctx *runtime.Context, obj *runtime.Object) error
}

// Option adjusts how a definition is registered.
type Option func(*options)

type options struct {
	name     string
	bare     bool
	skip     bool
	writable bool
}

// Name overrides the exposed name of a definition.
func Name(s string) Option {
	return func(o *options) { o.name = s }
}

// Bare flattens a module's items into the parent object instead of nesting
// them under the module name.
func Bare() Option {
	return func(o *options) { o.bare = true }
}

// Skip excludes the definition from installation.
func Skip() Option {
	return func(o *options) { o.skip = true }
}

// Writable installs a constant as an ordinary property instead of a
// read-only one.
func Writable() Option {
	return func(o *options) { o.writable = true }
}

func buildOptions(name string, opts []Option) options {
	o := options{name: name}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Install applies a set of definitions to the context's global object.
func Install(ctx *runtime.Context, defs ...Def) error {
	globals := ctx.Globals()
	defer globals.Free()
	for _, d := range defs {
		if err := d.InitInto(ctx, globals); err != nil {
			return err
		}
	}
	return nil
}
