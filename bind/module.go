package bind

import (
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/runtime"
)

// ModuleDef groups definitions under one object. Modules nest.
type ModuleDef struct {
	opts  options
	items []Def
}

// Module declares a named group of definitions. With the Bare option the
// items are installed directly into the parent object and the module name
// is unused.
func Module(name string, items ...Def) *ModuleDef {
	return &ModuleDef{opts: options{name: name}, items: items}
}

// With applies options to the module.
func (d *ModuleDef) With(opts ...Option) *ModuleDef {
	for _, opt := range opts {
		opt(&d.opts)
	}
	return d
}

// Add appends definitions to the module.
func (d *ModuleDef) Add(items ...Def) *ModuleDef {
	d.items = append(d.items, items...)
	return d
}

// Name returns the module's exposed name.
func (d *ModuleDef) Name() string { return d.opts.name }

// Functions returns the module's synchronous function bindings flattened
// for host bridges. Nested module names join with a dot; bare modules
// contribute their members unprefixed; skipped items are dropped.
func (d *ModuleDef) Functions() []*FuncDef {
	var out []*FuncDef
	for _, item := range d.items {
		switch it := item.(type) {
		case *FuncDef:
			if it.opts.skip {
				continue
			}
			out = append(out, it)
		case *ModuleDef:
			if it.opts.skip {
				continue
			}
			prefix := it.opts.name + "."
			if it.opts.bare {
				prefix = ""
			}
			for _, fd := range it.Functions() {
				renamed := *fd
				renamed.opts.name = prefix + fd.opts.name
				out = append(out, &renamed)
			}
		}
	}
	return out
}

// InitInto installs the module. Nested modules produce nested objects;
// bare modules flatten into obj.
func (d *ModuleDef) InitInto(ctx *runtime.Context, obj *runtime.Object) error {
	if d.opts.skip {
		return nil
	}
	target := obj
	if !d.opts.bare {
		nested, err := ctx.NewObject()
		if err != nil {
			return errors.Registration(errors.PhaseInstall, "", d.opts.name, err)
		}
		target = nested
	}
	for _, item := range d.items {
		if err := item.InitInto(ctx, target); err != nil {
			if target != obj {
				target.Free()
			}
			return errors.Registration(errors.PhaseInstall, d.opts.name, "item", err)
		}
	}
	if target == obj {
		return nil
	}
	if err := obj.SetConst(d.opts.name, target.Value()); err != nil {
		target.Free()
		return errors.Registration(errors.PhaseInstall, "", d.opts.name, err)
	}
	return nil
}
