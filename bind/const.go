package bind

import (
	"github.com/wippyai/script-bridge/convert"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/runtime"
)

// ConstDef binds a Go value as a property. Read-only unless Writable is
// given.
type ConstDef struct {
	opts  options
	value any
}

// Const declares a value binding.
func Const(name string, value any, opts ...Option) *ConstDef {
	return &ConstDef{opts: buildOptions(name, opts), value: value}
}

// InitInto encodes the value and installs it on obj.
func (d *ConstDef) InitInto(ctx *runtime.Context, obj *runtime.Object) error {
	if d.opts.skip {
		return nil
	}
	v, err := convert.Encode(ctx, d.value)
	if err != nil {
		return errors.Registration(errors.PhaseInstall, "", d.opts.name, err)
	}
	return installProperty(ctx, obj, d.opts.name, v.IntoRaw(), d.opts.writable)
}
