package bind

import (
	"context"
	"reflect"

	"github.com/wippyai/script-bridge/convert"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/runtime"
)

// ClassDef binds a Go-backed class: a constructor plus methods. Instances
// are engine objects carrying the Go value in their opaque slot; methods
// recover the receiver from `this`.
type ClassDef struct {
	opts    options
	ctor    *funcShape
	methods []*methodDef
	err     *errors.Error
}

type methodDef struct {
	name  string
	recv  reflect.Type
	shape *funcShape
	err   *errors.Error
}

// Class declares a class binding. The constructor returns the instance
// value (optionally with an error); the value is usually a pointer so
// methods share state.
func Class(name string, constructor any, opts ...Option) *ClassDef {
	shape, err := analyze(name, constructor)
	if err == nil && !shape.hasValue {
		err = errors.New(errors.PhaseBind, errors.KindInvalidInput).
			Path(name).
			Detail("constructor must return the instance").
			Build()
		shape = nil
	}
	return &ClassDef{opts: buildOptions(name, opts), ctor: shape, err: err}
}

// Method adds a method. The function's first parameter after an optional
// context is the receiver and must match the constructor's instance type.
func (d *ClassDef) Method(name string, fn any) *ClassDef {
	m := &methodDef{name: name}
	m.shape, m.err = analyze(name, fn)
	if m.err == nil {
		if len(m.shape.params) == 0 {
			m.err = errors.New(errors.PhaseBind, errors.KindInvalidInput).
				Path(d.opts.name, name).
				Detail("method needs a receiver parameter").
				Build()
		} else {
			m.recv = m.shape.params[0]
			m.shape.params = m.shape.params[1:]
			m.shape.required--
		}
	}
	d.methods = append(d.methods, m)
	return d
}

// InitInto installs the constructor as a read-only property of obj.
func (d *ClassDef) InitInto(ctx *runtime.Context, obj *runtime.Object) error {
	if d.opts.skip {
		return nil
	}
	if d.err != nil {
		return errors.Registration(errors.PhaseInstall, "", d.opts.name, d.err)
	}
	for _, m := range d.methods {
		if m.err != nil {
			return errors.Registration(errors.PhaseInstall, d.opts.name, m.name, m.err)
		}
	}

	name, ctor, methods := d.opts.name, d.ctor, d.methods
	raw, ok := ctx.Realm().NewFunction(name, ctor.required, func(r *engine.Realm, this engine.RawValue, raws []engine.RawValue) engine.RawValue {
		if len(raws) < ctor.required {
			return ctx.ThrowError(errors.MissingArgument(name, len(raws), len(raws), ctor.required))
		}
		args := borrowAll(ctx, raws)
		in, derr := ctor.decodeArgs(ctx, args)
		if derr != nil {
			return ctx.ThrowError(derr)
		}
		out := ctor.fn.Call(in)
		if ctor.hasErr {
			if errVal := out[len(out)-1]; !errVal.IsNil() {
				return ctx.ThrowError(errVal.Interface().(error))
			}
		}
		return newInstance(ctx, name, methods, out[0].Interface())
	})
	if !ok {
		return errors.AllocationFailed(errors.PhaseInstall, "class "+name)
	}
	return installProperty(ctx, obj, name, raw, false)
}

// newInstance builds the instance object: opaque slot holding the Go value,
// method trampolines as read-only properties.
func newInstance(ctx *runtime.Context, class string, methods []*methodDef, instance any) engine.RawValue {
	r := ctx.Realm()
	objRaw, ok := r.NewObject()
	if !ok {
		return ctx.ThrowError(errors.AllocationFailed(errors.PhaseCall, "instance of "+class))
	}
	r.SetOpaque(objRaw, instance)

	v := ctx.AdoptRaw(objRaw)
	obj, _ := v.Object()
	for _, m := range methods {
		mraw, ok := r.NewFunction(m.name, m.shape.required, methodTrampoline(ctx, class, m))
		if !ok {
			v.Free()
			return ctx.ThrowError(errors.AllocationFailed(errors.PhaseCall, "method "+m.name))
		}
		if err := installProperty(ctx, obj, m.name, mraw, false); err != nil {
			v.Free()
			return ctx.ThrowError(err)
		}
	}
	return v.IntoRaw()
}

func methodTrampoline(ctx *runtime.Context, class string, m *methodDef) engine.NativeFunc {
	shape, recvType, name := m.shape, m.recv, m.name
	return func(r *engine.Realm, this engine.RawValue, raws []engine.RawValue) engine.RawValue {
		op, ok := r.Opaque(this)
		if !ok || op == nil {
			return ctx.ThrowError(errors.TypeMismatch(errors.PhaseCall,
				[]string{class, name}, class+" instance", this.Tag().String()))
		}
		recv := reflect.ValueOf(op)
		if !recv.Type().AssignableTo(recvType) {
			return ctx.ThrowError(errors.TypeMismatch(errors.PhaseCall,
				[]string{class, name}, recvType.String(), recv.Type().String()))
		}
		if len(raws) < shape.required {
			return ctx.ThrowError(errors.MissingArgument(name, len(raws), len(raws), shape.required))
		}

		var in []reflect.Value
		if shape.wantsCtx {
			in = append(in, reflect.ValueOf(ctx))
		}
		if shape.wantsStdCtx {
			in = append(in, reflect.ValueOf(context.Background()))
		}
		in = append(in, recv)

		args := borrowAll(ctx, raws)
		fixed := len(shape.params)
		if shape.variadic {
			fixed--
		}
		for i := 0; i < fixed; i++ {
			slot := reflect.New(shape.params[i]).Elem()
			if err := convert.Decode(args[i], slot.Addr().Interface()); err != nil {
				return ctx.ThrowError(err)
			}
			in = append(in, slot)
		}
		if shape.variadic {
			elem := shape.params[len(shape.params)-1]
			for i := fixed; i < len(args); i++ {
				slot := reflect.New(elem).Elem()
				if err := convert.Decode(args[i], slot.Addr().Interface()); err != nil {
					return ctx.ThrowError(err)
				}
				in = append(in, slot)
			}
		}
		return shape.encodeResult(ctx, shape.fn.Call(in))
	}
}
