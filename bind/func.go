package bind

import (
	"context"
	"reflect"

	"github.com/wippyai/script-bridge/convert"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/runtime"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	contextType = reflect.TypeOf((*runtime.Context)(nil))
	stdCtxType  = reflect.TypeOf((*context.Context)(nil)).Elem()
)

// funcShape is the result of analyzing a Go function signature once at
// definition time.
type funcShape struct {
	fn          reflect.Value
	wantsCtx    bool           // leading *runtime.Context
	wantsStdCtx bool           // leading context.Context
	params      []reflect.Type // decoded parameters; variadic element type last
	variadic    bool
	required    int
	hasValue    bool
	hasErr      bool
}

func analyze(name string, fn any) (*funcShape, *errors.Error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, errors.New(errors.PhaseBind, errors.KindInvalidInput).
			Path(name).
			Detail("binding target must be a function, got %T", fn).
			Build()
	}
	ft := fv.Type()

	s := &funcShape{fn: fv, variadic: ft.IsVariadic()}

	start := 0
	if ft.NumIn() > 0 {
		switch ft.In(0) {
		case contextType:
			s.wantsCtx = true
			start = 1
		case stdCtxType:
			s.wantsStdCtx = true
			start = 1
		}
	}
	for i := start; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		if s.variadic && i == ft.NumIn()-1 {
			pt = pt.Elem()
		}
		s.params = append(s.params, pt)
	}
	s.required = len(s.params)
	if s.variadic {
		s.required--
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errorType {
			s.hasErr = true
		} else {
			s.hasValue = true
		}
	case 2:
		if ft.Out(1) != errorType {
			return nil, errors.New(errors.PhaseBind, errors.KindInvalidInput).
				Path(name).
				Detail("second result must be error, got %s", ft.Out(1)).
				Build()
		}
		s.hasValue = true
		s.hasErr = true
	default:
		return nil, errors.New(errors.PhaseBind, errors.KindInvalidInput).
			Path(name).
			Detail("at most two results supported, got %d", ft.NumOut()).
			Build()
	}
	return s, nil
}

// decodeArgs converts borrowed engine values into the Go parameter list.
// Arity is checked by the caller; surplus arguments are dropped, the way
// scripting engines drop them.
func (s *funcShape) decodeArgs(ctx *runtime.Context, args []*runtime.Value) ([]reflect.Value, error) {
	var in []reflect.Value
	if s.wantsCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	if s.wantsStdCtx {
		in = append(in, reflect.ValueOf(context.Background()))
	}
	fixed := len(s.params)
	if s.variadic {
		fixed--
	}
	for i := 0; i < fixed; i++ {
		slot := reflect.New(s.params[i]).Elem()
		if err := convert.Decode(args[i], slot.Addr().Interface()); err != nil {
			return nil, err
		}
		in = append(in, slot)
	}
	if s.variadic {
		elem := s.params[len(s.params)-1]
		for i := fixed; i < len(args); i++ {
			slot := reflect.New(elem).Elem()
			if err := convert.Decode(args[i], slot.Addr().Interface()); err != nil {
				return nil, err
			}
			in = append(in, slot)
		}
	}
	return in, nil
}

// encodeResult maps the Go return values back to one engine value,
// converting a non-nil error into a thrown exception.
func (s *funcShape) encodeResult(ctx *runtime.Context, out []reflect.Value) engine.RawValue {
	if s.hasErr {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return ctx.ThrowError(errVal.Interface().(error))
		}
	}
	if !s.hasValue {
		return engine.Undefined()
	}
	v, err := convert.Encode(ctx, out[0].Interface())
	if err != nil {
		return ctx.ThrowError(err)
	}
	return v.IntoRaw()
}

// FuncDef binds a synchronous Go function.
type FuncDef struct {
	opts  options
	shape *funcShape
	err   *errors.Error
}

// Name returns the exposed name of the binding.
func (d *FuncDef) Name() string { return d.opts.name }

// Signature reports the Go parameter and result types the binding converts,
// excluding the context parameter and the trailing error. A nil result type
// means the function returns no value.
func (d *FuncDef) Signature() (params []reflect.Type, result reflect.Type, err error) {
	if d.err != nil {
		return nil, nil, d.err
	}
	if d.shape.hasValue {
		result = d.shape.fn.Type().Out(0)
	}
	return d.shape.params, result, nil
}

// CallGo invokes the bound Go function directly with already-converted
// arguments. Host bridges that route calls from outside the engine use
// this instead of the installed trampoline.
func (d *FuncDef) CallGo(ctx *runtime.Context, args []any) (any, error) {
	if d.err != nil {
		return nil, d.err
	}
	s := d.shape
	if len(args) < s.required {
		return nil, errors.MissingArgument(d.opts.name, len(args), len(args), s.required)
	}
	var in []reflect.Value
	if s.wantsCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	if s.wantsStdCtx {
		in = append(in, reflect.ValueOf(context.Background()))
	}
	fixed := len(s.params)
	if s.variadic {
		fixed--
	}
	for i, a := range args {
		var pt reflect.Type
		switch {
		case i < fixed:
			pt = s.params[i]
		case s.variadic:
			pt = s.params[len(s.params)-1]
		}
		if pt == nil {
			// Surplus arguments are dropped.
			break
		}
		av := reflect.ValueOf(a)
		if !av.IsValid() {
			av = reflect.Zero(pt)
		} else if av.Type() != pt {
			if !av.Type().ConvertibleTo(pt) {
				return nil, errors.TypeMismatch(errors.PhaseCall,
					[]string{d.opts.name}, pt.String(), av.Type().String())
			}
			av = av.Convert(pt)
		}
		in = append(in, av)
	}
	out := s.fn.Call(in)
	if s.hasErr {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			return nil, errVal.Interface().(error)
		}
	}
	if !s.hasValue {
		return nil, nil
	}
	return out[0].Interface(), nil
}

// Func declares a function binding. The signature is validated here;
// invalid signatures surface when the definition is installed.
func Func(name string, fn any, opts ...Option) *FuncDef {
	shape, err := analyze(name, fn)
	return &FuncDef{opts: buildOptions(name, opts), shape: shape, err: err}
}

// InitInto installs the function as a read-only property of obj.
func (d *FuncDef) InitInto(ctx *runtime.Context, obj *runtime.Object) error {
	if d.opts.skip {
		return nil
	}
	if d.err != nil {
		return errors.Registration(errors.PhaseInstall, "", d.opts.name, d.err)
	}
	name, shape := d.opts.name, d.shape
	raw, ok := ctx.Realm().NewFunction(name, shape.required, func(r *engine.Realm, this engine.RawValue, raws []engine.RawValue) engine.RawValue {
		if len(raws) < shape.required {
			return ctx.ThrowError(errors.MissingArgument(name, len(raws), len(raws), shape.required))
		}
		args := borrowAll(ctx, raws)
		in, derr := shape.decodeArgs(ctx, args)
		if derr != nil {
			return ctx.ThrowError(derr)
		}
		return shape.encodeResult(ctx, shape.fn.Call(in))
	})
	if !ok {
		return errors.AllocationFailed(errors.PhaseInstall, "function "+name)
	}
	return installProperty(ctx, obj, name, raw, false)
}

func borrowAll(ctx *runtime.Context, raws []engine.RawValue) []*runtime.Value {
	args := make([]*runtime.Value, len(raws))
	for i := range raws {
		args[i] = ctx.BorrowRaw(raws[i])
	}
	return args
}

// installProperty adopts raw and stores it on obj, read-only unless
// writable is set.
func installProperty(ctx *runtime.Context, obj *runtime.Object, name string, raw engine.RawValue, writable bool) error {
	v := ctx.AdoptRaw(raw)
	var err error
	if writable {
		err = obj.Set(name, v)
	} else {
		err = obj.SetConst(name, v)
	}
	if err != nil {
		v.Free()
		return errors.Registration(errors.PhaseInstall, "", name, err)
	}
	return nil
}
