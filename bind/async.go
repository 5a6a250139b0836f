package bind

import (
	stderrors "errors"
	"reflect"

	"github.com/wippyai/script-bridge/convert"
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/runtime"
)

// AsyncFuncDef binds a Go function that runs off the engine goroutine and
// settles a promise.
type AsyncFuncDef struct {
	opts  options
	shape *funcShape
	err   *errors.Error
}

// AsyncFunc declares an asynchronous function binding. The function must
// not take a *runtime.Context parameter: it runs on its own goroutine and
// the context stays confined to the engine goroutine. A plain
// context.Context parameter is allowed.
func AsyncFunc(name string, fn any, opts ...Option) *AsyncFuncDef {
	shape, err := analyze(name, fn)
	if err == nil && shape.wantsCtx {
		err = errors.New(errors.PhaseBind, errors.KindInvalidInput).
			Path(name).
			Detail("async functions cannot take a context parameter").
			Build()
		shape = nil
	}
	return &AsyncFuncDef{opts: buildOptions(name, opts), shape: shape, err: err}
}

// InitInto installs the function as a read-only property of obj. Calling it
// returns a promise; settlement happens when the host drains pending jobs.
func (d *AsyncFuncDef) InitInto(ctx *runtime.Context, obj *runtime.Object) error {
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
		// Arguments are decoded here, on the engine goroutine; only plain
		// Go values cross into the worker.
		args := borrowAll(ctx, raws)
		in, derr := shape.decodeArgs(ctx, args)
		if derr != nil {
			return ctx.ThrowError(derr)
		}

		promise, resolve, reject, ok := r.NewPromise()
		if !ok {
			return ctx.ThrowError(errors.AllocationFailed(errors.PhaseCall, "promise for "+name))
		}

		ctx.Runtime().Async(func() func() {
			out := shape.fn.Call(in)
			return func() {
				settle(ctx, shape, resolve, reject, out)
			}
		})
		return promise
	})
	if !ok {
		return errors.AllocationFailed(errors.PhaseInstall, "function "+name)
	}
	return installProperty(ctx, obj, name, raw, false)
}

// settle runs on the engine goroutine and consumes the resolve and reject
// handles.
func settle(ctx *runtime.Context, shape *funcShape, resolve, reject engine.RawValue, out []reflect.Value) {
	r := ctx.Realm()
	eng := r.Engine()
	defer eng.Release(resolve)
	defer eng.Release(reject)

	invoke := func(fn engine.RawValue, arg engine.RawValue) {
		res, _ := r.Call(fn, engine.Undefined(), []engine.RawValue{arg})
		eng.Release(res)
		eng.Release(arg)
	}

	if shape.hasErr {
		if errVal := out[len(out)-1]; !errVal.IsNil() {
			invoke(reject, errorValue(ctx, errVal.Interface().(error)))
			return
		}
	}
	if !shape.hasValue {
		invoke(resolve, engine.Undefined())
		return
	}
	v, err := convert.Encode(ctx, out[0].Interface())
	if err != nil {
		invoke(reject, errorValue(ctx, err))
		return
	}
	invoke(resolve, v.IntoRaw())
}

// errorValue builds an error object for a rejection, falling back to
// Undefined when the heap is exhausted.
func errorValue(ctx *runtime.Context, err error) engine.RawValue {
	name, message := "Error", err.Error()
	var e *errors.Error
	if stderrors.As(err, &e) {
		switch e.Kind {
		case errors.KindTypeMismatch, errors.KindMissingArgument, errors.KindOverflow, errors.KindInvalidUnion:
			name = "TypeError"
		case errors.KindEngineException:
			if e.Actual != "" {
				name = e.Actual
			}
			message = e.Detail
		}
	}
	raw, ok := ctx.Realm().NewError(name, message)
	if !ok {
		return engine.Undefined()
	}
	return raw
}
