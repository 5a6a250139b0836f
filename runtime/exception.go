package runtime

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
)

// exceptionError drains the pending exception and wraps it as a host error.
// It must be called immediately after the raw operation that failed; the
// slot never stays occupied across another boundary call.
func (c *Context) exceptionError() error {
	raw, ok := c.realm.TakeException()
	if !ok {
		return errors.New(errors.PhaseRuntime, errors.KindEngineException).
			Detail("operation failed without a pending exception").
			Build()
	}
	defer c.rt.eng.Release(raw)

	name := ""
	message := ""
	switch raw.Tag() {
	case engine.TagObject:
		name = c.stringProp(raw, "name")
		message = c.stringProp(raw, "message")
	case engine.TagString:
		message, _ = c.realm.StringData(raw)
	default:
		message, _ = engine.PrimString(raw)
	}
	c.rt.log.Debug("engine exception bridged",
		zap.String("name", name), zap.String("message", message))
	return errors.Exception(message, name)
}

func (c *Context) stringProp(obj engine.RawValue, key string) string {
	kv, ok := c.realm.NewString(key)
	if !ok {
		return ""
	}
	a, ok := c.realm.ValueToAtom(kv)
	c.rt.eng.Release(kv)
	if !ok {
		c.dropPending()
		return ""
	}
	defer c.rt.eng.FreeAtom(a)
	pv, ok := c.realm.GetProperty(obj, a)
	if !ok {
		c.dropPending()
		return ""
	}
	defer c.rt.eng.Release(pv)
	s, _ := c.realm.StringData(pv)
	return s
}

// dropPending discards a pending exception, releasing the drained value.
func (c *Context) dropPending() {
	if raw, ok := c.realm.TakeException(); ok {
		c.rt.eng.Release(raw)
	}
}

// boundaryError resolves a failed raw call into either the pending engine
// exception or an allocation failure.
func (c *Context) boundaryError(op string) error {
	if c.realm.HasPending() {
		return c.exceptionError()
	}
	return errors.AllocationFailed(errors.PhaseRuntime, op)
}

// wrapResult adopts the result of a raw call, bridging failure to an error.
func (c *Context) wrapResult(raw engine.RawValue, ok bool, op string) (*Value, error) {
	if !ok {
		return nil, c.boundaryError(op)
	}
	return c.adoptRaw(raw), nil
}

// ThrowError converts a host error into a pending engine exception and
// returns the exception sentinel. Trampolines call this when host logic
// fails so script-side callers observe an ordinary catchable exception.
func (c *Context) ThrowError(err error) engine.RawValue {
	name := "Error"
	message := err.Error()
	var se *errors.Error
	if stderrors.As(err, &se) {
		switch se.Kind {
		case errors.KindTypeMismatch, errors.KindMissingArgument:
			name = "TypeError"
		case errors.KindAllocation:
			name = "InternalError"
		}
		if se.Kind == errors.KindEngineException && se.Detail != "" {
			// Re-throwing a bridged exception: keep its message clean.
			message = se.Detail
			if se.Actual != "" {
				name = se.Actual
			}
		}
	}
	obj, ok := c.realm.NewError(name, message)
	if !ok {
		obj = engine.Undefined()
	}
	return c.realm.Throw(obj)
}

// ThrowValue throws an arbitrary value, consuming it.
func (c *Context) ThrowValue(v *Value) engine.RawValue {
	return c.realm.Throw(v.IntoRaw())
}
