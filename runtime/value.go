package runtime

import (
	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
)

type valueState uint8

const (
	stateOwned valueState = iota
	stateBorrowed
	stateConsumed
)

// Value wraps one engine value. Heap-backed values own exactly one engine
// reference until Free or a consuming operation transfers it.
type Value struct {
	ctx   *Context
	raw   engine.RawValue
	state valueState
}

// adoptRaw wraps a raw value whose owning reference the caller transfers in.
func (c *Context) adoptRaw(raw engine.RawValue) *Value {
	return &Value{ctx: c, raw: raw}
}

// borrowRaw wraps a raw value without taking a reference; Free is a no-op.
// Used for trampoline arguments, which the engine owns for the call.
func (c *Context) borrowRaw(raw engine.RawValue) *Value {
	return &Value{ctx: c, raw: raw, state: stateBorrowed}
}

// AdoptRaw takes ownership of a raw engine value. The caller asserts the raw
// value is alive, belongs to this context's engine, and carries exactly one
// reference that is being transferred in.
func (c *Context) AdoptRaw(raw engine.RawValue) *Value { return c.adoptRaw(raw) }

// BorrowRaw wraps a raw engine value the engine still owns, for the duration
// of a native call.
func (c *Context) BorrowRaw(raw engine.RawValue) *Value { return c.borrowRaw(raw) }

// Undefined returns the undefined value.
func (c *Context) Undefined() *Value { return c.adoptRaw(engine.Undefined()) }

// Null returns the null value.
func (c *Context) Null() *Value { return c.adoptRaw(engine.Null()) }

// Bool returns a boolean value.
func (c *Context) Bool(b bool) *Value { return c.adoptRaw(engine.Boolean(b)) }

// Int returns an integer value.
func (c *Context) Int(n int64) *Value { return c.adoptRaw(engine.Int(n)) }

// Float returns a float value.
func (c *Context) Float(f float64) *Value { return c.adoptRaw(engine.Float(f)) }

// String allocates a string value.
func (c *Context) String(s string) (*Value, error) {
	raw, ok := c.realm.NewString(s)
	if !ok {
		return nil, errors.AllocationFailed(errors.PhaseEncode, "string")
	}
	return c.adoptRaw(raw), nil
}

// NewObject allocates an empty object.
func (c *Context) NewObject() (*Object, error) {
	raw, ok := c.realm.NewObject()
	if !ok {
		return nil, errors.AllocationFailed(errors.PhaseEncode, "object")
	}
	return &Object{v: c.adoptRaw(raw)}, nil
}

// NewArray allocates an empty array.
func (c *Context) NewArray() (*Object, error) {
	raw, ok := c.realm.NewArray()
	if !ok {
		return nil, errors.AllocationFailed(errors.PhaseEncode, "array")
	}
	return &Object{v: c.adoptRaw(raw)}, nil
}

// Context returns the context the value belongs to.
func (v *Value) Context() *Context { return v.ctx }

// Raw returns the underlying raw value without affecting ownership.
func (v *Value) Raw() engine.RawValue { return v.live() }

func (v *Value) live() engine.RawValue {
	if v.state == stateConsumed {
		panic("runtime: value used after ownership was transferred or freed")
	}
	return v.raw
}

// Kind returns the value's tag.
func (v *Value) Kind() engine.Tag { return v.live().Tag() }

// IsUndefined reports whether the value is undefined.
func (v *Value) IsUndefined() bool { return v.Kind() == engine.TagUndefined }

// IsNull reports whether the value is null.
func (v *Value) IsNull() bool { return v.Kind() == engine.TagNull }

// AsBool returns the boolean payload if the value is a bool.
func (v *Value) AsBool() (bool, bool) {
	raw := v.live()
	if raw.Tag() != engine.TagBool {
		return false, false
	}
	return raw.Bool(), true
}

// AsInt returns the integer payload if the value is an int.
func (v *Value) AsInt() (int64, bool) {
	raw := v.live()
	if raw.Tag() != engine.TagInt {
		return 0, false
	}
	return raw.Int(), true
}

// AsFloat returns the float payload if the value is a float.
func (v *Value) AsFloat() (float64, bool) {
	raw := v.live()
	if raw.Tag() != engine.TagFloat {
		return 0, false
	}
	return raw.Float(), true
}

// AsString returns the string contents if the value is a string.
func (v *Value) AsString() (string, bool) {
	raw := v.live()
	if raw.Tag() != engine.TagString {
		return "", false
	}
	return v.ctx.realm.StringData(raw)
}

// ToString renders the value the way the engine stringifies it. Objects have
// no implicit stringification and return a type mismatch error.
func (v *Value) ToString() (string, error) {
	raw := v.live()
	if s, ok := v.ctx.realm.StringData(raw); ok {
		return s, nil
	}
	if s, ok := engine.PrimString(raw); ok {
		return s, nil
	}
	return "", errors.TypeMismatch(errors.PhaseDecode, nil, "string", raw.Tag().String())
}

// Object narrows the value to an object. The returned Object shares this
// Value's ownership.
func (v *Value) Object() (*Object, error) {
	switch v.Kind() {
	case engine.TagObject, engine.TagArray, engine.TagFunction:
		return &Object{v: v}, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseDecode, nil, "object", v.Kind().String())
}

// Clone returns a new Value owning its own engine reference.
func (v *Value) Clone() *Value {
	raw := v.live()
	return v.ctx.adoptRaw(v.ctx.rt.eng.Retain(raw))
}

// Free releases the value's engine reference. Safe to call more than once;
// borrowed values are unaffected.
func (v *Value) Free() {
	if v.state != stateOwned {
		if v.state == stateBorrowed {
			v.state = stateConsumed
		}
		return
	}
	v.ctx.rt.eng.Release(v.raw)
	v.state = stateConsumed
}

// IntoRaw transfers the value's owning reference to the caller. The Value is
// dead afterwards; its Free must not release.
func (v *Value) IntoRaw() engine.RawValue {
	raw := v.live()
	if v.state == stateBorrowed {
		panic("runtime: cannot transfer ownership out of a borrowed value")
	}
	v.state = stateConsumed
	return raw
}

// forget neutralizes the value after a consuming engine call succeeded.
func (v *Value) forget() {
	v.live()
	v.state = stateConsumed
}
