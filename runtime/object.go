package runtime

import (
	"fmt"

	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
)

// Object is a Value narrowed to a heap object. It supports keyed access.
type Object struct {
	v *Value
}

// Value returns the object as a plain value, sharing ownership.
func (o *Object) Value() *Value { return o.v }

// Free releases the object's engine reference.
func (o *Object) Free() { o.v.Free() }

// IsFunction reports whether the object is callable.
func (o *Object) IsFunction() bool {
	return o.v.ctx.realm.IsFunction(o.v.live())
}

// IsArray reports whether the object is an array.
func (o *Object) IsArray() bool {
	return o.v.ctx.realm.IsArray(o.v.live())
}

// index extracts the fast-path index from a key, if it has one. Indexed
// access skips atom interning; both paths observe the same property.
func index(key any) (uint32, bool) {
	switch k := key.(type) {
	case int:
		if k >= 0 {
			return uint32(k), true
		}
	case int64:
		if k >= 0 && k <= int64(^uint32(0)) {
			return uint32(k), true
		}
	case uint32:
		return k, true
	case *Value:
		if n, ok := k.AsInt(); ok && n >= 0 && n <= int64(^uint32(0)) {
			return uint32(n), true
		}
	}
	return 0, false
}

// atomKey interns the key as an atom. The caller must free it.
func (o *Object) atomKey(key any) (engine.Atom, error) {
	c := o.v.ctx
	realm := c.realm
	switch k := key.(type) {
	case string:
		kv, ok := realm.NewString(k)
		if !ok {
			return 0, errors.AllocationFailed(errors.PhaseRuntime, "property key")
		}
		a, ok := realm.ValueToAtom(kv)
		realm.Engine().Release(kv)
		if !ok {
			return 0, c.exceptionError()
		}
		return a, nil
	case int:
		return o.atomKey(int64(k))
	case int64:
		a, ok := realm.ValueToAtom(engine.Int(k))
		if !ok {
			return 0, c.exceptionError()
		}
		return a, nil
	case *Value:
		a, ok := realm.ValueToAtom(k.live())
		if !ok {
			return 0, c.exceptionError()
		}
		return a, nil
	default:
		return 0, errors.InvalidInput(errors.PhaseRuntime,
			fmt.Sprintf("unsupported property key type %T", key))
	}
}

// Get reads a property. Keys may be int, int64, uint32, string, or *Value;
// non-negative integers take the indexed fast path. Missing properties read
// as Undefined.
func (o *Object) Get(key any) (*Value, error) {
	c := o.v.ctx
	if idx, ok := index(key); ok {
		raw, ok := c.realm.GetIndex(o.v.live(), idx)
		return c.wrapResult(raw, ok, "get")
	}
	a, err := o.atomKey(key)
	if err != nil {
		return nil, err
	}
	defer c.realm.Engine().FreeAtom(a)
	raw, ok := c.realm.GetProperty(o.v.live(), a)
	return c.wrapResult(raw, ok, "get")
}

// Set writes a property. On success it consumes v's owning reference (the
// engine convention: setting a property takes one reference); on failure
// the caller keeps ownership and must still Free v.
func (o *Object) Set(key any, v *Value) error {
	c := o.v.ctx
	if idx, ok := index(key); ok {
		if !c.realm.SetIndex(o.v.live(), idx, v.live()) {
			return c.boundaryError("set")
		}
		v.forget()
		return nil
	}
	a, err := o.atomKey(key)
	if err != nil {
		return err
	}
	defer c.realm.Engine().FreeAtom(a)
	if !c.realm.SetProperty(o.v.live(), a, v.live()) {
		return c.boundaryError("set")
	}
	v.forget()
	return nil
}

// SetConst installs a read-only property, consuming v on success.
func (o *Object) SetConst(key any, v *Value) error {
	c := o.v.ctx
	a, err := o.atomKey(key)
	if err != nil {
		return err
	}
	defer c.realm.Engine().FreeAtom(a)
	if !c.realm.DefineConst(o.v.live(), a, v.live()) {
		return c.boundaryError("define")
	}
	v.forget()
	return nil
}

// Remove deletes a property, raising if the property resists deletion.
func (o *Object) Remove(key any) error {
	c := o.v.ctx
	a, err := o.atomKey(key)
	if err != nil {
		return err
	}
	defer c.realm.Engine().FreeAtom(a)
	if !c.realm.DeleteProperty(o.v.live(), a, true) {
		return c.boundaryError("remove")
	}
	return nil
}

// Has reports whether the object has the keyed property.
func (o *Object) Has(key any) (bool, error) {
	c := o.v.ctx
	a, err := o.atomKey(key)
	if err != nil {
		return false, err
	}
	defer c.realm.Engine().FreeAtom(a)
	found, ok := c.realm.HasProperty(o.v.live(), a)
	if !ok {
		return false, c.boundaryError("has")
	}
	return found, nil
}

// Keys returns the object's own property keys in insertion order.
func (o *Object) Keys() ([]string, error) {
	c := o.v.ctx
	keys, ok := c.realm.PropertyKeys(o.v.live())
	if !ok {
		return nil, c.boundaryError("keys")
	}
	return keys, nil
}

// Len returns an array's length.
func (o *Object) Len() (int64, error) {
	v, err := o.Get("length")
	if err != nil {
		return 0, err
	}
	defer v.Free()
	n, ok := v.AsInt()
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseRuntime, []string{"length"}, "int", v.Kind().String())
	}
	return n, nil
}

// Invoke calls the object as a function. Arguments are borrowed, not
// consumed; the result is a new owned value.
func (o *Object) Invoke(this *Value, args ...*Value) (*Value, error) {
	c := o.v.ctx
	rawArgs := make([]engine.RawValue, len(args))
	for i, a := range args {
		rawArgs[i] = a.live()
	}
	thisRaw := engine.Undefined()
	if this != nil {
		thisRaw = this.live()
	}
	raw, ok := c.realm.Call(o.v.live(), thisRaw, rawArgs)
	return c.wrapResult(raw, ok, "call")
}
