package engine

import (
	"fmt"
	"strconv"
)

// Realm is one isolated execution scope: a global object and a pending
// exception slot. All fallible raw operations go through a Realm so that a
// failed operation has a well-defined place to leave its exception.
//
// Values belong to the engine heap, not to a realm, but the library above
// never moves a value between realms.
type Realm struct {
	eng        *Engine
	global     RawValue
	pending    RawValue
	hasPending bool
}

// NewRealm creates a realm with a fresh global object. It fails only on
// allocation failure.
func (e *Engine) NewRealm() (*Realm, bool) {
	h, ok := e.alloc(TagObject)
	if !ok {
		return nil, false
	}
	e.cells[h].props = newPropTable()
	return &Realm{
		eng:    e,
		global: RawValue{tag: TagObject, ref: h},
	}, true
}

// Engine returns the engine this realm belongs to.
func (r *Realm) Engine() *Engine { return r.eng }

// Global returns a new owning reference to the realm's global object.
func (r *Realm) Global() RawValue {
	return r.eng.Retain(r.global)
}

// Close releases the realm's roots. The realm must not be used afterwards.
func (r *Realm) Close() {
	r.eng.Release(r.global)
	r.global = RawValue{}
	if r.hasPending {
		r.eng.Release(r.pending)
		r.hasPending = false
		r.pending = RawValue{}
	}
}

// Value construction. Each returns an owned reference; ok is false on
// allocation failure, which leaves no pending exception.

// NewString allocates a string cell.
func (r *Realm) NewString(s string) (RawValue, bool) {
	h, ok := r.eng.alloc(TagString)
	if !ok {
		return RawValue{}, false
	}
	r.eng.cells[h].str = s
	return RawValue{tag: TagString, ref: h}, true
}

// NewObject allocates an empty object.
func (r *Realm) NewObject() (RawValue, bool) {
	h, ok := r.eng.alloc(TagObject)
	if !ok {
		return RawValue{}, false
	}
	r.eng.cells[h].props = newPropTable()
	return RawValue{tag: TagObject, ref: h}, true
}

// NewArray allocates an empty array.
func (r *Realm) NewArray() (RawValue, bool) {
	h, ok := r.eng.alloc(TagArray)
	if !ok {
		return RawValue{}, false
	}
	r.eng.cells[h].props = newPropTable()
	return RawValue{tag: TagArray, ref: h}, true
}

// NewFunction allocates a native function object.
func (r *Realm) NewFunction(name string, arity int, fn NativeFunc) (RawValue, bool) {
	h, ok := r.eng.alloc(TagFunction)
	if !ok {
		return RawValue{}, false
	}
	c := &r.eng.cells[h]
	c.props = newPropTable()
	c.fn = fn
	c.fnName = name
	c.fnArity = arity
	return RawValue{tag: TagFunction, ref: h}, true
}

// NewError builds an error object with name and message properties.
func (r *Realm) NewError(name, message string) (RawValue, bool) {
	obj, ok := r.NewObject()
	if !ok {
		return RawValue{}, false
	}
	if !r.setStringProp(obj, "name", name) || !r.setStringProp(obj, "message", message) {
		r.eng.Release(obj)
		return RawValue{}, false
	}
	return obj, true
}

func (r *Realm) setStringProp(obj RawValue, key, s string) bool {
	sv, ok := r.NewString(s)
	if !ok {
		return false
	}
	a := r.eng.internAtom(key)
	defer r.eng.FreeAtom(a)
	if !r.SetProperty(obj, a, sv) {
		r.eng.Release(sv)
		return false
	}
	return true
}

// StringData returns the contents of a string cell.
func (r *Realm) StringData(v RawValue) (string, bool) {
	if v.tag != TagString {
		return "", false
	}
	c := r.eng.cell(v.ref)
	if c == nil {
		return "", false
	}
	return c.str, true
}

// IsFunction reports whether the value is callable.
func (r *Realm) IsFunction(v RawValue) bool { return v.tag == TagFunction }

// IsArray reports whether the value is an array.
func (r *Realm) IsArray(v RawValue) bool { return v.tag == TagArray }

// FunctionInfo returns the name and arity recorded for a function value.
func (r *Realm) FunctionInfo(v RawValue) (name string, arity int, ok bool) {
	if v.tag != TagFunction {
		return "", 0, false
	}
	c := r.eng.cell(v.ref)
	if c == nil {
		return "", 0, false
	}
	return c.fnName, c.fnArity, true
}

// ValueToAtom interns the value as a property key. Heap objects have no
// implicit stringification; interning one throws a TypeError.
func (r *Realm) ValueToAtom(v RawValue) (Atom, bool) {
	if s, ok := primString(v); ok {
		return r.eng.internAtom(s), true
	}
	if v.tag == TagString {
		s, ok := r.StringData(v)
		if !ok {
			r.ThrowTypeError("dead string handle")
			return 0, false
		}
		return r.eng.internAtom(s), true
	}
	r.ThrowTypeError("cannot use %s as a property key", v.tag)
	return 0, false
}

// AtomValue materializes an atom back into a string value.
func (r *Realm) AtomValue(a Atom) (RawValue, bool) {
	s, ok := r.eng.atomString(a)
	if !ok {
		r.ThrowTypeError("invalid atom")
		return RawValue{}, false
	}
	return r.NewString(s)
}

func (r *Realm) objectCell(obj RawValue) (*cell, bool) {
	switch obj.tag {
	case TagObject, TagArray, TagFunction:
	default:
		r.ThrowTypeError("cannot access properties of %s", obj.tag)
		return nil, false
	}
	c := r.eng.cell(obj.ref)
	if c == nil || c.props == nil {
		r.ThrowTypeError("dead object handle")
		return nil, false
	}
	return c, true
}

// GetProperty reads a property by atom. A missing property reads as
// Undefined. The result is a new owning reference.
func (r *Realm) GetProperty(obj RawValue, a Atom) (RawValue, bool) {
	key, ok := r.eng.atomString(a)
	if !ok {
		r.ThrowTypeError("invalid atom")
		return RawValue{}, false
	}
	return r.getKey(obj, key)
}

// GetIndex reads an integer-keyed property without atom interning. It is
// observably identical to GetProperty with the interned decimal form.
func (r *Realm) GetIndex(obj RawValue, idx uint32) (RawValue, bool) {
	return r.getKey(obj, strconv.FormatUint(uint64(idx), 10))
}

func (r *Realm) getKey(obj RawValue, key string) (RawValue, bool) {
	c, ok := r.objectCell(obj)
	if !ok {
		return RawValue{}, false
	}
	if c.kind == TagArray && key == "length" {
		return Int(arrayLen(c.props)), true
	}
	e, ok := c.props.get(key)
	if !ok {
		return Undefined(), true
	}
	return r.eng.Retain(e.val), true
}

// SetProperty writes a property by atom. On success it consumes the caller's
// reference to v; on failure ownership stays with the caller.
func (r *Realm) SetProperty(obj RawValue, a Atom, v RawValue) bool {
	key, ok := r.eng.atomString(a)
	if !ok {
		r.ThrowTypeError("invalid atom")
		return false
	}
	return r.setKey(obj, key, v, false)
}

// SetIndex writes an integer-keyed property. Same ownership contract as
// SetProperty.
func (r *Realm) SetIndex(obj RawValue, idx uint32, v RawValue) bool {
	return r.setKey(obj, strconv.FormatUint(uint64(idx), 10), v, false)
}

// DefineConst installs a read-only property, consuming v on success.
func (r *Realm) DefineConst(obj RawValue, a Atom, v RawValue) bool {
	key, ok := r.eng.atomString(a)
	if !ok {
		r.ThrowTypeError("invalid atom")
		return false
	}
	return r.setKey(obj, key, v, true)
}

func (r *Realm) setKey(obj RawValue, key string, v RawValue, readOnly bool) bool {
	c, ok := r.objectCell(obj)
	if !ok {
		return false
	}
	if old, exists := c.props.get(key); exists {
		if old.readOnly {
			r.ThrowTypeError("property %q is read-only", key)
			return false
		}
		r.eng.Release(old.val)
	}
	c.props.set(key, propEntry{val: v, readOnly: readOnly})
	return true
}

// DeleteProperty removes a property. Read-only properties are not removable:
// with throwFlag set that raises a TypeError, otherwise the delete is
// silently ignored. Deleting a missing property succeeds.
func (r *Realm) DeleteProperty(obj RawValue, a Atom, throwFlag bool) bool {
	key, ok := r.eng.atomString(a)
	if !ok {
		r.ThrowTypeError("invalid atom")
		return false
	}
	c, ok := r.objectCell(obj)
	if !ok {
		return false
	}
	e, exists := c.props.get(key)
	if !exists {
		return true
	}
	if e.readOnly {
		if throwFlag {
			r.ThrowTypeError("cannot delete read-only property %q", key)
			return false
		}
		return true
	}
	c.props.remove(key)
	r.eng.Release(e.val)
	return true
}

// HasProperty reports whether the object has the keyed property.
func (r *Realm) HasProperty(obj RawValue, a Atom) (bool, bool) {
	key, ok := r.eng.atomString(a)
	if !ok {
		r.ThrowTypeError("invalid atom")
		return false, false
	}
	c, ok := r.objectCell(obj)
	if !ok {
		return false, false
	}
	_, exists := c.props.get(key)
	return exists, true
}

// PropertyKeys returns the object's own keys in insertion order.
func (r *Realm) PropertyKeys(obj RawValue) ([]string, bool) {
	c, ok := r.objectCell(obj)
	if !ok {
		return nil, false
	}
	keys := make([]string, len(c.props.keys))
	copy(keys, c.props.keys)
	return keys, true
}

// SetOpaque attaches host data to an object cell.
func (r *Realm) SetOpaque(obj RawValue, data any) bool {
	c, ok := r.objectCell(obj)
	if !ok {
		return false
	}
	c.opaque = data
	return true
}

// Opaque reads host data attached to an object cell.
func (r *Realm) Opaque(obj RawValue) (any, bool) {
	c, ok := r.objectCell(obj)
	if !ok {
		return nil, false
	}
	return c.opaque, true
}

// Throw sets the pending exception, consuming v, and returns the exception
// sentinel. A previous pending exception is released; the bridge above
// drains the slot after every failing call, so overwrite is a host bug
// rather than a script-visible state.
func (r *Realm) Throw(v RawValue) RawValue {
	if r.hasPending {
		r.eng.Release(r.pending)
	}
	r.pending = v
	r.hasPending = true
	return Exception()
}

// ThrowTypeError builds and throws a TypeError-shaped error object.
func (r *Realm) ThrowTypeError(format string, args ...any) RawValue {
	return r.throwNamed("TypeError", fmt.Sprintf(format, args...))
}

func (r *Realm) throwNamed(name, message string) RawValue {
	obj, ok := r.NewError(name, message)
	if !ok {
		// Out of heap while building the error itself. Fall back to a
		// primitive so the pending slot is still set.
		obj = Undefined()
	}
	return r.Throw(obj)
}

// HasPending reports whether an exception is pending.
func (r *Realm) HasPending() bool { return r.hasPending }

// TakeException drains the pending slot, transferring ownership of the
// thrown value to the caller. ok is false when nothing is pending.
func (r *Realm) TakeException() (RawValue, bool) {
	if !r.hasPending {
		return RawValue{}, false
	}
	v := r.pending
	r.pending = RawValue{}
	r.hasPending = false
	return v, true
}

// Call invokes a function value. Arguments are borrowed; the result is a new
// owning reference. ok is false when the call threw, leaving the exception
// pending.
func (r *Realm) Call(fn, this RawValue, args []RawValue) (RawValue, bool) {
	if fn.tag != TagFunction {
		r.ThrowTypeError("%s is not a function", fn.tag)
		return RawValue{}, false
	}
	c := r.eng.cell(fn.ref)
	if c == nil || c.fn == nil {
		r.ThrowTypeError("dead function handle")
		return RawValue{}, false
	}
	res := c.fn(r, this, args)
	if res.IsException() {
		return RawValue{}, false
	}
	return res, true
}
