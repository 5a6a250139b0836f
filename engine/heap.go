package engine

import "strconv"

// NativeFunc is the trampoline signature the engine invokes for bound host
// functions. Arguments are borrowed; the returned value is owned by the
// caller, or the exception sentinel after the trampoline set a pending
// exception on the realm.
type NativeFunc func(r *Realm, this RawValue, args []RawValue) RawValue

type propEntry struct {
	val      RawValue
	readOnly bool
}

// propTable stores properties in insertion order.
type propTable struct {
	keys    []string
	entries map[string]propEntry
}

func newPropTable() *propTable {
	return &propTable{entries: make(map[string]propEntry)}
}

func (p *propTable) get(key string) (propEntry, bool) {
	e, ok := p.entries[key]
	return e, ok
}

func (p *propTable) set(key string, e propEntry) {
	if _, ok := p.entries[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.entries[key] = e
}

func (p *propTable) remove(key string) (propEntry, bool) {
	e, ok := p.entries[key]
	if !ok {
		return propEntry{}, false
	}
	delete(p.entries, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
	return e, true
}

// cell is one heap allocation. A cell is alive while refs > 0.
type cell struct {
	refs    int32
	kind    Tag // TagString, TagObject, TagArray, TagFunction
	str     string
	props   *propTable
	fn      NativeFunc
	fnName  string
	fnArity int
	opaque  any
	promise *promiseState
}

// alloc reserves a heap cell with one owning reference.
func (e *Engine) alloc(kind Tag) (Handle, bool) {
	if e.maxCells > 0 && e.live >= e.maxCells {
		return 0, false
	}

	c := cell{refs: 1, kind: kind}
	e.live++

	if len(e.freeCells) > 0 {
		h := e.freeCells[len(e.freeCells)-1]
		e.freeCells = e.freeCells[:len(e.freeCells)-1]
		e.cells[h] = c
		return h, true
	}

	e.cells = append(e.cells, c)
	return Handle(len(e.cells) - 1), true
}

func (e *Engine) cell(h Handle) *cell {
	if h == 0 || int(h) >= len(e.cells) {
		return nil
	}
	c := &e.cells[h]
	if c.refs == 0 {
		return nil
	}
	return c
}

// Retain increments the reference count of a heap-backed value.
// Primitives pass through unchanged.
func (e *Engine) Retain(v RawValue) RawValue {
	if c := e.cell(v.ref); c != nil {
		c.refs++
	}
	return v
}

// Release decrements the reference count of a heap-backed value, freeing the
// cell and everything it owns when the count reaches zero. Releasing a
// primitive is a no-op.
func (e *Engine) Release(v RawValue) {
	c := e.cell(v.ref)
	if c == nil {
		return
	}
	c.refs--
	if c.refs > 0 {
		return
	}
	e.free(v.ref, c)
}

func (e *Engine) free(h Handle, c *cell) {
	if c.props != nil {
		for _, k := range c.props.keys {
			e.Release(c.props.entries[k].val)
		}
		c.props = nil
	}
	if c.promise != nil {
		if c.promise.state != promisePending {
			e.Release(c.promise.result)
		}
		c.promise.dead = true
		c.promise = nil
	}
	c.str = ""
	c.fn = nil
	c.opaque = nil
	e.live--
	e.freeCells = append(e.freeCells, h)
}

// RefCount reports the current reference count of a heap value, or 0 for
// primitives and dead handles. Intended for leak diagnostics and tests.
func (e *Engine) RefCount(v RawValue) int {
	if c := e.cell(v.ref); c != nil {
		return int(c.refs)
	}
	return 0
}

// Live reports the number of live heap cells.
func (e *Engine) Live() int { return e.live }

// arrayLen computes the length of an array cell: highest integer key + 1.
func arrayLen(p *propTable) int64 {
	var n int64
	for _, k := range p.keys {
		idx, err := strconv.ParseInt(k, 10, 64)
		if err == nil && idx >= n {
			n = idx + 1
		}
	}
	return n
}
