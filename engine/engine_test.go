package engine

import "testing"

func newTestRealm(t *testing.T) *Realm {
	t.Helper()
	r, ok := New().NewRealm()
	if !ok {
		t.Fatal("NewRealm failed")
	}
	return r
}

func TestRefCounting(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()
	base := e.Live()

	s, ok := r.NewString("hello")
	if !ok {
		t.Fatal("NewString failed")
	}
	if e.RefCount(s) != 1 {
		t.Errorf("RefCount = %d, want 1", e.RefCount(s))
	}

	e.Retain(s)
	if e.RefCount(s) != 2 {
		t.Errorf("RefCount after retain = %d, want 2", e.RefCount(s))
	}

	e.Release(s)
	e.Release(s)
	if e.Live() != base {
		t.Errorf("Live = %d, want %d", e.Live(), base)
	}
	if e.RefCount(s) != 0 {
		t.Errorf("RefCount after free = %d, want 0", e.RefCount(s))
	}
}

func TestFreeReleasesProperties(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()
	base := e.Live()

	obj, _ := r.NewObject()
	s, _ := r.NewString("payload")

	a := e.internAtom("k")
	if !r.SetProperty(obj, a, s) {
		t.Fatal("SetProperty failed")
	}
	e.FreeAtom(a)

	// The set consumed our reference to s; the object holds the only one.
	if e.RefCount(s) != 1 {
		t.Errorf("RefCount(s) = %d, want 1", e.RefCount(s))
	}

	e.Release(obj)
	if e.Live() != base {
		t.Errorf("Live after releasing object = %d, want %d", e.Live(), base)
	}
}

func TestHandleReuse(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()

	a, _ := r.NewString("a")
	h := a.Ref()
	e.Release(a)

	b, _ := r.NewString("b")
	if b.Ref() != h {
		t.Errorf("freed handle not reused: got %d, want %d", b.Ref(), h)
	}
	if s, _ := r.StringData(b); s != "b" {
		t.Errorf("StringData = %q, want %q", s, "b")
	}
	e.Release(b)
}

func TestAllocationBudget(t *testing.T) {
	e := NewWithOptions(Options{MaxHeapCells: 2})
	r, ok := e.NewRealm()
	if !ok {
		t.Fatal("NewRealm failed")
	}

	// The global object occupies one cell.
	if _, ok := r.NewObject(); !ok {
		t.Fatal("second cell should fit")
	}
	if _, ok := r.NewString("over"); ok {
		t.Error("allocation past the budget should fail")
	}
	if r.HasPending() {
		t.Error("allocation failure must not set a pending exception")
	}
}

func TestAtomIntern(t *testing.T) {
	e := New()

	a1 := e.internAtom("key")
	a2 := e.internAtom("key")
	if a1 != a2 {
		t.Errorf("interning same string gave %d and %d", a1, a2)
	}
	if e.LiveAtoms() != 1 {
		t.Errorf("LiveAtoms = %d, want 1", e.LiveAtoms())
	}

	e.FreeAtom(a1)
	if e.LiveAtoms() != 1 {
		t.Error("atom freed while a reference remains")
	}
	e.FreeAtom(a2)
	if e.LiveAtoms() != 0 {
		t.Errorf("LiveAtoms after free = %d, want 0", e.LiveAtoms())
	}
}

func TestPropertyRoundTrip(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()

	obj, _ := r.NewObject()
	defer e.Release(obj)

	a := e.internAtom("x")
	defer e.FreeAtom(a)

	if !r.SetProperty(obj, a, Int(42)) {
		t.Fatal("SetProperty failed")
	}

	got, ok := r.GetProperty(obj, a)
	if !ok {
		t.Fatal("GetProperty failed")
	}
	if got.Tag() != TagInt || got.Int() != 42 {
		t.Errorf("got %v %d, want int 42", got.Tag(), got.Int())
	}

	has, ok := r.HasProperty(obj, a)
	if !ok || !has {
		t.Error("HasProperty = false, want true")
	}

	if !r.DeleteProperty(obj, a, false) {
		t.Fatal("DeleteProperty failed")
	}
	got, ok = r.GetProperty(obj, a)
	if !ok || got.Tag() != TagUndefined {
		t.Errorf("deleted property reads as %v, want undefined", got.Tag())
	}
}

func TestIndexAndAtomAccessAgree(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()

	obj, _ := r.NewObject()
	defer e.Release(obj)

	s, _ := r.NewString("a")
	if !r.SetIndex(obj, 3, s) {
		t.Fatal("SetIndex failed")
	}

	a := e.internAtom("3")
	defer e.FreeAtom(a)
	got, ok := r.GetProperty(obj, a)
	if !ok {
		t.Fatal("GetProperty failed")
	}
	defer e.Release(got)
	if text, _ := r.StringData(got); text != "a" {
		t.Errorf(`GetProperty("3") = %q, want "a"`, text)
	}

	got2, ok := r.GetIndex(obj, 3)
	if !ok {
		t.Fatal("GetIndex failed")
	}
	defer e.Release(got2)
	if got2.Ref() != got.Ref() {
		t.Error("indexed and atom access observed different properties")
	}
}

func TestReadOnlyProperty(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()

	obj, _ := r.NewObject()
	defer e.Release(obj)

	a := e.internAtom("pi")
	defer e.FreeAtom(a)

	if !r.DefineConst(obj, a, Float(3.14)) {
		t.Fatal("DefineConst failed")
	}

	if r.SetProperty(obj, a, Int(4)) {
		t.Error("write to read-only property should fail")
	}
	if _, ok := r.TakeException(); !ok {
		t.Error("failed write should leave a pending exception")
	}

	if r.DeleteProperty(obj, a, true) {
		t.Error("delete of read-only property with throw flag should fail")
	}
	if _, ok := r.TakeException(); !ok {
		t.Error("throwing delete should leave a pending exception")
	}

	// Without the throw flag the delete is ignored.
	if !r.DeleteProperty(obj, a, false) {
		t.Error("non-throwing delete should report success")
	}
	got, _ := r.GetProperty(obj, a)
	if got.Tag() != TagFloat {
		t.Error("read-only property was deleted")
	}
}

func TestExceptionSlot(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()

	if r.HasPending() {
		t.Fatal("fresh realm has pending exception")
	}

	errObj, _ := r.NewError("RangeError", "out of range")
	res := r.Throw(errObj)
	if !res.IsException() {
		t.Error("Throw should return the exception sentinel")
	}
	if !r.HasPending() {
		t.Fatal("no pending exception after Throw")
	}

	exc, ok := r.TakeException()
	if !ok {
		t.Fatal("TakeException returned nothing")
	}
	if r.HasPending() {
		t.Error("pending slot not cleared by TakeException")
	}

	a := e.internAtom("message")
	msg, _ := r.GetProperty(exc, a)
	e.FreeAtom(a)
	if s, _ := r.StringData(msg); s != "out of range" {
		t.Errorf("exception message = %q", s)
	}
	e.Release(msg)
	e.Release(exc)
}

func TestCall(t *testing.T) {
	r := newTestRealm(t)
	e := r.Engine()

	fn, ok := r.NewFunction("double", 1, func(rm *Realm, this RawValue, args []RawValue) RawValue {
		if len(args) < 1 || args[0].Tag() != TagInt {
			return rm.ThrowTypeError("expected an int")
		}
		return Int(args[0].Int() * 2)
	})
	if !ok {
		t.Fatal("NewFunction failed")
	}
	defer e.Release(fn)

	res, ok := r.Call(fn, Undefined(), []RawValue{Int(21)})
	if !ok {
		t.Fatal("Call failed")
	}
	if res.Int() != 42 {
		t.Errorf("result = %d, want 42", res.Int())
	}

	_, ok = r.Call(fn, Undefined(), nil)
	if ok {
		t.Fatal("call with bad args should fail")
	}
	if _, ok := r.TakeException(); !ok {
		t.Error("failed call should leave a pending exception")
	}

	_, ok = r.Call(Int(1), Undefined(), nil)
	if ok {
		t.Error("calling a non-function should fail")
	}
	r.TakeException()
}

func TestJobQueue(t *testing.T) {
	e := New()

	var order []int
	e.EnqueueJob(func() { order = append(order, 1) })
	e.EnqueueJob(func() { order = append(order, 2) })

	if e.PendingJobs() != 2 {
		t.Errorf("PendingJobs = %d, want 2", e.PendingJobs())
	}
	for e.ExecutePendingJob() {
	}
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("jobs ran out of order: %v", order)
	}
	if e.ExecutePendingJob() {
		t.Error("ExecutePendingJob on empty queue should report false")
	}
}
