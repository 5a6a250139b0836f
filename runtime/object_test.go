package runtime

import (
	"errors"
	"testing"

	scripterrors "github.com/wippyai/script-bridge/errors"
)

// Mirrors the canonical boundary scenario: an object {a: 3} with a numeric
// key set from the host side, read back through both key paths.
func TestObjectScenario(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	obj, err := ctx.NewObject()
	if err != nil {
		t.Fatal(err)
	}
	defer obj.Free()

	if err := obj.Set("a", ctx.Int(3)); err != nil {
		t.Fatal(err)
	}
	sv, _ := ctx.String("a")
	if err := obj.Set(3, sv); err != nil {
		t.Fatal(err)
	}

	// get(Int(3)) decodes to the string "a".
	v, err := obj.Get(ctx.Int(3))
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := v.AsString(); !ok || s != "a" {
		t.Errorf(`Get(Int(3)) = %q, want "a"`, s)
	}
	v.Free()

	// get("a") decodes to the int 3, and to the string "3" by coercion.
	v, err = obj.Get("a")
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := v.AsInt(); !ok || n != 3 {
		t.Errorf(`Get("a") = %d, want 3`, n)
	}
	if s, err := v.ToString(); err != nil || s != "3" {
		t.Errorf(`Get("a").ToString() = %q (%v), want "3"`, s, err)
	}
	v.Free()

	// Removing an absent key succeeds, and the read yields Undefined.
	if err := obj.Remove("hallo"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	v, err = obj.Get("hallo")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsUndefined() {
		t.Errorf("Get after Remove = %v, want undefined", v.Kind())
	}
	v.Free()
}

func TestNumericAndStringKeysAgree(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	obj, _ := ctx.NewObject()
	defer obj.Free()

	sv, _ := ctx.String("payload")
	if err := obj.Set("3", sv); err != nil {
		t.Fatal(err)
	}

	byIndex, err := obj.Get(3)
	if err != nil {
		t.Fatal(err)
	}
	defer byIndex.Free()
	byName, err := obj.Get("3")
	if err != nil {
		t.Fatal(err)
	}
	defer byName.Free()

	s1, _ := byIndex.AsString()
	s2, _ := byName.AsString()
	if s1 != "payload" || s2 != "payload" {
		t.Errorf("fast path %q, atom path %q, want both %q", s1, s2, "payload")
	}
}

func TestSetConsumesOnlyOnSuccess(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()
	eng := ctx.Runtime().Engine()
	base := eng.Live()

	obj, _ := ctx.NewObject()

	if err := obj.SetConst("k", ctx.Int(1)); err != nil {
		t.Fatal(err)
	}

	// Writing over a read-only property fails; ownership must stay with us.
	sv, _ := ctx.String("rejected")
	err := obj.Set("k", sv)
	if err == nil {
		t.Fatal("write over read-only property should fail")
	}
	if !errors.Is(err, &scripterrors.Error{Phase: scripterrors.PhaseRuntime, Kind: scripterrors.KindEngineException}) {
		t.Errorf("error = %v, want engine_exception", err)
	}
	sv.Free() // we still own it; this must not double-release

	obj.Free()
	if eng.Live() != base {
		t.Errorf("Live = %d, want %d", eng.Live(), base)
	}
}

func TestOwnershipBalanceAcrossOperations(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()
	eng := ctx.Runtime().Engine()
	base := eng.Live()

	obj, _ := ctx.NewObject()
	for i := 0; i < 8; i++ {
		s, _ := ctx.String("str")
		if err := obj.Set(i, s); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 8; i++ {
		v, err := obj.Get(i)
		if err != nil {
			t.Fatal(err)
		}
		v.Free()
	}
	for i := 0; i < 4; i++ {
		if err := obj.Remove(int64(i)); err != nil {
			t.Fatal(err)
		}
	}
	obj.Free()

	if eng.Live() != base {
		t.Errorf("Live = %d, want %d: references leaked or over-released", eng.Live(), base)
	}
}

func TestHasAndKeys(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	obj, _ := ctx.NewObject()
	defer obj.Free()

	obj.Set("first", ctx.Int(1))
	obj.Set("second", ctx.Int(2))

	has, err := obj.Has("first")
	if err != nil || !has {
		t.Errorf("Has(first) = %v, %v", has, err)
	}
	has, err = obj.Has("missing")
	if err != nil || has {
		t.Errorf("Has(missing) = %v, %v", has, err)
	}

	keys, err := obj.Keys()
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != "first" || keys[1] != "second" {
		t.Errorf("Keys = %v, want [first second]", keys)
	}
}

func TestArray(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	arr, err := ctx.NewArray()
	if err != nil {
		t.Fatal(err)
	}
	defer arr.Free()

	if !arr.IsArray() {
		t.Error("IsArray = false")
	}
	for i := 0; i < 3; i++ {
		if err := arr.Set(i, ctx.Int(int64(i*10))); err != nil {
			t.Fatal(err)
		}
	}
	n, err := arr.Len()
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("Len = %d, want 3", n)
	}

	v, _ := arr.Get(2)
	defer v.Free()
	if got, _ := v.AsInt(); got != 20 {
		t.Errorf("arr[2] = %d, want 20", got)
	}
}

func TestObjectNarrowing(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	if _, err := ctx.Int(3).Object(); err == nil {
		t.Error("narrowing an int to object should fail")
	}

	obj, _ := ctx.NewObject()
	defer obj.Free()
	if _, err := obj.Value().Object(); err != nil {
		t.Errorf("narrowing an object failed: %v", err)
	}
}
