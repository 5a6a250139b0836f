package runtime

import (
	"testing"

	"github.com/wippyai/script-bridge/engine"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	ctx, err := New().NewContext()
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	return ctx
}

func TestPrimitiveValues(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	if !ctx.Undefined().IsUndefined() {
		t.Error("Undefined() is not undefined")
	}
	if !ctx.Null().IsNull() {
		t.Error("Null() is not null")
	}
	if b, ok := ctx.Bool(true).AsBool(); !ok || !b {
		t.Error("Bool(true) did not round-trip")
	}
	if n, ok := ctx.Int(-5).AsInt(); !ok || n != -5 {
		t.Error("Int(-5) did not round-trip")
	}
	if f, ok := ctx.Float(2.5).AsFloat(); !ok || f != 2.5 {
		t.Error("Float(2.5) did not round-trip")
	}
}

func TestStringValue(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	v, err := ctx.String("hello")
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	defer v.Free()

	if s, ok := v.AsString(); !ok || s != "hello" {
		t.Errorf("AsString = %q, %v", s, ok)
	}
	if v.Kind() != engine.TagString {
		t.Errorf("Kind = %v", v.Kind())
	}
}

func TestToStringCoercions(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	tests := []struct {
		v    *Value
		want string
	}{
		{ctx.Undefined(), "undefined"},
		{ctx.Null(), "null"},
		{ctx.Bool(true), "true"},
		{ctx.Int(3), "3"},
		{ctx.Float(1.5), "1.5"},
		{ctx.Float(3), "3"},
	}
	for _, tt := range tests {
		got, err := tt.v.ToString()
		if err != nil {
			t.Errorf("ToString(%v): %v", tt.v.Kind(), err)
			continue
		}
		if got != tt.want {
			t.Errorf("ToString(%v) = %q, want %q", tt.v.Kind(), got, tt.want)
		}
	}

	obj, _ := ctx.NewObject()
	defer obj.Free()
	if _, err := obj.Value().ToString(); err == nil {
		t.Error("objects must not stringify implicitly")
	}
}

func TestCloneAndFreeBalance(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()
	eng := ctx.Runtime().Engine()
	base := eng.Live()

	v, _ := ctx.String("counted")
	c1 := v.Clone()
	c2 := c1.Clone()

	if got := eng.RefCount(v.Raw()); got != 3 {
		t.Errorf("RefCount = %d, want 3", got)
	}

	v.Free()
	c1.Free()
	c2.Free()
	if eng.Live() != base {
		t.Errorf("Live = %d, want %d", eng.Live(), base)
	}
}

func TestFreeIsIdempotent(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()
	eng := ctx.Runtime().Engine()
	base := eng.Live()

	v, _ := ctx.String("once")
	v.Free()
	v.Free() // must not double-release
	if eng.Live() != base {
		t.Errorf("Live = %d, want %d", eng.Live(), base)
	}
}

func TestUseAfterTransferPanics(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()

	v, _ := ctx.String("moved")
	raw := v.IntoRaw()
	defer ctx.Runtime().Engine().Release(raw)

	defer func() {
		if recover() == nil {
			t.Error("using a transferred value should panic")
		}
	}()
	v.Kind()
}

func TestIntoRawTransfersOwnership(t *testing.T) {
	ctx := newTestContext(t)
	defer ctx.Close()
	eng := ctx.Runtime().Engine()
	base := eng.Live()

	v, _ := ctx.String("transferred")
	raw := v.IntoRaw()

	v.Free() // must be a no-op after the transfer
	if eng.RefCount(raw) != 1 {
		t.Errorf("RefCount = %d, want 1", eng.RefCount(raw))
	}

	eng.Release(raw)
	if eng.Live() != base {
		t.Errorf("Live = %d, want %d", eng.Live(), base)
	}
}

func TestContextIsolation(t *testing.T) {
	rt := New()
	ctx1, err := rt.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	defer ctx1.Close()
	ctx2, err := rt.NewContext()
	if err != nil {
		t.Fatal(err)
	}
	defer ctx2.Close()

	g1 := ctx1.Globals()
	defer g1.Free()
	if err := g1.Set("shared", ctx1.Int(1)); err != nil {
		t.Fatal(err)
	}

	g2 := ctx2.Globals()
	defer g2.Free()
	v, err := g2.Get("shared")
	if err != nil {
		t.Fatal(err)
	}
	defer v.Free()
	if !v.IsUndefined() {
		t.Error("globals leaked between contexts")
	}
}
