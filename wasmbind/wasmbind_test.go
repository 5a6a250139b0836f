package wasmbind

import (
	"context"
	"math"
	"testing"

	"github.com/tetratelabs/wazero"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/script-bridge/bind"
	"github.com/wippyai/script-bridge/runtime"
)

func TestDescribe(t *testing.T) {
	def := bind.Func("mix", func(n int64, f float64, s string, ok bool) int64 { return n })

	params, results, err := Describe(def)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if len(params) != 4 || len(results) != 1 {
		t.Fatalf("params %d results %d, want 4 and 1", len(params), len(results))
	}
	if _, ok := params[0].(wit.S64); !ok {
		t.Errorf("params[0] = %T, want wit.S64", params[0])
	}
	if _, ok := params[1].(wit.F64); !ok {
		t.Errorf("params[1] = %T, want wit.F64", params[1])
	}
	if _, ok := params[2].(wit.String); !ok {
		t.Errorf("params[2] = %T, want wit.String", params[2])
	}
	if _, ok := params[3].(wit.Bool); !ok {
		t.Errorf("params[3] = %T, want wit.Bool", params[3])
	}
	if _, ok := results[0].(wit.S64); !ok {
		t.Errorf("results[0] = %T, want wit.S64", results[0])
	}
}

func TestDescribeList(t *testing.T) {
	def := bind.Func("tally", func(ns []int64) int64 { return 0 })

	params, _, err := Describe(def)
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	td, ok := params[0].(*wit.TypeDef)
	if !ok {
		t.Fatalf("params[0] = %T, want *wit.TypeDef", params[0])
	}
	list, ok := td.Kind.(*wit.List)
	if !ok {
		t.Fatalf("kind = %T, want *wit.List", td.Kind)
	}
	if _, ok := list.Type.(wit.S64); !ok {
		t.Errorf("element = %T, want wit.S64", list.Type)
	}
}

func TestDescribeUnsupported(t *testing.T) {
	def := bind.Func("bad", func(ch chan int) {})
	if _, _, err := Describe(def); err == nil {
		t.Fatal("Describe with chan parameter succeeded")
	}
}

// Core wasm value type encodings used by the hand-assembled guest below.
const (
	valI32 = 0x7f
	valI64 = 0x7e
	valF64 = 0x7c
)

// guestModule assembles a wasm binary that imports one function from
// importMod and re-exports it as "run", forwarding all parameters. Host
// functions cannot be called directly on a wazero host module, so the
// tests drive them through a guest like a real embedder would.
func guestModule(importMod, importName string, params, results []byte) []byte {
	section := func(id byte, contents []byte) []byte {
		return append([]byte{id, byte(len(contents))}, contents...)
	}

	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	ftype := append([]byte{0x60, byte(len(params))}, params...)
	ftype = append(ftype, byte(len(results)))
	ftype = append(ftype, results...)
	bin = append(bin, section(0x01, append([]byte{0x01}, ftype...))...)

	imp := []byte{0x01, byte(len(importMod))}
	imp = append(imp, importMod...)
	imp = append(imp, byte(len(importName)))
	imp = append(imp, importName...)
	imp = append(imp, 0x00, 0x00)
	bin = append(bin, section(0x02, imp)...)

	bin = append(bin, section(0x03, []byte{0x01, 0x00})...)
	bin = append(bin, section(0x07, []byte{0x01, 0x03, 'r', 'u', 'n', 0x00, 0x01})...)

	body := []byte{0x00}
	for i := 0; i < len(params); i++ {
		body = append(body, 0x20, byte(i))
	}
	body = append(body, 0x10, 0x00, 0x0b)
	code := append([]byte{0x01, byte(len(body))}, body...)
	bin = append(bin, section(0x0a, code)...)

	return bin
}

func callThroughGuest(t *testing.T, wctx context.Context, wrt wazero.Runtime,
	importMod, importName string, params, results []byte, args ...uint64) []uint64 {
	t.Helper()
	g, err := wrt.InstantiateWithConfig(wctx,
		guestModule(importMod, importName, params, results),
		wazero.NewModuleConfig().WithName("guest-"+importName))
	if err != nil {
		t.Fatalf("instantiate guest for %s.%s: %v", importMod, importName, err)
	}
	res, err := g.ExportedFunction("run").Call(wctx, args...)
	if err != nil {
		t.Fatalf("%s.%s: %v", importMod, importName, err)
	}
	return res
}

func TestInstallAndCall(t *testing.T) {
	wctx := context.Background()
	wrt := wazero.NewRuntime(wctx)
	defer wrt.Close(wctx)

	bctx, err := runtime.New().NewContext()
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer bctx.Close()

	err = Install(wctx, wrt, bctx, "host",
		bind.Func("add", func(a, b int64) int64 { return a + b }),
		bind.Func("scale", func(f float64) float64 { return f * 2 }),
		bind.Func("ready", func() bool { return true }),
	)
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	res := callThroughGuest(t, wctx, wrt, "host", "add",
		[]byte{valI64, valI64}, []byte{valI64}, uint64(2), uint64(40))
	if int64(res[0]) != 42 {
		t.Errorf("add(2, 40) = %d, want 42", int64(res[0]))
	}

	res = callThroughGuest(t, wctx, wrt, "host", "scale",
		[]byte{valF64}, []byte{valF64}, math.Float64bits(2.5))
	if got := math.Float64frombits(res[0]); got != 5 {
		t.Errorf("scale(2.5) = %v, want 5", got)
	}

	res = callThroughGuest(t, wctx, wrt, "host", "ready",
		nil, []byte{valI32})
	if res[0] != 1 {
		t.Errorf("ready() = %d, want 1", res[0])
	}
}

func TestInstallModule(t *testing.T) {
	wctx := context.Background()
	wrt := wazero.NewRuntime(wctx)
	defer wrt.Close(wctx)

	bctx, err := runtime.New().NewContext()
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer bctx.Close()

	mod := bind.Module("calc",
		bind.Func("add", func(a, b int64) int64 { return a + b }),
		bind.Module("deep", bind.Func("neg", func(n int64) int64 { return -n })),
	)
	if err := InstallModule(wctx, wrt, bctx, mod); err != nil {
		t.Fatalf("InstallModule: %v", err)
	}

	res := callThroughGuest(t, wctx, wrt, "calc", "add",
		[]byte{valI64, valI64}, []byte{valI64}, uint64(3), uint64(4))
	if int64(res[0]) != 7 {
		t.Errorf("add(3, 4) = %d, want 7", int64(res[0]))
	}

	res = callThroughGuest(t, wctx, wrt, "calc", "deep.neg",
		[]byte{valI64}, []byte{valI64}, uint64(5))
	if int64(res[0]) != -5 {
		t.Errorf("deep.neg(5) = %d, want -5", int64(res[0]))
	}
}

func TestInstallRejectsUnsupported(t *testing.T) {
	wctx := context.Background()
	wrt := wazero.NewRuntime(wctx)
	defer wrt.Close(wctx)

	bctx, err := runtime.New().NewContext()
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	defer bctx.Close()

	type payload struct{ N int }
	err = Install(wctx, wrt, bctx, "host",
		bind.Func("bad", func(p payload) int64 { return 0 }),
	)
	if err == nil {
		t.Fatal("Install with struct parameter succeeded")
	}
}
