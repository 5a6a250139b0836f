package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/wippyai/script-bridge/bind"
	"github.com/wippyai/script-bridge/runtime"
)

// entry pairs a dotted lookup path with its definition so the CLI and TUI
// can list and call functions without re-walking the object graph.
type entry struct {
	path string
	def  *bind.FuncDef
}

// demoBindings builds the registry installed into the inspected context.
func demoBindings() ([]bind.Def, []entry) {
	add := bind.Func("add", func(a, b float64) float64 { return a + b })
	mul := bind.Func("mul", func(a, b float64) float64 { return a * b })
	sum := bind.Func("sum", func(ns ...float64) float64 {
		total := 0.0
		for _, n := range ns {
			total += n
		}
		return total
	})
	upper := bind.Func("upper", func(s string) string { return strings.ToUpper(s) })
	repeat := bind.Func("repeat", func(s string, n int64) (string, error) {
		if n < 0 {
			return "", fmt.Errorf("repeat count %d is negative", n)
		}
		return strings.Repeat(s, int(n)), nil
	})
	now := bind.Func("now", func() string {
		return time.Now().UTC().Format(time.RFC3339)
	})

	defs := []bind.Def{
		bind.Module("math", add, mul, sum),
		bind.Module("str", upper, repeat),
		bind.Module("clock", now).With(bind.Bare()),
		bind.AsyncFunc("delay", func(ms int64) int64 {
			time.Sleep(time.Duration(ms) * time.Millisecond)
			return ms
		}),
		bind.Const("version", "0.3.0"),
	}
	entries := []entry{
		{"math.add", add},
		{"math.mul", mul},
		{"math.sum", sum},
		{"str.upper", upper},
		{"str.repeat", repeat},
		{"now", now},
	}
	return defs, entries
}

// newDemoContext creates a context with the demo registry installed.
func newDemoContext() (*runtime.Context, []entry, error) {
	ctx, err := runtime.New().NewContext()
	if err != nil {
		return nil, nil, err
	}
	defs, entries := demoBindings()
	if err := bind.Install(ctx, defs...); err != nil {
		ctx.Close()
		return nil, nil, err
	}
	return ctx, entries, nil
}
