package main

import (
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/wippyai/script-bridge/bind"
	"github.com/wippyai/script-bridge/convert"
	"github.com/wippyai/script-bridge/runtime"
)

func main() {
	var (
		list        = flag.Bool("list", false, "List bound functions and exit")
		call        = flag.String("call", "", "Function to call (dotted path, e.g. math.add)")
		argsStr     = flag.String("args", "", "Arguments, comma-separated")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if !*list && *call == "" && !*interactive {
		fmt.Fprintln(os.Stderr, "Usage: inspect -list")
		fmt.Fprintln(os.Stderr, "       inspect -call math.add -args 2,3")
		fmt.Fprintln(os.Stderr, "       inspect -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*list, *call, *argsStr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(list bool, call, argsStr string) error {
	ctx, entries, err := newDemoContext()
	if err != nil {
		return err
	}
	defer ctx.Close()

	if list {
		for _, e := range entries {
			fmt.Println(formatEntry(e))
		}
		return nil
	}

	e, err := findEntry(entries, call)
	if err != nil {
		return err
	}
	var rawArgs []string
	if argsStr != "" {
		rawArgs = strings.Split(argsStr, ",")
	}
	result, err := callEntry(ctx, e, rawArgs)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func findEntry(entries []entry, path string) (entry, error) {
	for _, e := range entries {
		if e.path == path {
			return e, nil
		}
	}
	return entry{}, fmt.Errorf("no function %q (try -list)", path)
}

// callEntry resolves the function through the object graph, encodes the
// parsed arguments, and renders the result. Promises are awaited.
func callEntry(ctx *runtime.Context, e entry, rawArgs []string) (string, error) {
	params, _, err := e.def.Signature()
	if err != nil {
		return "", err
	}

	globals := ctx.Globals()
	defer globals.Free()
	fn := globals
	for _, part := range strings.Split(e.path, ".") {
		v, err := fn.Get(part)
		if fn != globals {
			fn.Free()
		}
		if err != nil {
			return "", err
		}
		next, err := v.Object()
		if err != nil {
			v.Free()
			return "", fmt.Errorf("%s is not callable", e.path)
		}
		fn = next
	}
	defer fn.Free()

	var args []*runtime.Value
	defer func() {
		for _, a := range args {
			a.Free()
		}
	}()
	for i, raw := range rawArgs {
		pt := paramType(params, i, e.def)
		goArg, err := parseArg(raw, pt)
		if err != nil {
			return "", err
		}
		v, err := convert.Encode(ctx, goArg)
		if err != nil {
			return "", err
		}
		args = append(args, v)
	}

	res, err := fn.Invoke(nil, args...)
	if err != nil {
		return "", err
	}
	defer res.Free()

	if p, err := res.Promise(); err == nil {
		settled, err := p.Await()
		if err != nil {
			return "", err
		}
		defer settled.Free()
		return formatValue(settled)
	}
	return formatValue(res)
}

func paramType(params []reflect.Type, i int, def *bind.FuncDef) reflect.Type {
	if i < len(params) {
		return params[i]
	}
	if len(params) > 0 {
		return params[len(params)-1]
	}
	return reflect.TypeOf("")
}

// parseArg interprets a CLI argument string according to the Go parameter
// it feeds.
func parseArg(raw string, t reflect.Type) (any, error) {
	raw = strings.TrimSpace(raw)
	switch t.Kind() {
	case reflect.Bool:
		return strconv.ParseBool(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(raw, 10, 64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		return int64(n), err
	case reflect.Float32, reflect.Float64:
		return strconv.ParseFloat(raw, 64)
	default:
		return raw, nil
	}
}

func formatValue(v *runtime.Value) (string, error) {
	var out any
	if err := convert.Decode(v, &out); err != nil {
		return "", err
	}
	return fmt.Sprintf("%v", out), nil
}

func formatEntry(e entry) string {
	params, result, err := e.def.Signature()
	if err != nil {
		return e.path + " (invalid: " + err.Error() + ")"
	}
	var parts []string
	for _, p := range params {
		parts = append(parts, p.Kind().String())
	}
	sig := e.path + "(" + strings.Join(parts, ", ") + ")"
	if result != nil {
		sig += " -> " + result.Kind().String()
	}
	return sig
}
