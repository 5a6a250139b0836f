package wasmbind

import (
	"context"
	"math"
	"reflect"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/script-bridge/bind"
	"github.com/wippyai/script-bridge/errors"
	bridgert "github.com/wippyai/script-bridge/runtime"
)

// paramSlot describes how one Go parameter is read off the wasm stack.
type paramSlot struct {
	goType reflect.Type
	// number of stack values the parameter occupies (2 for strings)
	width int
}

type funcPlan struct {
	def     *bind.FuncDef
	params  []paramSlot
	result  reflect.Type
	wazeroP []api.ValueType
	wazeroR []api.ValueType
}

// plan validates the binding's signature against what the wasm boundary can
// carry and fixes the stack layout.
func plan(def *bind.FuncDef) (*funcPlan, error) {
	goParams, goResult, err := def.Signature()
	if err != nil {
		return nil, err
	}
	p := &funcPlan{def: def, result: goResult}
	for _, pt := range goParams {
		switch pt.Kind() {
		case reflect.Bool:
			p.params = append(p.params, paramSlot{goType: pt, width: 1})
			p.wazeroP = append(p.wazeroP, api.ValueTypeI32)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			p.params = append(p.params, paramSlot{goType: pt, width: 1})
			p.wazeroP = append(p.wazeroP, api.ValueTypeI64)
		case reflect.Float32, reflect.Float64:
			p.params = append(p.params, paramSlot{goType: pt, width: 1})
			p.wazeroP = append(p.wazeroP, api.ValueTypeF64)
		case reflect.String:
			p.params = append(p.params, paramSlot{goType: pt, width: 2})
			p.wazeroP = append(p.wazeroP, api.ValueTypeI32, api.ValueTypeI32)
		default:
			return nil, errors.New(errors.PhaseWasm, errors.KindUnsupported).
				Path(def.Name()).GoType(pt.String()).
				Detail("parameter type cannot cross the wasm boundary").
				Build()
		}
	}
	if goResult != nil {
		switch goResult.Kind() {
		case reflect.Bool:
			p.wazeroR = append(p.wazeroR, api.ValueTypeI32)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			p.wazeroR = append(p.wazeroR, api.ValueTypeI64)
		case reflect.Float32, reflect.Float64:
			p.wazeroR = append(p.wazeroR, api.ValueTypeF64)
		default:
			return nil, errors.New(errors.PhaseWasm, errors.KindUnsupported).
				Path(def.Name()).GoType(goResult.String()).
				Detail("result type cannot cross the wasm boundary").
				Build()
		}
	}
	return p, nil
}

// decodeStack turns the raw wasm stack into Go argument values.
func (p *funcPlan) decodeStack(mod api.Module, stack []uint64) ([]any, error) {
	args := make([]any, 0, len(p.params))
	i := 0
	for _, slot := range p.params {
		switch slot.goType.Kind() {
		case reflect.Bool:
			args = append(args, api.DecodeI32(stack[i]) != 0)
		case reflect.Float32, reflect.Float64:
			args = append(args, api.DecodeF64(stack[i]))
		case reflect.String:
			ptr, length := api.DecodeU32(stack[i]), api.DecodeU32(stack[i+1])
			data, ok := mod.Memory().Read(ptr, length)
			if !ok {
				return nil, errors.New(errors.PhaseWasm, errors.KindInvalidInput).
					Path(p.def.Name()).
					Detail("string at %d+%d is outside guest memory", ptr, length).
					Build()
			}
			args = append(args, string(data))
		default:
			args = append(args, int64(stack[i]))
		}
		i += slot.width
	}
	return args, nil
}

// encodeStack writes the Go result back onto the wasm stack.
func (p *funcPlan) encodeStack(stack []uint64, result any) {
	if p.result == nil {
		return
	}
	rv := reflect.ValueOf(result)
	switch p.result.Kind() {
	case reflect.Bool:
		var out uint64
		if rv.Bool() {
			out = 1
		}
		stack[0] = out
	case reflect.Float32, reflect.Float64:
		stack[0] = math.Float64bits(rv.Convert(reflect.TypeOf(float64(0))).Float())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		stack[0] = rv.Uint()
	default:
		stack[0] = uint64(rv.Int())
	}
}

// Install registers the bindings as a wazero host module under moduleName.
// Host errors trap the calling guest.
func Install(ctx context.Context, wrt wazero.Runtime, bctx *bridgert.Context, moduleName string, defs ...*bind.FuncDef) error {
	builder := wrt.NewHostModuleBuilder(moduleName)
	for _, def := range defs {
		p, err := plan(def)
		if err != nil {
			return err
		}
		fn := func(p *funcPlan) api.GoModuleFunction {
			return api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
				args, err := p.decodeStack(mod, stack)
				if err != nil {
					panic(err)
				}
				result, err := p.def.CallGo(bctx, args)
				if err != nil {
					panic(err)
				}
				p.encodeStack(stack, result)
			})
		}(p)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(fn, p.wazeroP, p.wazeroR).
			Export(def.Name())
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		return errors.Wrap(errors.PhaseWasm, errors.KindRegistration, err,
			"instantiate host module "+moduleName)
	}
	return nil
}

// InstallModule registers a module's functions as a wazero host module
// named after the module. Nested module paths become dotted export names.
func InstallModule(ctx context.Context, wrt wazero.Runtime, bctx *bridgert.Context, mod *bind.ModuleDef) error {
	return Install(ctx, wrt, bctx, mod.Name(), mod.Functions()...)
}
