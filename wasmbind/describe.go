package wasmbind

import (
	"reflect"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/script-bridge/bind"
	"github.com/wippyai/script-bridge/errors"
)

// Describe maps a binding's Go signature onto WIT types. The context
// parameter and trailing error are not part of the wire signature.
func Describe(def *bind.FuncDef) (params []wit.Type, results []wit.Type, err error) {
	goParams, goResult, err := def.Signature()
	if err != nil {
		return nil, nil, err
	}
	for _, pt := range goParams {
		wt, err := witType(def.Name(), pt)
		if err != nil {
			return nil, nil, err
		}
		params = append(params, wt)
	}
	if goResult != nil {
		wt, err := witType(def.Name(), goResult)
		if err != nil {
			return nil, nil, err
		}
		results = append(results, wt)
	}
	return params, results, nil
}

func witType(fn string, t reflect.Type) (wit.Type, error) {
	switch t.Kind() {
	case reflect.Bool:
		return wit.Bool{}, nil
	case reflect.Int8:
		return wit.S8{}, nil
	case reflect.Int16:
		return wit.S16{}, nil
	case reflect.Int32:
		return wit.S32{}, nil
	case reflect.Int, reflect.Int64:
		return wit.S64{}, nil
	case reflect.Uint8:
		return wit.U8{}, nil
	case reflect.Uint16:
		return wit.U16{}, nil
	case reflect.Uint32:
		return wit.U32{}, nil
	case reflect.Uint, reflect.Uint64:
		return wit.U64{}, nil
	case reflect.Float32:
		return wit.F32{}, nil
	case reflect.Float64:
		return wit.F64{}, nil
	case reflect.String:
		return wit.String{}, nil
	case reflect.Slice:
		elem, err := witType(fn, t.Elem())
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: elem}}, nil
	}
	return nil, errors.New(errors.PhaseWasm, errors.KindUnsupported).
		Path(fn).GoType(t.String()).
		Detail("no WIT representation").
		Build()
}
