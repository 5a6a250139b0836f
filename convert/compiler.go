package convert

import (
	"math"
	"reflect"
	"strconv"
	"sync"

	"github.com/wippyai/script-bridge/engine"
	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/runtime"
)

type encFunc func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error)
type decFunc func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error

type codec struct {
	enc encFunc
	dec decFunc
}

// compiler builds and caches per-type codecs. Reflection happens once per
// type; the cached closures are reflection-free apart from field access.
type compiler struct {
	cache sync.Map // reflect.Type -> *codec

	mu       sync.Mutex
	tuples   map[reflect.Type]bool
	unions   map[reflect.Type]*unionInfo
	variants map[reflect.Type]*variantEntry
}

var defaultCompiler = &compiler{
	tuples:   make(map[reflect.Type]bool),
	unions:   make(map[reflect.Type]*unionInfo),
	variants: make(map[reflect.Type]*variantEntry),
}

var (
	encoderType = reflect.TypeOf((*ValueEncoder)(nil)).Elem()
	decoderType = reflect.TypeOf((*ValueDecoder)(nil)).Elem()
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
)

func (c *compiler) codecFor(t reflect.Type) (*codec, error) {
	if v, ok := c.cache.Load(t); ok {
		return v.(*codec), nil
	}
	// Reserve a slot first so self-referential types terminate.
	placeholder := &codec{}
	actual, loaded := c.cache.LoadOrStore(t, placeholder)
	if loaded {
		return actual.(*codec), nil
	}
	built, err := c.compile(t)
	if err != nil {
		c.cache.Delete(t)
		return nil, err
	}
	*placeholder = *built
	return placeholder, nil
}

func (c *compiler) compile(t reflect.Type) (*codec, error) {
	if custom := c.compileCustom(t); custom != nil {
		return custom, nil
	}

	c.mu.Lock()
	isTuple := c.tuples[t]
	variant := c.variants[t]
	union := c.unions[t]
	c.mu.Unlock()

	if variant != nil {
		return c.compileVariant(t, variant)
	}

	switch t.Kind() {
	case reflect.Bool:
		return boolCodec(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intCodec(t), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return uintCodec(t), nil
	case reflect.Float32, reflect.Float64:
		return floatCodec(t), nil
	case reflect.String:
		return stringCodec(), nil
	case reflect.Pointer:
		return c.compilePointer(t)
	case reflect.Slice, reflect.Array:
		return c.compileSequence(t)
	case reflect.Map:
		return c.compileMap(t)
	case reflect.Struct:
		if isTuple {
			return c.compileTuple(t)
		}
		return c.compileStruct(t)
	case reflect.Interface:
		if t == anyType {
			return c.compileAny(), nil
		}
		if union != nil {
			return c.compileUnion(union)
		}
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			GoType(t.String()).
			Detail("interface types need RegisterUnion").
			Build()
	}
	return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
		GoType(t.String()).
		Detail("unsupported Go kind %s", t.Kind()).
		Build()
}

// compileCustom wires types that implement the override interfaces.
func (c *compiler) compileCustom(t reflect.Type) *codec {
	ptr := reflect.PointerTo(t)
	encodes := t.Implements(encoderType) || ptr.Implements(encoderType)
	decodes := ptr.Implements(decoderType)
	if !encodes && !decodes {
		return nil
	}

	cd := &codec{}
	if encodes {
		byPtr := !t.Implements(encoderType)
		cd.enc = func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			if byPtr {
				if !rv.CanAddr() {
					tmp := reflect.New(t)
					tmp.Elem().Set(rv)
					rv = tmp.Elem()
				}
				return rv.Addr().Interface().(ValueEncoder).EncodeValue(ctx)
			}
			return rv.Interface().(ValueEncoder).EncodeValue(ctx)
		}
	} else {
		cd.enc = func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
				GoType(t.String()).Path(path...).
				Detail("type only implements ValueDecoder").
				Build()
		}
	}
	if decodes {
		cd.dec = func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			if !rv.CanAddr() {
				return errors.InvalidInput(errors.PhaseDecode, "decode target is unaddressable")
			}
			return rv.Addr().Interface().(ValueDecoder).DecodeValue(ctx, v)
		}
	} else {
		cd.dec = func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			return errors.New(errors.PhaseDecode, errors.KindUnsupported).
				GoType(t.String()).Path(path...).
				Detail("type only implements ValueEncoder").
				Build()
		}
	}
	return cd
}

func boolCodec() *codec {
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, _ []string) (*runtime.Value, error) {
			return ctx.Bool(rv.Bool()), nil
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			b, ok := v.AsBool()
			if !ok {
				return errors.TypeMismatch(errors.PhaseDecode, path, "bool", v.Kind().String())
			}
			rv.SetBool(b)
			return nil
		},
	}
}

func intCodec(t reflect.Type) *codec {
	bits := t.Bits()
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, _ []string) (*runtime.Value, error) {
			return ctx.Int(rv.Int()), nil
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			n, err := decodeInt(v, path)
			if err != nil {
				return err
			}
			if bits < 64 && (n > (1<<(bits-1))-1 || n < -(1<<(bits-1))) {
				return errors.Overflow(errors.PhaseDecode, path, n, t.String())
			}
			rv.SetInt(n)
			return nil
		},
	}
}

func uintCodec(t reflect.Type) *codec {
	bits := t.Bits()
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, _ []string) (*runtime.Value, error) {
			u := rv.Uint()
			if u > math.MaxInt64 {
				return ctx.Float(float64(u)), nil
			}
			return ctx.Int(int64(u)), nil
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			n, err := decodeInt(v, path)
			if err != nil {
				return err
			}
			if n < 0 {
				return errors.Overflow(errors.PhaseDecode, path, n, t.String())
			}
			if bits < 64 && uint64(n) > (1<<bits)-1 {
				return errors.Overflow(errors.PhaseDecode, path, n, t.String())
			}
			rv.SetUint(uint64(n))
			return nil
		},
	}
}

func floatCodec(t reflect.Type) *codec {
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, _ []string) (*runtime.Value, error) {
			return ctx.Float(rv.Float()), nil
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			f, err := decodeFloat(v, path)
			if err != nil {
				return err
			}
			rv.SetFloat(f)
			return nil
		},
	}
}

func stringCodec() *codec {
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, _ []string) (*runtime.Value, error) {
			return ctx.String(rv.String())
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			s, err := v.ToString()
			if err != nil {
				return errors.TypeMismatch(errors.PhaseDecode, path, "string", v.Kind().String())
			}
			rv.SetString(s)
			return nil
		},
	}
}

// decodeInt applies the engine's numeric coercions: ints pass through,
// integral floats narrow, numeric strings parse.
func decodeInt(v *runtime.Value, path []string) (int64, error) {
	if n, ok := v.AsInt(); ok {
		return n, nil
	}
	if f, ok := v.AsFloat(); ok {
		if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, errors.TypeMismatch(errors.PhaseDecode, path, "int", "float")
		}
		return int64(f), nil
	}
	if s, ok := v.AsString(); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return 0, errors.TypeMismatch(errors.PhaseDecode, path, "int", "string")
		}
		return int64(f), nil
	}
	return 0, errors.TypeMismatch(errors.PhaseDecode, path, "int", v.Kind().String())
}

func decodeFloat(v *runtime.Value, path []string) (float64, error) {
	if f, ok := v.AsFloat(); ok {
		return f, nil
	}
	if n, ok := v.AsInt(); ok {
		return float64(n), nil
	}
	if s, ok := v.AsString(); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.TypeMismatch(errors.PhaseDecode, path, "float", "string")
		}
		return f, nil
	}
	return 0, errors.TypeMismatch(errors.PhaseDecode, path, "float", v.Kind().String())
}

func (c *compiler) compilePointer(t reflect.Type) (*codec, error) {
	elem, err := c.codecFor(t.Elem())
	if err != nil {
		return nil, err
	}
	elemType := t.Elem()
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			if rv.IsNil() {
				return ctx.Null(), nil
			}
			return elem.enc(ctx, rv.Elem(), path)
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			if v.IsNull() || v.IsUndefined() {
				rv.SetZero()
				return nil
			}
			p := reflect.New(elemType)
			if err := elem.dec(ctx, v, p.Elem(), path); err != nil {
				return err
			}
			rv.Set(p)
			return nil
		},
	}, nil
}

func (c *compiler) compileSequence(t reflect.Type) (*codec, error) {
	elem, err := c.codecFor(t.Elem())
	if err != nil {
		return nil, err
	}
	fixed := -1
	if t.Kind() == reflect.Array {
		fixed = t.Len()
	}
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			arr, err := ctx.NewArray()
			if err != nil {
				return nil, err
			}
			for i := 0; i < rv.Len(); i++ {
				ev, err := elem.enc(ctx, rv.Index(i), append(path, strconv.Itoa(i)))
				if err != nil {
					arr.Free()
					return nil, err
				}
				if err := arr.Set(i, ev); err != nil {
					ev.Free()
					arr.Free()
					return nil, err
				}
			}
			return arr.Value(), nil
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			obj, err := v.Object()
			if err != nil || !obj.IsArray() {
				return errors.TypeMismatch(errors.PhaseDecode, path, "array", v.Kind().String())
			}
			n, err := obj.Len()
			if err != nil {
				return err
			}
			if fixed >= 0 {
				if int(n) != fixed {
					return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
						Path(path...).
						Detail("array length %d does not match fixed length %d", n, fixed).
						Build()
				}
			} else {
				rv.Set(reflect.MakeSlice(t, int(n), int(n)))
			}
			for i := 0; i < int(n); i++ {
				ev, err := obj.Get(i)
				if err != nil {
					return err
				}
				err = elem.dec(ctx, ev, rv.Index(i), append(path, strconv.Itoa(i)))
				ev.Free()
				if err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

func (c *compiler) compileMap(t reflect.Type) (*codec, error) {
	if t.Key().Kind() != reflect.String {
		return nil, errors.New(errors.PhaseCompile, errors.KindUnsupported).
			GoType(t.String()).
			Detail("map keys must be strings").
			Build()
	}
	elem, err := c.codecFor(t.Elem())
	if err != nil {
		return nil, err
	}
	keyType := t.Key()
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			obj, err := ctx.NewObject()
			if err != nil {
				return nil, err
			}
			iter := rv.MapRange()
			for iter.Next() {
				key := iter.Key().String()
				ev, err := elem.enc(ctx, iter.Value(), append(path, key))
				if err != nil {
					obj.Free()
					return nil, err
				}
				if err := obj.Set(key, ev); err != nil {
					ev.Free()
					obj.Free()
					return nil, err
				}
			}
			return obj.Value(), nil
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			obj, err := v.Object()
			if err != nil {
				return errors.TypeMismatch(errors.PhaseDecode, path, "object", v.Kind().String())
			}
			keys, err := obj.Keys()
			if err != nil {
				return err
			}
			out := reflect.MakeMapWithSize(t, len(keys))
			for _, key := range keys {
				ev, err := obj.Get(key)
				if err != nil {
					return err
				}
				slot := reflect.New(t.Elem()).Elem()
				err = elem.dec(ctx, ev, slot, append(path, key))
				ev.Free()
				if err != nil {
					return err
				}
				out.SetMapIndex(reflect.ValueOf(key).Convert(keyType), slot)
			}
			rv.Set(out)
			return nil
		},
	}, nil
}

func (c *compiler) compileAny() *codec {
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			if rv.IsNil() {
				return ctx.Null(), nil
			}
			inner := rv.Elem()
			ic, err := c.codecFor(inner.Type())
			if err != nil {
				return nil, err
			}
			return ic.enc(ctx, inner, path)
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			got, err := decodeNative(ctx, v, path)
			if err != nil {
				return err
			}
			if got == nil {
				rv.SetZero()
				return nil
			}
			rv.Set(reflect.ValueOf(got))
			return nil
		},
	}
}

// decodeNative maps an engine value onto untyped Go natives.
func decodeNative(ctx *runtime.Context, v *runtime.Value, path []string) (any, error) {
	switch v.Kind() {
	case engine.TagUndefined, engine.TagNull:
		return nil, nil
	case engine.TagBool:
		b, _ := v.AsBool()
		return b, nil
	case engine.TagInt:
		n, _ := v.AsInt()
		return n, nil
	case engine.TagFloat:
		f, _ := v.AsFloat()
		return f, nil
	case engine.TagString:
		s, _ := v.AsString()
		return s, nil
	case engine.TagArray:
		obj, _ := v.Object()
		n, err := obj.Len()
		if err != nil {
			return nil, err
		}
		out := make([]any, 0, n)
		for i := 0; i < int(n); i++ {
			ev, err := obj.Get(i)
			if err != nil {
				return nil, err
			}
			item, err := decodeNative(ctx, ev, append(path, strconv.Itoa(i)))
			ev.Free()
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		return out, nil
	case engine.TagObject:
		obj, _ := v.Object()
		keys, err := obj.Keys()
		if err != nil {
			return nil, err
		}
		out := make(map[string]any, len(keys))
		for _, key := range keys {
			ev, err := obj.Get(key)
			if err != nil {
				return nil, err
			}
			item, err := decodeNative(ctx, ev, append(path, key))
			ev.Free()
			if err != nil {
				return nil, err
			}
			out[key] = item
		}
		return out, nil
	}
	return nil, errors.TypeMismatch(errors.PhaseDecode, path, "value", v.Kind().String())
}
