package convert

import (
	"reflect"

	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/runtime"
)

// ValueEncoder is implemented by Go types that encode themselves.
type ValueEncoder interface {
	EncodeValue(ctx *runtime.Context) (*runtime.Value, error)
}

// ValueDecoder is implemented by Go types that decode themselves.
// Implementations use a pointer receiver.
type ValueDecoder interface {
	DecodeValue(ctx *runtime.Context, v *runtime.Value) error
}

// Encode converts a Go value into an owned engine value. A value that is
// already engine-side passes through with its ownership intact.
func Encode(ctx *runtime.Context, v any) (*runtime.Value, error) {
	if v == nil {
		return ctx.Null(), nil
	}
	switch ev := v.(type) {
	case *runtime.Value:
		if ev == nil {
			return ctx.Null(), nil
		}
		return ev, nil
	case *runtime.Object:
		if ev == nil {
			return ctx.Null(), nil
		}
		return ev.Value(), nil
	}
	if enc, ok := v.(ValueEncoder); ok {
		return enc.EncodeValue(ctx)
	}
	rv := reflect.ValueOf(v)
	c, err := defaultCompiler.codecFor(rv.Type())
	if err != nil {
		return nil, err
	}
	return c.enc(ctx, rv, nil)
}

// Decode populates the Go value pointed to by target from an engine value.
// The engine value is borrowed, not consumed.
func Decode(v *runtime.Value, target any) error {
	if dec, ok := target.(ValueDecoder); ok {
		return dec.DecodeValue(v.Context(), v)
	}
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.InvalidInput(errors.PhaseDecode, "decode target must be a non-nil pointer")
	}
	c, err := defaultCompiler.codecFor(rv.Type().Elem())
	if err != nil {
		return err
	}
	return c.dec(v.Context(), v, rv.Elem(), nil)
}

// Get reads a property and decodes it into T.
func Get[T any](obj *runtime.Object, key any) (T, error) {
	var out T
	v, err := obj.Get(key)
	if err != nil {
		return out, err
	}
	defer v.Free()
	if err := Decode(v, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Set encodes a Go value and writes it as a property.
func Set(obj *runtime.Object, key any, goValue any) error {
	v, err := Encode(obj.Value().Context(), goValue)
	if err != nil {
		return err
	}
	if err := obj.Set(key, v); err != nil {
		v.Free()
		return err
	}
	return nil
}
