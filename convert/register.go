package convert

import (
	"reflect"
	"strings"

	"github.com/wippyai/script-bridge/errors"
	"github.com/wippyai/script-bridge/runtime"
)

type unionInfo struct {
	iface reflect.Type
	byTag map[string]reflect.Type
	tags  map[reflect.Type]string
}

type variantEntry struct {
	tag   string
	union *unionInfo
}

// RegisterTuple marks a struct type to encode positionally as a fixed-length
// array instead of as an object. Registration must happen before the type is
// first encoded or decoded.
func RegisterTuple[T any]() error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return errors.New(errors.PhaseCompile, errors.KindRegistration).
			GoType(t.String()).
			Detail("tuple types must be structs").
			Build()
	}
	c := defaultCompiler
	c.mu.Lock()
	c.tuples[t] = true
	c.mu.Unlock()
	c.cache.Delete(t)
	return nil
}

// RegisterUnion declares the concrete variants of an interface type. Each
// map value is a zero value of a struct type implementing I; the key is its
// wire tag. Variants with no exported fields encode as the bare tag string,
// the rest as a single-key object {tag: payload}.
func RegisterUnion[I any](variants map[string]I) error {
	iface := reflect.TypeOf((*I)(nil)).Elem()
	if iface.Kind() != reflect.Interface {
		return errors.New(errors.PhaseCompile, errors.KindRegistration).
			GoType(iface.String()).
			Detail("union types must be interfaces").
			Build()
	}
	info := &unionInfo{
		iface: iface,
		byTag: make(map[string]reflect.Type, len(variants)),
		tags:  make(map[reflect.Type]string, len(variants)),
	}
	for tag, proto := range variants {
		ct := reflect.TypeOf(proto)
		if ct == nil || ct.Kind() != reflect.Struct {
			return errors.New(errors.PhaseCompile, errors.KindRegistration).
				GoType(iface.String()).
				Detail("variant %q must be a struct value", tag).
				Build()
		}
		if prev, dup := info.tags[ct]; dup {
			return errors.New(errors.PhaseCompile, errors.KindRegistration).
				GoType(ct.String()).
				Detail("type already registered under tag %q", prev).
				Build()
		}
		info.byTag[tag] = ct
		info.tags[ct] = tag
	}

	c := defaultCompiler
	c.mu.Lock()
	c.unions[iface] = info
	for tag, ct := range info.byTag {
		c.variants[ct] = &variantEntry{tag: tag, union: info}
	}
	c.mu.Unlock()
	c.cache.Delete(iface)
	for _, ct := range info.byTag {
		c.cache.Delete(ct)
	}
	return nil
}

type fieldCodec struct {
	name  string
	index int
	cd    *codec
}

// structFields resolves the encodable fields of a struct, honouring the js
// tag for renames and skips.
func (c *compiler) structFields(t reflect.Type) ([]fieldCodec, error) {
	var out []fieldCodec
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("js"); ok {
			if tag == "-" {
				continue
			}
			if comma := strings.IndexByte(tag, ','); comma >= 0 {
				tag = tag[:comma]
			}
			if tag != "" {
				name = tag
			}
		}
		cd, err := c.codecFor(f.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, fieldCodec{name: name, index: i, cd: cd})
	}
	return out, nil
}

func (c *compiler) compileStruct(t reflect.Type) (*codec, error) {
	fields, err := c.structFields(t)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return emptyStructCodec(t), nil
	}
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			obj, err := ctx.NewObject()
			if err != nil {
				return nil, err
			}
			for _, f := range fields {
				fv, err := f.cd.enc(ctx, rv.Field(f.index), append(path, f.name))
				if err != nil {
					obj.Free()
					return nil, err
				}
				if err := obj.Set(f.name, fv); err != nil {
					fv.Free()
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
			for _, f := range fields {
				fv, err := obj.Get(f.name)
				if err != nil {
					return err
				}
				if fv.IsUndefined() {
					fv.Free()
					if optionalKind(t.Field(f.index).Type.Kind()) {
						rv.Field(f.index).SetZero()
						continue
					}
					return errors.FieldMissing(errors.PhaseDecode, path, f.name)
				}
				err = f.cd.dec(ctx, fv, rv.Field(f.index), append(path, f.name))
				fv.Free()
				if err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

// optionalKind reports whether an absent property may decode to the zero
// value instead of failing.
func optionalKind(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return false
}

// emptyStructCodec handles structs with no encodable fields, which travel
// as Undefined.
func emptyStructCodec(t reflect.Type) *codec {
	return &codec{
		enc: func(ctx *runtime.Context, _ reflect.Value, _ []string) (*runtime.Value, error) {
			return ctx.Undefined(), nil
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			switch {
			case v.IsUndefined(), v.IsNull():
				return nil
			}
			if _, err := v.Object(); err == nil {
				return nil
			}
			return errors.TypeMismatch(errors.PhaseDecode, path, "undefined", v.Kind().String())
		},
	}
}

func (c *compiler) compileTuple(t reflect.Type) (*codec, error) {
	fields, err := c.structFields(t)
	if err != nil {
		return nil, err
	}
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			arr, err := ctx.NewArray()
			if err != nil {
				return nil, err
			}
			for i, f := range fields {
				fv, err := f.cd.enc(ctx, rv.Field(f.index), append(path, f.name))
				if err != nil {
					arr.Free()
					return nil, err
				}
				if err := arr.Set(i, fv); err != nil {
					fv.Free()
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
			if int(n) != len(fields) {
				return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
					Path(path...).GoType(t.String()).
					Detail("tuple length %d does not match %d fields", n, len(fields)).
					Build()
			}
			for i, f := range fields {
				fv, err := obj.Get(i)
				if err != nil {
					return err
				}
				err = f.cd.dec(ctx, fv, rv.Field(f.index), append(path, f.name))
				fv.Free()
				if err != nil {
					return err
				}
			}
			return nil
		},
	}, nil
}

// payloadFree reports whether a variant struct carries no data beyond its tag.
func payloadFree(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return false
		}
	}
	return true
}

func (c *compiler) compileVariant(t reflect.Type, ve *variantEntry) (*codec, error) {
	tag := ve.tag
	if payloadFree(t) {
		return &codec{
			enc: func(ctx *runtime.Context, _ reflect.Value, _ []string) (*runtime.Value, error) {
				return ctx.String(tag)
			},
			dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
				got, ok := v.AsString()
				if !ok || got != tag {
					return errors.InvalidUnion(errors.PhaseDecode, path, tagOf(v))
				}
				rv.SetZero()
				return nil
			},
		}, nil
	}

	// The payload travels structurally; compile it outside the cache so the
	// variant wrapper does not recurse into itself.
	payload, err := c.compileStruct(t)
	if err != nil {
		return nil, err
	}
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			inner, err := payload.enc(ctx, rv, append(path, tag))
			if err != nil {
				return nil, err
			}
			obj, err := ctx.NewObject()
			if err != nil {
				inner.Free()
				return nil, err
			}
			if err := obj.Set(tag, inner); err != nil {
				inner.Free()
				obj.Free()
				return nil, err
			}
			return obj.Value(), nil
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			inner, err := unionPayload(v, tag, path)
			if err != nil {
				return err
			}
			defer inner.Free()
			return payload.dec(ctx, inner, rv, append(path, tag))
		},
	}, nil
}

// unionPayload extracts the payload from a {tag: payload} object, checking
// that the single key matches the expected tag.
func unionPayload(v *runtime.Value, tag string, path []string) (*runtime.Value, error) {
	obj, err := v.Object()
	if err != nil {
		return nil, errors.InvalidUnion(errors.PhaseDecode, path, v.Kind().String())
	}
	keys, err := obj.Keys()
	if err != nil {
		return nil, err
	}
	if len(keys) != 1 || keys[0] != tag {
		return nil, errors.InvalidUnion(errors.PhaseDecode, path, strings.Join(keys, ","))
	}
	return obj.Get(tag)
}

func (c *compiler) compileUnion(info *unionInfo) (*codec, error) {
	return &codec{
		enc: func(ctx *runtime.Context, rv reflect.Value, path []string) (*runtime.Value, error) {
			if rv.IsNil() {
				return ctx.Null(), nil
			}
			concrete := rv.Elem()
			tag, ok := info.tags[concrete.Type()]
			if !ok {
				return nil, errors.InvalidUnion(errors.PhaseEncode, path, concrete.Type().String())
			}
			cd, err := c.codecFor(concrete.Type())
			if err != nil {
				return nil, err
			}
			return cd.enc(ctx, concrete, append(path, tag))
		},
		dec: func(ctx *runtime.Context, v *runtime.Value, rv reflect.Value, path []string) error {
			if v.IsNull() || v.IsUndefined() {
				rv.SetZero()
				return nil
			}
			tag, err := unionTag(v, path)
			if err != nil {
				return err
			}
			ct, ok := info.byTag[tag]
			if !ok {
				return errors.InvalidUnion(errors.PhaseDecode, path, tag)
			}
			cd, err := c.codecFor(ct)
			if err != nil {
				return err
			}
			slot := reflect.New(ct).Elem()
			if err := cd.dec(ctx, v, slot, path); err != nil {
				return err
			}
			rv.Set(slot)
			return nil
		},
	}, nil
}

// unionTag reads the discriminant: either the bare tag string or the single
// key of a {tag: payload} object.
func unionTag(v *runtime.Value, path []string) (string, error) {
	if s, ok := v.AsString(); ok {
		return s, nil
	}
	obj, err := v.Object()
	if err != nil {
		return "", errors.InvalidUnion(errors.PhaseDecode, path, v.Kind().String())
	}
	keys, err := obj.Keys()
	if err != nil {
		return "", err
	}
	if len(keys) != 1 {
		return "", errors.InvalidUnion(errors.PhaseDecode, path, strings.Join(keys, ","))
	}
	return keys[0], nil
}

func tagOf(v *runtime.Value) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	return v.Kind().String()
}
