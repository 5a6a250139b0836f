package engine

import (
	"math"
	"strconv"
)

// Tag identifies the kind of a raw value.
type Tag uint8

const (
	TagUndefined Tag = iota
	TagNull
	TagBool
	TagInt
	TagFloat
	TagString
	TagObject
	TagArray
	TagFunction
	TagException // call-result sentinel, never stored in the heap
)

func (t Tag) String() string {
	switch t {
	case TagUndefined:
		return "undefined"
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagString:
		return "string"
	case TagObject:
		return "object"
	case TagArray:
		return "array"
	case TagFunction:
		return "function"
	case TagException:
		return "exception"
	}
	return "invalid"
}

// Handle references a heap cell. Handle 0 is reserved and always invalid.
type Handle uint32

// RawValue is the engine's tagged value word. Primitive kinds carry their
// payload inline; heap kinds carry a Handle. The zero RawValue is Undefined.
type RawValue struct {
	tag Tag
	i   int64
	f   float64
	ref Handle
}

// Undefined returns the undefined value.
func Undefined() RawValue { return RawValue{} }

// Null returns the null value.
func Null() RawValue { return RawValue{tag: TagNull} }

// Boolean returns a boolean value.
func Boolean(b bool) RawValue {
	var i int64
	if b {
		i = 1
	}
	return RawValue{tag: TagBool, i: i}
}

// Int returns an integer value.
func Int(n int64) RawValue { return RawValue{tag: TagInt, i: n} }

// Float returns a float value.
func Float(f float64) RawValue { return RawValue{tag: TagFloat, f: f} }

// Exception returns the exception sentinel used as a native call result.
func Exception() RawValue { return RawValue{tag: TagException} }

// Tag returns the value's kind tag.
func (v RawValue) Tag() Tag { return v.tag }

// Bool returns the boolean payload. Valid only for TagBool.
func (v RawValue) Bool() bool { return v.i != 0 }

// Int returns the integer payload. Valid only for TagInt.
func (v RawValue) Int() int64 { return v.i }

// Float returns the float payload. Valid only for TagFloat.
func (v RawValue) Float() float64 { return v.f }

// Ref returns the heap handle. Zero for primitive kinds.
func (v RawValue) Ref() Handle { return v.ref }

// IsHeap reports whether the value holds a counted heap reference.
func (v RawValue) IsHeap() bool { return v.ref != 0 }

// IsException reports whether the value is the exception sentinel.
func (v RawValue) IsException() bool { return v.tag == TagException }

// PrimString renders a primitive the way the script language stringifies it.
// Heap kinds are not stringified implicitly and report false.
func PrimString(v RawValue) (string, bool) {
	return primString(v)
}

func primString(v RawValue) (string, bool) {
	switch v.tag {
	case TagUndefined:
		return "undefined", true
	case TagNull:
		return "null", true
	case TagBool:
		if v.i != 0 {
			return "true", true
		}
		return "false", true
	case TagInt:
		return strconv.FormatInt(v.i, 10), true
	case TagFloat:
		return formatFloat(v.f), true
	}
	return "", false
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == math.Trunc(f) && math.Abs(f) < 1e21:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
