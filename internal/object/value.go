package object

import (
	"math"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindObj
)

// Value is the tagged representation of every Lox value.
// The zero Value is nil.
type Value struct {
	Kind Kind
	B    bool
	Num  float64
	Obj  Obj
}

func Nil() Value { return Value{} }
func Bool(b bool) Value {
	return Value{Kind: KindBool, B: b}
}
func Number(n float64) Value {
	return Value{Kind: KindNumber, Num: n}
}
func FromObj(o Obj) Value {
	return Value{Kind: KindObj, Obj: o}
}

func (v Value) IsNil() bool    { return v.Kind == KindNil }
func (v Value) IsBool() bool   { return v.Kind == KindBool }
func (v Value) IsNumber() bool { return v.Kind == KindNumber }
func (v Value) IsObj() bool    { return v.Kind == KindObj }

// IsString reports whether v references an interned string.
func (v Value) IsString() bool {
	_, ok := v.Obj.(*String)
	return v.Kind == KindObj && ok
}

// AsString returns the string object held by v, or nil.
func (v Value) AsString() *String {
	if v.Kind != KindObj {
		return nil
	}
	s, _ := v.Obj.(*String)
	return s
}

// Falsey reports whether v counts as false in a condition.
// Only nil and false are falsey.
func Falsey(v Value) bool {
	return v.Kind == KindNil || (v.Kind == KindBool && !v.B)
}

// Equal compares two values structurally. Values of different kinds are never
// equal. Objects compare by identity, which is content equality for strings
// because every string is interned.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNil:
		return true
	case KindBool:
		return a.B == b.B
	case KindNumber:
		return a.Num == b.Num
	case KindObj:
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String formats v the way the print statement does.
func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		if v.B {
			return "true"
		}
		return "false"
	case KindNumber:
		return FormatNumber(v.Num)
	case KindObj:
		if v.Obj == nil {
			return "nil"
		}
		return v.Obj.String()
	default:
		return "?"
	}
}

// FormatNumber renders integral values below 1e21 without exponent or
// fraction and everything else in the shortest %g form. Infinities and NaN
// are spelled inf, -inf and nan.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "nan"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e21 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// TypeName reports the dynamic type name for a value.
func TypeName(v Value) string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindObj:
		if v.Obj == nil {
			return "nil"
		}
		return v.Obj.Type().String()
	default:
		return "unknown"
	}
}
