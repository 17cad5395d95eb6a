package menu

import (
	"fmt"
	"strconv"
)

// ValueType tags the scalar held by a Value.
type ValueType int

const (
	TypeInvalid ValueType = iota
	TypeInt
	TypeFloat
	TypeString
	TypeEnum
	TypeBool
)

func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeEnum:
		return "enum"
	case TypeBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a typed scalar for a configurable item. The zero Value is invalid.
type Value struct {
	typ ValueType
	i   int64
	f   float64
	s   string
	b   bool
}

func IntValue(v int64) Value     { return Value{typ: TypeInt, i: v} }
func FloatValue(v float64) Value { return Value{typ: TypeFloat, f: v} }
func StringValue(v string) Value { return Value{typ: TypeString, s: v} }
func EnumValue(v string) Value   { return Value{typ: TypeEnum, s: v} }
func BoolValue(v bool) Value     { return Value{typ: TypeBool, b: v} }

func (v Value) Type() ValueType { return v.typ }
func (v Value) IsValid() bool   { return v.typ != TypeInvalid }
func (v Value) Int() int64      { return v.i }
func (v Value) Float() float64  { return v.f }
func (v Value) Str() string     { return v.s }
func (v Value) Bool() bool      { return v.b }

// Raw returns the value as a plain Go scalar (int64, float64, string or bool)
// suitable for serialization.
func (v Value) Raw() any {
	switch v.typ {
	case TypeInt:
		return v.i
	case TypeFloat:
		return v.f
	case TypeString, TypeEnum:
		return v.s
	case TypeBool:
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.typ {
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeString, TypeEnum:
		return v.s
	case TypeBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// rawNumber converts a decoded scalar into float64 for range checks.
func rawNumber(raw any) (float64, bool) {
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func rawString(raw any) (string, bool) {
	switch s := raw.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	default:
		return "", false
	}
}
