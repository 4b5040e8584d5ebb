package vm

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
)

// ValueType identifies the type of value stored in the Value struct
type ValueType uint8

const (
	ValNil ValueType = iota
	ValInt
	ValBool
	ValString
	ValObj // *Array, *Exception or *MethodHandle
)

// Value is a tagged union; primitives and strings avoid boxing.
type Value struct {
	Type ValueType
	Int  int64
	Str  string
	Obj  interface{}
}

func NilVal() Value            { return Value{Type: ValNil} }
func IntVal(v int64) Value     { return Value{Type: ValInt, Int: v} }
func StringVal(s string) Value { return Value{Type: ValString, Str: s} }
func ObjVal(o interface{}) Value {
	return Value{Type: ValObj, Obj: o}
}

func BoolVal(b bool) Value {
	v := Value{Type: ValBool}
	if b {
		v.Int = 1
	}
	return v
}

func (v Value) AsBool() bool { return v.Int == 1 }
func (v Value) IsNil() bool  { return v.Type == ValNil }

// TypeName is the source-level name of the value's runtime type.
func (v Value) TypeName() string {
	switch v.Type {
	case ValNil:
		return "null"
	case ValInt:
		return "int"
	case ValBool:
		return "boolean"
	case ValString:
		return "String"
	}
	switch o := v.Obj.(type) {
	case *Array:
		return o.Elem + "[]"
	case *Exception:
		return o.Class
	case *MethodHandle:
		return "MethodRef"
	}
	return "Object"
}

// String renders a value the way string concatenation and println do.
func (v Value) String() string {
	switch v.Type {
	case ValNil:
		return "null"
	case ValInt:
		return strconv.FormatInt(v.Int, 10)
	case ValBool:
		return strconv.FormatBool(v.AsBool())
	case ValString:
		return v.Str
	}
	if s, ok := v.Obj.(fmt.Stringer); ok {
		return s.String()
	}
	return "Object"
}

// Equal implements ==: primitives and strings by value, objects by identity.
func (v Value) Equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValInt, ValBool:
		return v.Int == o.Int
	case ValString:
		return v.Str == o.Str
	}
	return v.Obj == o.Obj
}

// ZeroValue is the default for a field or array element of the given type.
func ZeroValue(typeName string) Value {
	switch typeName {
	case "int":
		return IntVal(0)
	case "boolean":
		return BoolVal(false)
	}
	return NilVal()
}

var arrayIDs atomic.Int64

// Array is a fixed-length array. Elements are guarded because arrays may be
// shared between threads through static fields.
type Array struct {
	Elem string

	id    int64
	mu    sync.Mutex
	elems []Value
}

func NewArray(elem string, n int) *Array {
	a := &Array{Elem: elem, id: arrayIDs.Add(1), elems: make([]Value, n)}
	zero := ZeroValue(elem)
	for i := range a.elems {
		a.elems[i] = zero
	}
	return a
}

// NewStringArray builds a String[] from Go strings.
func NewStringArray(items []string) *Array {
	a := NewArray("String", len(items))
	for i, s := range items {
		a.elems[i] = StringVal(s)
	}
	return a
}

func (a *Array) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.elems)
}

// Get returns the element and false when i is out of bounds.
func (a *Array) Get(i int64) (Value, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= int64(len(a.elems)) {
		return Value{}, false
	}
	return a.elems[i], true
}

func (a *Array) Set(i int64, v Value) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= int64(len(a.elems)) {
		return false
	}
	a.elems[i] = v
	return true
}

func (a *Array) String() string {
	return fmt.Sprintf("%s[]@%x", a.Elem, a.id)
}

// MethodHandle is the value of a method reference C::m.
type MethodHandle struct {
	ClassIdx  int
	MethodIdx int
	Name      string
}

func (m *MethodHandle) String() string { return m.Name }
