package jot

import (
	"fmt"

	"github.com/funvibe/jot/internal/vm"
)

// Marshaller converts runtime values to Go values.
type Marshaller struct {
	// seen guards against arrays that contain themselves.
	seen map[*vm.Array]bool
}

func NewMarshaller() *Marshaller {
	return &Marshaller{seen: make(map[*vm.Array]bool)}
}

// FromValue converts a runtime value into its Go counterpart.
func (m *Marshaller) FromValue(v vm.Value) (interface{}, error) {
	switch v.Type {
	case vm.ValNil:
		return nil, nil
	case vm.ValInt:
		return v.Int, nil
	case vm.ValBool:
		return v.AsBool(), nil
	case vm.ValString:
		return v.Str, nil
	case vm.ValObj:
		switch obj := v.Obj.(type) {
		case *vm.Array:
			return m.arrayToSlice(obj)
		case *vm.Exception:
			return obj, nil
		case *vm.MethodHandle:
			return obj.Name, nil
		}
		return nil, fmt.Errorf("unsupported object %T", v.Obj)
	}
	return nil, fmt.Errorf("unsupported value type %v", v.Type)
}

func (m *Marshaller) arrayToSlice(a *vm.Array) ([]interface{}, error) {
	if m.seen[a] {
		return nil, fmt.Errorf("array %s contains itself", a)
	}
	m.seen[a] = true
	defer delete(m.seen, a)

	out := make([]interface{}, a.Len())
	for i := range out {
		elem, _ := a.Get(int64(i))
		val, err := m.FromValue(elem)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = val
	}
	return out, nil
}
