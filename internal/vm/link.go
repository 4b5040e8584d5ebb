package vm

import (
	"fmt"
	"sort"
)

// LinkError reports a reference that cannot be bound.
type LinkError struct {
	Class     string
	Function  string
	Reference string
	Reason    string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link %s.%s: %s: %s", e.Class, e.Function, e.Reference, e.Reason)
}

// Link verifies a closed set of classes and binds every symbolic field and
// method reference to indices in the resulting program's class table.
// The input class files are modified in place.
func Link(classes []*ClassFile) (*Program, error) {
	sorted := make([]*ClassFile, len(classes))
	copy(sorted, classes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	prog := &Program{Classes: sorted}
	for i, cf := range sorted {
		if i > 0 && sorted[i-1].Name == cf.Name {
			return nil, &VerifyError{Class: cf.Name, Reason: "duplicate class"}
		}
		if err := Verify(cf); err != nil {
			return nil, err
		}
	}

	for _, cf := range sorted {
		err := forEachFunction(cf, func(fn *Function) error {
			return prog.linkFunction(cf, fn)
		})
		if err != nil {
			return nil, err
		}
	}
	return prog, nil
}

func (p *Program) linkFunction(cf *ClassFile, fn *Function) error {
	chunk := fn.Chunk
	for i := range chunk.Constants {
		k := &chunk.Constants[i]
		if k.Kind != ConstFieldRef && k.Kind != ConstMethodRef {
			continue
		}
		fail := func(reason string) error {
			return &LinkError{Class: cf.Name, Function: fn.Name, Reference: k.String(), Reason: reason}
		}

		classIdx, ok := p.ClassIndex(k.Class)
		if !ok {
			return fail("class not found")
		}
		target := p.Classes[classIdx]

		var memberIdx int
		if k.Kind == ConstFieldRef {
			if memberIdx, ok = target.FieldIndex(k.Member); !ok {
				return fail("no such field")
			}
		} else {
			if memberIdx, ok = target.MethodIndex(k.Member); !ok {
				return fail("no such method")
			}
		}
		k.ClassIdx, k.MemberIdx, k.Linked = classIdx, memberIdx, true
	}

	// Call sites must pass exactly the callee's arity.
	for offset := 0; offset < len(chunk.Code); offset += Opcode(chunk.Code[offset]).Width() {
		op := Opcode(chunk.Code[offset])
		if op != OP_INVOKE_STATIC && op != OP_METHOD_REF {
			continue
		}
		k := chunk.Constants[chunk.ReadU16(offset+1)]
		callee := p.Classes[k.ClassIdx].Methods[k.MemberIdx]
		argc := 0
		if op == OP_INVOKE_STATIC {
			argc = int(chunk.Code[offset+3])
		}
		if callee.Fn.Arity != argc {
			return &LinkError{Class: cf.Name, Function: fn.Name, Reference: k.String(),
				Reason: fmt.Sprintf("called with %d argument(s), expects %d", argc, callee.Fn.Arity)}
		}
	}
	return nil
}
