package vm

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
)

// Program is a linked, executable set of classes.
type Program struct {
	Classes []*ClassFile // sorted by name
}

func (p *Program) ClassIndex(name string) (int, bool) {
	i := sort.Search(len(p.Classes), func(i int) bool { return p.Classes[i].Name >= name })
	if i < len(p.Classes) && p.Classes[i].Name == name {
		return i, true
	}
	return 0, false
}

func (p *Program) Class(name string) (*ClassFile, bool) {
	if i, ok := p.ClassIndex(name); ok {
		return p.Classes[i], true
	}
	return nil, false
}

// Serialize converts a Program to binary format.
// Format:
// - Magic number (4 bytes): "JOTX"
// - Version (1 byte)
// - Gob-encoded Program
func (p *Program) Serialize() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(programMagic[:])
	buf.WriteByte(programVersion)
	if err := gob.NewEncoder(buf).Encode(p); err != nil {
		return nil, fmt.Errorf("program gob encoding failed: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeProgram decodes and validates an executable artifact.
func DeserializeProgram(data []byte) (*Program, error) {
	payload, err := checkHeader(data, programMagic, programVersion)
	if err != nil {
		return nil, err
	}
	var p Program
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&p); err != nil {
		return nil, fmt.Errorf("program gob decoding failed: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the structural integrity of a deserialized program:
// sorted unique classes, verified bytecode and linked references in range.
func (p *Program) Validate() error {
	if len(p.Classes) == 0 {
		return fmt.Errorf("program has no classes")
	}
	for i, cf := range p.Classes {
		if cf == nil {
			return fmt.Errorf("class %d is nil", i)
		}
		if i > 0 && p.Classes[i-1].Name >= cf.Name {
			return fmt.Errorf("class table is not sorted at %s", cf.Name)
		}
		if err := Verify(cf); err != nil {
			return err
		}
		if err := p.checkLinks(cf); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) checkLinks(cf *ClassFile) error {
	return forEachFunction(cf, func(fn *Function) error {
		for _, k := range fn.Chunk.Constants {
			if k.Kind != ConstFieldRef && k.Kind != ConstMethodRef {
				continue
			}
			if !k.Linked || k.ClassIdx < 0 || k.ClassIdx >= len(p.Classes) {
				return fmt.Errorf("%s.%s: unlinked reference %s", cf.Name, fn.Name, k)
			}
			target := p.Classes[k.ClassIdx]
			if k.Kind == ConstFieldRef && (k.MemberIdx < 0 || k.MemberIdx >= len(target.Fields)) {
				return fmt.Errorf("%s.%s: field reference %s out of range", cf.Name, fn.Name, k)
			}
			if k.Kind == ConstMethodRef && (k.MemberIdx < 0 || k.MemberIdx >= len(target.Methods)) {
				return fmt.Errorf("%s.%s: method reference %s out of range", cf.Name, fn.Name, k)
			}
		}
		return nil
	})
}

// forEachFunction visits the static initializer and every method body.
func forEachFunction(cf *ClassFile, visit func(*Function) error) error {
	if cf.StaticInit != nil {
		if err := visit(cf.StaticInit); err != nil {
			return err
		}
	}
	for i := range cf.Methods {
		if err := visit(cf.Methods[i].Fn); err != nil {
			return err
		}
	}
	return nil
}
