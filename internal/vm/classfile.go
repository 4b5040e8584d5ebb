package vm

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"
)

// Function is a compiled method body.
type Function struct {
	Name       string
	Arity      int
	LocalCount int
	Chunk      *Chunk
}

type Method struct {
	Name   string
	Static bool
	Params []string
	Return string
	Fn     *Function
}

// Descriptor renders the signature, e.g. "(String[])void".
func (m *Method) Descriptor() string {
	return "(" + strings.Join(m.Params, ",") + ")" + m.Return
}

type Field struct {
	Name string
	Type string
}

// ClassFile is the compiled form of one class.
type ClassFile struct {
	Name       string // fully qualified
	SourceFile string
	Fields     []Field
	StaticInit *Function // nil when no field has an initializer
	Methods    []Method

	// References lists the other classes this class refers to.
	References []string
}

func (cf *ClassFile) MethodIndex(name string) (int, bool) {
	for i := range cf.Methods {
		if cf.Methods[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

func (cf *ClassFile) FieldIndex(name string) (int, bool) {
	for i := range cf.Fields {
		if cf.Fields[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// Class file format constants
const (
	classFileVersion byte = 0x01
	programVersion   byte = 0x01
)

var (
	classFileMagic = [4]byte{'J', 'O', 'T', 'C'}
	programMagic   = [4]byte{'J', 'O', 'T', 'X'}
)

// Encode serializes a class file.
// Format:
// - Magic number (4 bytes): "JOTC"
// - Version (1 byte)
// - Gob-encoded ClassFile
func (cf *ClassFile) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(classFileMagic[:])
	buf.WriteByte(classFileVersion)
	if err := gob.NewEncoder(buf).Encode(cf); err != nil {
		return nil, fmt.Errorf("class %s: gob encoding failed: %w", cf.Name, err)
	}
	return buf.Bytes(), nil
}

// DecodeClassFile parses and structurally checks an encoded class file.
func DecodeClassFile(data []byte) (*ClassFile, error) {
	payload, err := checkHeader(data, classFileMagic, classFileVersion)
	if err != nil {
		return nil, err
	}
	var cf ClassFile
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&cf); err != nil {
		return nil, fmt.Errorf("class file gob decoding failed: %w", err)
	}
	if cf.Name == "" {
		return nil, fmt.Errorf("class file has no name")
	}
	return &cf, nil
}

func checkHeader(data []byte, magic [4]byte, version byte) ([]byte, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("data too short")
	}
	if !bytes.Equal(data[:4], magic[:]) {
		return nil, fmt.Errorf("invalid magic number, expected %s", string(magic[:]))
	}
	if data[4] != version {
		return nil, fmt.Errorf("unsupported version %d (expected %d)", data[4], version)
	}
	return data[5:], nil
}
