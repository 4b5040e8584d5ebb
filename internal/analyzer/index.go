// Package analyzer declares classes into a shared index and resolves every
// name, member access and call of a compilation unit against it.
package analyzer

import (
	"sort"
	"strings"

	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/diagnostics"
)

type MethodInfo struct {
	Name       string
	Static     bool
	Params     int
	Descriptor string
}

// IsMain reports whether the method has the entry-point shape.
func (m *MethodInfo) IsMain() bool {
	return m.Static && m.Name == config.MainMethodName && m.Descriptor == config.MainMethodDescriptor
}

// ClassInfo is the resolvable surface of a class: its static fields and methods.
type ClassInfo struct {
	Name        string // fully qualified
	Package     string
	Simple      string
	Fields      map[string]bool
	Methods     map[string]*MethodInfo
	FromLibrary bool
}

func NewClassInfo(fqn string) *ClassInfo {
	pkg, simple := SplitName(fqn)
	return &ClassInfo{
		Name:    fqn,
		Package: pkg,
		Simple:  simple,
		Fields:  make(map[string]bool),
		Methods: make(map[string]*MethodInfo),
	}
}

// SplitName splits "a.b.C" into ("a.b", "C").
func SplitName(fqn string) (pkg, simple string) {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[:i], fqn[i+1:]
	}
	return "", fqn
}

// JoinName is the inverse of SplitName.
func JoinName(pkg, simple string) string {
	if pkg == "" {
		return simple
	}
	return pkg + "." + simple
}

// ClassIndex holds every class visible to one compile task.
type ClassIndex struct {
	classes  map[string]*ClassInfo
	packages map[string]bool
}

func NewClassIndex() *ClassIndex {
	return &ClassIndex{
		classes:  make(map[string]*ClassInfo),
		packages: make(map[string]bool),
	}
}

func (ix *ClassIndex) Lookup(fqn string) (*ClassInfo, bool) {
	ci, ok := ix.classes[fqn]
	return ci, ok
}

// IsPackage reports whether name is a package or a prefix of one.
func (ix *ClassIndex) IsPackage(name string) bool {
	return ix.packages[name]
}

// Names returns every indexed class in lexical order.
func (ix *ClassIndex) Names() []string {
	names := make([]string, 0, len(ix.classes))
	for name := range ix.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ix *ClassIndex) add(ci *ClassInfo) {
	ix.classes[ci.Name] = ci
	parts := strings.Split(ci.Package, ".")
	for i := range parts {
		if parts[0] == "" {
			break
		}
		ix.packages[strings.Join(parts[:i+1], ".")] = true
	}
}

// AddLibrary indexes a prebuilt class unless a task class already owns the name.
func (ix *ClassIndex) AddLibrary(ci *ClassInfo) {
	if _, exists := ix.classes[ci.Name]; exists {
		return
	}
	ci.FromLibrary = true
	ix.add(ci)
}

// Declare indexes the classes of a parsed unit. Task classes replace library
// classes of the same name; two task classes with one name are an error.
func (ix *ClassIndex) Declare(unit *ast.CompilationUnit) *diagnostics.DiagnosticError {
	pkg := unit.PackageName()
	for _, class := range unit.Classes {
		fqn := JoinName(pkg, class.Name)
		if existing, ok := ix.classes[fqn]; ok && !existing.FromLibrary {
			return diagnostics.NewErrorf(diagnostics.ErrA001, class.Token, "duplicate class: %s", fqn)
		}
		if config.BuiltinTypes[class.Name] {
			return diagnostics.NewErrorf(diagnostics.ErrA001, class.Token, "class name %s is reserved", class.Name)
		}

		ci := NewClassInfo(fqn)
		for _, member := range class.Members {
			if ci.Fields[member.MemberName()] || ci.Methods[member.MemberName()] != nil {
				return diagnostics.NewErrorf(diagnostics.ErrA002, member.GetToken(),
					"%s is already defined in class %s", member.MemberName(), fqn)
			}
			switch m := member.(type) {
			case *ast.FieldDecl:
				ci.Fields[m.Name] = true
			case *ast.MethodDecl:
				ci.Methods[m.Name] = &MethodInfo{
					Name:       m.Name,
					Static:     m.Static,
					Params:     len(m.Params),
					Descriptor: m.Descriptor(),
				}
			}
		}
		ix.add(ci)
	}
	return nil
}

// MainClasses lists the task classes that declare an entry point, sorted.
func (ix *ClassIndex) MainClasses() []string {
	var out []string
	for _, name := range ix.Names() {
		ci := ix.classes[name]
		if m := ci.Methods[config.MainMethodName]; m != nil && m.IsMain() {
			out = append(out, name)
		}
	}
	return out
}
