package analyzer

import (
	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/token"
)

// walker carries the resolution state for one compilation unit.
// The first diagnostic aborts the walk.
type walker struct {
	index   *ClassIndex
	unit    *ast.CompilationUnit
	pkg     string
	imports map[string]string // simple name -> fqn

	class  *ClassInfo
	method *ast.MethodDecl // nil while walking field initializers
	static bool

	scopes    []map[string]int
	nextSlot  int
	loopDepth int

	refs map[string]bool
}

func newWalker(index *ClassIndex, unit *ast.CompilationUnit) *walker {
	return &walker{
		index:   index,
		unit:    unit,
		pkg:     unit.PackageName(),
		imports: make(map[string]string),
		refs:    make(map[string]bool),
	}
}

func (w *walker) walkUnit() *diagnostics.DiagnosticError {
	for _, imp := range w.unit.Imports {
		fqn := imp.Name.String()
		if _, ok := w.index.Lookup(fqn); !ok {
			pkg, simple := SplitName(fqn)
			if pkg != "" && !w.index.IsPackage(pkg) {
				return diagnostics.NewErrorf(diagnostics.ErrR001, imp.Name.Token, "package %s does not exist", pkg)
			}
			return diagnostics.NewErrorf(diagnostics.ErrR001, imp.Name.Token, "cannot find symbol: class %s in package %s", simple, pkg)
		}
		if prev, ok := w.imports[imp.Name.Last()]; ok && prev != fqn {
			return diagnostics.NewErrorf(diagnostics.ErrA002, imp.Token, "%s is already defined in a single-type import", imp.Name.Last())
		}
		w.imports[imp.Name.Last()] = fqn
		w.refs[fqn] = true
	}

	for _, class := range w.unit.Classes {
		if err := w.walkClass(class); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) walkClass(class *ast.ClassDecl) *diagnostics.DiagnosticError {
	ci, _ := w.index.Lookup(JoinName(w.pkg, class.Name))
	w.class = ci

	for _, field := range class.Fields() {
		if !field.Static {
			return diagnostics.NewErrorf(diagnostics.ErrA005, field.Token,
				"instance field %s is not supported; declare it static", field.Name)
		}
		if err := w.checkType(field.Type, false); err != nil {
			return err
		}
		if field.Value == nil {
			continue
		}
		w.method, w.static = nil, true
		w.resetLocals()
		if err := w.walkExpression(field.Value); err != nil {
			return err
		}
	}

	for _, method := range class.Methods() {
		if err := w.walkMethod(method); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) walkMethod(method *ast.MethodDecl) *diagnostics.DiagnosticError {
	w.method, w.static = method, method.Static
	w.resetLocals()

	if err := w.checkType(method.ReturnType, true); err != nil {
		return err
	}
	for _, param := range method.Params {
		if err := w.checkType(param.Type, false); err != nil {
			return err
		}
		if _, err := w.declareLocal(param.Name, param.Token); err != nil {
			return err
		}
	}

	// The body shares the parameter scope, so a local may not redeclare a parameter.
	for _, stmt := range method.Body.Statements {
		if err := w.walkStatement(stmt); err != nil {
			return err
		}
	}
	method.LocalCount = w.nextSlot
	return nil
}

func (w *walker) resetLocals() {
	w.scopes = []map[string]int{{}}
	w.nextSlot = 0
	w.loopDepth = 0
}

func (w *walker) pushScope() { w.scopes = append(w.scopes, map[string]int{}) }
func (w *walker) popScope()  { w.scopes = w.scopes[:len(w.scopes)-1] }

// declareLocal assigns the next slot. Slots are never reused within a method.
func (w *walker) declareLocal(name string, tok token.Token) (int, *diagnostics.DiagnosticError) {
	if _, exists := w.lookupLocal(name); exists {
		return 0, diagnostics.NewErrorf(diagnostics.ErrA003, tok, "variable %s is already defined in method %s", name, w.methodName())
	}
	if w.nextSlot >= config.MaxLocals {
		return 0, diagnostics.NewErrorf(diagnostics.ErrA005, tok, "too many local variables in method %s", w.methodName())
	}
	slot := w.nextSlot
	w.nextSlot++
	w.scopes[len(w.scopes)-1][name] = slot
	return slot, nil
}

func (w *walker) lookupLocal(name string) (int, bool) {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		if slot, ok := w.scopes[i][name]; ok {
			return slot, true
		}
	}
	return 0, false
}

func (w *walker) methodName() string {
	if w.method == nil {
		return config.StaticInitName
	}
	return w.method.Name
}

// checkType verifies that a declared type names something that exists.
func (w *walker) checkType(t *ast.TypeRef, isReturn bool) *diagnostics.DiagnosticError {
	switch {
	case t.Name == "void" && (!isReturn || t.Dims > 0):
		return diagnostics.NewError(diagnostics.ErrA005, t.Token, "'void' type not allowed here")
	case t.Name == "var":
		return diagnostics.NewError(diagnostics.ErrA005, t.Token, "'var' is not allowed here")
	case config.BuiltinTypes[t.Name], config.ThrowableClasses[t.Name]:
		return nil
	}
	qn := &ast.QualifiedName{Token: t.Token, Parts: splitDots(t.Name)}
	if _, err := w.resolveQualifiedClass(qn); err != nil {
		return err
	}
	return nil
}

func splitDots(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}
