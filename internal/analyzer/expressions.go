package analyzer

import (
	"strings"

	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/token"
)

var builtinClasses = map[string]bool{
	config.SystemClassName:  true,
	config.IntegerClassName: true,
	config.StringClassName:  true,
	config.MathClassName:    true,
	config.ThreadClassName:  true,
	config.ObjectClassName:  true,
}

// walkExpression resolves an expression used as a value.
func (w *walker) walkExpression(expr ast.Expression) *diagnostics.DiagnosticError {
	switch e := expr.(type) {
	case *ast.IntegerLiteral, *ast.StringLiteral, *ast.BooleanLiteral, *ast.NullLiteral:
		return nil

	case *ast.Identifier, *ast.MemberExpression:
		res, err := w.resolveName(e)
		if err != nil {
			return err
		}
		return requireValue(e, res)

	case *ast.PrefixExpression:
		return w.walkExpression(e.Right)

	case *ast.InfixExpression:
		if err := w.walkExpression(e.Left); err != nil {
			return err
		}
		return w.walkExpression(e.Right)

	case *ast.IndexExpression:
		if err := w.walkExpression(e.Left); err != nil {
			return err
		}
		return w.walkExpression(e.Index)

	case *ast.CallExpression:
		return w.walkCall(e)

	case *ast.NewArrayExpression:
		if err := w.checkType(e.Elem, false); err != nil {
			return err
		}
		return w.walkExpression(e.Size)

	case *ast.NewObjectExpression:
		return w.walkNewObject(e)

	case *ast.MethodRefExpression:
		return w.walkMethodRef(e)
	}
	return diagnostics.NewErrorf(diagnostics.ErrA005, expr.GetToken(), "unsupported expression %T", expr)
}

func requireValue(expr ast.Expression, res *ast.Resolution) *diagnostics.DiagnosticError {
	switch res.Kind {
	case ast.RefLocal, ast.RefStaticField, ast.RefArrayLength:
		return nil
	case ast.RefClass:
		return diagnostics.NewErrorf(diagnostics.ErrA005, expr.GetToken(), "class %s cannot be used as a value", nameOf(res))
	case ast.RefPackage:
		return diagnostics.NewErrorf(diagnostics.ErrR003, expr.GetToken(), "cannot find symbol: variable %s", res.Class)
	case ast.RefNativeObject:
		return diagnostics.NewErrorf(diagnostics.ErrA005, expr.GetToken(), "%s cannot be used as a value", res.Native)
	}
	return diagnostics.NewError(diagnostics.ErrR003, expr.GetToken(), "unresolved expression")
}

func nameOf(res *ast.Resolution) string {
	if res.Native != "" {
		return res.Native
	}
	return res.Class
}

// resolveName resolves an identifier or a dotted chain. The result may be a
// value, a class, a package prefix or one of the System streams.
func (w *walker) resolveName(expr ast.Expression) (*ast.Resolution, *diagnostics.DiagnosticError) {
	switch e := expr.(type) {
	case *ast.Identifier:
		res, err := w.resolveIdentifier(e)
		if err != nil {
			return nil, err
		}
		e.Resolved = res
		return res, nil

	case *ast.MemberExpression:
		res, err := w.resolveMember(e)
		if err != nil {
			return nil, err
		}
		e.Resolved = res
		return res, nil
	}

	if err := w.walkExpression(expr); err != nil {
		return nil, err
	}
	return &ast.Resolution{Kind: ast.RefUnresolved}, nil
}

func (w *walker) resolveIdentifier(id *ast.Identifier) (*ast.Resolution, *diagnostics.DiagnosticError) {
	if slot, ok := w.lookupLocal(id.Value); ok {
		return &ast.Resolution{Kind: ast.RefLocal, Slot: slot}, nil
	}
	if w.class.Fields[id.Value] {
		return &ast.Resolution{Kind: ast.RefStaticField, Class: w.class.Name, Member: id.Value}, nil
	}
	if res, ok := w.resolveSimpleClass(id.Value); ok {
		return res, nil
	}
	if w.index.IsPackage(id.Value) {
		return &ast.Resolution{Kind: ast.RefPackage, Class: id.Value}, nil
	}
	return nil, diagnostics.NewErrorf(diagnostics.ErrR003, id.Token, "cannot find symbol: variable %s", id.Value)
}

// resolveSimpleClass looks a simple class name up in imports, the current
// package and the built-in classes, in that order.
func (w *walker) resolveSimpleClass(name string) (*ast.Resolution, bool) {
	if fqn, ok := w.imports[name]; ok {
		w.refs[fqn] = true
		return &ast.Resolution{Kind: ast.RefClass, Class: fqn}, true
	}
	if ci, ok := w.index.Lookup(JoinName(w.pkg, name)); ok {
		w.refs[ci.Name] = true
		return &ast.Resolution{Kind: ast.RefClass, Class: ci.Name}, true
	}
	if builtinClasses[name] || config.ThrowableClasses[name] {
		return &ast.Resolution{Kind: ast.RefClass, Native: name}, true
	}
	return nil, false
}

func (w *walker) resolveMember(me *ast.MemberExpression) (*ast.Resolution, *diagnostics.DiagnosticError) {
	obj, err := w.resolveName(me.Object)
	if err != nil {
		return nil, err
	}

	switch obj.Kind {
	case ast.RefPackage:
		name := obj.Class + "." + me.Member
		if ci, ok := w.index.Lookup(name); ok {
			w.refs[ci.Name] = true
			return &ast.Resolution{Kind: ast.RefClass, Class: ci.Name}, nil
		}
		if w.index.IsPackage(name) {
			return &ast.Resolution{Kind: ast.RefPackage, Class: name}, nil
		}
		return nil, diagnostics.NewErrorf(diagnostics.ErrR001, me.Token, "cannot find symbol: class %s in package %s", me.Member, obj.Class)

	case ast.RefClass:
		if obj.Native != "" {
			key := obj.Native + "." + me.Member
			if config.NativeObjects[key] {
				return &ast.Resolution{Kind: ast.RefNativeObject, Native: key}, nil
			}
			return nil, diagnostics.NewErrorf(diagnostics.ErrR003, me.Token, "cannot find symbol: variable %s in class %s", me.Member, obj.Native)
		}
		ci, _ := w.index.Lookup(obj.Class)
		if ci.Fields[me.Member] {
			return &ast.Resolution{Kind: ast.RefStaticField, Class: ci.Name, Member: me.Member}, nil
		}
		return nil, diagnostics.NewErrorf(diagnostics.ErrR003, me.Token, "cannot find symbol: variable %s in class %s", me.Member, ci.Name)

	case ast.RefNativeObject:
		return nil, diagnostics.NewErrorf(diagnostics.ErrR003, me.Token, "cannot find symbol: variable %s in %s", me.Member, obj.Native)
	}

	if me.Member == "length" {
		return &ast.Resolution{Kind: ast.RefArrayLength}, nil
	}
	return nil, diagnostics.NewErrorf(diagnostics.ErrR003, me.Token, "cannot find symbol: variable %s", me.Member)
}

func (w *walker) walkCall(call *ast.CallExpression) *diagnostics.DiagnosticError {
	res, err := w.resolveCallee(call)
	if err != nil {
		return err
	}
	call.Resolved = res
	for _, arg := range call.Arguments {
		if err := w.walkExpression(arg); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) resolveCallee(call *ast.CallExpression) (*ast.Resolution, *diagnostics.DiagnosticError) {
	argc := len(call.Arguments)

	switch fn := call.Function.(type) {
	case *ast.Identifier:
		return w.staticCall(w.class, fn.Value, argc, fn.Token, true)

	case *ast.MemberExpression:
		obj, err := w.resolveName(fn.Object)
		if err != nil {
			return nil, err
		}
		switch obj.Kind {
		case ast.RefClass:
			if obj.Native != "" {
				return nativeCall(obj.Native+"."+fn.Member, argc, fn.Token)
			}
			ci, _ := w.index.Lookup(obj.Class)
			return w.staticCall(ci, fn.Member, argc, fn.Token, ci == w.class)
		case ast.RefNativeObject:
			return nativeCall(obj.Native+"."+fn.Member, argc, fn.Token)
		case ast.RefPackage:
			return nil, diagnostics.NewErrorf(diagnostics.ErrR001, fn.Token, "package %s does not exist", obj.Class)
		case ast.RefUnresolved:
		default:
			if err := requireValue(fn.Object, obj); err != nil {
				return nil, err
			}
		}
		sig, ok := config.VirtualMethods[fn.Member]
		if !ok {
			return nil, diagnostics.NewErrorf(diagnostics.ErrR002, fn.Token, "cannot find symbol: method %s", fn.Member)
		}
		if argc < sig.MinArgs || argc > sig.MaxArgs {
			return nil, diagnostics.NewErrorf(diagnostics.ErrR004, fn.Token, "method %s cannot be applied to %d argument(s)", fn.Member, argc)
		}
		return &ast.Resolution{Kind: ast.RefVirtualCall, Member: fn.Member}, nil
	}
	return nil, diagnostics.NewError(diagnostics.ErrR002, call.Token, "expression is not callable")
}

func (w *walker) staticCall(ci *ClassInfo, name string, argc int, tok token.Token, sameClass bool) (*ast.Resolution, *diagnostics.DiagnosticError) {
	m, ok := ci.Methods[name]
	if !ok {
		return nil, diagnostics.NewErrorf(diagnostics.ErrR002, tok, "cannot find symbol: method %s in class %s", name, ci.Name)
	}
	if !m.Static && (w.static || !sameClass) {
		return nil, diagnostics.NewErrorf(diagnostics.ErrA005, tok, "non-static method %s cannot be referenced from a static context", name)
	}
	if m.Params != argc {
		return nil, diagnostics.NewErrorf(diagnostics.ErrR004, tok,
			"method %s in class %s cannot be applied to given types: expected %d argument(s), found %d", name, ci.Name, m.Params, argc)
	}
	w.refs[ci.Name] = true
	return &ast.Resolution{Kind: ast.RefStaticCall, Class: ci.Name, Member: name}, nil
}

func nativeCall(key string, argc int, tok token.Token) (*ast.Resolution, *diagnostics.DiagnosticError) {
	sig, ok := config.Natives[key]
	if !ok {
		return nil, diagnostics.NewErrorf(diagnostics.ErrR002, tok, "cannot find symbol: method %s", key)
	}
	if argc < sig.MinArgs || argc > sig.MaxArgs {
		return nil, diagnostics.NewErrorf(diagnostics.ErrR004, tok, "method %s cannot be applied to %d argument(s)", key, argc)
	}
	return &ast.Resolution{Kind: ast.RefNativeCall, Native: key}, nil
}

// resolveQualifiedClass resolves a simple or fully-qualified class name.
func (w *walker) resolveQualifiedClass(qn *ast.QualifiedName) (*ast.Resolution, *diagnostics.DiagnosticError) {
	if len(qn.Parts) == 1 {
		if res, ok := w.resolveSimpleClass(qn.Parts[0]); ok {
			return res, nil
		}
		return nil, diagnostics.NewErrorf(diagnostics.ErrR001, qn.Token, "cannot find symbol: class %s", qn.Parts[0])
	}
	name := qn.String()
	if ci, ok := w.index.Lookup(name); ok {
		w.refs[ci.Name] = true
		return &ast.Resolution{Kind: ast.RefClass, Class: ci.Name}, nil
	}
	if strings.HasPrefix(name, "java.lang.") {
		if simple := qn.Last(); builtinClasses[simple] || config.ThrowableClasses[simple] {
			return &ast.Resolution{Kind: ast.RefClass, Native: simple}, nil
		}
	}
	pkg, simple := SplitName(name)
	if !w.index.IsPackage(pkg) {
		return nil, diagnostics.NewErrorf(diagnostics.ErrR001, qn.Token, "package %s does not exist", pkg)
	}
	return nil, diagnostics.NewErrorf(diagnostics.ErrR001, qn.Token, "cannot find symbol: class %s in package %s", simple, pkg)
}

func (w *walker) walkNewObject(e *ast.NewObjectExpression) *diagnostics.DiagnosticError {
	res, err := w.resolveQualifiedClass(e.Class)
	if err != nil {
		return err
	}
	if res.Native == "" || !config.ThrowableClasses[res.Native] {
		return diagnostics.NewErrorf(diagnostics.ErrA005, e.Token, "class %s cannot be instantiated", nameOf(res))
	}
	if len(e.Arguments) > 1 {
		return diagnostics.NewErrorf(diagnostics.ErrR004, e.Token, "constructor %s cannot be applied to %d arguments", res.Native, len(e.Arguments))
	}
	// Normalise java.lang.X to X for code generation.
	e.Class = &ast.QualifiedName{Token: e.Class.Token, Parts: []string{res.Native}}
	for _, arg := range e.Arguments {
		if err := w.walkExpression(arg); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) walkMethodRef(e *ast.MethodRefExpression) *diagnostics.DiagnosticError {
	res, err := w.resolveQualifiedClass(e.Class)
	if err != nil {
		return err
	}
	if res.Native != "" {
		return diagnostics.NewErrorf(diagnostics.ErrR002, e.Token, "cannot find symbol: method %s in class %s", e.Method, res.Native)
	}
	ci, _ := w.index.Lookup(res.Class)
	m, ok := ci.Methods[e.Method]
	if !ok {
		return diagnostics.NewErrorf(diagnostics.ErrR002, e.Token, "cannot find symbol: method %s in class %s", e.Method, ci.Name)
	}
	if !m.Static {
		return diagnostics.NewErrorf(diagnostics.ErrA005, e.Token, "method reference %s::%s must name a static method", ci.Name, e.Method)
	}
	if m.Params != 0 {
		return diagnostics.NewErrorf(diagnostics.ErrR004, e.Token, "method reference %s::%s must take no arguments", ci.Name, e.Method)
	}
	w.refs[ci.Name] = true
	e.Resolved = &ast.Resolution{Kind: ast.RefStaticCall, Class: ci.Name, Member: e.Method}
	return nil
}
