package analyzer

import (
	"sort"
	"testing"

	"github.com/funvibe/jot/internal/ast"
	"github.com/funvibe/jot/internal/diagnostics"
	"github.com/funvibe/jot/internal/lexer"
	"github.com/funvibe/jot/internal/parser"
	"github.com/funvibe/jot/internal/pipeline"
	"github.com/stretchr/testify/require"
)

// analyze declares every source into one index and analyzes them in path
// order. It stops at the first diagnostic, which it returns.
func analyze(t *testing.T, sources map[string]string) (map[string]*pipeline.PipelineContext, *diagnostics.DiagnosticError) {
	t.Helper()

	paths := make([]string, 0, len(sources))
	for path := range sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	index := NewClassIndex()
	out := make(map[string]*pipeline.PipelineContext, len(paths))
	for _, path := range paths {
		ctx := pipeline.NewPipelineContext(sources[path])
		ctx.FilePath = path
		ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
		require.Empty(t, ctx.Errors, "parse %s", path)
		if err := index.Declare(ctx.AstRoot); err != nil {
			return out, err
		}
		out[path] = ctx
	}

	for _, path := range paths {
		ctx := (&Processor{Index: index}).Process(out[path])
		if len(ctx.Errors) > 0 {
			return out, ctx.Errors[0]
		}
	}
	return out, nil
}

func analyzeMain(t *testing.T, body string) *diagnostics.DiagnosticError {
	t.Helper()
	_, err := analyze(t, map[string]string{"Main.jot": "class Main {\n" + body + "\n}"})
	return err
}

func TestResolvesReferences(t *testing.T) {
	ctxs, err := analyze(t, map[string]string{
		"app/util/Strings.jot": `package app.util;

class Strings {
    static String sep = ",";
    static String join(String a, String b) { return a + sep + b; }
}`,
		"app/Main.jot": `package app;

import app.util.Strings;

class Main {
    static int count;

    static void main(String[] args) {
        int local = args.length;
        count = local + app.util.Strings.sep.length();
        System.out.println(Strings.join("a", "b"));
        Thread.start(Main::tick);
    }

    static void tick() {}
}`,
	})
	require.Nil(t, err)

	ctx := ctxs["app/Main.jot"]
	require.Equal(t, []string{"app.Main", "app.util.Strings"}, ctx.References)

	main := ctx.AstRoot.Classes[0].Methods()[0]
	require.Equal(t, 2, main.LocalCount)

	stmts := main.Body.Statements
	local := stmts[0].(*ast.VarStatement)
	require.Equal(t, 1, local.Slot)
	length := local.Value.(*ast.MemberExpression)
	require.Equal(t, ast.RefArrayLength, length.Resolved.Kind)

	assign := stmts[1].(*ast.AssignStatement)
	target := assign.Target.(*ast.Identifier)
	require.Equal(t, ast.RefStaticField, target.Resolved.Kind)
	require.Equal(t, "app.Main", target.Resolved.Class)

	sum := assign.Value.(*ast.InfixExpression)
	call := sum.Right.(*ast.CallExpression)
	require.Equal(t, ast.RefVirtualCall, call.Resolved.Kind)
	field := call.Function.(*ast.MemberExpression).Object.(*ast.MemberExpression)
	require.Equal(t, ast.RefStaticField, field.Resolved.Kind)
	require.Equal(t, "app.util.Strings", field.Resolved.Class)

	println := stmts[2].(*ast.ExpressionStatement).Expression.(*ast.CallExpression)
	require.Equal(t, ast.RefNativeCall, println.Resolved.Kind)
	require.Equal(t, "System.out.println", println.Resolved.Native)
	join := println.Arguments[0].(*ast.CallExpression)
	require.Equal(t, ast.RefStaticCall, join.Resolved.Kind)
	require.Equal(t, "app.util.Strings", join.Resolved.Class)

	start := stmts[3].(*ast.ExpressionStatement).Expression.(*ast.CallExpression)
	ref := start.Arguments[0].(*ast.MethodRefExpression)
	require.Equal(t, "app.Main", ref.Resolved.Class)
	require.Equal(t, "tick", ref.Resolved.Member)
}

func TestSlotsAreNotReused(t *testing.T) {
	ctxs, err := analyze(t, map[string]string{"Main.jot": `class Main {
    static void main(String[] args) {
        for (int i = 0; i < 2; i++) {}
        for (int i = 0; i < 2; i++) {}
        int j = 0;
    }
}`})
	require.Nil(t, err)

	main := ctxs["Main.jot"].AstRoot.Classes[0].Methods()[0]
	require.Equal(t, 4, main.LocalCount)
	require.Equal(t, 3, main.Body.Statements[2].(*ast.VarStatement).Slot)
}

func TestJavaLangNames(t *testing.T) {
	err := analyzeMain(t, `static void main(String[] args) {
    throw new java.lang.IllegalStateException("x");
}`)
	require.Nil(t, err)
}

func TestDeclarationErrors(t *testing.T) {
	tests := []struct {
		name    string
		sources map[string]string
		code    diagnostics.ErrorCode
		message string
	}{
		{
			name: "duplicate class",
			sources: map[string]string{
				"A.jot": "class Dup {}",
				"B.jot": "class Dup {}",
			},
			code:    diagnostics.ErrA001,
			message: "duplicate class: Dup",
		},
		{
			name:    "reserved class name",
			sources: map[string]string{"A.jot": "class String {}"},
			code:    diagnostics.ErrA001,
			message: "class name String is reserved",
		},
		{
			name:    "duplicate member",
			sources: map[string]string{"A.jot": "class A {\n static int x;\n static void x() {}\n}"},
			code:    diagnostics.ErrA002,
			message: "x is already defined in class A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyze(t, tt.sources)
			require.NotNil(t, err)
			require.Equal(t, tt.code, err.Code)
			require.Equal(t, tt.message, err.Message)
		})
	}
}

func TestAnalysisErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		code    diagnostics.ErrorCode
		message string
	}{
		{
			name:    "instance field",
			body:    "int x;",
			code:    diagnostics.ErrA005,
			message: "instance field x is not supported; declare it static",
		},
		{
			name:    "duplicate local",
			body:    "static void m(int a) {\n int a = 1;\n}",
			code:    diagnostics.ErrA003,
			message: "variable a is already defined in method m",
		},
		{
			name:    "break outside loop",
			body:    "static void m() {\n break;\n}",
			code:    diagnostics.ErrA004,
			message: "break outside switch or loop",
		},
		{
			name:    "continue outside loop",
			body:    "static void m() {\n if (true) continue;\n}",
			code:    diagnostics.ErrA004,
			message: "continue outside of loop",
		},
		{
			name:    "declaration as branch body",
			body:    "static void m() {\n if (true) int x = 1;\n}",
			code:    diagnostics.ErrA005,
			message: "variable declaration not allowed here",
		},
		{
			name:    "missing return value",
			body:    "static int m() {\n return;\n}",
			code:    diagnostics.ErrA005,
			message: "missing return value",
		},
		{
			name:    "unexpected return value",
			body:    "static void m() {\n return 1;\n}",
			code:    diagnostics.ErrA005,
			message: "incompatible types: unexpected return value",
		},
		{
			name:    "assign to length",
			body:    "static void m(int[] xs) {\n xs.length = 2;\n}",
			code:    diagnostics.ErrA005,
			message: "cannot assign a value to final variable length",
		},
		{
			name:    "void variable",
			body:    "static void m() {\n void x = null;\n}",
			code:    diagnostics.ErrA005,
			message: "'void' type not allowed here",
		},
		{
			name:    "instantiate non-throwable",
			body:    "static void m() {\n throw new Main();\n}",
			code:    diagnostics.ErrA005,
			message: "class Main cannot be instantiated",
		},
		{
			name:    "instance method from static context",
			body:    "void helper() {}\nstatic void m() {\n helper();\n}",
			code:    diagnostics.ErrA005,
			message: "non-static method helper cannot be referenced from a static context",
		},
		{
			name:    "class as value",
			body:    "static void m() {\n System.out.println(Main);\n}",
			code:    diagnostics.ErrA005,
			message: "class Main cannot be used as a value",
		},
		{
			name:    "unknown variable",
			body:    "static void m() {\n int y = missing + 1;\n}",
			code:    diagnostics.ErrR003,
			message: "cannot find symbol: variable missing",
		},
		{
			name:    "unknown type",
			body:    "static void m(Widget w) {}",
			code:    diagnostics.ErrR001,
			message: "cannot find symbol: class Widget",
		},
		{
			name:    "unknown method",
			body:    "static void m() {\n nothing();\n}",
			code:    diagnostics.ErrR002,
			message: "cannot find symbol: method nothing in class Main",
		},
		{
			name:    "unknown native",
			body:    "static void m() {\n Math.pow(2, 3);\n}",
			code:    diagnostics.ErrR002,
			message: "cannot find symbol: method Math.pow",
		},
		{
			name:    "wrong static arity",
			body:    "static int twice(int x) { return x * 2; }\nstatic void m() {\n twice(1, 2);\n}",
			code:    diagnostics.ErrR004,
			message: "method twice in class Main cannot be applied to given types: expected 1 argument(s), found 2",
		},
		{
			name:    "wrong native arity",
			body:    "static void m() {\n System.exit();\n}",
			code:    diagnostics.ErrR004,
			message: "method System.exit cannot be applied to 0 argument(s)",
		},
		{
			name:    "method reference with parameters",
			body:    "static void run(int n) {}\nstatic void m() {\n Thread.start(Main::run);\n}",
			code:    diagnostics.ErrR004,
			message: "method reference Main::run must take no arguments",
		},
		{
			name:    "unknown package",
			body:    "static void m() {\n nowhere.Thing.call();\n}",
			code:    diagnostics.ErrR003,
			message: "cannot find symbol: variable nowhere",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := analyzeMain(t, tt.body)
			require.NotNil(t, err)
			require.Equal(t, tt.code, err.Code, err.Error())
			require.Equal(t, tt.message, err.Message)
			require.Equal(t, "Main.jot", err.File)
		})
	}
}

func TestUnknownImport(t *testing.T) {
	_, err := analyze(t, map[string]string{
		"Main.jot": "import app.Missing;\nclass Main {}",
		"app/A.jot": "package app;\nclass A {}",
	})
	require.NotNil(t, err)
	require.Equal(t, diagnostics.ErrR001, err.Code)
	require.Equal(t, "cannot find symbol: class Missing in package app", err.Message)
	require.True(t, err.Code.IsResolution())

	_, err = analyze(t, map[string]string{"Main.jot": "import nope.Missing;\nclass Main {}"})
	require.NotNil(t, err)
	require.Equal(t, "package nope does not exist", err.Message)
}

func TestLibraryClassesAreShadowed(t *testing.T) {
	index := NewClassIndex()
	lib := NewClassInfo("util.Strings")
	lib.Methods["old"] = &MethodInfo{Name: "old", Static: true}
	index.AddLibrary(lib)

	ctx := pipeline.NewPipelineContext("package util;\nclass Strings {\n static void fresh() {}\n}")
	ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
	require.Empty(t, ctx.Errors)
	require.Nil(t, index.Declare(ctx.AstRoot))

	ci, ok := index.Lookup("util.Strings")
	require.True(t, ok)
	require.False(t, ci.FromLibrary)
	require.Contains(t, ci.Methods, "fresh")
	require.NotContains(t, ci.Methods, "old")

	// A library class arriving after a task class does not replace it.
	index.AddLibrary(lib)
	ci, _ = index.Lookup("util.Strings")
	require.False(t, ci.FromLibrary)

	require.True(t, index.IsPackage("util"))
	require.Equal(t, []string{"util.Strings"}, index.Names())
}

func TestMethodInfoIsMain(t *testing.T) {
	require.True(t, (&MethodInfo{Name: "main", Static: true, Descriptor: "(String[])void"}).IsMain())
	require.False(t, (&MethodInfo{Name: "main", Static: false, Descriptor: "(String[])void"}).IsMain())
	require.False(t, (&MethodInfo{Name: "main", Static: true, Descriptor: "()void"}).IsMain())
}
