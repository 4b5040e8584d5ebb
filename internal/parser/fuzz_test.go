package parser

import (
	"testing"

	"github.com/funvibe/jot/internal/lexer"
	"github.com/funvibe/jot/internal/pipeline"
)

// FuzzParse checks that arbitrary input either parses or fails with a
// positioned diagnostic, and never panics.
func FuzzParse(f *testing.F) {
	f.Add("class Main { static void main(String[] args) { System.out.println(\"hi\"); } }")
	f.Add("package a.b;\nimport c.D;\nclass E { static int x = 1 + 2 * 3; }")
	f.Add("class F { static int g(int n) { if (n < 2) return n; return g(n - 1) + g(n - 2); } }")
	f.Add("class { ")
	f.Add("class A { static void m() { for (;;) { x[1]++ } } }")

	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > 4000 {
			return
		}
		ctx := pipeline.NewPipelineContext(src)
		ctx.FilePath = "Fuzz.jot"
		out := pipeline.New(&lexer.LexerProcessor{}, &ParserProcessor{}).Run(ctx)
		if len(out.Errors) > 0 {
			for _, e := range out.Errors {
				if e.Code == "" || e.File != "Fuzz.jot" {
					t.Fatalf("diagnostic without code or file: %+v", e)
				}
			}
			return
		}
		if out.AstRoot == nil {
			t.Fatalf("no errors and no compilation unit for %q", src)
		}
	})
}
