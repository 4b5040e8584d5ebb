package vm

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/funvibe/jot/internal/analyzer"
	"github.com/funvibe/jot/internal/lexer"
	"github.com/funvibe/jot/internal/parser"
	"github.com/funvibe/jot/internal/pipeline"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is written by program threads and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// compileClasses runs the full front end over path->source pairs and
// returns the decoded class files.
func compileClasses(t *testing.T, sources map[string]string) []*ClassFile {
	t.Helper()

	paths := make([]string, 0, len(sources))
	for path := range sources {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	index := analyzer.NewClassIndex()
	parsed := make([]*pipeline.PipelineContext, 0, len(paths))
	for _, path := range paths {
		ctx := pipeline.NewPipelineContext(sources[path])
		ctx.FilePath = path
		ctx = pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{}).Run(ctx)
		require.Empty(t, ctx.Errors, "parse %s", path)
		require.Nil(t, index.Declare(ctx.AstRoot))
		parsed = append(parsed, ctx)
	}

	var classes []*ClassFile
	for _, ctx := range parsed {
		ctx = pipeline.New(&analyzer.Processor{Index: index}, &CodegenProcessor{}).Run(ctx)
		require.Empty(t, ctx.Errors, "compile %s", ctx.FilePath)
		for _, data := range ctx.ClassFiles {
			cf, err := DecodeClassFile(data)
			require.NoError(t, err)
			classes = append(classes, cf)
		}
	}
	return classes
}

func compileProgram(t *testing.T, sources map[string]string) *Program {
	t.Helper()
	prog, err := Link(compileClasses(t, sources))
	require.NoError(t, err)
	return prog
}

type result struct {
	stdout string
	stderr string
	err    error
}

// runMain initializes a fresh runtime and invokes class.main with no arguments.
func runMain(t *testing.T, ctx context.Context, prog *Program, class, stdin string) result {
	t.Helper()
	var stdout, stderr lockedBuffer
	rt := NewRuntime(ctx, prog, IO{Stdout: &stdout, Stderr: &stderr, Stdin: strings.NewReader(stdin)})
	if err := rt.Initialize(); err != nil {
		return result{stdout.String(), stderr.String(), err}
	}
	ci, mi, ok := FindMain(prog, class)
	require.True(t, ok, "no main in %s", class)
	_, err := rt.Invoke(ci, mi, []Value{ObjVal(NewStringArray(nil))})
	return result{stdout.String(), stderr.String(), err}
}

// runSource compiles a single Main.jot and runs Main.main.
func runSource(t *testing.T, src string) result {
	t.Helper()
	prog := compileProgram(t, map[string]string{"Main.jot": src})
	return runMain(t, context.Background(), prog, "Main", "")
}
