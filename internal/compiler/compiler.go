// Package compiler turns a source file or directory into an intermediate
// artifact: a classes/ tree plus classes.jar holding every class the program
// needs, including the library classes it references.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/funvibe/jot/internal/analyzer"
	"github.com/funvibe/jot/internal/archive"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/lexer"
	"github.com/funvibe/jot/internal/parser"
	"github.com/funvibe/jot/internal/pipeline"
	"github.com/funvibe/jot/internal/vm"
)

// Task describes one compile request.
type Task struct {
	// SourcePath is a .jot file or a directory searched recursively.
	SourcePath string
	BuildDir   string
	// LibraryDir holds prebuilt .jar and .jclass files. Optional.
	LibraryDir string
}

// Progress reports how far one source unit has come, 0 to 100.
type Progress struct {
	Task    string
	Percent int
}

type ProgressFunc func(Progress)

// Per-unit progress milestones.
const (
	PercentStarted   = 0
	PercentParsed    = 25
	PercentAnalyzed  = 50
	PercentGenerated = 75
	PercentWritten   = 100
)

// IntermediateArtifact is the output of a successful compile.
type IntermediateArtifact struct {
	// JarPath is buildDir/classes.jar.
	JarPath string
	// ClassesDir is buildDir/classes.
	ClassesDir string
	// Classes lists every class in the jar, sorted.
	Classes []string
	// LibraryClasses lists the classes copied from the library directory.
	LibraryClasses []string
	// MainClasses lists task classes with an entry point, sorted.
	MainClasses []string
}

// unit is one source file moving through the stages.
type unit struct {
	name string // path relative to the source root
	path string
	ctx  *pipeline.PipelineContext
}

// Compile runs every stage for every source unit and writes the artifact.
// Progress callbacks are invoked synchronously from the calling goroutine.
func Compile(ctx context.Context, task Task, progress ProgressFunc) (*IntermediateArtifact, error) {
	return compile(ctx, task, progress, true)
}

// CompileLibrary compiles like Compile but only writes classes.jar, for use as
// another task's library.
func CompileLibrary(ctx context.Context, task Task, progress ProgressFunc) (*IntermediateArtifact, error) {
	return compile(ctx, task, progress, false)
}

func compile(ctx context.Context, task Task, progress ProgressFunc, writeTree bool) (*IntermediateArtifact, error) {
	if progress == nil {
		progress = func(Progress) {}
	}

	units, err := discover(task.SourcePath)
	if err != nil {
		return nil, err
	}

	lib, err := LoadLibrary(task.LibraryDir)
	if err != nil {
		return nil, ioError(task.LibraryDir, err)
	}

	classesDir := filepath.Join(task.BuildDir, config.ClassesDirName)
	if err := prepareBuildDir(task.BuildDir, classesDir); err != nil {
		return nil, err
	}

	index := analyzer.NewClassIndex()
	lib.Index(index)

	// Parse everything first: classes may refer to classes in later files.
	frontEnd := pipeline.New(&lexer.LexerProcessor{}, &parser.ParserProcessor{})
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		progress(Progress{Task: u.name, Percent: PercentStarted})

		src, err := os.ReadFile(u.path)
		if err != nil {
			return nil, ioError(u.path, err)
		}
		u.ctx = pipeline.NewPipelineContext(string(src))
		u.ctx.FilePath = u.path
		if out := frontEnd.Run(u.ctx); len(out.Errors) > 0 {
			return nil, diagnosticError(u.path, out.Errors[0])
		}
		if diag := index.Declare(u.ctx.AstRoot); diag != nil {
			u.ctx.Fail(diag)
			return nil, diagnosticError(u.path, u.ctx.Errors[0])
		}
		progress(Progress{Task: u.name, Percent: PercentParsed})
	}

	classes := make(map[string][]byte)
	var refs []string
	for _, u := range units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		backEnd := pipeline.New(&analyzer.Processor{Index: index}, &vm.CodegenProcessor{}).
			AfterEach(func(step int, _ *pipeline.PipelineContext) {
				progress(Progress{Task: u.name, Percent: PercentAnalyzed + step*25})
			})
		if out := backEnd.Run(u.ctx); len(out.Errors) > 0 {
			return nil, diagnosticError(u.path, out.Errors[0])
		}

		refs = append(refs, u.ctx.References...)
		for name, data := range u.ctx.ClassFiles {
			classes[name] = data
			cf, err := vm.DecodeClassFile(data)
			if err != nil {
				return nil, ioError(u.path, err)
			}
			refs = append(refs, cf.References...)
			if writeTree {
				if err := writeClass(classesDir, name, data); err != nil {
					return nil, err
				}
			}
		}
		progress(Progress{Task: u.name, Percent: PercentWritten})
	}

	libClasses := lib.Closure(refs)
	var copied []string
	for name, data := range libClasses {
		if _, own := classes[name]; own {
			continue
		}
		classes[name] = data
		copied = append(copied, name)
		if writeTree {
			if err := writeClass(classesDir, name, data); err != nil {
				return nil, err
			}
		}
	}
	sort.Strings(copied)

	jarPath := filepath.Join(task.BuildDir, config.ClassesJarName)
	if err := archive.WriteClasses(jarPath, classes); err != nil {
		return nil, ioError(jarPath, err)
	}

	artifact := &IntermediateArtifact{
		JarPath:        jarPath,
		Classes:        sortedNames(classes),
		LibraryClasses: copied,
	}
	if writeTree {
		artifact.ClassesDir = classesDir
	}
	artifact.MainClasses = mainClasses(index, classes)
	return artifact, nil
}

// SourceFiles lists the files a task with this SourcePath would compile, in
// lexical order.
func SourceFiles(sourcePath string) ([]string, error) {
	units, err := discover(sourcePath)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(units))
	for i, u := range units {
		paths[i] = u.path
	}
	return paths, nil
}

// discover lists the source units of a task in lexical order.
func discover(sourcePath string) ([]*unit, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, ioError(sourcePath, err)
	}
	if !info.IsDir() {
		return []*unit{{name: filepath.Base(sourcePath), path: sourcePath}}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(sourcePath), config.SourceGlob)
	if err != nil {
		return nil, ioError(sourcePath, err)
	}
	if len(matches) == 0 {
		return nil, ioError(sourcePath, fmt.Errorf("no %s files found", config.SourceFileExt))
	}
	sort.Strings(matches)

	units := make([]*unit, len(matches))
	for i, rel := range matches {
		units[i] = &unit{name: rel, path: filepath.Join(sourcePath, filepath.FromSlash(rel))}
	}
	return units, nil
}

// prepareBuildDir creates buildDir and empties its classes tree.
func prepareBuildDir(buildDir, classesDir string) error {
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return ioError(buildDir, err)
	}
	if err := os.RemoveAll(classesDir); err != nil {
		return ioError(classesDir, err)
	}
	return nil
}

func writeClass(classesDir, name string, data []byte) error {
	path := filepath.Join(classesDir, filepath.FromSlash(archive.ClassPath(name)))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ioError(path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ioError(path, err)
	}
	return nil
}

func sortedNames(classes map[string][]byte) []string {
	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mainClasses(index *analyzer.ClassIndex, classes map[string][]byte) []string {
	var out []string
	for _, name := range index.MainClasses() {
		ci, _ := index.Lookup(name)
		if _, ok := classes[name]; ok && !ci.FromLibrary {
			out = append(out, name)
		}
	}
	return out
}
