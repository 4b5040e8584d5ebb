// Package transform verifies and links an intermediate artifact into the
// executable artifact loaded by the host.
package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/funvibe/jot/internal/archive"
	"github.com/funvibe/jot/internal/compiler"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/entry"
	"github.com/funvibe/jot/internal/vm"
)

// TaskName is the progress task name of the transform stage.
const TaskName = "transform"

type ErrorKind int

const (
	// InvalidBytecode covers malformed class files and unresolvable references.
	InvalidBytecode ErrorKind = iota
	// IO covers an unreadable jar or an unwritable output.
	IO
)

func (k ErrorKind) String() string {
	if k == IO {
		return "io"
	}
	return "invalid bytecode"
}

type TransformError struct {
	Kind  ErrorKind
	Class string // empty when not specific to one class
	Err   error
}

func (e *TransformError) Error() string {
	if e.Class != "" {
		return fmt.Sprintf("transform %s error in %s: %v", e.Kind, e.Class, e.Err)
	}
	return fmt.Sprintf("transform %s error: %v", e.Kind, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// ExecutableArtifact is the linked program on disk.
type ExecutableArtifact struct {
	Path        string
	Classes     []string
	MainClasses []string
}

// Transform reads every class of in, verifies and links them, and writes
// buildDir/dex/program.jex atomically.
func Transform(ctx context.Context, in *compiler.IntermediateArtifact, buildDir string, progress compiler.ProgressFunc) (*ExecutableArtifact, error) {
	if progress == nil {
		progress = func(compiler.Progress) {}
	}
	progress(compiler.Progress{Task: TaskName, Percent: 0})

	if in == nil || in.JarPath == "" {
		return nil, &TransformError{Kind: IO, Err: errors.New("no intermediate artifact")}
	}
	raw, err := archive.ReadClasses(in.JarPath)
	if err != nil {
		return nil, &TransformError{Kind: IO, Err: err}
	}
	if len(raw) == 0 {
		return nil, &TransformError{Kind: InvalidBytecode, Err: fmt.Errorf("%s contains no classes", in.JarPath)}
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	classes := make([]*vm.ClassFile, 0, len(names))
	for _, name := range names {
		cf, err := vm.DecodeClassFile(raw[name])
		if err != nil {
			return nil, &TransformError{Kind: InvalidBytecode, Class: name, Err: err}
		}
		if cf.Name != name {
			return nil, &TransformError{Kind: InvalidBytecode, Class: name,
				Err: fmt.Errorf("entry declares class %s", cf.Name)}
		}
		classes = append(classes, cf)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prog, err := vm.Link(classes)
	if err != nil {
		return nil, &TransformError{Kind: InvalidBytecode, Class: failingClass(err), Err: err}
	}
	data, err := prog.Serialize()
	if err != nil {
		return nil, &TransformError{Kind: IO, Err: err}
	}

	path := filepath.Join(buildDir, config.ExecutableDirName, config.ExecutableName)
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return nil, &TransformError{Kind: IO, Err: err}
	}

	out := &ExecutableArtifact{Path: path, Classes: names, MainClasses: entry.MainClasses(prog)}

	progress(compiler.Progress{Task: TaskName, Percent: 100})
	return out, nil
}

func failingClass(err error) string {
	var ve *vm.VerifyError
	if errors.As(err, &ve) {
		return ve.Class
	}
	var le *vm.LinkError
	if errors.As(err, &le) {
		return le.Class
	}
	return ""
}

// WriteFileAtomic writes data to a temp file beside path and renames it into
// place, so readers see either the old content or the new, never a prefix.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return nil
}
