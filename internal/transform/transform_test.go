package transform

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/funvibe/jot/internal/archive"
	"github.com/funvibe/jot/internal/compiler"
	"github.com/funvibe/jot/internal/vm"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, src string) (*compiler.IntermediateArtifact, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Main.jot")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	build := filepath.Join(dir, "build")
	artifact, err := compiler.Compile(context.Background(), compiler.Task{SourcePath: path, BuildDir: build}, nil)
	require.NoError(t, err)
	return artifact, build
}

func TestTransform(t *testing.T) {
	in, build := compileSource(t, `class Main {
    static void main(String[] args) {
        Other.run();
    }
}

class Other {
    static void run() {}
    static void main(String[] args) {}
}`)

	var events []compiler.Progress
	out, err := Transform(context.Background(), in, build, func(p compiler.Progress) {
		events = append(events, p)
	})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(build, "dex", "program.jex"), out.Path)
	require.Equal(t, []string{"Main", "Other"}, out.Classes)
	require.Equal(t, []string{"Main", "Other"}, out.MainClasses)
	require.Equal(t, []compiler.Progress{{Task: TaskName, Percent: 0}, {Task: TaskName, Percent: 100}}, events)

	data, err := os.ReadFile(out.Path)
	require.NoError(t, err)
	prog, err := vm.DeserializeProgram(data)
	require.NoError(t, err)
	require.Len(t, prog.Classes, 2)

	// No temp files are left beside the output.
	entries, err := os.ReadDir(filepath.Dir(out.Path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTransformRejectsCorruptClass(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, "classes.jar")
	require.NoError(t, archive.WriteClasses(jar, map[string][]byte{"Broken": []byte("not a class")}))

	_, err := Transform(context.Background(), &compiler.IntermediateArtifact{JarPath: jar}, dir, nil)
	var te *TransformError
	require.ErrorAs(t, err, &te)
	require.Equal(t, InvalidBytecode, te.Kind)
	require.Equal(t, "Broken", te.Class)
	require.NoFileExists(t, filepath.Join(dir, "dex", "program.jex"))
}

func TestTransformRejectsMisnamedEntry(t *testing.T) {
	in, build := compileSource(t, "class Main {\n static void main(String[] args) {}\n}")
	classes, err := archive.ReadClasses(in.JarPath)
	require.NoError(t, err)

	jar := filepath.Join(build, "renamed.jar")
	require.NoError(t, archive.WriteClasses(jar, map[string][]byte{"Elsewhere": classes["Main"]}))

	_, err = Transform(context.Background(), &compiler.IntermediateArtifact{JarPath: jar}, build, nil)
	var te *TransformError
	require.ErrorAs(t, err, &te)
	require.Equal(t, InvalidBytecode, te.Kind)
	require.Contains(t, te.Error(), "entry declares class Main")
}

func TestTransformReportsLinkFailure(t *testing.T) {
	in, build := compileSource(t, `class Main {
    static void main(String[] args) {
        Other.run();
    }
}

class Other {
    static void run() {}
}`)

	classes, err := archive.ReadClasses(in.JarPath)
	require.NoError(t, err)
	delete(classes, "Other")
	require.NoError(t, archive.WriteClasses(in.JarPath, classes))

	_, err = Transform(context.Background(), in, build, nil)
	var te *TransformError
	require.ErrorAs(t, err, &te)
	require.Equal(t, InvalidBytecode, te.Kind)
	require.Equal(t, "Main", te.Class)

	var le *vm.LinkError
	require.ErrorAs(t, err, &le)
}

func TestTransformIOErrors(t *testing.T) {
	_, err := Transform(context.Background(), nil, t.TempDir(), nil)
	var te *TransformError
	require.ErrorAs(t, err, &te)
	require.Equal(t, IO, te.Kind)

	_, err = Transform(context.Background(), &compiler.IntermediateArtifact{JarPath: filepath.Join(t.TempDir(), "missing.jar")}, t.TempDir(), nil)
	require.ErrorAs(t, err, &te)
	require.Equal(t, IO, te.Kind)

	empty := filepath.Join(t.TempDir(), "empty.jar")
	require.NoError(t, archive.WriteClasses(empty, map[string][]byte{}))
	_, err = Transform(context.Background(), &compiler.IntermediateArtifact{JarPath: empty}, t.TempDir(), nil)
	require.ErrorAs(t, err, &te)
	require.Equal(t, InvalidBytecode, te.Kind)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Main.jot")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, WriteFileAtomic(path, []byte("new content"), 0o640))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "new content", string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	// A directory in the way makes the rename fail; nothing is left behind.
	blocked := filepath.Join(dir, "taken")
	require.NoError(t, os.Mkdir(blocked, 0o755))
	require.Error(t, WriteFileAtomic(blocked, []byte("x"), 0o644))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{"Main.jot", "taken"}, names)
}
