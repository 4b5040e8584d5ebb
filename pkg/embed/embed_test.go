package jot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funvibe/jot/internal/vm"
)

const counter = `class Main {
    static int total;
    static String label;
    static int[] squares;

    static void main(String[] args) {
        squares = new int[3];
        for (int i = 0; i < 3; i++) {
            squares[i] = i * i;
            total += squares[i];
        }
        label = "total";
        System.out.println(label + "=" + total);
    }
}`

func TestRunSource(t *testing.T) {
	dir := t.TempDir()
	var lines []string
	err := RunSource(context.Background(), counter, dir, Options{
		OnStdout: func(line string) { lines = append(lines, line) },
	})
	require.NoError(t, err)
	require.Equal(t, []string{"total=5"}, lines)

	saved, err := os.ReadFile(filepath.Join(dir, "src", MainFileName))
	require.NoError(t, err)
	require.Equal(t, counter, string(saved))
	require.FileExists(t, filepath.Join(dir, "build", "dex", "program.jex"))
}

func TestRunSourceCompileError(t *testing.T) {
	err := RunSource(context.Background(), "class Main { static void main(String[] args) { undefined(); } }", t.TempDir(), Options{})
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
}

func TestProgramStatics(t *testing.T) {
	task, err := SaveSource(counter, t.TempDir())
	require.NoError(t, err)
	con, err := CompileAndRun(context.Background(), task, Options{})
	require.NoError(t, err)
	require.NoError(t, con.Wait())

	prog, err := Load(filepath.Join(task.BuildDir, "dex", "program.jex"))
	require.NoError(t, err)
	require.Equal(t, []string{"Main"}, prog.MainClasses())

	var out bytes.Buffer
	ex, err := prog.Start(context.Background(), "Main", nil, &out, nil, nil)
	require.NoError(t, err)
	require.NoError(t, ex.Wait())
	<-ex.Done()
	require.Equal(t, "total=5\n", out.String())

	total, err := ex.Static("Main", "total")
	require.NoError(t, err)
	require.Equal(t, int64(5), total)

	label, err := ex.Static("Main", "label")
	require.NoError(t, err)
	require.Equal(t, "total", label)

	squares, err := ex.Static("Main", "squares")
	require.NoError(t, err)
	require.Equal(t, []interface{}{int64(0), int64(1), int64(4)}, squares)

	_, err = ex.Static("Main", "missing")
	require.ErrorContains(t, err, "no static field Main.missing")
}

func TestMarshaller(t *testing.T) {
	m := NewMarshaller()

	v, err := m.FromValue(vm.NilVal())
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = m.FromValue(vm.BoolVal(true))
	require.NoError(t, err)
	require.Equal(t, true, v)

	v, err = m.FromValue(vm.ObjVal(vm.NewStringArray([]string{"a", "b"})))
	require.NoError(t, err)
	require.Equal(t, []interface{}{"a", "b"}, v)

	exc := &vm.Exception{Class: "RuntimeException", Message: "x", HasMessage: true}
	v, err = m.FromValue(vm.ObjVal(exc))
	require.NoError(t, err)
	require.Same(t, exc, v)

	self := vm.NewArray("Object", 1)
	self.Set(0, vm.ObjVal(self))
	_, err = m.FromValue(vm.ObjVal(self))
	require.ErrorContains(t, err, "contains itself")

	_, err = m.FromValue(vm.ObjVal(struct{}{}))
	require.ErrorContains(t, err, "unsupported object")
}
