package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/funvibe/jot/internal/compiler"
	"github.com/funvibe/jot/internal/config"
	"github.com/funvibe/jot/internal/entry"
	"github.com/funvibe/jot/internal/history"
	"github.com/funvibe/jot/internal/host"
	"github.com/funvibe/jot/internal/logtail"
	"github.com/funvibe/jot/internal/metrics"
	"github.com/funvibe/jot/internal/transform"
)

// task writes src as Main.jot in a fresh directory.
func task(t *testing.T, src string) compiler.Task {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Main.jot")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return compiler.Task{SourcePath: path, BuildDir: filepath.Join(dir, "build")}
}

// recorder collects callback events. Callbacks run on the dispatcher one at
// a time and are all delivered before Console.Wait returns.
type recorder struct {
	progress []compiler.Progress
	events   []string
}

func (r *recorder) options() Options {
	return Options{
		OnProgress: func(p compiler.Progress) { r.progress = append(r.progress, p) },
		OnStdout:   func(line string) { r.events = append(r.events, "out:"+line) },
		OnStderr:   func(line string) { r.events = append(r.events, "err:"+line) },
	}
}

const greeter = `class Main {
    static void main(String[] args) {
        System.out.println("name?");
        String name = System.in.readLine();
        System.out.println("hello " + name);
        System.err.println("done");
    }
}`

func TestCompileAndRun(t *testing.T) {
	var rec recorder
	con, err := CompileAndRun(context.Background(), task(t, greeter), rec.options())
	require.NoError(t, err)
	require.NotEmpty(t, con.ID)

	con.InputStdin("world\n")
	require.NoError(t, con.Wait())

	require.Equal(t, []string{"out:name?", "out:hello world", "err:done"}, rec.events)
	require.Equal(t, []compiler.Progress{
		{Task: "Main.jot", Percent: compiler.PercentStarted},
		{Task: "Main.jot", Percent: compiler.PercentParsed},
		{Task: "Main.jot", Percent: compiler.PercentAnalyzed},
		{Task: "Main.jot", Percent: compiler.PercentGenerated},
		{Task: "Main.jot", Percent: compiler.PercentWritten},
		{Task: transform.TaskName, Percent: 0},
		{Task: transform.TaskName, Percent: 100},
	}, rec.progress)
}

func TestRunSelectsEntryPoint(t *testing.T) {
	src := `class A {
    static void main(String[] args) { System.out.println("A " + args[0]); }
}

class B {
    static void main(String[] args) { System.out.println("B " + args[0]); }
}`
	var (
		rec     recorder
		offered []string
	)
	opts := rec.options()
	opts.Args = []string{"x"}
	opts.SelectEntryPoint = func(req *entry.ResolutionRequest) {
		offered = req.Candidates
		go func() { _ = req.Resolve("B") }()
	}

	require.NoError(t, Run(context.Background(), task(t, src), opts))
	require.Equal(t, []string{"A", "B"}, offered)
	require.Equal(t, []string{"out:B x"}, rec.events)
}

func TestRunReportsStageErrors(t *testing.T) {
	var rec recorder
	_, err := CompileAndRun(context.Background(), task(t, "class Main {"), rec.options())
	var ce *compiler.CompileError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, compiler.Syntax, ce.Kind)
	require.Contains(t, Describe(err), "compile failed: ")
	require.NotEmpty(t, rec.progress)
	for _, p := range rec.progress {
		require.NotEqual(t, transform.TaskName, p.Task, "transform ran after a failed compile")
	}

	_, err = CompileAndRun(context.Background(), task(t, "class Main {}"), Options{})
	var none *entry.NoEntryPointError
	require.ErrorAs(t, err, &none)

	rec = recorder{}
	opts := rec.options()
	opts.SelectEntryPoint = func(req *entry.ResolutionRequest) { _ = req.Cancel("no thanks") }
	_, err = CompileAndRun(context.Background(), task(t, twoMains), opts)
	var cancelled *entry.SelectionCancelledError
	require.ErrorAs(t, err, &cancelled)
	require.Equal(t, "no thanks", cancelled.Reason)
	require.Empty(t, rec.events, "nothing may run after a cancelled selection")
}

const twoMains = `class A {
    static void main(String[] args) { System.out.println("A"); }
}

class B {
    static void main(String[] args) { System.out.println("B"); }
}`

// blockingSelector never answers; it returns once release is closed.
func blockingSelector(t *testing.T) entry.Selector {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	return func(*entry.ResolutionRequest) { <-release }
}

func TestSelectionTimeoutDoesNotWaitForSelector(t *testing.T) {
	var rec recorder
	opts := rec.options()
	opts.SelectEntryPoint = blockingSelector(t)
	opts.SelectionTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := CompileAndRun(context.Background(), task(t, twoMains), opts)
	var cancelled *entry.SelectionCancelledError
	require.ErrorAs(t, err, &cancelled)
	require.Equal(t, "timed out", cancelled.Reason)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Empty(t, rec.events)
}

func TestContextCancelledDuringSelection(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var rec recorder
	opts := rec.options()
	opts.SelectEntryPoint = blockingSelector(t)
	opts.History = store

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err = CompileAndRun(ctx, task(t, twoMains), opts)
	var cancelled *entry.SelectionCancelledError
	require.ErrorAs(t, err, &cancelled)
	require.Equal(t, "cancelled", cancelled.Reason)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Empty(t, rec.events)

	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, history.StatusCancelled, runs[0].Status)
}

// goroutinesIn counts live goroutines whose stack mentions fn.
func goroutinesIn(fn string) int {
	buf := make([]byte, 1<<20)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	count := 0
	for _, g := range strings.Split(string(buf), "\n\n") {
		if strings.Contains(g, fn) {
			count++
		}
	}
	return count
}

const spawnedThread = "vm.(*Runtime).startThread"

func TestBackgroundThreadOutlivesMain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	con, err := CompileAndRun(ctx, task(t, `class Main {
    static int n;

    static void spin() {
        while (true) {
            n += 1;
        }
    }

    static void main(String[] args) {
        Thread.start(Main::spin);
        Thread.sleep(20);
    }
}`), Options{})
	require.NoError(t, err)
	require.NoError(t, con.Wait())

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, goroutinesIn(spawnedThread), "main returning must not stop the program's own threads")

	// The caller's context still reaches them.
	cancel()
	require.Eventually(t, func() bool { return goroutinesIn(spawnedThread) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestLogTailStoppedWhenRunEnds(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"completes", `Thread.sleep(300);`, false},
		{"throws", `Thread.sleep(300); throw new IllegalStateException("late");`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs []logtail.LogLine
			opts := Options{
				OnLog: func(l logtail.LogLine) { logs = append(logs, l) },
				LogTail: config.LogTailConfig{
					Command:     "while true; do echo I/System.out: tick; sleep 0.01; done",
					InfoPattern: config.DefaultInfoPattern,
				},
			}
			err := Run(context.Background(), task(t, "class Main {\n    static void main(String[] args) {\n        "+tt.body+"\n    }\n}"), opts)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			require.NotEmpty(t, logs)
			require.Equal(t, logtail.LogLine{Text: "I/System.out: tick"}, logs[0])
			delivered := len(logs)

			require.Eventually(t, func() bool {
				return goroutinesIn("internal/logtail.") == 0 && goroutinesIn("mvdan.cc/sh/") == 0
			}, time.Second, 10*time.Millisecond, "log tailer still running after the run ended")
			time.Sleep(50 * time.Millisecond)
			require.Len(t, logs, delivered)
		})
	}
}

func TestProgramFailure(t *testing.T) {
	var rec recorder
	err := Run(context.Background(), task(t, `class Main {
    static void main(String[] args) {
        System.out.println("before");
        throw new RuntimeException("bad");
    }
}`), rec.options())

	var inv *host.InvocationError
	require.ErrorAs(t, err, &inv)
	require.Equal(t, "Main", inv.Class)
	require.Contains(t, Describe(err), "program failed: ")
	require.Equal(t, []string{"out:before"}, rec.events)
}

func TestCancelRunningProgram(t *testing.T) {
	con, err := CompileAndRun(context.Background(), task(t, `class Main {
    static void main(String[] args) {
        while (true) {}
    }
}`), Options{})
	require.NoError(t, err)

	time.AfterFunc(10*time.Millisecond, con.Cancel)
	err = con.Wait()
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, history.StatusCancelled, statusOf(err))
}

func TestHistoryAndMetrics(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	rec := metrics.NewRecorder()

	opts := Options{History: store, Metrics: rec}
	require.NoError(t, Run(context.Background(), task(t, `class Main {
    static void main(String[] args) { System.out.println("ok"); }
}`), opts))
	_, err = CompileAndRun(context.Background(), task(t, "class Main {"), opts)
	require.Error(t, err)

	runs, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byStatus := map[string]history.Run{}
	for _, r := range runs {
		byStatus[r.Status] = r
	}
	require.Equal(t, "Main", byStatus[history.StatusSucceeded].Entry)
	require.Empty(t, byStatus[history.StatusSucceeded].Error)
	require.Contains(t, byStatus[history.StatusFailed].Error, "compile")

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	require.True(t, names["jot_runs_total"])
	require.True(t, names["jot_stage_failures_total"])
	require.True(t, names["jot_output_lines_total"])
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, history.StatusSucceeded},
		{context.Canceled, history.StatusCancelled},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), history.StatusCancelled},
		{&entry.SelectionCancelledError{Reason: "timed out"}, history.StatusCancelled},
		{errors.New("boom"), history.StatusFailed},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, statusOf(tt.err), "%v", tt.err)
	}
}

func TestFormatRewritesSources(t *testing.T) {
	tk := task(t, "class Main { static void main(String[] args) { System.out.println(1+2); } }")
	var rec recorder
	opts := rec.options()
	opts.Format = true
	require.NoError(t, Run(context.Background(), tk, opts))
	require.Equal(t, []string{"out:3"}, rec.events)

	formatted, err := os.ReadFile(tk.SourcePath)
	require.NoError(t, err)
	require.Contains(t, string(formatted), "System.out.println(1 + 2);")

	info, err := os.Stat(tk.SourcePath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
	entries, err := os.ReadDir(filepath.Dir(tk.SourcePath))
	require.NoError(t, err)
	for _, e := range entries {
		require.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file %s left behind", e.Name())
	}
}
